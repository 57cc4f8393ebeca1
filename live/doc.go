// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package live pushes election results to websocket subscribers.

	eng := engine.New(st)
	hub := live.NewHub(eng, cfg.ResultsRefresh)
	eng.OnCommit(hub.Notify)
	go hub.Run(ctx)

A push is triggered by a committed allocation (Notify) and by the periodic
refresh. Both triggers compute the same read, so a missed notification only
delays an update until the next tick.
*/
package live
