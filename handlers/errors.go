// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/danielhkuo/quickly-elect/engine"
	"github.com/danielhkuo/quickly-elect/middleware"
)

// engineStatus maps engine rejection kinds to HTTP status codes.
var engineStatus = map[engine.Kind]int{
	engine.KindNotFound:          http.StatusNotFound,
	engine.KindElectionNotActive: http.StatusConflict,
	engine.KindInvalidTarget:     http.StatusBadRequest,
	engine.KindInvalidQuantity:   http.StatusBadRequest,
	engine.KindInsufficientVotes: http.StatusUnprocessableEntity,
	engine.KindConflict:          http.StatusConflict,
}

// writeEngineError writes err as a JSON error. Typed engine errors keep
// their kind and remaining balance; anything else is a 500.
func writeEngineError(w http.ResponseWriter, op string, err error) {
	var engineErr *engine.Error
	if !errors.As(err, &engineErr) {
		slog.Error("engine operation failed", "op", op, "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	status, ok := engineStatus[engineErr.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}

	var remaining *int
	if engineErr.Kind == engine.KindInsufficientVotes || engineErr.Kind == engine.KindConflict {
		remaining = &engineErr.Remaining
	}

	middleware.KindErrorResponse(w, status, engineErr.Kind.String(), engineErr.Message, remaining, engineErr.Retryable())
}
