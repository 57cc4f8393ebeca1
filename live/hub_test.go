// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package live

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/danielhkuo/quickly-elect/models"
)

// countingSource returns a snapshot whose TotalVotes is the number of reads.
type countingSource struct {
	reads atomic.Int32
}

func (s *countingSource) ElectionResults(_ context.Context, electionID string) (models.ElectionResults, error) {
	if electionID == "broken" {
		return models.ElectionResults{}, errors.New("no such election")
	}
	n := s.reads.Add(1)
	return models.ElectionResults{
		Election:   models.Election{ID: electionID},
		TotalVotes: int(n),
	}, nil
}

func startHub(t *testing.T, refresh time.Duration) (*Hub, *countingSource, *httptest.Server) {
	t.Helper()

	source := &countingSource{}
	hub := NewHub(source, refresh)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, strings.TrimPrefix(r.URL.Path, "/"))
	}))

	t.Cleanup(func() {
		cancel()
		<-done
		server.Close()
	})

	return hub, source, server
}

func dial(t *testing.T, server *httptest.Server, electionID string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/" + electionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial hub: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readResults(t *testing.T, conn *websocket.Conn) models.ElectionResults {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var results models.ElectionResults
	if err := conn.ReadJSON(&results); err != nil {
		t.Fatalf("Failed to read results: %v", err)
	}
	return results
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("Condition not met before deadline")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestHubInitialSnapshot(t *testing.T) {
	hub, _, server := startHub(t, time.Hour)

	conn := dial(t, server, "election-1")

	results := readResults(t, conn)
	if results.Election.ID != "election-1" {
		t.Errorf("Expected snapshot for election-1, got %q", results.Election.ID)
	}

	waitFor(t, func() bool { return hub.Subscribers("election-1") == 1 })
}

func TestHubNotifyPushes(t *testing.T) {
	hub, _, server := startHub(t, time.Hour)

	conn := dial(t, server, "election-1")
	other := dial(t, server, "election-2")

	first := readResults(t, conn)
	readResults(t, other)
	waitFor(t, func() bool { return hub.Subscribers("election-1") == 1 && hub.Subscribers("election-2") == 1 })

	hub.Notify("election-1", "office-1")

	pushed := readResults(t, conn)
	if pushed.TotalVotes <= first.TotalVotes {
		t.Errorf("Expected a fresh snapshot after notify, got %d after %d", pushed.TotalVotes, first.TotalVotes)
	}

	// election-2 has no change, so nothing should arrive.
	other.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := other.ReadMessage(); err == nil {
		t.Error("Unrelated subscriber received a push")
	}
}

func TestHubRefreshTick(t *testing.T) {
	_, source, server := startHub(t, 50*time.Millisecond)

	conn := dial(t, server, "election-1")
	readResults(t, conn)

	second := readResults(t, conn)
	third := readResults(t, conn)
	if third.TotalVotes <= second.TotalVotes {
		t.Errorf("Expected refresh ticks to recompute results, got %d then %d", second.TotalVotes, third.TotalVotes)
	}
	if source.reads.Load() < 3 {
		t.Errorf("Expected at least 3 reads, got %d", source.reads.Load())
	}
}

func TestHubNotifyWithoutSubscribers(t *testing.T) {
	hub, source, _ := startHub(t, time.Hour)

	for i := 0; i < changedBacklog*2; i++ {
		hub.Notify("nobody-listening", "office")
	}

	time.Sleep(50 * time.Millisecond)
	if n := source.reads.Load(); n != 0 {
		t.Errorf("Expected no reads without subscribers, got %d", n)
	}
}

func TestHubDisconnect(t *testing.T) {
	hub, _, server := startHub(t, time.Hour)

	conn := dial(t, server, "election-1")
	readResults(t, conn)
	waitFor(t, func() bool { return hub.Subscribers("election-1") == 1 })

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()

	waitFor(t, func() bool { return hub.Subscribers("election-1") == 0 })
}

func TestHubSourceError(t *testing.T) {
	hub, _, server := startHub(t, time.Hour)

	conn := dial(t, server, "broken")
	waitFor(t, func() bool { return hub.Subscribers("broken") == 1 })

	hub.Notify("broken", "office")

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("Expected no message when results cannot be computed")
	}
}
