// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/db"
	"github.com/danielhkuo/quickly-elect/models"
	"github.com/danielhkuo/quickly-elect/store"
)

// SetupTestStore opens a fresh SQLite database in a temp dir with the full
// schema. It is closed when the test ends.
func SetupTestStore(t *testing.T) *store.SQLStore {
	t.Helper()

	path := filepath.Join(t.TempDir(), "test.db")
	st, err := store.Open(store.DialectSQLite, "file:"+path+"?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	if err := db.CreateSchema(st.DB()); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return st
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:           3318,
		DatabaseURL:    "file::memory:",
		DatabaseType:   store.DialectSQLite,
		AdminKeySalt:   "test-admin-salt",
		LinkSlugSalt:   "test-link-salt",
		ResultsRefresh: time.Hour,
	}
}

// CreateTestElection creates an election and returns it with its admin key.
// state should be "pending", "active", or "finalized".
func CreateTestElection(t *testing.T, st store.Store, cfg cliparse.Config, state string) (models.Election, string) {
	t.Helper()

	id := uuid.NewString()
	link := auth.GeneratePublicLink(id, cfg.LinkSlugSalt)
	election := models.Election{
		ID:          id,
		Name:        "Test Election",
		Description: "A test election",
		State:       models.StatePending,
		PublicLink:  &link,
		CreatedAt:   time.Now(),
	}

	ctx := context.Background()
	if err := st.CreateElection(ctx, election); err != nil {
		t.Fatalf("Failed to create test election: %v", err)
	}
	if state != models.StatePending {
		if err := st.SetElectionState(ctx, id, state, time.Now()); err != nil {
			t.Fatalf("Failed to set election state: %v", err)
		}
		election.State = state
	}

	return election, auth.GenerateAdminKey(id, cfg.AdminKeySalt)
}

// AddTestOffice adds an office to an election and returns its ID
func AddTestOffice(t *testing.T, st store.Store, electionID, name string) string {
	t.Helper()

	id := uuid.NewString()
	err := st.CreateOffice(context.Background(), models.Office{
		ID:         id,
		ElectionID: electionID,
		Name:       name,
	})
	if err != nil {
		t.Fatalf("Failed to create test office: %v", err)
	}

	return id
}

// AddTestCandidate adds a candidate to an office and returns its ID.
// listNumber 0 means no list number.
func AddTestCandidate(t *testing.T, st store.Store, electionID, officeID, name string, listNumber int) string {
	t.Helper()

	c := models.Candidate{
		ID:         uuid.NewString(),
		ElectionID: electionID,
		OfficeID:   officeID,
		Name:       name,
	}
	if listNumber > 0 {
		c.ListNumber = &listNumber
	}
	if err := st.CreateCandidate(context.Background(), c); err != nil {
		t.Fatalf("Failed to create test candidate: %v", err)
	}

	return c.ID
}

// CreateTestVoter registers an active voter with the given base votes and
// powers and returns it, token included.
func CreateTestVoter(t *testing.T, st store.Store, name string, baseVotes, powers int) models.Voter {
	t.Helper()

	token, err := auth.GenerateVoterToken()
	if err != nil {
		t.Fatalf("Failed to generate voter token: %v", err)
	}

	v := models.Voter{
		ID:         uuid.NewString(),
		DocumentID: uuid.NewString(),
		FullName:   name,
		BaseVotes:  baseVotes,
		Powers:     powers,
		Active:     true,
		Token:      token,
	}
	if err := st.CreateVoter(context.Background(), v); err != nil {
		t.Fatalf("Failed to create test voter: %v", err)
	}

	return v
}

// LaggingStore wraps a Store so that the first VotesUsed read inside each
// transaction reports Stale instead of the stored value. This is what a
// transaction sees when another writer commits between its read and its
// conditional write.
type LaggingStore struct {
	store.Store
	Stale int
}

func (s *LaggingStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.Store.WithTx(ctx, func(tx store.Tx) error {
		return fn(&laggingTx{Tx: tx, stale: s.Stale})
	})
}

type laggingTx struct {
	store.Tx
	stale  int
	served bool
}

func (t *laggingTx) VotesUsed(ctx context.Context, key models.ParticipationKey) (int, error) {
	if !t.served {
		t.served = true
		return t.stale, nil
	}
	return t.Tx.VotesUsed(ctx, key)
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
