// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/danielhkuo/quickly-elect/engine"
	"github.com/danielhkuo/quickly-elect/models"
	"github.com/danielhkuo/quickly-elect/store"
	"github.com/danielhkuo/quickly-elect/testutil"
)

type ballotFixture struct {
	election  models.Election
	office    string
	candidate string
	voter     models.Voter
}

func setupBallot(t *testing.T, st store.Store, state string, baseVotes, powers int) ballotFixture {
	t.Helper()

	cfg := testutil.GetTestConfig()
	election, _ := testutil.CreateTestElection(t, st, cfg, state)
	office := testutil.AddTestOffice(t, st, election.ID, "President")
	candidate := testutil.AddTestCandidate(t, st, election.ID, office, "Ana", 1)
	voter := testutil.CreateTestVoter(t, st, "Voter", baseVotes, powers)

	return ballotFixture{election: election, office: office, candidate: candidate, voter: voter}
}

func castVote(h *VotingHandler, electionID, token string, body interface{}) *httptest.ResponseRecorder {
	headers := map[string]string{}
	if token != "" {
		headers["X-Voter-Token"] = token
	}
	req := testutil.MakeRequest("POST", "/elections/"+electionID+"/votes", body, headers)
	req.SetPathValue("id", electionID)
	w := httptest.NewRecorder()
	h.CastVote(w, req)
	return w
}

func TestCastVote(t *testing.T) {
	st := testutil.SetupTestStore(t)
	cfg := testutil.GetTestConfig()
	handler := NewVotingHandler(st, engine.New(st), cfg)

	f := setupBallot(t, st, models.StateActive, 1, 2)

	w := castVote(handler, f.election.ID, f.voter.Token, models.CastVoteRequest{
		OfficeID:    f.office,
		CandidateID: f.candidate,
		Quantity:    2,
	})
	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.CastVoteResponse
	testutil.AssertJSON(t, w, &resp)
	if resp.VotesUsed != 2 || resp.Remaining != 1 {
		t.Errorf("Expected votes_used=2 remaining=1, got %+v", resp)
	}

	// Exceeding the balance reports what is left.
	w = castVote(handler, f.election.ID, f.voter.Token, models.CastVoteRequest{
		OfficeID:    f.office,
		CandidateID: f.candidate,
		Quantity:    2,
	})
	testutil.AssertStatus(t, w, http.StatusUnprocessableEntity)

	var errResp models.ErrorResponse
	testutil.AssertJSON(t, w, &errResp)
	if errResp.Kind != "insufficient_votes" {
		t.Errorf("Expected kind insufficient_votes, got %q", errResp.Kind)
	}
	if errResp.Remaining == nil || *errResp.Remaining != 1 {
		t.Errorf("Expected remaining 1, got %v", errResp.Remaining)
	}
	if errResp.Retryable {
		t.Error("Insufficient votes must not be retryable")
	}

	used, err := st.VotesUsed(context.Background(), models.ParticipationKey{
		ElectionID: f.election.ID,
		VoterID:    f.voter.ID,
		OfficeID:   f.office,
	})
	if err != nil {
		t.Fatalf("Failed to read votes used: %v", err)
	}
	if used != 2 {
		t.Errorf("Rejected vote changed votes_used to %d", used)
	}
}

func TestCastVoteRejections(t *testing.T) {
	st := testutil.SetupTestStore(t)
	cfg := testutil.GetTestConfig()
	handler := NewVotingHandler(st, engine.New(st), cfg)

	f := setupBallot(t, st, models.StateActive, 1, 0)
	pending := setupBallot(t, st, models.StatePending, 1, 0)
	other := setupBallot(t, st, models.StateActive, 1, 0)

	tests := []struct {
		name           string
		electionID     string
		token          string
		body           interface{}
		expectedStatus int
		expectedKind   string
	}{
		{
			name:           "missing token",
			electionID:     f.election.ID,
			body:           models.CastVoteRequest{OfficeID: f.office, CandidateID: f.candidate, Quantity: 1},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "malformed token",
			electionID:     f.election.ID,
			token:          "short",
			body:           models.CastVoteRequest{OfficeID: f.office, CandidateID: f.candidate, Quantity: 1},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "unknown token",
			electionID:     f.election.ID,
			token:          "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
			body:           models.CastVoteRequest{OfficeID: f.office, CandidateID: f.candidate, Quantity: 1},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "missing office",
			electionID:     f.election.ID,
			token:          f.voter.Token,
			body:           models.CastVoteRequest{CandidateID: f.candidate, Quantity: 1},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "zero quantity",
			electionID:     f.election.ID,
			token:          f.voter.Token,
			body:           models.CastVoteRequest{OfficeID: f.office, CandidateID: f.candidate, Quantity: 0},
			expectedStatus: http.StatusBadRequest,
			expectedKind:   "invalid_quantity",
		},
		{
			name:           "election not active",
			electionID:     pending.election.ID,
			token:          f.voter.Token,
			body:           models.CastVoteRequest{OfficeID: pending.office, CandidateID: pending.candidate, Quantity: 1},
			expectedStatus: http.StatusConflict,
			expectedKind:   "election_not_active",
		},
		{
			name:           "candidate from another election",
			electionID:     f.election.ID,
			token:          f.voter.Token,
			body:           models.CastVoteRequest{OfficeID: f.office, CandidateID: other.candidate, Quantity: 1},
			expectedStatus: http.StatusBadRequest,
			expectedKind:   "invalid_target",
		},
		{
			name:           "unknown candidate",
			electionID:     f.election.ID,
			token:          f.voter.Token,
			body:           models.CastVoteRequest{OfficeID: f.office, CandidateID: "missing", Quantity: 1},
			expectedStatus: http.StatusNotFound,
			expectedKind:   "not_found",
		},
		{
			name:           "unknown election",
			electionID:     "missing",
			token:          f.voter.Token,
			body:           models.CastVoteRequest{OfficeID: f.office, CandidateID: f.candidate, Quantity: 1},
			expectedStatus: http.StatusNotFound,
			expectedKind:   "not_found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := castVote(handler, tt.electionID, tt.token, tt.body)

			testutil.AssertStatus(t, w, tt.expectedStatus)
			if tt.expectedKind != "" {
				var resp models.ErrorResponse
				testutil.AssertJSON(t, w, &resp)
				if resp.Kind != tt.expectedKind {
					t.Errorf("Expected kind %q, got %q", tt.expectedKind, resp.Kind)
				}
			}
		})
	}
}

func TestGetMyStatus(t *testing.T) {
	st := testutil.SetupTestStore(t)
	cfg := testutil.GetTestConfig()
	eng := engine.New(st)
	handler := NewVotingHandler(st, eng, cfg)

	f := setupBallot(t, st, models.StateActive, 1, 1)
	secretary := testutil.AddTestOffice(t, st, f.election.ID, "Secretary")

	w := castVote(handler, f.election.ID, f.voter.Token, models.CastVoteRequest{
		OfficeID:    f.office,
		CandidateID: f.candidate,
		Quantity:    1,
	})
	testutil.AssertStatus(t, w, http.StatusOK)

	req := httptest.NewRequest("GET", "/elections/"+f.election.ID+"/my-status", nil)
	req.SetPathValue("id", f.election.ID)
	req.Header.Set("X-Voter-Token", f.voter.Token)
	w = httptest.NewRecorder()

	handler.GetMyStatus(w, req)

	testutil.AssertStatus(t, w, http.StatusOK)

	var resp models.VoterStatusResponse
	testutil.AssertJSON(t, w, &resp)

	if len(resp.Offices) != 2 {
		t.Fatalf("Expected 2 offices, got %d", len(resp.Offices))
	}
	for _, o := range resp.Offices {
		if o.Entitlement != 2 {
			t.Errorf("Expected entitlement 2 for %s, got %d", o.OfficeName, o.Entitlement)
		}
		switch o.OfficeID {
		case f.office:
			if o.VotesUsed != 1 || o.Remaining != 1 {
				t.Errorf("Expected 1 used, 1 remaining for President, got %+v", o)
			}
		case secretary:
			if o.VotesUsed != 0 || o.Remaining != 2 {
				t.Errorf("Expected untouched Secretary, got %+v", o)
			}
		default:
			t.Errorf("Unexpected office %s", o.OfficeID)
		}
	}
}

func TestInactiveVoterCannotVote(t *testing.T) {
	st := store.NewMemStore()
	cfg := testutil.GetTestConfig()
	handler := NewVotingHandler(st, engine.New(st), cfg)

	f := setupBallot(t, st, models.StateActive, 1, 0)
	inactive := f.voter
	inactive.ID = "inactive-voter"
	inactive.DocumentID = "inactive-doc"
	inactive.Token = "BBBBBBBBBBBBBBBBBBBBBBBBBBBBBBBB"
	inactive.Active = false
	if err := st.CreateVoter(context.Background(), inactive); err != nil {
		t.Fatalf("Failed to create inactive voter: %v", err)
	}

	w := castVote(handler, f.election.ID, inactive.Token, models.CastVoteRequest{
		OfficeID:    f.office,
		CandidateID: f.candidate,
		Quantity:    1,
	})

	testutil.AssertStatus(t, w, http.StatusForbidden)
}

// TestCastVoteConflict covers the answer a client gets when another vote
// commits between the balance check and the write.
func TestCastVoteConflict(t *testing.T) {
	base := testutil.SetupTestStore(t)
	f := setupBallot(t, base, models.StateActive, 1, 2)

	first := NewVotingHandler(base, engine.New(base), testutil.GetTestConfig())
	w := castVote(first, f.election.ID, f.voter.Token, models.CastVoteRequest{
		OfficeID:    f.office,
		CandidateID: f.candidate,
		Quantity:    2,
	})
	testutil.AssertStatus(t, w, http.StatusOK)

	lagging := &testutil.LaggingStore{Store: base, Stale: 0}
	handler := NewVotingHandler(lagging, engine.New(lagging), testutil.GetTestConfig())

	w = castVote(handler, f.election.ID, f.voter.Token, models.CastVoteRequest{
		OfficeID:    f.office,
		CandidateID: f.candidate,
		Quantity:    2,
	})
	testutil.AssertStatus(t, w, http.StatusConflict)

	var errResp models.ErrorResponse
	testutil.AssertJSON(t, w, &errResp)
	if errResp.Kind != "conflict" || !errResp.Retryable {
		t.Errorf("Expected retryable conflict, got %+v", errResp)
	}
	if errResp.Remaining == nil || *errResp.Remaining != 1 {
		t.Errorf("Expected remaining 1, got %v", errResp.Remaining)
	}
}
