// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/danielhkuo/quickly-elect/engine"
	"github.com/danielhkuo/quickly-elect/models"
	"github.com/danielhkuo/quickly-elect/store"
	"github.com/danielhkuo/quickly-elect/testutil"
)

func TestResultsForEmptyOffice(t *testing.T) {
	eachStore(t, func(t *testing.T, st store.Store) {
		cfg := testutil.GetTestConfig()
		eng := engine.New(st)

		election, _ := testutil.CreateTestElection(t, st, cfg, models.StateActive)
		office := testutil.AddTestOffice(t, st, election.ID, "Council")
		testutil.AddTestCandidate(t, st, election.ID, office, "Third", 3)
		testutil.AddTestCandidate(t, st, election.ID, office, "Unlisted", 0)
		testutil.AddTestCandidate(t, st, election.ID, office, "First", 1)
		testutil.AddTestCandidate(t, st, election.ID, office, "Second", 2)

		results, err := eng.ResultsFor(context.Background(), election.ID, office)
		if err != nil {
			t.Fatalf("ResultsFor failed: %v", err)
		}

		if results.TotalVotes != 0 {
			t.Errorf("Expected 0 total votes, got %d", results.TotalVotes)
		}

		expected := []string{"First", "Second", "Third", "Unlisted"}
		if len(results.Candidates) != len(expected) {
			t.Fatalf("Expected %d candidates, got %d", len(expected), len(results.Candidates))
		}
		for i, name := range expected {
			c := results.Candidates[i]
			if c.Name != name || c.Votes != 0 || c.Percentage != 0 || c.Rank != i+1 {
				t.Errorf("Row %d: expected %s with 0 votes at rank %d, got %+v", i, name, i+1, c)
			}
		}
	})
}

func TestResultsRanking(t *testing.T) {
	eachStore(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		eng := engine.New(st)
		f := newFixture(t, st, models.StateActive, 3, 0)
		second := testutil.CreateTestVoter(t, st, "Second Voter", 1, 0)

		// C gets 3, A gets 1, B gets 1; A beats B on list number.
		if _, err := eng.Allocate(ctx, f.request(2, 3)); err != nil {
			t.Fatalf("Allocation failed: %v", err)
		}
		req := f.request(1, 1)
		req.VoterID = second.ID
		if _, err := eng.Allocate(ctx, req); err != nil {
			t.Fatalf("Allocation failed: %v", err)
		}
		req = f.request(0, 1)
		req.VoterID = second.ID
		_, err := eng.Allocate(ctx, req)
		if !errors.Is(err, engine.ErrInsufficientVotes) {
			t.Fatalf("Expected the second voter to be out of votes, got %v", err)
		}

		third := testutil.CreateTestVoter(t, st, "Third Voter", 1, 0)
		req.VoterID = third.ID
		if _, err := eng.Allocate(ctx, req); err != nil {
			t.Fatalf("Allocation failed: %v", err)
		}

		results, err := eng.ResultsFor(ctx, f.election.ID, f.office)
		if err != nil {
			t.Fatalf("ResultsFor failed: %v", err)
		}

		expected := []struct {
			name       string
			votes      int
			percentage float64
			place      string
		}{
			{"C", 3, 60, "1st"},
			{"A", 1, 20, "2nd"},
			{"B", 1, 20, "3rd"},
		}
		if results.TotalVotes != 5 {
			t.Errorf("Expected 5 total votes, got %d", results.TotalVotes)
		}
		for i, e := range expected {
			c := results.Candidates[i]
			if c.Name != e.name || c.Votes != e.votes || c.Percentage != e.percentage || c.Place != e.place {
				t.Errorf("Row %d: expected %+v, got %+v", i, e, c)
			}
		}
	})
}

func TestElectionResults(t *testing.T) {
	eachStore(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		eng := engine.New(st)
		f := newFixture(t, st, models.StateActive, 1, 1)
		secretary := testutil.AddTestOffice(t, st, f.election.ID, "Secretary")
		testutil.AddTestCandidate(t, st, f.election.ID, secretary, "S", 1)

		if _, err := eng.Allocate(ctx, f.request(0, 2)); err != nil {
			t.Fatalf("Allocation failed: %v", err)
		}

		byID, err := eng.ElectionResults(ctx, f.election.ID)
		if err != nil {
			t.Fatalf("ElectionResults failed: %v", err)
		}
		byLink, err := eng.ResultsByLink(ctx, *f.election.PublicLink)
		if err != nil {
			t.Fatalf("ResultsByLink failed: %v", err)
		}

		for _, results := range []models.ElectionResults{byID, byLink} {
			if results.Election.ID != f.election.ID {
				t.Errorf("Expected election %s, got %s", f.election.ID, results.Election.ID)
			}
			if results.TotalVotes != 2 {
				t.Errorf("Expected 2 total votes, got %d", results.TotalVotes)
			}
			if len(results.Offices) != 2 {
				t.Errorf("Expected 2 offices, got %d", len(results.Offices))
			}
		}

		if _, err := eng.ResultsByLink(ctx, "missing"); !errors.Is(err, engine.ErrNotFound) {
			t.Errorf("Expected not found for unknown link, got %v", err)
		}
		if _, err := eng.ResultsFor(ctx, "other-election", f.office); !errors.Is(err, engine.ErrInvalidTarget) {
			t.Errorf("Expected invalid target for office of another election, got %v", err)
		}
	})
}

// TestParticipationFor covers a voter who used their whole entitlement in
// two of three offices and another who has not voted.
func TestParticipationFor(t *testing.T) {
	eachStore(t, func(t *testing.T, st store.Store) {
		ctx := context.Background()
		eng := engine.New(st)
		f := newFixture(t, st, models.StateActive, 1, 0)
		idle := testutil.CreateTestVoter(t, st, "Idle", 1, 0)

		secretary := testutil.AddTestOffice(t, st, f.election.ID, "Secretary")
		secretaryCandidate := testutil.AddTestCandidate(t, st, f.election.ID, secretary, "Secretary Candidate", 1)
		testutil.AddTestOffice(t, st, f.election.ID, "Treasurer")

		if _, err := eng.Allocate(ctx, f.request(0, 1)); err != nil {
			t.Fatalf("Allocation failed: %v", err)
		}
		_, err := eng.Allocate(ctx, models.AllocateRequest{
			ElectionID:  f.election.ID,
			VoterID:     f.voter.ID,
			OfficeID:    secretary,
			CandidateID: secretaryCandidate,
			Quantity:    1,
		})
		if err != nil {
			t.Fatalf("Allocation failed: %v", err)
		}

		report, err := eng.ParticipationFor(ctx, f.election.ID)
		if err != nil {
			t.Fatalf("ParticipationFor failed: %v", err)
		}

		rows := map[string]models.VoterParticipation{}
		for _, row := range report.Voters {
			rows[row.VoterID] = row
		}

		voted := rows[f.voter.ID]
		if voted.OfficesCompleted != 2 || voted.OfficesTotal != 3 || voted.VotesUsedTotal != 2 || !voted.HasVoted {
			t.Errorf("Unexpected row for voter: %+v", voted)
		}
		pending := rows[idle.ID]
		if pending.OfficesCompleted != 0 || pending.OfficesTotal != 3 || pending.HasVoted {
			t.Errorf("Unexpected row for idle voter: %+v", pending)
		}
		if report.Summary.TotalVoters != 2 || report.Summary.VotersVoted != 1 || report.Summary.ParticipationRate != 50 {
			t.Errorf("Unexpected summary: %+v", report.Summary)
		}

		encoded, err := json.Marshal(report)
		if err != nil {
			t.Fatalf("Failed to encode report: %v", err)
		}
		for _, leak := range append(f.candidates, secretaryCandidate, "Secretary Candidate", `"A"`) {
			if strings.Contains(string(encoded), leak) {
				t.Errorf("Participation report contains candidate data %q", leak)
			}
		}
	})
}

func TestParticipationPartialOffice(t *testing.T) {
	st := store.NewMemStore()
	eng := engine.New(st)
	f := newFixture(t, st, models.StateActive, 1, 2)

	if _, err := eng.Allocate(context.Background(), f.request(0, 2)); err != nil {
		t.Fatalf("Allocation failed: %v", err)
	}

	report, err := eng.ParticipationFor(context.Background(), f.election.ID)
	if err != nil {
		t.Fatalf("ParticipationFor failed: %v", err)
	}
	if len(report.Voters) != 1 {
		t.Fatalf("Expected 1 voter, got %d", len(report.Voters))
	}

	row := report.Voters[0]
	if row.OfficesVoted != 1 || row.OfficesCompleted != 0 || row.VotesUsedTotal != 2 || row.Entitlement != 3 {
		t.Errorf("A partly spent office must not count as completed: %+v", row)
	}
}
