// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/quickly-elect/models"
)

// ResultsFor sums the anonymous tally of one office. Every candidate of the
// office is listed, with zero votes if none were cast.
//
// Rows are ordered by votes descending, then list number ascending
// (candidates without one last), then name. The read takes no locks and may
// miss allocations that commit while it runs.
func (e *Engine) ResultsFor(ctx context.Context, electionID, officeID string) (models.OfficeResults, error) {
	office, err := e.store.Office(ctx, officeID)
	if err != nil {
		return models.OfficeResults{}, lookupError("office", officeID, err)
	}
	if office.ElectionID != electionID {
		return models.OfficeResults{}, ErrInvalidTarget
	}
	return e.officeResults(ctx, office)
}

// ElectionResults computes ResultsFor every office of the election.
func (e *Engine) ElectionResults(ctx context.Context, electionID string) (models.ElectionResults, error) {
	election, err := e.store.Election(ctx, electionID)
	if err != nil {
		return models.ElectionResults{}, lookupError("election", electionID, err)
	}
	return e.electionResults(ctx, election)
}

// ResultsByLink is ElectionResults addressed by the public results link.
func (e *Engine) ResultsByLink(ctx context.Context, link string) (models.ElectionResults, error) {
	election, err := e.store.ElectionByLink(ctx, link)
	if err != nil {
		return models.ElectionResults{}, lookupError("election", link, err)
	}
	return e.electionResults(ctx, election)
}

func (e *Engine) electionResults(ctx context.Context, election models.Election) (models.ElectionResults, error) {
	offices, err := e.store.OfficesByElection(ctx, election.ID)
	if err != nil {
		return models.ElectionResults{}, fmt.Errorf("failed to load offices: %w", err)
	}

	results := models.ElectionResults{
		Election:   election,
		Offices:    make([]models.OfficeResults, 0, len(offices)),
		ComputedAt: e.now(),
	}
	for _, office := range offices {
		officeResults, err := e.officeResults(ctx, office)
		if err != nil {
			return models.ElectionResults{}, err
		}
		results.TotalVotes += officeResults.TotalVotes
		results.Offices = append(results.Offices, officeResults)
	}
	return results, nil
}

func (e *Engine) officeResults(ctx context.Context, office models.Office) (models.OfficeResults, error) {
	candidates, err := e.store.CandidatesByOffice(ctx, office.ID)
	if err != nil {
		return models.OfficeResults{}, fmt.Errorf("failed to load candidates: %w", err)
	}
	totals, err := e.store.TallyByOffice(ctx, office.ElectionID, office.ID)
	if err != nil {
		return models.OfficeResults{}, fmt.Errorf("failed to load tally: %w", err)
	}

	rows := make([]models.CandidateResult, 0, len(candidates))
	total := 0
	for _, c := range candidates {
		votes := totals[c.ID]
		delete(totals, c.ID)
		total += votes
		rows = append(rows, models.CandidateResult{
			CandidateID: c.ID,
			Name:        c.Name,
			ListNumber:  c.ListNumber,
			Votes:       votes,
		})
	}
	for candidateID, votes := range totals {
		slog.Warn("tally rows for unknown candidate", "office_id", office.ID, "candidate_id", candidateID, "votes", votes)
	}

	rankResults(rows, total)

	return models.OfficeResults{
		OfficeID:   office.ID,
		OfficeName: office.Name,
		TotalVotes: total,
		Candidates: rows,
	}, nil
}

// rankResults sorts rows and fills Rank, Place and Percentage.
func rankResults(rows []models.CandidateResult, total int) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.Votes != b.Votes {
			return a.Votes > b.Votes
		}
		switch {
		case a.ListNumber != nil && b.ListNumber != nil && *a.ListNumber != *b.ListNumber:
			return *a.ListNumber < *b.ListNumber
		case a.ListNumber != nil && b.ListNumber == nil:
			return true
		case a.ListNumber == nil && b.ListNumber != nil:
			return false
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.CandidateID < b.CandidateID
	})

	for i := range rows {
		rows[i].Rank = i + 1
		rows[i].Place = humanize.Ordinal(i + 1)
		if total > 0 {
			rows[i].Percentage = math.Round(float64(rows[i].Votes)*1000/float64(total)) / 10
		}
	}
}
