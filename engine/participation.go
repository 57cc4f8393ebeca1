// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package engine

import (
	"context"
	"fmt"
	"math"

	"github.com/danielhkuo/quickly-elect/models"
	"github.com/danielhkuo/quickly-elect/store"
)

// ParticipationFor reports, for every active voter, how much of their
// allowance they have spent in the election. It only counts votes; see
// reportParticipation for why it cannot reach candidate choices.
func (e *Engine) ParticipationFor(ctx context.Context, electionID string) (models.ParticipationReport, error) {
	return reportParticipation(ctx, e.store, electionID)
}

// reportParticipation takes a store.ParticipationReader, which has no tally
// methods, so nothing in here can see who a voter chose.
func reportParticipation(ctx context.Context, r store.ParticipationReader, electionID string) (models.ParticipationReport, error) {
	if _, err := r.Election(ctx, electionID); err != nil {
		return models.ParticipationReport{}, lookupError("election", electionID, err)
	}
	offices, err := r.OfficesByElection(ctx, electionID)
	if err != nil {
		return models.ParticipationReport{}, fmt.Errorf("failed to load offices: %w", err)
	}
	voters, err := r.ActiveVoters(ctx)
	if err != nil {
		return models.ParticipationReport{}, fmt.Errorf("failed to load voters: %w", err)
	}
	records, err := r.ParticipationByElection(ctx, electionID)
	if err != nil {
		return models.ParticipationReport{}, fmt.Errorf("failed to load participation: %w", err)
	}

	byVoter := make(map[string][]models.ParticipationRecord)
	for _, rec := range records {
		byVoter[rec.VoterID] = append(byVoter[rec.VoterID], rec)
	}

	report := models.ParticipationReport{
		ElectionID: electionID,
		Voters:     make([]models.VoterParticipation, 0, len(voters)),
	}
	for _, v := range voters {
		entitlement := Entitlement(v)
		row := models.VoterParticipation{
			VoterID:      v.ID,
			FullName:     v.FullName,
			Entitlement:  entitlement,
			OfficesTotal: len(offices),
		}
		for _, rec := range byVoter[v.ID] {
			row.VotesUsedTotal += rec.VotesUsed
			row.OfficesVoted++
			if rec.VotesUsed >= entitlement {
				row.OfficesCompleted++
			}
		}
		row.HasVoted = row.OfficesVoted > 0
		if row.HasVoted {
			report.Summary.VotersVoted++
		}
		report.Voters = append(report.Voters, row)
	}

	report.Summary.TotalVoters = len(voters)
	report.Summary.VotersPending = report.Summary.TotalVoters - report.Summary.VotersVoted
	if report.Summary.TotalVoters > 0 {
		rate := float64(report.Summary.VotersVoted) * 1000 / float64(report.Summary.TotalVoters)
		report.Summary.ParticipationRate = math.Round(rate) / 10
	}
	return report, nil
}
