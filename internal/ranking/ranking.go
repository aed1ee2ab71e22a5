// Package ranking derives leaderboards from the user collection.
package ranking

import (
	"fmt"
	"sort"

	"worksafe/internal/domain"
	"worksafe/internal/scoring"
)

// ParseFilter maps a query value to a filter; empty means all.
func ParseFilter(raw string) (domain.TimeFilter, error) {
	switch domain.TimeFilter(raw) {
	case "", domain.FilterAll:
		return domain.FilterAll, nil
	case domain.FilterMonthly:
		return domain.FilterMonthly, nil
	case domain.FilterWeekly:
		return domain.FilterWeekly, nil
	}
	return "", domain.Invalid("filter", fmt.Sprintf("unknown filter %q", raw))
}

// DisplayScore scales a persisted score for the filter. The monthly and weekly
// views are fixed proportions of the lifetime score, not a historical ledger.
func DisplayScore(score int, filter domain.TimeFilter) int {
	switch filter {
	case domain.FilterMonthly:
		return score * 45 / 100
	case domain.FilterWeekly:
		return score * 15 / 100
	}
	return score
}

// Individual ranks users by display score, highest first. Ties keep the
// collection order; tied entries share a rank and the next distinct score
// takes the following rank (1, 1, 2).
func Individual(users []domain.User, filter domain.TimeFilter) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(users))
	for _, u := range users {
		entries = append(entries, domain.LeaderboardEntry{
			UserID:       u.ID,
			DisplayName:  u.Name,
			Sector:       u.Sector,
			Score:        u.Score,
			DisplayScore: DisplayScore(u.Score, filter),
			Tier:         scoring.TierFor(u.Score).Title,
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].DisplayScore > entries[j].DisplayScore
	})

	rank := 0
	for i := range entries {
		if i == 0 || entries[i].DisplayScore != entries[i-1].DisplayScore {
			rank++
		}
		entries[i].Rank = rank
		entries[i].Position = i + 1
	}
	return entries
}

// Find returns the entry for userID.
func Find(entries []domain.LeaderboardEntry, userID string) (domain.LeaderboardEntry, bool) {
	for _, e := range entries {
		if e.UserID == userID {
			return e, true
		}
	}
	return domain.LeaderboardEntry{}, false
}

// Snapshot records the rank of every entry, keyed by user id.
func Snapshot(entries []domain.LeaderboardEntry) map[string]int {
	snap := make(map[string]int, len(entries))
	for _, e := range entries {
		snap[e.UserID] = e.Rank
	}
	return snap
}

// Delta compares currentRank with the previous snapshot. A lower rank number
// is a better position.
func Delta(userID string, currentRank int, previous map[string]int) domain.Movement {
	prev, ok := previous[userID]
	if !ok || prev <= 0 {
		return domain.MovementNew
	}
	switch {
	case currentRank < prev:
		return domain.MovementUp
	case currentRank > prev:
		return domain.MovementDown
	}
	return domain.MovementUnchanged
}

// Annotate sets Movement on every entry against previous and returns the
// snapshot that should replace it.
func Annotate(entries []domain.LeaderboardEntry, previous map[string]int) map[string]int {
	for i := range entries {
		entries[i].Movement = Delta(entries[i].UserID, entries[i].Rank, previous)
	}
	return Snapshot(entries)
}

// Sectors sums display scores per sector. Every sector in sectors appears,
// even without members; users outside the list are ignored. Ties keep the
// order of sectors.
func Sectors(users []domain.User, filter domain.TimeFilter, sectors []domain.Sector) []domain.SectorEntry {
	index := make(map[domain.Sector]int, len(sectors))
	entries := make([]domain.SectorEntry, 0, len(sectors))
	for _, s := range sectors {
		if _, dup := index[s]; dup {
			continue
		}
		index[s] = len(entries)
		entries = append(entries, domain.SectorEntry{Sector: s})
	}

	for _, u := range users {
		idx, ok := index[u.Sector]
		if !ok {
			continue
		}
		entries[idx].Score += DisplayScore(u.Score, filter)
		entries[idx].Members++
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Score > entries[j].Score
	})
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries
}
