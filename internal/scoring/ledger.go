// Package scoring holds the pure score ledger: every change to a persisted
// user score goes through these functions before the record is written back.
package scoring

const (
	// FullFailurePenalty is applied when a quiz ends with zero correct answers.
	FullFailurePenalty = -500
	// MasterBadge is granted for a quiz award of at least MasterThreshold points.
	MasterBadge = "Mestre Ergonomia"
	// MasterThreshold is the minimum award that grants MasterBadge.
	MasterThreshold = 500
)

// QuizDelta returns the score change for a finished quiz.
// A zero correct count is penalized regardless of the award.
func QuizDelta(pointsAwarded, correctCount int) int {
	if correctCount == 0 {
		return FullFailurePenalty
	}
	return pointsAwarded
}

// ApplyQuizResult folds a finished quiz into a score and badge set.
// The returned badge slice is a fresh copy; the input is never modified.
func ApplyQuizResult(score int, badges []string, pointsAwarded, correctCount int) (int, []string) {
	next := make([]string, len(badges))
	copy(next, badges)

	delta := QuizDelta(pointsAwarded, correctCount)
	if correctCount > 0 && pointsAwarded >= MasterThreshold {
		next = AddBadge(next, MasterBadge)
	}
	return Apply(score, delta), next
}

// ApplyMissionReward adds a mission's points. Missions never penalize.
func ApplyMissionReward(score, points int) int {
	if points < 0 {
		points = 0
	}
	return Apply(score, points)
}

// Apply adds delta to score, clamping at zero.
func Apply(score, delta int) int {
	return max(0, score+delta)
}

// AddBadge appends badge unless it is already present.
func AddBadge(badges []string, badge string) []string {
	for _, b := range badges {
		if b == badge {
			return badges
		}
	}
	return append(badges, badge)
}

// Tier is the cosmetic rank band derived from a score.
type Tier struct {
	Title string `json:"title"`
	Icon  string `json:"icon"`
	Floor int    `json:"floor"`
}

var tiers = []Tier{
	{Title: "Diamante", Icon: "💎", Floor: 5000},
	{Title: "Platina", Icon: "🛡️", Floor: 3000},
	{Title: "Ouro", Icon: "🥇", Floor: 1500},
	{Title: "Prata", Icon: "🥈", Floor: 500},
	{Title: "Bronze", Icon: "🥉", Floor: 0},
}

// TierFor returns the highest tier whose floor the score reaches.
func TierFor(score int) Tier {
	for _, t := range tiers {
		if score >= t.Floor {
			return t
		}
	}
	return tiers[len(tiers)-1]
}
