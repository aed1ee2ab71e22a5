package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyNeverNegative(t *testing.T) {
	for _, score := range []int{0, 1, 250, 499, 500, 10000} {
		for _, delta := range []int{-100000, -500, -1, 0, 1, 500} {
			assert.GreaterOrEqual(t, Apply(score, delta), 0, "score=%d delta=%d", score, delta)
		}
	}
}

func TestZeroCorrectIsAlwaysPenalized(t *testing.T) {
	for _, points := range []int{0, 300, 500, 600} {
		assert.Equal(t, FullFailurePenalty, QuizDelta(points, 0))

		score, badges := ApplyQuizResult(1000, nil, points, 0)
		assert.Equal(t, 500, score)
		assert.Empty(t, badges)
	}
}

func TestPenaltyClampsAtZero(t *testing.T) {
	score, _ := ApplyQuizResult(200, nil, 0, 0)
	assert.Equal(t, 0, score)
}

func TestMasterBadgeAddedOnce(t *testing.T) {
	score, badges := 0, []string{"Seguro"}
	for i := 0; i < 3; i++ {
		score, badges = ApplyQuizResult(score, badges, 500, 3)
	}
	assert.Equal(t, 1500, score)
	assert.Equal(t, []string{"Seguro", MasterBadge}, badges)
}

func TestPartialAwardGrantsNoBadge(t *testing.T) {
	score, badges := ApplyQuizResult(100, []string{}, 300, 2)
	assert.Equal(t, 400, score)
	assert.Empty(t, badges)
}

func TestApplyQuizResultDoesNotAliasInput(t *testing.T) {
	in := make([]string, 1, 4)
	in[0] = "Seguro"
	_, out := ApplyQuizResult(0, in, 600, 3)
	require.Len(t, out, 2)
	assert.Len(t, in, 1)
	assert.Equal(t, "Seguro", in[0])
}

func TestApplyMissionReward(t *testing.T) {
	assert.Equal(t, 450, ApplyMissionReward(300, 150))
	assert.Equal(t, 300, ApplyMissionReward(300, -50))
}

func TestTierFor(t *testing.T) {
	cases := map[int]string{
		0:     "Bronze",
		499:   "Bronze",
		500:   "Prata",
		1500:  "Ouro",
		2999:  "Ouro",
		3000:  "Platina",
		5000:  "Diamante",
		99999: "Diamante",
	}
	for score, want := range cases {
		assert.Equal(t, want, TierFor(score).Title, "score=%d", score)
	}
}
