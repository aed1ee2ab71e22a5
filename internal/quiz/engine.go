// Package quiz runs a single quiz attempt: a shuffled presentation of a
// question bank, a confirm-to-lock answer flow and the pass-tier award.
package quiz

import (
	"math/rand"

	"worksafe/internal/domain"
)

// Presented is a question in session order with its options shuffled.
// CorrectIndex points into Options after the shuffle.
type Presented struct {
	ID           int      `json:"id"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Explanation  string   `json:"explanation"`
}

// Session is one attempt at a quiz. It is plain data so it can be persisted
// between requests; the zero value is not usable, build it with Start.
type Session struct {
	QuizID       string      `json:"quizId"`
	MaxPoints    int         `json:"maxPoints"`
	Questions    []Presented `json:"questions"`
	Current      int         `json:"current"`
	Selected     *int        `json:"selected,omitempty"`
	Confirmed    bool        `json:"confirmed"`
	CorrectCount int         `json:"correctCount"`
	Finished     bool        `json:"finished"`
}

// Start draws a full permutation of the bank and, per question, a permutation
// of its options with the correct index remapped.
func Start(quiz domain.Quiz, rnd *rand.Rand) *Session {
	order := rnd.Perm(len(quiz.Questions))
	questions := make([]Presented, 0, len(order))
	for _, idx := range order {
		questions = append(questions, shuffleOptions(quiz.Questions[idx], rnd))
	}
	return &Session{
		QuizID:    quiz.ID,
		MaxPoints: quiz.Points,
		Questions: questions,
		Finished:  len(questions) == 0,
	}
}

func shuffleOptions(q domain.Question, rnd *rand.Rand) Presented {
	perm := rnd.Perm(len(q.Options))
	options := make([]string, len(perm))
	correct := -1
	for newIdx, oldIdx := range perm {
		options[newIdx] = q.Options[oldIdx]
		if oldIdx == q.CorrectOption {
			correct = newIdx
		}
	}
	return Presented{
		ID:           q.ID,
		Text:         q.Text,
		Options:      options,
		CorrectIndex: correct,
		Explanation:  q.Explanation,
	}
}

// Question returns the question under the pointer.
func (s *Session) Question() (Presented, bool) {
	if s.Finished || s.Current >= len(s.Questions) {
		return Presented{}, false
	}
	return s.Questions[s.Current], true
}

// Select records a tentative choice. Ignored once the answer is confirmed,
// after the quiz finished, or for an out-of-range option.
func (s *Session) Select(idx int) bool {
	q, ok := s.Question()
	if !ok || s.Confirmed || idx < 0 || idx >= len(q.Options) {
		return false
	}
	s.Selected = &idx
	return true
}

// Confirm locks the current selection and scores it. It is a no-op when
// nothing is selected or the question is already confirmed; applied reports
// whether the call had an effect.
func (s *Session) Confirm() (correct, applied bool) {
	q, ok := s.Question()
	if !ok || s.Confirmed || s.Selected == nil {
		return false, false
	}
	s.Confirmed = true
	correct = *s.Selected == q.CorrectIndex
	if correct {
		s.CorrectCount++
	}
	return correct, true
}

// Advance moves past a confirmed question, finishing after the last one.
func (s *Session) Advance() bool {
	if s.Finished || !s.Confirmed {
		return false
	}
	if s.Current < len(s.Questions)-1 {
		s.Current++
		s.Selected = nil
		s.Confirmed = false
		return true
	}
	s.Finished = true
	return true
}

// Verdict is the finished-quiz tier.
type Verdict string

const (
	VerdictPerfect Verdict = "perfect"
	VerdictGood    Verdict = "good"
	VerdictFailed  Verdict = "failed"
)

// Result summarizes a finished session.
type Result struct {
	QuizID       string  `json:"quizId"`
	CorrectCount int     `json:"correctCount"`
	Total        int     `json:"total"`
	Ratio        float64 `json:"ratio"`
	Points       int     `json:"points"`
	Verdict      Verdict `json:"verdict"`
}

// Result returns the summary once the session is finished.
func (s *Session) Result() (Result, bool) {
	if !s.Finished {
		return Result{}, false
	}
	total := len(s.Questions)
	ratio := 0.0
	if total > 0 {
		ratio = float64(s.CorrectCount) / float64(total)
	}
	return Result{
		QuizID:       s.QuizID,
		CorrectCount: s.CorrectCount,
		Total:        total,
		Ratio:        ratio,
		Points:       Award(s.CorrectCount, total, s.MaxPoints),
		Verdict:      verdictFor(s.CorrectCount, total),
	}, true
}

// Award returns the reward points for correct out of total answers:
// all of maxPoints for a perfect run, 60% (floored) from a 0.6 ratio, else 0.
// Integer comparisons keep the 0.6 boundary exact.
func Award(correct, total, maxPoints int) int {
	switch verdictFor(correct, total) {
	case VerdictPerfect:
		return maxPoints
	case VerdictGood:
		return maxPoints * 6 / 10
	}
	return 0
}

func verdictFor(correct, total int) Verdict {
	if total <= 0 {
		return VerdictFailed
	}
	if correct >= total {
		return VerdictPerfect
	}
	if correct*10 >= total*6 {
		return VerdictGood
	}
	return VerdictFailed
}
