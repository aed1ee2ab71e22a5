package app

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"go.uber.org/zap"

	"worksafe/internal/domain"
	"worksafe/internal/quiz"
)

// QuizScorer applies a finished quiz to a user's persisted score.
type QuizScorer interface {
	ApplyQuizResult(ctx context.Context, userID string, points, correctCount int) (domain.User, error)
}

// QuestionView is the current question as shown to the player. The correct
// answer and explanation stay hidden until the answer is confirmed.
type QuestionView struct {
	QuizID       string   `json:"quizId"`
	Index        int      `json:"index"`
	Total        int      `json:"total"`
	QuestionID   int      `json:"questionId"`
	Text         string   `json:"text"`
	Options      []string `json:"options"`
	Selected     *int     `json:"selected,omitempty"`
	Confirmed    bool     `json:"confirmed"`
	Correct      *bool    `json:"correct,omitempty"`
	CorrectIndex *int     `json:"correctIndex,omitempty"`
	Explanation  string   `json:"explanation,omitempty"`
	CorrectCount int      `json:"correctCount"`
	Finished     bool     `json:"finished"`
}

// FinishResult is the outcome of a finished quiz and the updated player.
type FinishResult struct {
	Result quiz.Result `json:"result"`
	User   domain.User `json:"user"`
}

// QuizConfig tunes a QuizService.
type QuizConfig struct {
	// DefaultQuiz is played when the requested quiz id is unknown.
	DefaultQuiz string
	Rand        *rand.Rand
	Logger      *zap.Logger
}

// QuizService contains the quiz play use cases. One session per user.
type QuizService struct {
	plays       PlayRepository
	quizzes     QuizRepository
	scorer      QuizScorer
	defaultQuiz string
	log         *zap.Logger

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizService(plays PlayRepository, quizzes QuizRepository, scorer QuizScorer, cfg QuizConfig) *QuizService {
	if cfg.DefaultQuiz == "" {
		cfg.DefaultQuiz = domain.DefaultQuizID
	}
	if cfg.Rand == nil {
		cfg.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &QuizService{
		plays:       plays,
		quizzes:     quizzes,
		scorer:      scorer,
		defaultQuiz: cfg.DefaultQuiz,
		log:         cfg.Logger,
		rnd:         cfg.Rand,
	}
}

// ListQuizzes returns the catalog metadata.
func (s *QuizService) ListQuizzes(ctx context.Context) ([]domain.QuizSummary, error) {
	return s.quizzes.ListQuizzes(ctx)
}

// Start opens a new attempt, replacing any unfinished one. An unknown quiz id
// falls back to the default bank.
func (s *QuizService) Start(ctx context.Context, userID, quizID string) (QuestionView, error) {
	if quizID == "" {
		quizID = s.defaultQuiz
	}
	bank, err := s.quizzes.GetQuiz(ctx, quizID)
	if errors.Is(err, domain.ErrQuizNotFound) && quizID != s.defaultQuiz {
		s.log.Info("unknown quiz, using default", zap.String("quiz", quizID), zap.String("default", s.defaultQuiz))
		bank, err = s.quizzes.GetQuiz(ctx, s.defaultQuiz)
	}
	if err != nil {
		return QuestionView{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	session := quiz.Start(bank, s.rnd)
	if err := s.plays.Save(ctx, userID, session); err != nil {
		return QuestionView{}, err
	}
	return viewOf(session), nil
}

// Current returns the question under the pointer.
func (s *QuizService) Current(ctx context.Context, userID string) (QuestionView, error) {
	session, err := s.plays.Load(ctx, userID)
	if err != nil {
		return QuestionView{}, err
	}
	return viewOf(session), nil
}

// Select records a tentative choice. Invalid selections leave the session
// unchanged.
func (s *QuizService) Select(ctx context.Context, userID string, option int) (QuestionView, error) {
	return s.mutate(ctx, userID, func(session *quiz.Session) bool {
		return session.Select(option)
	})
}

// Confirm locks the selected answer. Confirming twice never double-counts.
func (s *QuizService) Confirm(ctx context.Context, userID string) (QuestionView, error) {
	return s.mutate(ctx, userID, func(session *quiz.Session) bool {
		_, applied := session.Confirm()
		return applied
	})
}

// Advance moves past a confirmed question.
func (s *QuizService) Advance(ctx context.Context, userID string) (QuestionView, error) {
	return s.mutate(ctx, userID, func(session *quiz.Session) bool {
		return session.Advance()
	})
}

// Finish scores a finished session exactly once. The session is removed
// before the score is applied, so a repeated Finish finds nothing to score.
func (s *QuizService) Finish(ctx context.Context, userID string) (FinishResult, error) {
	s.mu.Lock()
	session, err := s.plays.Load(ctx, userID)
	if err != nil {
		s.mu.Unlock()
		return FinishResult{}, err
	}
	result, ok := session.Result()
	if !ok {
		s.mu.Unlock()
		return FinishResult{}, domain.ErrQuizNotFinished
	}
	if err := s.plays.Delete(ctx, userID); err != nil {
		s.mu.Unlock()
		return FinishResult{}, err
	}
	s.mu.Unlock()

	user, err := s.scorer.ApplyQuizResult(ctx, userID, result.Points, result.CorrectCount)
	if err != nil {
		return FinishResult{}, err
	}
	s.log.Info("quiz finished",
		zap.String("user", userID),
		zap.String("quiz", result.QuizID),
		zap.Int("correct", result.CorrectCount),
		zap.Int("total", result.Total),
		zap.Int("points", result.Points),
	)
	return FinishResult{Result: result, User: user}, nil
}

func (s *QuizService) mutate(ctx context.Context, userID string, fn func(*quiz.Session) bool) (QuestionView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.plays.Load(ctx, userID)
	if err != nil {
		return QuestionView{}, err
	}
	if fn(session) {
		if err := s.plays.Save(ctx, userID, session); err != nil {
			return QuestionView{}, err
		}
	}
	return viewOf(session), nil
}

func viewOf(session *quiz.Session) QuestionView {
	view := QuestionView{
		QuizID:       session.QuizID,
		Index:        session.Current,
		Total:        len(session.Questions),
		CorrectCount: session.CorrectCount,
		Finished:     session.Finished,
	}
	q, ok := session.Question()
	if !ok {
		return view
	}
	view.QuestionID = q.ID
	view.Text = q.Text
	view.Options = q.Options
	view.Selected = session.Selected
	view.Confirmed = session.Confirmed
	if session.Confirmed && session.Selected != nil {
		correct := *session.Selected == q.CorrectIndex
		idx := q.CorrectIndex
		view.Correct = &correct
		view.CorrectIndex = &idx
		view.Explanation = q.Explanation
	}
	return view
}
