package app

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"worksafe/internal/domain"
	"worksafe/internal/scoring"
)

// Form messages shown to the user.
const (
	msgRequired       = "Preencha todos os campos obrigatórios."
	msgInvalidEmail   = "Informe um e-mail válido."
	msgPasswordMatch  = "As senhas não coincidem."
	msgDuplicateEmail = "Este e-mail já está cadastrado no sistema."
	msgUnknownEmail   = "E-mail não encontrado na base de dados."
	msgWrongPassword  = "Senha incorreta. Verifique e tente novamente."
	msgUnknownSector  = "Setor desconhecido."
	msgUnknownRole    = "Perfil desconhecido."
)

// SignupRequest carries the registration form.
type SignupRequest struct {
	Email           string        `json:"email"`
	Password        string        `json:"password"`
	ConfirmPassword string        `json:"confirmPassword"`
	Name            string        `json:"name"`
	Sector          domain.Sector `json:"sector"`
	Role            domain.Role   `json:"role"`
}

// AccountOption tweaks an AccountService.
type AccountOption func(*AccountService)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) AccountOption {
	return func(s *AccountService) { s.cost = cost }
}

// AccountService owns the user collection. Every write reads the whole
// collection, changes one record and writes the collection back under a single
// lock, so there is one writer at a time.
type AccountService struct {
	state StateStore
	cost  int
	log   *zap.Logger

	mu        sync.Mutex
	listeners []func(ctx context.Context)
}

func NewAccountService(state StateStore, logger *zap.Logger, opts ...AccountOption) *AccountService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AccountService{state: state, cost: bcrypt.DefaultCost, log: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// OnScoreChange registers fn to run after any score or badge update.
func (s *AccountService) OnScoreChange(fn func(ctx context.Context)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Seed writes the demo accounts when no user collection exists yet.
func (s *AccountService) Seed(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing []domain.User
	found, err := loadJSON(ctx, s.state, KeyUsers, &existing)
	if err != nil || found {
		return false, err
	}

	creds := map[string]string{}
	users := make([]domain.User, 0, len(domain.SeedAccounts()))
	for _, acc := range domain.SeedAccounts() {
		hash, err := bcrypt.GenerateFromPassword([]byte(acc.Password), s.cost)
		if err != nil {
			return false, err
		}
		creds[acc.User.Email] = string(hash)
		users = append(users, acc.User)
	}
	if err := saveJSON(ctx, s.state, KeyCredentials, creds); err != nil {
		return false, err
	}
	if err := saveJSON(ctx, s.state, KeyUsers, users); err != nil {
		return false, err
	}
	s.log.Info("seeded demo accounts", zap.Int("users", len(users)))
	return true, nil
}

// Signup registers a user and opens a session for them.
func (s *AccountService) Signup(ctx context.Context, req SignupRequest) (domain.User, error) {
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		return domain.User{}, domain.Invalid("", msgRequired)
	}
	if !strings.Contains(email, "@") {
		return domain.User{}, domain.Invalid("email", msgInvalidEmail)
	}
	if req.Password != req.ConfirmPassword {
		return domain.User{}, domain.Invalid("confirmPassword", msgPasswordMatch)
	}
	sector := req.Sector
	if sector == "" {
		sector = domain.SectorSSMA
	}
	if !sector.Valid() {
		return domain.User{}, domain.Invalid("sector", msgUnknownSector)
	}
	role := req.Role
	if role == "" {
		role = domain.RoleWorker
	}
	if !role.Valid() {
		return domain.User{}, domain.Invalid("role", msgUnknownRole)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.SplitN(email, "@", 2)[0]
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), s.cost)
	if err != nil {
		return domain.User{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsersLocked(ctx)
	if err != nil {
		return domain.User{}, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return domain.User{}, domain.Invalid("email", msgDuplicateEmail)
		}
	}
	creds, err := s.loadCredentialsLocked(ctx)
	if err != nil {
		return domain.User{}, err
	}

	user := domain.User{
		ID:     uuid.NewString(),
		Email:  email,
		Name:   name,
		Role:   role,
		Badges: []string{},
		Sector: sector,
	}
	creds[email] = string(hash)
	if err := saveJSON(ctx, s.state, KeyCredentials, creds); err != nil {
		return domain.User{}, err
	}
	if err := saveJSON(ctx, s.state, KeyUsers, append(users, user)); err != nil {
		return domain.User{}, err
	}
	if err := s.state.Set(ctx, KeySession, []byte(user.ID)); err != nil {
		return domain.User{}, err
	}
	s.log.Info("user registered", zap.String("user", user.ID), zap.String("sector", string(sector)))
	return user, nil
}

// Login checks credentials, opens a session and stores or clears the
// remembered email.
func (s *AccountService) Login(ctx context.Context, email, password string, remember bool) (domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return domain.User{}, domain.Invalid("", msgRequired)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.loadUsersLocked(ctx)
	if err != nil {
		return domain.User{}, err
	}
	idx := indexByEmail(users, email)
	if idx < 0 {
		return domain.User{}, domain.Invalid("email", msgUnknownEmail)
	}
	creds, err := s.loadCredentialsLocked(ctx)
	if err != nil {
		return domain.User{}, err
	}
	hash, ok := creds[email]
	if !ok || bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return domain.User{}, domain.Invalid("password", msgWrongPassword)
	}

	user := users[idx]
	if err := s.state.Set(ctx, KeySession, []byte(user.ID)); err != nil {
		return domain.User{}, err
	}
	if remember {
		err = s.state.Set(ctx, KeyRememberedEmail, []byte(email))
	} else {
		err = s.state.Delete(ctx, KeyRememberedEmail)
	}
	if err != nil {
		return domain.User{}, err
	}
	return user, nil
}

// Logout closes the current session.
func (s *AccountService) Logout(ctx context.Context) error {
	return s.state.Delete(ctx, KeySession)
}

// Current returns the logged-in user.
func (s *AccountService) Current(ctx context.Context) (domain.User, error) {
	raw, err := s.state.Get(ctx, KeySession)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.User{}, domain.ErrNotAuthenticated
	}
	if err != nil {
		return domain.User{}, err
	}
	user, err := s.Get(ctx, string(raw))
	if errors.Is(err, domain.ErrUserNotFound) {
		return domain.User{}, domain.ErrNotAuthenticated
	}
	return user, err
}

// Get returns one user.
func (s *AccountService) Get(ctx context.Context, userID string) (domain.User, error) {
	users, err := s.List(ctx)
	if err != nil {
		return domain.User{}, err
	}
	for _, u := range users {
		if u.ID == userID {
			return u, nil
		}
	}
	return domain.User{}, domain.ErrUserNotFound
}

// List returns the whole user collection in stored order.
func (s *AccountService) List(ctx context.Context) ([]domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadUsersLocked(ctx)
}

// ApplyQuizResult folds a finished quiz into the user's score and badges.
func (s *AccountService) ApplyQuizResult(ctx context.Context, userID string, points, correctCount int) (domain.User, error) {
	return s.update(ctx, userID, func(u *domain.User) {
		u.Score, u.Badges = scoring.ApplyQuizResult(u.Score, u.Badges, points, correctCount)
	})
}

// ApplyMissionReward adds a mission's points to the user's score.
func (s *AccountService) ApplyMissionReward(ctx context.Context, userID string, points int) (domain.User, error) {
	return s.update(ctx, userID, func(u *domain.User) {
		u.Score = scoring.ApplyMissionReward(u.Score, points)
	})
}

func (s *AccountService) update(ctx context.Context, userID string, mutate func(*domain.User)) (domain.User, error) {
	s.mu.Lock()
	users, err := s.loadUsersLocked(ctx)
	if err != nil {
		s.mu.Unlock()
		return domain.User{}, err
	}
	idx := -1
	for i := range users {
		if users[i].ID == userID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.Unlock()
		return domain.User{}, domain.ErrUserNotFound
	}
	before := users[idx].Score
	mutate(&users[idx])
	if err := saveJSON(ctx, s.state, KeyUsers, users); err != nil {
		s.mu.Unlock()
		return domain.User{}, err
	}
	updated := users[idx]
	listeners := append([]func(context.Context){}, s.listeners...)
	s.mu.Unlock()

	s.log.Debug("score updated", zap.String("user", userID), zap.Int("from", before), zap.Int("to", updated.Score))
	for _, fn := range listeners {
		fn(ctx)
	}
	return updated, nil
}

func (s *AccountService) loadUsersLocked(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	if _, err := loadJSON(ctx, s.state, KeyUsers, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (s *AccountService) loadCredentialsLocked(ctx context.Context) (map[string]string, error) {
	creds := map[string]string{}
	if _, err := loadJSON(ctx, s.state, KeyCredentials, &creds); err != nil {
		return nil, err
	}
	return creds, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func indexByEmail(users []domain.User, email string) int {
	for i, u := range users {
		if strings.EqualFold(u.Email, email) {
			return i
		}
	}
	return -1
}
