package http

import (
	"context"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"worksafe/internal/app"
	"worksafe/internal/domain"
	"worksafe/internal/infra/memory"
	"worksafe/internal/oracle"
	"worksafe/internal/proof"
)

type acceptAll struct{}

func (acceptAll) VerifyProof(context.Context, domain.ProofClaim) (domain.Verdict, error) {
	return domain.Verdict{Verified: true, Reason: "ok"}, nil
}

type testEnv struct {
	svc    Services
	server *httptest.Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	state := memory.NewStateStore()

	accounts := app.NewAccountService(state, logger, app.WithBcryptCost(bcrypt.MinCost))
	if _, err := accounts.Seed(context.Background()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	catalog := append(domain.MissionPool(), domain.Mission{
		ID: "m9", Title: "Leitura da NR-17", Description: "Leia a norma", Points: 50,
		Difficulty: domain.DifficultyEasy, Category: "Normas",
	})
	missions := app.NewMissionService(state, accounts, app.MissionConfig{
		Catalog:     catalog,
		ActiveCount: len(catalog),
		Rand:        rand.New(rand.NewSource(1)),
		Logger:      logger,
	})
	leaderboard := app.NewLeaderboardService(accounts, state, nil, logger)
	accounts.OnScoreChange(leaderboard.Publish)

	svc := Services{
		Accounts: accounts,
		Quizzes: app.NewQuizService(memory.NewPlayStore(), memory.NewQuizRepository(memory.NewCatalogLoader(), time.Minute), accounts, app.QuizConfig{
			Rand:   rand.New(rand.NewSource(7)),
			Logger: logger,
		}),
		Missions:    missions,
		Proofs:      app.NewProofService(missions, acceptAll{}, proof.Config{Timeout: time.Second, Logger: logger}),
		Leaderboard: leaderboard,
		Incidents:   app.NewIncidentService(state, accounts, oracle.Unavailable{}, nil, logger),
		Checklists:  app.NewChecklistService(oracle.Unavailable{}, logger),
		Preferences: app.NewPreferenceService(state),
	}
	server := httptest.NewServer(NewRouter(svc, logger))
	t.Cleanup(server.Close)
	return &testEnv{svc: svc, server: server}
}

func (e *testEnv) dial(t *testing.T, path string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(e.server.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", path, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type wireMessage struct {
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload"`
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) wireMessage {
	t.Helper()
	var msg wireMessage
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%v)", expect, msg.Type, msg.Payload)
	}
	return msg
}

func send(conn *websocket.Conn, t *testing.T, typ string, payload any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": typ, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", typ, err)
	}
}

func dialRaw(u string) (*websocket.Conn, *http.Response, error) {
	return websocket.DefaultDialer.Dial(u, nil)
}
