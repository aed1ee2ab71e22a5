package oracle

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap/zaptest"

	"worksafe/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGemini answers generateContent calls with a fixed candidate text.
func fakeGemini(t *testing.T, reply string, status int) (*httptest.Server, *[]string) {
	t.Helper()
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		if !strings.Contains(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"code":500,"message":"boom","status":"INTERNAL"}}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{
				map[string]any{
					"content": map[string]any{
						"role":  "model",
						"parts": []any{map[string]any{"text": reply}},
					},
				},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &bodies
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(context.Background(), Config{APIKey: "test-key", BaseURL: baseURL}, zaptest.NewLogger(t))
	require.NoError(t, err)
	return c
}

func TestVerifyProofDecodesVerdict(t *testing.T) {
	srv, bodies := fakeGemini(t, `{"verified": false, "reason": "foto não mostra o item"}`, http.StatusOK)
	c := newTestClient(t, srv.URL)

	verdict, err := c.VerifyProof(context.Background(), domain.ProofClaim{
		Title:       "Rota de Fuga",
		Description: "Fotografe a sinalização",
		Image:       []byte{0xff, 0xd8},
	})
	require.NoError(t, err)
	assert.False(t, verdict.Verified)
	assert.Equal(t, "foto não mostra o item", verdict.Reason)

	require.Len(t, *bodies, 1)
	assert.Contains(t, (*bodies)[0], "Rota de Fuga")
	assert.Contains(t, (*bodies)[0], "inlineData")
}

func TestVerifyProofServerError(t *testing.T) {
	srv, _ := fakeGemini(t, "", http.StatusInternalServerError)
	c := newTestClient(t, srv.URL)

	_, err := c.VerifyProof(context.Background(), domain.ProofClaim{Title: "x", Image: []byte{1}})
	assert.Error(t, err)
}

func TestVerifyProofGarbage(t *testing.T) {
	srv, _ := fakeGemini(t, "I think it is fine", http.StatusOK)
	c := newTestClient(t, srv.URL)

	_, err := c.VerifyProof(context.Background(), domain.ProofClaim{Title: "x", Image: []byte{1}})
	assert.Error(t, err)
}

func TestAnalyzeIncident(t *testing.T) {
	srv, _ := fakeGemini(t, "Risco 7/10. Isolar a área.", http.StatusOK)
	c := newTestClient(t, srv.URL)

	text, err := c.AnalyzeIncident(context.Background(), "fio solto no corredor", nil)
	require.NoError(t, err)
	assert.Equal(t, "Risco 7/10. Isolar a área.", text)
}

func TestGenerateChecklist(t *testing.T) {
	srv, _ := fakeGemini(t, `{"task":"Troca de lâmpadas","items":[{"check":"Desligar disjuntor","priority":"high"},{"check":"Usar escada","priority":"urgent"}]}`, http.StatusOK)
	c := newTestClient(t, srv.URL)

	list, err := c.GenerateChecklist(context.Background(), "Troca de lâmpadas")
	require.NoError(t, err)
	require.Len(t, list.Items, 2)
	assert.Equal(t, domain.PriorityHigh, list.Items[0].Priority)
	assert.Equal(t, domain.PriorityMedium, list.Items[1].Priority)
}

func TestNewRequiresKey(t *testing.T) {
	_, err := New(context.Background(), Config{}, nil)
	assert.Error(t, err)
}

func TestParseVerdict(t *testing.T) {
	v, err := ParseVerdict("```json\n{\"verified\": true, \"reason\": \"ok\"}\n```")
	require.NoError(t, err)
	assert.True(t, v.Verified)

	_, err = ParseVerdict(`{"reason": "missing flag"}`)
	assert.Error(t, err)
}

func TestParseChecklistFallsBackToTask(t *testing.T) {
	list, err := ParseChecklist(`{"items":[{"check":"EPI","priority":"low"}]}`, "Solda")
	require.NoError(t, err)
	assert.Equal(t, "Solda", list.Task)

	_, err = ParseChecklist(`{"task":"Solda","items":[]}`, "Solda")
	assert.Error(t, err)
}

func TestUnavailable(t *testing.T) {
	_, err := Unavailable{}.VerifyProof(context.Background(), domain.ProofClaim{})
	assert.ErrorIs(t, err, domain.ErrOracleUnavailable)
}
