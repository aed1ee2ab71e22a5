// Package oracle talks to the multimodal Gemini API for proof verification,
// incident analysis and checklist generation.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"worksafe/internal/domain"
)

// DefaultModel is used when the config leaves the model empty.
const DefaultModel = "gemini-3-flash-preview"

// Config configures the Gemini client.
type Config struct {
	APIKey  string
	Model   string
	BaseURL string
}

// Client wraps a genai client. Methods return errors; callers decide the
// fallback shown to users.
type Client struct {
	client *genai.Client
	model  string
	log    *zap.Logger
}

// New builds a Gemini client.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{client: client, model: cfg.Model, log: logger}, nil
}

// VerifyProof asks whether the image proves the mission claim.
func (c *Client) VerifyProof(ctx context.Context, claim domain.ProofClaim) (domain.Verdict, error) {
	mime := claim.MIMEType
	if mime == "" {
		mime = "image/jpeg"
	}
	prompt := fmt.Sprintf(`Verify if this photo is a valid proof for the following safety mission:
Title: %s
Description: %s

Requirements: The photo must clearly show the action or object described.
Respond ONLY in JSON with "verified" (boolean) and "reason" (short explanation in Portuguese of why it was accepted or rejected).`,
		claim.Title, claim.Description)

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromBytes(claim.Image, mime),
			genai.NewPartFromText(prompt),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"verified": {Type: genai.TypeBoolean},
				"reason":   {Type: genai.TypeString},
			},
			Required: []string{"verified", "reason"},
		},
	}

	text, err := c.generate(ctx, contents, config)
	if err != nil {
		return domain.Verdict{}, err
	}
	return ParseVerdict(text)
}

// AnalyzeIncident returns a free-text risk assessment for a safety report.
func (c *Client) AnalyzeIncident(ctx context.Context, description string, image []byte) (string, error) {
	prompt := fmt.Sprintf(`As a professional Workplace Health and Safety (WHS) officer, analyze the following safety report and provide:
1. A risk assessment score (1-10).
2. Immediate corrective actions.
3. Potential long-term preventative measures.
4. Relevant OSHA or safety regulation citations if applicable.

Report Description: %s`, description)

	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if len(image) > 0 {
		parts = append(parts, genai.NewPartFromBytes(image, "image/jpeg"))
	}
	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0.7),
		TopP:        genai.Ptr[float32](0.95),
	}

	text, err := c.generate(ctx, []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, config)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("empty analysis")
	}
	return text, nil
}

// GenerateChecklist builds a prioritized safety checklist for a task.
func (c *Client) GenerateChecklist(ctx context.Context, task string) (domain.Checklist, error) {
	prompt := fmt.Sprintf("Create a comprehensive safety checklist for the following task: %q.\nThe response must be in JSON format.", task)
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"task": {Type: genai.TypeString},
				"items": {
					Type: genai.TypeArray,
					Items: &genai.Schema{
						Type: genai.TypeObject,
						Properties: map[string]*genai.Schema{
							"check":    {Type: genai.TypeString},
							"priority": {Type: genai.TypeString, Enum: []string{"high", "medium", "low"}},
						},
						Required: []string{"check", "priority"},
					},
				},
			},
			Required: []string{"task", "items"},
		},
	}

	text, err := c.generate(ctx, genai.Text(prompt), config)
	if err != nil {
		return domain.Checklist{}, err
	}
	return ParseChecklist(text, task)
}

func (c *Client) generate(ctx context.Context, contents []*genai.Content, config *genai.GenerateContentConfig) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, config)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	text := resp.Text()
	c.log.Debug("gemini response", zap.String("model", c.model), zap.Int("bytes", len(text)))
	return text, nil
}

// ParseVerdict decodes the verification JSON.
func ParseVerdict(text string) (domain.Verdict, error) {
	var raw struct {
		Verified *bool  `json:"verified"`
		Reason   string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(stripFence(text)), &raw); err != nil {
		return domain.Verdict{}, fmt.Errorf("decode verdict: %w", err)
	}
	if raw.Verified == nil {
		return domain.Verdict{}, fmt.Errorf("decode verdict: missing verified field")
	}
	return domain.Verdict{Verified: *raw.Verified, Reason: raw.Reason}, nil
}

// ParseChecklist decodes the checklist JSON. Unknown priorities become
// medium; an empty task falls back to the requested one.
func ParseChecklist(text, task string) (domain.Checklist, error) {
	var out domain.Checklist
	if err := json.Unmarshal([]byte(stripFence(text)), &out); err != nil {
		return domain.Checklist{}, fmt.Errorf("decode checklist: %w", err)
	}
	if out.Task == "" {
		out.Task = task
	}
	items := out.Items[:0]
	for _, item := range out.Items {
		if strings.TrimSpace(item.Check) == "" {
			continue
		}
		switch item.Priority {
		case domain.PriorityHigh, domain.PriorityMedium, domain.PriorityLow:
		default:
			item.Priority = domain.PriorityMedium
		}
		items = append(items, item)
	}
	if len(items) == 0 {
		return domain.Checklist{}, fmt.Errorf("decode checklist: no items")
	}
	out.Items = items
	return out, nil
}

// stripFence removes a ```json fence some models wrap around JSON output.
func stripFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// Unavailable is the oracle used when no API key is configured. Every call
// fails so callers show their fallback.
type Unavailable struct{}

func (Unavailable) VerifyProof(context.Context, domain.ProofClaim) (domain.Verdict, error) {
	return domain.Verdict{}, domain.ErrOracleUnavailable
}

func (Unavailable) AnalyzeIncident(context.Context, string, []byte) (string, error) {
	return "", domain.ErrOracleUnavailable
}

func (Unavailable) GenerateChecklist(context.Context, string) (domain.Checklist, error) {
	return domain.Checklist{}, domain.ErrOracleUnavailable
}
