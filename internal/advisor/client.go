// Package advisor provides the client for the external language-model
// service that generates personalized recommendation drafts.
package advisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/soundcu/finance-copilot/internal/engine"
	"github.com/soundcu/finance-copilot/internal/model"
)

const (
	defaultAPIURL  = "https://api.openai.com/v1/chat/completions"
	requestTimeout = 10 * time.Second
	maxTokens      = 800
)

// Client encapsulates the HTTP interaction with the generation service. It
// implements engine.DraftSource: every failure degrades to an empty draft
// list and is only logged, never surfaced.
type Client struct {
	apiKey     string
	apiURL     string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a client for the generation service. An empty apiURL
// selects the default endpoint.
func NewClient(apiKey, apiURL string, logger *zap.Logger) *Client {
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	return &Client{
		apiKey: apiKey,
		apiURL: apiURL,
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		logger: logger,
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	MaxTokens      int           `json:"max_tokens,omitempty"`
	ResponseFormat *responseFmt  `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFmt struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// rawDraft is the structured draft shape requested from the generator.
type rawDraft struct {
	Type        string `json:"type"`
	Priority    int    `json:"priority"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CTAText     string `json:"cta_text"`
	ProductName string `json:"product_name"`
	Savings     string `json:"savings"`
}

// TryGenerate requests 2-3 structured drafts for the summarized purchase. It
// makes a single attempt and returns nil on any failure: missing capability,
// transport error, non-200 status or a malformed payload.
func (c *Client) TryGenerate(ctx context.Context, summary engine.ContextSummary, eligible []model.Product) []model.RecommendationDraft {
	if c == nil || c.apiKey == "" {
		return nil
	}

	content, err := c.complete(ctx, buildPrompt(summary))
	if err != nil {
		c.logger.Warn("advisor generation failed", zap.Error(err))
		return nil
	}

	raw, err := parseDrafts(content)
	if err != nil {
		c.logger.Warn("advisor response malformed", zap.Error(err))
		return nil
	}

	drafts := make([]model.RecommendationDraft, 0, len(raw))
	for i, r := range raw {
		drafts = append(drafts, coerceDraft(r, i, eligible))
	}
	return drafts
}

func (c *Client) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: "gpt-4o-mini",
		Messages: []chatMessage{
			{Role: "system", Content: "You are a helpful financial advisor focused on member success."},
			{Role: "user", Content: prompt},
		},
		MaxTokens:      maxTokens,
		ResponseFormat: &responseFmt{Type: "json_object"},
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	var result chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("empty completion")
	}

	return result.Choices[0].Message.Content, nil
}

func buildPrompt(summary engine.ContextSummary) string {
	payload, _ := json.MarshalIndent(summary, "", "  ")

	return fmt.Sprintf(`You are a financial advisor for Sound Credit Union. A member is about to make a purchase and needs personalized recommendations.

Request context:
%s

Generate 2-3 highly personalized recommendations. Focus on:
1. Alert if the purchase impacts their goals negatively
2. Suggest relevant products that could help
3. Provide actionable insights in friendly, human language

Return a JSON object {"recommendations": [...]} where each item has:
"type" (alert|loan|credit_card|cashback), "priority" (1-5), "title",
"description" (2-3 sentences), "cta_text", "product_name" (if recommending
one), "savings" (estimated savings amount).

Be conversational, specific, and helpful.`, payload)
}

// parseDrafts accepts either a bare JSON array or the requested object form.
func parseDrafts(content string) ([]rawDraft, error) {
	content = strings.TrimSpace(content)

	var drafts []rawDraft
	if err := json.Unmarshal([]byte(content), &drafts); err == nil {
		return drafts, nil
	}

	var wrapped struct {
		Recommendations []rawDraft `json:"recommendations"`
	}
	if err := json.Unmarshal([]byte(content), &wrapped); err != nil {
		return nil, fmt.Errorf("unmarshal drafts: %w", err)
	}
	return wrapped.Recommendations, nil
}

// coerceDraft validates one raw draft into the RecommendationDraft shape.
// Unknown kinds fall back to alert, a missing priority defaults to the
// draft's 1-indexed position, and a named product is matched against the
// eligible list by case-insensitive substring, first match wins.
func coerceDraft(r rawDraft, position int, eligible []model.Product) model.RecommendationDraft {
	kind := model.RecommendationKind(r.Type)
	switch kind {
	case model.RecommendationLoan, model.RecommendationCreditCard, model.RecommendationAlert, model.RecommendationCashback:
	default:
		kind = model.RecommendationAlert
	}

	priority := r.Priority
	if priority <= 0 {
		priority = position + 1
	}

	var product *model.Product
	if r.ProductName != "" {
		name := strings.ToLower(r.ProductName)
		for i := range eligible {
			if strings.Contains(name, strings.ToLower(eligible[i].Name)) {
				product = &eligible[i]
				break
			}
		}
	}

	return model.RecommendationDraft{
		Kind:     kind,
		Priority: priority,
		Product:  product,
		Message: model.RecommendationMessage{
			Title:       r.Title,
			Description: r.Description,
			CTAText:     r.CTAText,
			Savings:     r.Savings,
		},
	}
}
