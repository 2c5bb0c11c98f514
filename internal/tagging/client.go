package tagging

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/drona-gyawali/Supportix/internal/config"
	"github.com/drona-gyawali/Supportix/pkg/util"
)

// MaxTags caps the number of tags inferred per ticket.
const MaxTags = 3

// allowedTags is the preferred vocabulary. The model may fall back to its
// own one-word tags when none of these apply.
var allowedTags = []string{
	"account",
	"auth",
	"billing",
	"bug",
	"debug",
	"email",
	"error",
	"feature",
	"login",
	"network",
	"payment",
	"slow",
	"support",
	"technical",
	"urgent",
}

// Generator infers content tags from ticket text.
type Generator interface {
	GenerateTags(ctx context.Context, title, description string) ([]string, error)
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Client calls an OpenAI-compatible chat completions endpoint.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient builds a tag generator from configuration.
func NewClient(cfg config.TaggingConfig, logger *zap.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		model:   cfg.Model,
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

// GenerateTags asks the model for up to MaxTags lowercase one-word tags.
func (c *Client) GenerateTags(ctx context.Context, title, description string) ([]string, error) {
	if c.apiKey == "" {
		return nil, util.NewExternalServiceFailure("tagging", fmt.Errorf("no api key configured"))
	}

	ticketText := strings.TrimSpace(strings.TrimSpace(title) + "\n" + description)
	prompt := buildPrompt(ticketText)

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0.2,
	})
	if err != nil {
		return nil, util.NewInternalError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, util.NewInternalError(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("tag generation request failed", zap.Error(err))
		return nil, util.NewExternalServiceFailure("tagging", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, util.NewExternalServiceFailure("tagging", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, util.NewExternalServiceFailure("tagging", err)
	}
	if parsed.Error != nil {
		c.logger.Warn("tag generation rejected",
			zap.String("error_type", parsed.Error.Type),
			zap.String("error_message", parsed.Error.Message))
		return nil, util.NewExternalServiceFailure("tagging", fmt.Errorf("%s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return nil, util.NewExternalServiceFailure("tagging", fmt.Errorf("empty completion"))
	}

	return ParseTags(parsed.Choices[0].Message.Content), nil
}

func buildPrompt(ticketText string) string {
	vocabulary := make([]string, len(allowedTags))
	copy(vocabulary, allowedTags)
	sort.Strings(vocabulary)

	return fmt.Sprintf(`You are an intelligent ticket tagging assistant.

Based on the following ticket content, suggest up to %d lowercase, comma-separated, one-word tags.

- If any of the following tags apply, choose ONLY from them: %s
- If none apply, you MAY generate your own relevant one-word tags.

Ticket:
"""
%s
"""

Tags:`, MaxTags, strings.Join(vocabulary, ", "), ticketText)
}

// ParseTags normalizes a comma-separated completion into at most MaxTags
// lowercase tags.
func ParseTags(content string) []string {
	tags := make([]string, 0, MaxTags)
	for _, part := range strings.Split(content, ",") {
		tag := strings.ToLower(strings.TrimSpace(part))
		if tag == "" {
			continue
		}
		tags = append(tags, tag)
		if len(tags) == MaxTags {
			break
		}
	}
	return tags
}
