package research

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	types "github.com/yungbote/microlearn-backend/internal/domain"
	"github.com/yungbote/microlearn-backend/internal/platform/logger"
)

// MaxTimeout bounds a single deep-research call.
const MaxTimeout = 5 * time.Minute

type Result struct {
	Content    string
	Citations  []types.ResearchCitation
	TokenCount int
}

// Client is the deep-research provider.
type Client interface {
	Research(ctx context.Context, topic, courseContext string) (*Result, error)
}

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type client struct {
	log   *logger.Logger
	http  *resty.Client
	model string
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("missing RESEARCH_API_KEY")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.perplexity.ai"
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = "sonar-deep-research"
	}
	timeout := cfg.Timeout
	if timeout <= 0 || timeout > MaxTimeout {
		timeout = MaxTimeout
	}
	rc := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetAuthToken(cfg.APIKey).
		SetHeader("Content-Type", "application/json")
	return &client{
		log:   log.With("client", "ResearchClient", "model", model),
		http:  rc,
		model: model,
	}, nil
}

type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 512 {
		body = body[:512]
	}
	return fmt.Sprintf("research http %d: %s", e.StatusCode, body)
}

func (e *HTTPError) HTTPStatusCode() int { return e.StatusCode }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Citations     []string `json:"citations"`
	SearchResults []struct {
		Title   string `json:"title"`
		URL     string `json:"url"`
		Snippet string `json:"snippet"`
	} `json:"search_results"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

const systemPrompt = "You are a research assistant preparing grounding notes for a short beginner course. " +
	"Write a factual, well organized briefing with concrete facts, figures and common misconceptions. " +
	"Prefer primary and reputable sources."

func (c *client) Research(ctx context.Context, topic, courseContext string) (*Result, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, errors.New("empty research topic")
	}
	user := fmt.Sprintf("Topic: %s\n\nCourse plan:\n%s", topic, strings.TrimSpace(courseContext))

	var out chatResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model: c.model,
			Messages: []chatMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: user},
			},
		}).
		SetResult(&out).
		Post("/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("research request: %w", err)
	}
	if resp.IsError() {
		return nil, &HTTPError{StatusCode: resp.StatusCode(), Body: resp.String()}
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return nil, errors.New("research response has no content")
	}

	res := &Result{
		Content:    strings.TrimSpace(out.Choices[0].Message.Content),
		Citations:  buildCitations(out),
		TokenCount: out.Usage.TotalTokens,
	}
	c.log.Debug("Research completed", "citations", len(res.Citations), "tokens", res.TokenCount)
	return res, nil
}

// buildCitations prefers search_results (they carry titles) and falls back to bare urls.
// Duplicate urls keep their first position.
func buildCitations(out chatResponse) []types.ResearchCitation {
	seen := map[string]bool{}
	var list []types.ResearchCitation
	add := func(title, rawURL, snippet string) {
		rawURL = strings.TrimSpace(rawURL)
		if rawURL == "" || seen[rawURL] {
			return
		}
		seen[rawURL] = true
		list = append(list, types.ResearchCitation{
			Index:   len(list) + 1,
			Title:   strings.TrimSpace(title),
			URL:     rawURL,
			Domain:  Domain(rawURL),
			Snippet: strings.TrimSpace(snippet),
		})
	}
	if len(out.SearchResults) > 0 {
		for _, r := range out.SearchResults {
			add(r.Title, r.URL, r.Snippet)
		}
		return list
	}
	for _, u := range out.Citations {
		add("", u, "")
	}
	return list
}

// Domain returns the host without a leading "www.", or "" for unparseable urls.
func Domain(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}
