package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/abhisek/quizcal/internal/schedule"
)

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 4 << 20

// TokenSource supplies the bearer credential for each request.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a TokenSource that always returns the same token.
type StaticToken string

func (t StaticToken) Token(context.Context) (string, error) { return string(t), nil }

// HTTPClient implements Service as JSON over HTTP:
//
//	POST   {base}/schedules
//	PATCH  {base}/schedules/{serverId}
//	DELETE {base}/schedules/{serverId}
//	GET    {base}/schedules?from=&to=
//
// Every response is an envelope {ok, data} or {ok: false, message,
// fieldErrors}.
type HTTPClient struct {
	base   string
	client *http.Client
	tokens TokenSource
}

// NewHTTPClient creates a client for the service at cfg.BaseURL.
func NewHTTPClient(cfg HTTPConfig, tokens TokenSource) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("schedule service base URL is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if tokens == nil {
		tokens = StaticToken("")
	}
	return &HTTPClient{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		client: &http.Client{Timeout: timeout},
		tokens: tokens,
	}, nil
}

// wireItem is the service's representation of an item.
type wireItem struct {
	ID                      string    `json:"id"`
	QuizID                  string    `json:"quizId"`
	QuizRootID              string    `json:"quizRootId"`
	QuizVersion             int       `json:"quizVersion"`
	StartDate               time.Time `json:"startDate"`
	EndDate                 time.Time `json:"endDate"`
	AttemptsAllowed         int       `json:"attemptsAllowed"`
	ShowAnswersAfterAttempt bool      `json:"showAnswersAfterAttempt"`
	Contribution            *float64  `json:"contribution"`
	Name                    string    `json:"name"`
	Subject                 string    `json:"subject"`
	Color                   string    `json:"color"`
}

func (w wireItem) item() schedule.Item {
	return schedule.Item{
		ServerID:                w.ID,
		QuizID:                  w.QuizID,
		QuizRootID:              w.QuizRootID,
		QuizVersion:             w.QuizVersion,
		StartDate:               w.StartDate,
		EndDate:                 w.EndDate,
		AttemptsAllowed:         w.AttemptsAllowed,
		ShowAnswersAfterAttempt: w.ShowAnswersAfterAttempt,
		Contribution:            w.Contribution,
		Name:                    w.Name,
		Subject:                 w.Subject,
		Color:                   w.Color,
	}
}

type envelope struct {
	OK          bool                  `json:"ok"`
	Data        json.RawMessage       `json:"data"`
	Message     string                `json:"message"`
	FieldErrors []schedule.FieldError `json:"fieldErrors"`
}

func (c *HTTPClient) Create(ctx context.Context, p schedule.CreatePayload) (schedule.Item, error) {
	var w wireItem
	if err := c.do(ctx, http.MethodPost, "/schedules", p, itemSchema, &w); err != nil {
		return schedule.Item{}, fmt.Errorf("create schedule: %w", err)
	}
	return w.item(), nil
}

func (c *HTTPClient) Edit(ctx context.Context, serverID string, p schedule.Patch) (schedule.Item, error) {
	var w wireItem
	if err := c.do(ctx, http.MethodPatch, "/schedules/"+url.PathEscape(serverID), p, itemSchema, &w); err != nil {
		return schedule.Item{}, fmt.Errorf("edit schedule %s: %w", serverID, err)
	}
	return w.item(), nil
}

func (c *HTTPClient) Delete(ctx context.Context, serverID string) error {
	if err := c.do(ctx, http.MethodDelete, "/schedules/"+url.PathEscape(serverID), nil, nil, nil); err != nil {
		return fmt.Errorf("delete schedule %s: %w", serverID, err)
	}
	return nil
}

func (c *HTTPClient) List(ctx context.Context, from, to time.Time) ([]schedule.Item, error) {
	q := url.Values{}
	q.Set("from", from.UTC().Format(time.RFC3339))
	q.Set("to", to.UTC().Format(time.RFC3339))

	var ws []wireItem
	if err := c.do(ctx, http.MethodGet, "/schedules?"+q.Encode(), nil, itemListSchema, &ws); err != nil {
		return nil, fmt.Errorf("list schedules: %w", err)
	}
	items := make([]schedule.Item, len(ws))
	for i, w := range ws {
		items[i] = w.item()
	}
	return items, nil
}

// Name returns "http".
func (c *HTTPClient) Name() string { return "http" }

// do sends one request and decodes the envelope's data into out.
func (c *HTTPClient) do(ctx context.Context, method, path string, body any, dataSchema *Schema, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return fmt.Errorf("obtain token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return &schedule.UnavailableError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &schedule.UnavailableError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
		return &schedule.UnavailableError{Err: &ErrStatus{Code: resp.StatusCode, Body: truncate(string(raw), 200)}}
	}

	if err := validateBody(envelopeSchema, raw); err != nil {
		if resp.StatusCode >= 300 {
			return &ErrStatus{Code: resp.StatusCode, Body: truncate(string(raw), 200)}
		}
		return err
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return &ErrInvalidResponse{Body: raw, Err: err}
	}
	if !env.OK {
		msg := env.Message
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return &schedule.ValidationError{Message: msg, Fields: env.FieldErrors}
	}
	if resp.StatusCode >= 300 {
		return &ErrStatus{Code: resp.StatusCode, Body: truncate(string(raw), 200)}
	}

	if out == nil {
		return nil
	}
	if len(env.Data) == 0 {
		return &ErrInvalidResponse{Body: raw, Err: errors.New("missing data")}
	}
	if err := validateBody(dataSchema, env.Data); err != nil {
		return err
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &ErrInvalidResponse{Body: env.Data, Err: fmt.Errorf("decode data: %w", err)}
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "…"
}
