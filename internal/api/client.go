// Typed client for the TasteOS cook-session API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/tasteos/cookmode/internal/session"
	"github.com/tasteos/cookmode/internal/shared"
)

const defaultTimeout = 15 * time.Second

// Client talks to the cook endpoints under a base path. All session-scoped
// requests carry the deployment's workspace header when configured.
type Client struct {
	baseURL         string
	workspace       string
	workspaceHeader string
	httpClient      *http.Client
	logger          *log.Logger
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client. Used by tests and
// by callers that need custom transports.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a cook API client from configuration. When a token is
// configured the client authenticates via a static-token oauth2 transport,
// which attaches the bearer header on every request.
func NewClient(cfg shared.APIConfig, logger *log.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	c := &Client{
		baseURL:         strings.TrimRight(cfg.BaseURL, "/"),
		workspace:       cfg.Workspace,
		workspaceHeader: cfg.WorkspaceHeader,
		logger:          logger,
	}

	if cfg.Token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		c.httpClient = oauth2.NewClient(context.Background(), src)
		c.httpClient.Timeout = defaultTimeout
	} else {
		c.httpClient = &http.Client{Timeout: defaultTimeout}
	}

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Recipes lists the recipes available to the workspace.
func (c *Client) Recipes(ctx context.Context) ([]*session.Recipe, error) {
	var out struct {
		Recipes []*session.Recipe `json:"recipes"`
	}
	if err := c.do(ctx, http.MethodGet, "/cook/recipes", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Recipes, nil
}

// StartSession creates (or resumes) the active session for a recipe.
func (c *Client) StartSession(ctx context.Context, recipeID string) (*session.CookSession, error) {
	body := map[string]string{"recipe_id": recipeID}
	var out session.CookSession
	if err := c.do(ctx, http.MethodPost, "/cook/session/start", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ActiveSession fetches the current active session for a recipe.
// A 404 means no session exists and is reported as [shared.ErrNoActiveSession].
func (c *Client) ActiveSession(ctx context.Context, recipeID string) (*session.CookSession, error) {
	query := url.Values{"recipe_id": {recipeID}}
	var out session.CookSession
	if err := c.do(ctx, http.MethodGet, "/cook/session/active", query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PatchSession applies one sparse patch and returns the full canonical
// session. The caller replaces its cached copy wholesale with the result.
func (c *Client) PatchSession(ctx context.Context, sessionID string, patch *session.Patch) (*session.CookSession, error) {
	if err := patch.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	var out session.CookSession
	path := "/cook/session/" + url.PathEscape(sessionID)
	if err := c.do(ctx, http.MethodPatch, path, nil, patch, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// EndSession completes or abandons a session and returns its final state.
func (c *Client) EndSession(ctx context.Context, sessionID string, action session.EndAction) (*session.CookSession, error) {
	switch action {
	case session.EndComplete, session.EndAbandon:
	default:
		return nil, fmt.Errorf("%w: unknown end action %q", shared.ErrInvalidInput, action)
	}
	query := url.Values{"action": {string(action)}}
	var out session.CookSession
	path := "/cook/session/" + url.PathEscape(sessionID) + "/end"
	if err := c.do(ctx, http.MethodPatch, path, query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SuggestionQuery parameterizes autoflow suggestion retrieval with the
// client's view of the session, letting the server skip recomputation when
// nothing changed.
type SuggestionQuery struct {
	SessionID    string
	StepIndex    int
	StateVersion int64
	// CheckedKeys are "step:bullet" pairs the client knows are checked.
	CheckedKeys []string
	// ActiveTimerIDs are the timers the client is currently rendering.
	ActiveTimerIDs []string
}

// Suggestions retrieves the current autoflow suggestions for a session.
func (c *Client) Suggestions(ctx context.Context, q SuggestionQuery) (*session.SuggestionSet, error) {
	query := url.Values{
		"step":    {strconv.Itoa(q.StepIndex)},
		"version": {strconv.FormatInt(q.StateVersion, 10)},
	}
	if len(q.CheckedKeys) > 0 {
		query.Set("checked", strings.Join(q.CheckedKeys, ","))
	}
	if len(q.ActiveTimerIDs) > 0 {
		query.Set("timers", strings.Join(q.ActiveTimerIDs, ","))
	}

	var out session.SuggestionSet
	path := "/cook/session/" + url.PathEscape(q.SessionID) + "/suggestions"
	if err := c.do(ctx, http.MethodGet, path, query, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AssistRequest asks the stateless assist endpoint for substitution,
// nutrition, or quick-fix help.
type AssistRequest struct {
	RecipeID  string          `json:"recipe_id"`
	StepIndex int             `json:"step_index"`
	Intent    string          `json:"intent"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// AssistResponse is the assist endpoint's answer.
type AssistResponse struct {
	Title      string   `json:"title"`
	Bullets    []string `json:"bullets"`
	Confidence *float64 `json:"confidence,omitempty"`
	Source     string   `json:"source,omitempty"`
}

// Assist calls the AI-assist collaborator. It holds no session state.
func (c *Client) Assist(ctx context.Context, req AssistRequest) (*AssistResponse, error) {
	var out AssistResponse
	if err := c.do(ctx, http.MethodPost, "/cook/assist", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// do performs one JSON request/response round trip.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setScope(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		if strings.HasSuffix(path, "/active") {
			return shared.ErrNoActiveSession
		}
		return shared.ErrSessionNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		c.logger.Debug("api error response", "method", method, "path", path, "status", resp.StatusCode)
		return fmt.Errorf("%w: %s %s returned %d: %s", shared.ErrAPIRequest, method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// setScope attaches the workspace identifier header when configured.
func (c *Client) setScope(req *http.Request) {
	if c.workspace != "" && c.workspaceHeader != "" {
		req.Header.Set(c.workspaceHeader, c.workspace)
	}
}
