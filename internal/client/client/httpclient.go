package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/silverkiwi/jobs-manager-sub002/internal/client/viewmodel"
	"github.com/silverkiwi/jobs-manager-sub002/internal/common"
)

// HTTPClient talks JSON over HTTP to the jobs-manager API.
//
// One save request runs at a time in the intended design (the coordinator
// enforces this); the client itself is still safe for concurrent use.
type HTTPClient struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource

	mu           sync.Mutex
	sessionToken string
	csrfToken    string
}

// memoryTokenSource serves the CSRF token captured at login.
type memoryTokenSource struct {
	c *HTTPClient
}

func (m *memoryTokenSource) Token() (string, error) {
	m.c.mu.Lock()
	defer m.c.mu.Unlock()
	if m.c.csrfToken == "" {
		return "", ErrNoCSRFToken
	}
	return m.c.csrfToken, nil
}

// NewHTTPClient creates a client for the given base URL
// (e.g. "http://127.0.0.1:8080"). If tokens is nil, the CSRF token obtained
// at login is used.
func NewHTTPClient(baseURL string, tokens TokenSource) *HTTPClient {
	c := &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
	if tokens == nil {
		tokens = &memoryTokenSource{c: c}
	}
	c.tokens = tokens
	return c
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	SessionToken string `json:"session_token"`
	CSRFToken    string `json:"csrf_token"`
}

// Login authenticates and captures the session and CSRF tokens for
// subsequent requests.
func (c *HTTPClient) Login(ctx context.Context, username string, password []byte) error {
	body, err := json.Marshal(loginRequest{Username: username, Password: string(password)})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/login", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized:
		return common.ErrInvalidCredentials
	default:
		return fmt.Errorf("login returned %d", resp.StatusCode)
	}

	var lr loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return fmt.Errorf("decoding login response: %w", err)
	}

	c.mu.Lock()
	c.sessionToken = lr.SessionToken
	c.csrfToken = lr.CSRFToken
	c.mu.Unlock()

	return nil
}

// Hydrate fetches the server-rendered initial state of a document.
// A document the server has never seen yields common.ErrorNotFound.
func (c *HTTPClient) Hydrate(ctx context.Context, kind common.DocumentKind, key string) (*viewmodel.Hydration, error) {
	endpoint := fmt.Sprintf("%s/api/%ss/%s", c.baseURL, string(kind), url.PathEscape(key))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.setSessionHeader(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, common.ErrorNotFound
	case http.StatusUnauthorized:
		return nil, ErrUnauthorized
	default:
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("hydrate returned %d: %s", resp.StatusCode, string(b))
	}

	var h viewmodel.Hydration
	if err := json.NewDecoder(resp.Body).Decode(&h); err != nil {
		return nil, fmt.Errorf("decoding hydration: %w", err)
	}
	return &h, nil
}

// Save posts one snapshot. A non-nil error means the request never took
// effect (network failure, non-2xx, missing CSRF token) and all client state
// should be kept for resend. A SaveResult with Success=false means the server
// accepted the request but rejected the payload; Messages says why.
func (c *HTTPClient) Save(ctx context.Context, snapshot *viewmodel.Snapshot) (*SaveResult, error) {
	csrf, err := c.tokens.Token()
	if err != nil {
		return nil, fmt.Errorf("csrf token: %w", err)
	}

	body, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}

	endpoint := fmt.Sprintf("%s/api/%ss/save", c.baseURL, snapshot.Kind)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(common.CSRFTokenHeaderName, csrf)
	c.setSessionHeader(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	default:
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("save returned %d: %s", resp.StatusCode, string(b))
	}

	var result SaveResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding save response: %w", err)
	}
	return &result, nil
}

// Ping probes server reachability.
func (c *HTTPClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/ping", nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ping returned %d", resp.StatusCode)
	}
	return nil
}

// Close releases idle connections.
func (c *HTTPClient) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

func (c *HTTPClient) setSessionHeader(req *http.Request) {
	c.mu.Lock()
	token := c.sessionToken
	c.mu.Unlock()
	if token != "" {
		req.Header.Set(common.SessionTokenHeaderName, token)
	}
}

var _ Client = (*HTTPClient)(nil)
