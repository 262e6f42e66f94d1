// Package capital provides a client for the Capital.com REST trading API.
package capital

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"signal_relay/internal/broker"
	apperrors "signal_relay/internal/errors"
	"signal_relay/internal/telemetry"
)

const (
	sessionPath   = "/session"
	positionsPath = "/positions"

	headerAPIKey        = "X-CAP-API-KEY"
	headerCST           = "CST"
	headerSecurityToken = "X-SECURITY-TOKEN"

	httpClientTimeout = 10 * time.Second

	// Response bodies are kept for diagnostics only.
	maxBodyBytes = 1 << 20
)

// Client talks to the brokerage over HTTP.
type Client struct {
	httpClient *http.Client
	baseURL    string
	creds      *broker.Credentials
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new brokerage client. baseURL may be empty, in which
// case every Login reports a configuration error.
func NewClient(baseURL string, creds *broker.Credentials, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: httpClientTimeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// settingNames maps credential fields to the settings that provide them.
var settingNames = map[string]string{
	"identifier": "CAPITAL_EMAIL",
	"secret":     "CAPITAL_PASSWORD",
	"api_key":    "CAPITAL_API_KEY",
}

// Missing returns the names of required settings that are empty.
func (c *Client) Missing() []string {
	var missing []string
	if c.baseURL == "" {
		missing = append(missing, "CAPITAL_API_URL")
	}
	if c.creds == nil {
		return append(missing, "CAPITAL_EMAIL", "CAPITAL_PASSWORD", "CAPITAL_API_KEY")
	}
	for _, field := range c.creds.Missing() {
		missing = append(missing, settingNames[field])
	}
	return missing
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

// Login opens a brokerage session. The returned session has no expiry set.
func (c *Client) Login(ctx context.Context) (*broker.Session, error) {
	log := telemetry.L(ctx)

	if missing := c.Missing(); len(missing) > 0 {
		for _, name := range missing {
			log.Error("missing brokerage setting", "setting", name)
		}
		return nil, apperrors.MissingConfig(missing)
	}

	secret, err := c.creds.Secret()
	if err != nil {
		return nil, apperrors.Internal("opening credentials", err)
	}
	apiKey, err := c.creds.APIKey()
	if err != nil {
		return nil, apperrors.Internal("opening credentials", err)
	}

	log.Info("attempting brokerage authentication",
		"url", c.baseURL+sessionPath,
		"credentials", c.creds,
	)

	payload, err := json.Marshal(loginRequest{Identifier: c.creds.Identifier(), Password: secret})
	if err != nil {
		return nil, apperrors.Internal("encoding login request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+sessionPath, bytes.NewReader(payload))
	if err != nil {
		return nil, apperrors.Internal("building login request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerAPIKey, apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.AuthUnavailable(0, "", err)
	}
	defer resp.Body.Close()

	body := readBody(resp.Body)

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnauthorized:
		log.Error("brokerage rejected credentials",
			"status", resp.StatusCode,
			"hint", "check the email, the API key password and that the key is enabled",
		)
		return nil, apperrors.InvalidCredentials(body)
	default:
		log.Error("brokerage login failed", "status", resp.StatusCode, "body", body)
		return nil, apperrors.AuthUnavailable(resp.StatusCode, body, nil)
	}

	cst := resp.Header.Get(headerCST)
	if cst == "" {
		return nil, apperrors.MalformedResponse(headerCST)
	}
	securityToken := resp.Header.Get(headerSecurityToken)
	if securityToken == "" {
		return nil, apperrors.MalformedResponse(headerSecurityToken)
	}

	log.Info("brokerage authentication succeeded")
	return &broker.Session{CST: cst, SecurityToken: securityToken}, nil
}

// CreatePosition submits a market order. err is non-nil only when no
// response was received; any HTTP status is returned to the caller.
func (c *Client) CreatePosition(ctx context.Context, session *broker.Session, order broker.PositionRequest) ([]byte, int, error) {
	if session == nil {
		return nil, 0, fmt.Errorf("create position: nil session")
	}

	apiKey, err := c.creds.APIKey()
	if err != nil {
		return nil, 0, fmt.Errorf("opening api key: %w", err)
	}

	payload, err := json.Marshal(order)
	if err != nil {
		return nil, 0, fmt.Errorf("encoding order: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+positionsPath, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("building order request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerCST, session.CST)
	req.Header.Set(headerSecurityToken, session.SecurityToken)
	req.Header.Set(headerAPIKey, apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("reading order response: %w", err)
	}
	return body, resp.StatusCode, nil
}

func readBody(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxBodyBytes))
	return string(b)
}
