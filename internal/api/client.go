// Package api is the HTTP client for the Smart Farm backend: sensor data
// retrieval, backend refresh, device control and sign-in/sign-up.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/luki/smartfarm/internal/reading"
)

// Client talks to one backend. Requests are never retried.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Tokens  TokenStore
	Logger  *slog.Logger
}

// New returns a client for baseURL. A nil httpClient means
// http.DefaultClient; a nil logger discards output.
func New(baseURL string, httpClient *http.Client, tokens TokenStore, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if tokens == nil {
		tokens = &MemTokens{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    httpClient,
		Tokens:  tokens,
		Logger:  logger,
	}
}

const opLogin = "login"

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type messageBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Token   string `json:"token"`
}

// Readings fetches GET /data_retrieval. A non-empty parameter is sent as
// the "parameter" query value. The payload must hold a "data" array.
func (c *Client) Readings(ctx context.Context, parameter string) ([]reading.SensorReading, error) {
	path := "/data_retrieval"
	if parameter != "" {
		path += "?" + url.Values{"parameter": {parameter}}.Encode()
	}

	resp, err := c.do(ctx, "fetch data", http.MethodGet, path, nil, true)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	readings, err := reading.DecodeResponse(resp.Body)
	if err != nil {
		c.Logger.Warn("unexpected server response", "error", err)
		return nil, err
	}
	c.Logger.Debug("received data from server", "rows", len(readings))
	return readings, nil
}

// Refresh asks the backend to pull fresh sensor data
// (POST /retrieve_sensor_data).
func (c *Client) Refresh(ctx context.Context) error {
	resp, err := c.do(ctx, "refresh", http.MethodPost, "/retrieve_sensor_data", nil, true)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Control performs a device action (POST /{action}) and returns the
// server's message.
func (c *Client) Control(ctx context.Context, action string) (string, error) {
	op := "perform " + action
	resp, err := c.do(ctx, op, http.MethodPost, "/"+url.PathEscape(action), nil, true)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body messageBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%s: %w", op, reading.ErrMalformed)
	}
	return body.Message, nil
}

// Login signs in and stores the returned token.
func (c *Client) Login(ctx context.Context, username, password string) error {
	resp, err := c.do(ctx, opLogin, http.MethodPost, "/login", credentials{username, password}, false)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var body messageBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil || body.Token == "" {
		return fmt.Errorf("%s: %w", opLogin, reading.ErrMalformed)
	}
	return c.Tokens.SetToken(body.Token)
}

// Register creates an account. It does not sign in.
func (c *Client) Register(ctx context.Context, username, password string) (string, error) {
	resp, err := c.do(ctx, "register", http.MethodPost, "/register", credentials{username, password}, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var body messageBody
	_ = json.NewDecoder(resp.Body).Decode(&body)
	return body.Message, nil
}

// Logout forgets the stored token.
func (c *Client) Logout() error {
	return c.Tokens.SetToken("")
}

// do sends one request. Non-2xx responses are closed and returned as
// *StatusError; network failures wrap ErrTransport.
func (c *Client) do(ctx context.Context, op, method, path string, payload any, auth bool) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("%s: encode body: %w", op, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	if auth {
		token, err := c.Tokens.Token()
		if err != nil {
			return nil, err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		c.Logger.Error("request failed", "op", op, "error", err)
		return nil, fmt.Errorf("%s: %w: %v", op, ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		var msg messageBody
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&msg)
		se := &StatusError{Op: op, Code: resp.StatusCode, Status: resp.Status, Message: msg.Message}
		if se.Message == "" {
			se.Message = msg.Error
		}
		c.Logger.Error("request rejected", "op", op, "status", resp.StatusCode, "message", se.Message)
		return nil, se
	}
	return resp, nil
}
