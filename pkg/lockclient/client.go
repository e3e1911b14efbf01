package lockclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client verifies lock tokens against the lock API.  It implements
// Verifier.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a Client for the API at baseURL.  A nil hc gets a
// client with a 10 second timeout.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTPClient: hc}
}

type verifyResp struct {
	Success bool          `json:"success"`
	Message string        `json:"message"`
	Event   EventSnapshot `json:"event"`
	Token   string        `json:"token"`
}

// Verify calls GET /api/locks/verify/{token}.  Every successful call
// consumes one usage unit of the lock.
func (c *Client) Verify(ctx context.Context, token string) (*Verified, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.BaseURL+"/api/locks/verify/"+url.PathEscape(token), nil)
	if err != nil {
		return nil, &ActivationError{Reason: defaultFailure, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, &ActivationError{Reason: defaultFailure, Err: err}
	}
	defer resp.Body.Close()

	var body verifyResp
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return nil, &ActivationError{Reason: defaultFailure, Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK || !body.Success {
		reason := body.Message
		if reason == "" {
			reason = defaultFailure
		}
		return nil, &ActivationError{Reason: reason, Status: resp.StatusCode}
	}
	if body.Token == "" {
		body.Token = token
	}
	return &Verified{Event: body.Event, Token: body.Token}, nil
}
