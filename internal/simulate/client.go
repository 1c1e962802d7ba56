package simulate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Outcome classifies the service's answer to one submission.
type Outcome int

// Submission outcomes.
const (
	Accepted Outcome = iota
	Duplicate
	Throttled
	Rejected
	Failed
)

// CharacterState is the part of a character view the verifier inspects.
type CharacterState struct {
	CharacterID string             `json:"character_id"`
	Current     map[string]float64 `json:"current"`
	Baseline    map[string]float64 `json:"baseline"`
	Milestones  []json.RawMessage  `json:"milestones"`
	Unlocks     []json.RawMessage  `json:"unlocks"`
}

var errCharacterNotFound = errors.New("character not found")

// Client talks to the ethos HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a Client with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Health probes /healthz.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer drain(resp)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// Submit posts one snapshot event.
func (c *Client) Submit(ctx context.Context, e Event) (Outcome, error) {
	resp, err := c.do(ctx, http.MethodPost, "/v1/snapshots", e)
	if err != nil {
		return Failed, err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusAccepted:
		return Accepted, nil
	case http.StatusOK:
		return Duplicate, nil
	case http.StatusTooManyRequests:
		return Throttled, nil
	case http.StatusBadRequest:
		return Rejected, fmt.Errorf("submit %s: status %d", e.EventID, resp.StatusCode)
	default:
		return Failed, fmt.Errorf("submit %s: status %d", e.EventID, resp.StatusCode)
	}
}

// Character fetches the tracked state of id.
func (c *Client) Character(ctx context.Context, id string) (CharacterState, error) {
	var state CharacterState
	resp, err := c.do(ctx, http.MethodGet, "/v1/characters/"+url.PathEscape(id), nil)
	if err != nil {
		return state, err
	}
	defer drain(resp)

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return state, errCharacterNotFound
	default:
		return state, fmt.Errorf("get character %s: status %d", id, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return state, fmt.Errorf("decode character %s: %w", id, err)
	}
	return state, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var r io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		r = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.http.Do(req)
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}
