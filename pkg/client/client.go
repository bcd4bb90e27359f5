// Package client is the Go client for the session-service REST API. Failure
// kinds come back as structured errs values, so callers branch on the kind and
// never on message text.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/ImArvindRaj/virtual-event-platform/internal/errs"
	"github.com/ImArvindRaj/virtual-event-platform/internal/model"
)

// Client calls the session-service API on behalf of one authenticated user.
type Client struct {
	baseURL string
	bearer  string
	http    *http.Client
}

// New creates an API client. bearer is the caller's auth token.
func New(baseURL, bearer string) *Client {
	return &Client{
		baseURL: baseURL,
		bearer:  bearer,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Status fetches the waiting-room status of a gathering.
func (c *Client) Status(ctx context.Context, gatheringID string) (*model.SessionStatusResponse, error) {
	var out model.SessionStatusResponse
	err := c.do(ctx, http.MethodGet, "/api/sessions/"+gatheringID+"/status", nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// StartSession starts the live session for a gathering (host only).
func (c *Client) StartSession(ctx context.Context, gatheringID string) (*model.StartSessionResponse, error) {
	var out model.StartSessionResponse
	body := model.StartSessionRequest{GatheringID: gatheringID}
	err := c.do(ctx, http.MethodPost, "/api/sessions/start", body, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Token fetches a media credential for a gathering.
func (c *Client) Token(ctx context.Context, gatheringID string) (*model.TokenResponse, error) {
	var out model.TokenResponse
	err := c.do(ctx, http.MethodGet, "/api/sessions/"+gatheringID+"/token", nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// EndSession seals a session (host only).
func (c *Client) EndSession(ctx context.Context, sessionID string) (*model.EndSessionResponse, error) {
	var out model.EndSessionResponse
	err := c.do(ctx, http.MethodPut, "/api/sessions/"+sessionID+"/end", nil, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.bearer)

	res, err := c.http.Do(req)
	if err != nil {
		return errs.Wrap(errs.KindTransport, "session service unreachable", err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		return decodeError(res)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(res.Body).Decode(out)
}

func decodeError(res *http.Response) error {
	var body model.ErrorResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil || body.Error == "" {
		return errs.E(errs.KindInternal, fmt.Sprintf("unexpected status %d", res.StatusCode))
	}
	kind := errs.Kind(body.Error)
	switch kind {
	case errs.KindNotFound, errs.KindForbidden, errs.KindConflict,
		errs.KindConfig, errs.KindUnauthenticated:
		return errs.E(kind, body.Message)
	default:
		return errs.E(errs.KindInternal, body.Message)
	}
}
