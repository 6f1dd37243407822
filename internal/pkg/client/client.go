// Package client talks to the raki REST API
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/pkg/errors"

	"github.com/jake-scott/raki/internal/pkg/command"
	"github.com/jake-scott/raki/internal/pkg/manager"
	"github.com/jake-scott/raki/internal/pkg/models"
	"github.com/jake-scott/raki/internal/pkg/relay"
)

const apiPath = "/api"

// APIError is an error body returned by the server
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d (%s)", e.Status, e.Code)
	}
	return fmt.Sprintf("server returned %d (%s): %s", e.Status, e.Code, e.Message)
}

var codeErrors = map[string]error{
	models.ErrorCodeNotFound:           manager.ErrNotFound,
	models.ErrorCodeDuplicateID:        manager.ErrDuplicateID,
	models.ErrorCodeInvalidConfig:      manager.ErrInvalidConfig,
	models.ErrorCodeMalformedCommand:   command.ErrMalformedCommand,
	models.ErrorCodeUnsupportedCommand: relay.ErrUnsupportedCommand,
	models.ErrorCodeHardwareFault:      relay.ErrHardwareFault,
}

// Is lets callers test server errors against the same sentinels the server
// uses, eg. errors.Is(err, manager.ErrNotFound)
func (e *APIError) Is(target error) bool {
	sentinel, ok := codeErrors[e.Code]
	return ok && sentinel == target
}

type Live struct {
	server     string
	timeout    time.Duration
	httpClient *http.Client
}

func NewLiveClient(server string) *Live {
	return &Live{
		server:     strings.TrimSuffix(server, "/"),
		httpClient: http.DefaultClient,
	}
}

func (c *Live) WithTimeout(d time.Duration) *Live {
	nc := *c
	nc.timeout = d
	return &nc
}

func (c *Live) WithHTTPClient(hc *http.Client) *Live {
	nc := *c
	nc.httpClient = hc
	return &nc
}

func (c *Live) MakeContext(parent context.Context) (context.Context, context.CancelFunc) {
	if c.timeout > 0 {
		return context.WithTimeout(parent, c.timeout)
	}

	return context.WithCancel(parent)
}

func relayPath(id string) string {
	return apiPath + "/relay/" + url.PathEscape(id)
}

// List returns every relay on the server
func (c *Live) List(ctx context.Context) ([]models.Relay, error) {
	var items []models.Relay
	if err := c.do(ctx, http.MethodGet, apiPath+"/relays", nil, http.StatusOK, &items); err != nil {
		return nil, errors.Wrap(err, "listing relays")
	}

	return items, nil
}

// Get queries the state of one relay
func (c *Live) Get(ctx context.Context, id string) (models.Relay, error) {
	var r models.Relay
	if err := c.do(ctx, http.MethodGet, relayPath(id), nil, http.StatusOK, &r); err != nil {
		return r, errors.Wrapf(err, "querying relay %s", id)
	}

	return r, nil
}

// Create makes a new relay on the server
func (c *Live) Create(ctx context.Context, req models.RelayCreate) (models.Relay, error) {
	var r models.Relay
	if err := req.Validate(strfmt.Default); err != nil {
		return r, errors.Wrap(err, "invalid relay")
	}

	if err := c.do(ctx, http.MethodPost, apiPath+"/relays", &req, http.StatusCreated, &r); err != nil {
		return r, errors.Wrapf(err, "creating relay %s", *req.ID)
	}

	return r, nil
}

// Delete removes a relay from the server
func (c *Live) Delete(ctx context.Context, id string) error {
	return errors.Wrapf(c.do(ctx, http.MethodDelete, relayPath(id), nil, http.StatusNoContent, nil),
		"deleting relay %s", id)
}

// Send runs a command on one relay and returns its new state
func (c *Live) Send(ctx context.Context, id string, cmd models.Command) (models.Relay, error) {
	var r models.Relay
	if err := cmd.Validate(strfmt.Default); err != nil {
		return r, errors.Wrap(err, "invalid command")
	}

	if err := c.do(ctx, http.MethodPost, relayPath(id), &cmd, http.StatusOK, &r); err != nil {
		return r, errors.Wrapf(err, "sending %s to relay %s", *cmd.Type, id)
	}

	return r, nil
}

func (c *Live) do(ctx context.Context, method string, path string, in interface{}, want int, out interface{}) error {
	ctx, cancel := c.MakeContext(ctx)
	defer cancel()

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "encoding request")
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.server+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return decodeError(resp)
	}

	if out == nil {
		return nil
	}

	return errors.Wrap(json.NewDecoder(resp.Body).Decode(out), "decoding response")
}

func decodeError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}

	var body models.ErrorResponse
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err := json.Unmarshal(b, &body); err == nil && body.Code != "" {
		apiErr.Code = body.Code
		apiErr.Message = body.Message
	} else {
		apiErr.Code = strings.ToLower(strings.ReplaceAll(http.StatusText(resp.StatusCode), " ", "_"))
		apiErr.Message = strings.TrimSpace(string(b))
	}

	return apiErr
}
