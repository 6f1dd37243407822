package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-openapi/swag"
	"github.com/pkg/errors"

	"github.com/jake-scott/raki/internal/pkg/command"
	"github.com/jake-scott/raki/internal/pkg/handlers"
	"github.com/jake-scott/raki/internal/pkg/manager"
	"github.com/jake-scott/raki/internal/pkg/models"
	"github.com/jake-scott/raki/internal/pkg/relay"
)

func newTestClient(t *testing.T) *Live {
	t.Helper()

	srv := httptest.NewServer(handlers.NewRouter(manager.New(), handlers.RouterOptions{}))
	t.Cleanup(srv.Close)

	return NewLiveClient(srv.URL + "/").WithHTTPClient(srv.Client()).WithTimeout(time.Second * 5)
}

func TestClientRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	r, err := c.Create(ctx, models.RelayCreate{ID: swag.String("r1"), Kind: swag.String("test")})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}
	if *r.State != "OFF" || r.Kind != "test" {
		t.Errorf("created = %+v", r)
	}

	r, err = c.Send(ctx, "r1", models.Command{Type: swag.String("TOGGLE")})
	if err != nil || *r.State != "ON" {
		t.Fatalf("Send(TOGGLE) = %v, %v", r.State, err)
	}

	r, err = c.Get(ctx, "r1")
	if err != nil || *r.State != "ON" {
		t.Fatalf("Get() = %v, %v", r.State, err)
	}

	items, err := c.List(ctx)
	if err != nil || len(items) != 1 {
		t.Fatalf("List() = %v, %v", items, err)
	}

	if err := c.Delete(ctx, "r1"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
}

func TestClientErrors(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(t)

	if _, err := c.Create(ctx, models.RelayCreate{ID: swag.String("r1"), Kind: swag.String("test")}); err != nil {
		t.Fatal(err)
	}

	_, err := c.Create(ctx, models.RelayCreate{ID: swag.String("r1"), Kind: swag.String("test")})
	if !errors.Is(err, manager.ErrDuplicateID) {
		t.Errorf("duplicate create error = %v", err)
	}

	_, err = c.Get(ctx, "nope")
	if !errors.Is(err, manager.ErrNotFound) {
		t.Errorf("missing relay error = %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusNotFound {
		t.Errorf("missing relay error is not a 404 APIError: %v", err)
	}

	_, err = c.Send(ctx, "r1", models.Command{Type: swag.String("SET")})
	if !errors.Is(err, command.ErrMalformedCommand) {
		t.Errorf("SET without argument error = %v", err)
	}

	if err := c.Delete(ctx, "nope"); !errors.Is(err, manager.ErrNotFound) {
		t.Errorf("delete missing error = %v", err)
	}

	// rejected locally, never reaches the server
	if _, err := c.Send(ctx, "r1", models.Command{}); err == nil || errors.As(err, &apiErr) {
		t.Errorf("command without type error = %v", err)
	}

	if errors.Is(err, relay.ErrHardwareFault) {
		t.Error("unrelated error matched ErrHardwareFault")
	}
}

func TestDecodeNonJSONError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gateway sad", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := NewLiveClient(srv.URL).List(context.Background())

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want APIError", err)
	}
	if apiErr.Status != http.StatusBadGateway || apiErr.Code != "bad_gateway" || apiErr.Message != "gateway sad" {
		t.Errorf("APIError = %+v", apiErr)
	}
}
