package handlers

import (
	"net/http"

	"github.com/go-openapi/swag"
	"github.com/gorilla/mux"

	"github.com/jake-scott/raki/internal/pkg/command"
	"github.com/jake-scott/raki/internal/pkg/logging"
	"github.com/jake-scott/raki/internal/pkg/manager"
	"github.com/jake-scott/raki/internal/pkg/models"
	"github.com/jake-scott/raki/internal/pkg/relay"
)

// RelayHandler serves the relay resources on top of a Manager
type RelayHandler struct {
	mgr *manager.Manager
}

func NewRelayHandler(mgr *manager.Manager) RelayHandler {
	return RelayHandler{mgr: mgr}
}

func relayModel(s manager.Snapshot) models.Relay {
	return models.Relay{
		ID:    swag.String(s.ID),
		State: swag.String(s.State.Name()),
		Kind:  s.Kind.Name(),
	}
}

// tag the request as coming in over HTTP so the audit trail can tell
func withSource(r *http.Request) *http.Request {
	return r.WithContext(logging.WithSource(r.Context(), "http"))
}

// List handles GET /relays
func (h *RelayHandler) List(w http.ResponseWriter, r *http.Request) {
	snaps := h.mgr.List()

	items := make([]models.Relay, 0, len(snaps))
	for _, s := range snaps {
		items = append(items, relayModel(s))
	}

	sendJSON(w, r, http.StatusOK, items)
}

// Create handles POST /relays
func (h *RelayHandler) Create(w http.ResponseWriter, r *http.Request) {
	r = withSource(r)
	ctxLogger := logging.Logger(r.Context())

	var req models.RelayCreate
	if err := decodeJSONBody(w, r, &req); err != nil {
		ctxLogger.WithError(err).Info("decoding JSON")
		sendError(w, r, http.StatusBadRequest, models.ErrorCodeBadRequest, "unable to parse JSON: "+err.Error())
		return
	}

	if err := req.Validate(formats); err != nil {
		ctxLogger.WithError(err).Info("request validation failure")
		sendError(w, r, http.StatusBadRequest, models.ErrorCodeInvalidConfig, err.Error())
		return
	}

	ok, kind := relay.ParseKind(*req.Kind)
	if !ok {
		sendError(w, r, http.StatusBadRequest, models.ErrorCodeInvalidConfig, "unknown relay kind "+*req.Kind)
		return
	}

	cfg := manager.Config{
		ActiveLow:    req.ActiveLow,
		InitialState: req.InitialState,
		Fault:        req.Fault,
	}
	if req.Pin != nil {
		pin := int(*req.Pin)
		cfg.Pin = &pin
	}

	snap, err := h.mgr.Create(r.Context(), *req.ID, kind, cfg)
	if err != nil {
		sendCoreError(w, r, err)
		return
	}

	w.Header().Set("Location", BasePath+"/relay/"+snap.ID)
	sendJSON(w, r, http.StatusCreated, relayModel(snap))
}

// Query handles GET /relay/{id}
func (h *RelayHandler) Query(w http.ResponseWriter, r *http.Request) {
	r = withSource(r)
	h.execute(w, r, mux.Vars(r)["id"], command.New(command.Query))
}

// Command handles POST /relay/{id}
func (h *RelayHandler) Command(w http.ResponseWriter, r *http.Request) {
	r = withSource(r)
	ctxLogger := logging.Logger(r.Context())

	var req models.Command
	if err := decodeJSONBody(w, r, &req); err != nil {
		ctxLogger.WithError(err).Info("decoding JSON")
		sendError(w, r, http.StatusBadRequest, models.ErrorCodeBadRequest, "unable to parse JSON: "+err.Error())
		return
	}

	if err := req.Validate(formats); err != nil {
		ctxLogger.WithError(err).Info("request validation failure")
		sendError(w, r, http.StatusBadRequest, models.ErrorCodeMalformedCommand, err.Error())
		return
	}

	cmd, err := command.Parse(*req.Type, req.Args)
	if err != nil {
		sendCoreError(w, r, err)
		return
	}

	h.execute(w, r, mux.Vars(r)["id"], cmd)
}

func (h *RelayHandler) execute(w http.ResponseWriter, r *http.Request, id string, cmd command.Command) {
	// kind never changes, so a snapshot taken first is good for the response
	snap, err := h.mgr.Get(id)
	if err != nil {
		sendCoreError(w, r, err)
		return
	}

	state, err := h.mgr.Command(r.Context(), id, cmd)
	if err != nil {
		sendCoreError(w, r, err)
		return
	}

	snap.State = state
	sendJSON(w, r, http.StatusOK, relayModel(snap))
}

// Delete handles DELETE /relay/{id}
func (h *RelayHandler) Delete(w http.ResponseWriter, r *http.Request) {
	r = withSource(r)

	if err := h.mgr.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		sendCoreError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
