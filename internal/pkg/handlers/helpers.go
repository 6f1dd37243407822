package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/go-openapi/runtime/middleware/header"
	"github.com/go-openapi/strfmt"
	"github.com/pkg/errors"

	"github.com/jake-scott/raki/internal/pkg/command"
	"github.com/jake-scott/raki/internal/pkg/logging"
	"github.com/jake-scott/raki/internal/pkg/manager"
	"github.com/jake-scott/raki/internal/pkg/models"
	"github.com/jake-scott/raki/internal/pkg/relay"
)

// For generated request validation routines
var formats strfmt.Registry

func init() {
	// Default validators
	formats = strfmt.NewFormats()
}

func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	if r.Header.Get("Content-Type") != "" {
		value, _ := header.ParseValueAndParams(r.Header, "Content-Type")
		if value != "application/json" {
			return fmt.Errorf("expected JSON request, got %s", value)
		}
	}

	// 100kb max body
	reader := http.MaxBytesReader(w, r.Body, 100*1024)
	dec := json.NewDecoder(reader)

	if err := dec.Decode(dst); err != nil {
		return err
	}

	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("request body must only contain a single JSON object")
	}

	return nil
}

func sendJSON(w http.ResponseWriter, r *http.Request, status int, d interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	enc := json.NewEncoder(w)
	if err := enc.Encode(d); err != nil {
		logging.Logger(r.Context()).WithError(err).Error("sending json response")
	}
}

// errorStatus maps a core error to its HTTP status and error code
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, manager.ErrNotFound):
		return http.StatusNotFound, models.ErrorCodeNotFound
	case errors.Is(err, manager.ErrDuplicateID):
		return http.StatusConflict, models.ErrorCodeDuplicateID
	case errors.Is(err, manager.ErrInvalidConfig):
		return http.StatusBadRequest, models.ErrorCodeInvalidConfig
	case errors.Is(err, command.ErrMalformedCommand):
		return http.StatusBadRequest, models.ErrorCodeMalformedCommand
	case errors.Is(err, relay.ErrUnsupportedCommand):
		return http.StatusBadRequest, models.ErrorCodeUnsupportedCommand
	case errors.Is(err, relay.ErrHardwareFault):
		return http.StatusInternalServerError, models.ErrorCodeHardwareFault
	}

	return http.StatusInternalServerError, models.ErrorCodeInternal
}

func sendError(w http.ResponseWriter, r *http.Request, status int, code string, msg string) {
	sendJSON(w, r, status, models.ErrorResponse{
		Status:  int64(status),
		Code:    code,
		Message: msg,
	})
}

func sendCoreError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := errorStatus(err)

	ctxLogger := logging.Logger(r.Context()).WithError(err)
	if status >= http.StatusInternalServerError {
		ctxLogger.Error("request failed")
	} else {
		ctxLogger.Info("request rejected")
	}

	sendError(w, r, status, code, err.Error())
}
