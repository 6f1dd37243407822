package handlers

import (
	"net/http"

	"github.com/go-openapi/runtime/middleware"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/jake-scott/raki/api"
	"github.com/jake-scott/raki/internal/pkg/manager"
	"github.com/jake-scott/raki/pkg/middlewares"
)

// BasePath is where the REST interface is mounted
const BasePath = "/api"

type RouterOptions struct {
	// Log request and response bodies (debug level only)
	LogRequests bool

	// Origins allowed to call the API from a browser, CORS is off when empty
	CorsOrigins []string
}

// NewRouter wires the relay handlers, the API docs and the health check
func NewRouter(mgr *manager.Manager, opts RouterOptions) http.Handler {
	rh := NewRelayHandler(mgr)

	r := mux.NewRouter()
	r.Use(middlewares.NewLoggingMw(opts.LogRequests))
	r.Use(middlewares.NewRecoveryMw())
	r.Use(middlewares.NewCorrelationMw("X-Correlation-ID"))

	s := r.PathPrefix(BasePath).Subrouter()
	s.HandleFunc("/relays", rh.List).Methods(http.MethodGet)
	s.HandleFunc("/relays", rh.Create).Methods(http.MethodPost)
	s.HandleFunc("/relay/{id}", rh.Query).Methods(http.MethodGet)
	s.HandleFunc("/relay/{id}", rh.Command).Methods(http.MethodPost)
	s.HandleFunc("/relay/{id}", rh.Delete).Methods(http.MethodDelete)

	docs := middleware.Spec(BasePath, api.SwaggerJSON,
		middleware.Redoc(middleware.RedocOpts{
			BasePath: BasePath,
			Path:     "doc",
			SpecURL:  BasePath + "/swagger.json",
			Title:    "raki relay control",
		}, http.NotFoundHandler()))
	s.Handle("/swagger.json", docs).Methods(http.MethodGet)
	s.Handle("/doc", docs).Methods(http.MethodGet)

	r.HandleFunc("/healthz", health).Methods(http.MethodGet)

	if len(opts.CorsOrigins) == 0 {
		return r
	}

	// Outside the router so preflight requests never hit the method matcher
	return middlewares.NewCors(cors.Options{
		AllowedOrigins: opts.CorsOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type", "X-Correlation-ID"},
		ExposedHeaders: []string{"X-Txn-ID", "X-Correlation-ID", "Location"},
	}, r)
}

func health(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}
