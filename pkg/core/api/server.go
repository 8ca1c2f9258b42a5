/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package api provides the HTTP API server for PayRadar
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/carverauto/payradar/pkg/core"
	"github.com/carverauto/payradar/pkg/db"
	prHttp "github.com/carverauto/payradar/pkg/http"
	"github.com/carverauto/payradar/pkg/logger"
	"github.com/carverauto/payradar/pkg/models"
	"github.com/carverauto/payradar/pkg/tenant"
)

const (
	defaultTimeout      = 10 * time.Second
	defaultReadTimeout  = 15 * time.Second
	defaultWriteTimeout = 15 * time.Second
	defaultIdleTimeout  = 60 * time.Second
)

// APIServer exposes the core service over HTTP.
type APIServer struct {
	router         *mux.Router
	core           *core.Server
	corsConfig     models.CORSConfig
	logger         logger.Logger
	authMiddleware func(http.Handler) http.Handler
}

// NewAPIServer creates a new API server instance with the given configuration
func NewAPIServer(config models.CORSConfig, options ...func(server *APIServer)) *APIServer {
	s := &APIServer{
		router:     mux.NewRouter(),
		corsConfig: config,
	}

	for _, o := range options {
		o(s)
	}

	s.setupRoutes()

	return s
}

// WithCoreService wires the core service the handlers call into.
func WithCoreService(c *core.Server) func(*APIServer) {
	return func(server *APIServer) {
		server.core = c
	}
}

// WithLogger sets the API server logger.
func WithLogger(log logger.Logger) func(*APIServer) {
	return func(server *APIServer) {
		server.logger = log
	}
}

// WithAuthMiddleware sets the bearer-token middleware protecting /api.
func WithAuthMiddleware(mw func(http.Handler) http.Handler) func(*APIServer) {
	return func(server *APIServer) {
		server.authMiddleware = mw
	}
}

// Router exposes the underlying router, primarily for tests.
func (s *APIServer) Router() *mux.Router {
	return s.router
}

func (s *APIServer) setupRoutes() {
	s.router.Use(func(next http.Handler) http.Handler {
		return prHttp.CommonMiddleware(next, s.corsConfig)
	})

	protected := s.router.PathPrefix("/api").Subrouter()

	if s.authMiddleware != nil {
		protected.Use(s.authMiddleware)
	}

	protected.HandleFunc("/locations", s.getLocations).Methods("GET")

	protected.HandleFunc("/terminals", s.getTerminals).Methods("GET")
	protected.HandleFunc("/terminals/stream", s.streamTerminals).Methods("GET")
	protected.HandleFunc("/terminals/{id}", s.getTerminal).Methods("GET")
	protected.HandleFunc("/terminals/{id}/activity", s.getTerminalActivity).Methods("GET")
	protected.HandleFunc("/terminals/{id}/refund", s.postRefund).Methods("POST")
	protected.HandleFunc("/terminals/{id}/receipt", s.postResendReceipt).Methods("POST")
	protected.HandleFunc("/terminals/{id}/disable", s.postDisableTerminal).Methods("POST")
	protected.HandleFunc("/terminals/{id}/enable", s.postEnableTerminal).Methods("POST")

	protected.HandleFunc("/stats/fleet", s.getFleetStats).Methods("GET")
	protected.HandleFunc("/stats/dashboard", s.getDashboardStats).Methods("GET")

	protected.HandleFunc("/transactions", s.getTransactions).Methods("GET")

	protected.HandleFunc("/staff", s.getStaff).Methods("GET")
	protected.HandleFunc("/staff", s.postStaff).Methods("POST")
	protected.HandleFunc("/staff/{id}", s.putStaff).Methods("PUT")
	protected.HandleFunc("/staff/{id}", s.deleteStaff).Methods("DELETE")

	protected.HandleFunc("/automations", s.getAutomations).Methods("GET")
	protected.HandleFunc("/automations", s.postAutomation).Methods("POST")
	protected.HandleFunc("/automations/{id}", s.patchAutomation).Methods("PATCH")
	protected.HandleFunc("/automations/{id}", s.deleteAutomation).Methods("DELETE")

	protected.HandleFunc("/wallet", s.getWallet).Methods("GET")
	protected.HandleFunc("/wallet/addresses", s.postWalletAddress).Methods("POST")
	protected.HandleFunc("/wallet/addresses/{id}/verify", s.postVerifyWalletAddress).Methods("POST")
}

// Start runs the HTTP server until it fails or is shut down.
func (s *APIServer) Start(addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  defaultReadTimeout,
		WriteTimeout: defaultWriteTimeout,
		IdleTimeout:  defaultIdleTimeout,
	}

	return srv.ListenAndServe()
}

// ServeHTTP makes the API server usable as a plain http.Handler.
func (s *APIServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// caller pulls the verified identity the auth middleware attached.
func caller(r *http.Request) (*tenant.Info, error) {
	return tenant.FromContext(r.Context())
}

func requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), defaultTimeout)
}

func (s *APIServer) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// writeServiceError maps service-layer failures onto the HTTP error
// taxonomy: unknown resources are 404, commands against the wrong payment
// state are 409, role failures are 403.
func (s *APIServer) writeServiceError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, core.ErrTerminalNotFound),
		errors.Is(err, core.ErrTransactionNotFound),
		errors.Is(err, db.ErrStaffNotFound),
		errors.Is(err, db.ErrAutomationNotFound),
		errors.Is(err, db.ErrWalletNotFound),
		errors.Is(err, db.ErrAddressNotFound),
		errors.Is(err, db.ErrTransactionNotFound),
		errors.Is(err, db.ErrTerminalNotFound):
		status = http.StatusNotFound
	case errors.Is(err, core.ErrInvalidState):
		status = http.StatusConflict
	case errors.Is(err, core.ErrUnauthorized),
		errors.Is(err, tenant.ErrNotApproved),
		errors.Is(err, tenant.ErrMerchantRequired),
		errors.Is(err, tenant.ErrUnknownRole):
		status = http.StatusForbidden
	case errors.Is(err, tenant.ErrNoCallerInContext):
		status = http.StatusUnauthorized
	case errors.Is(err, core.ErrReasonRequired):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrUpstreamFailure):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Msg("request failed")
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(models.ErrorResponse{
		Message: err.Error(),
		Status:  status,
	})
}

func decodeBody(r *http.Request, dst interface{}) error {
	defer func() { _ = r.Body.Close() }()

	return json.NewDecoder(r.Body).Decode(dst)
}
