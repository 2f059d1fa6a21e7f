package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strconv"
	"time"

	googleuuid "github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"RiskEngine/internal/errs"
	"RiskEngine/internal/ingestion"
	"RiskEngine/internal/margin"
	"RiskEngine/internal/observability"
	"RiskEngine/internal/oracle"
	"RiskEngine/internal/query"
)

// GRPCServer wraps the gRPC server and the HTTP/JSON gateway mux. The
// gRPC side carries health and reflection; the query API is served as
// HTTP/JSON on the gateway mux.
type GRPCServer struct {
	grpcServer    *grpc.Server
	httpServer    *http.Server
	grpcAddr      string
	httpAddr      string
	queryService  *query.QueryService
	injector      *ingestion.Injector
	metrics       *observability.Metrics
	healthChecker *observability.HealthChecker
}

// ServerDeps holds all dependencies needed by the API services.
type ServerDeps struct {
	QueryService  *query.QueryService
	Injector      *ingestion.Injector
	Metrics       *observability.Metrics
	StartTime     time.Time
	HealthChecker *observability.HealthChecker
}

// NewGRPCServer creates the gRPC server with health and reflection
// registered, and prepares the HTTP gateway routes.
func NewGRPCServer(grpcAddr, httpAddr string, deps *ServerDeps) *GRPCServer {
	grpcServer := grpc.NewServer()

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// Reflection for grpcurl / grpcui
	reflection.Register(grpcServer)

	return &GRPCServer{
		grpcServer:    grpcServer,
		grpcAddr:      grpcAddr,
		httpAddr:      httpAddr,
		queryService:  deps.QueryService,
		injector:      deps.Injector,
		metrics:       deps.Metrics,
		healthChecker: deps.HealthChecker,
	}
}

// StartGRPC starts the gRPC server (blocking).
func (s *GRPCServer) StartGRPC(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.grpcAddr)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}

	go func() {
		<-ctx.Done()
		log.Println("INFO: gRPC server shutting down...")
		s.grpcServer.GracefulStop()
	}()

	log.Printf("INFO: gRPC server listening on %s", s.grpcAddr)
	return s.grpcServer.Serve(lis)
}

// StartHTTPGateway starts the HTTP/JSON gateway (blocking). Routes are
// registered directly on the gateway mux for tooling, dashboards, curl.
func (s *GRPCServer) StartHTTPGateway(ctx context.Context) error {
	mux := runtime.NewServeMux()

	routes := []struct {
		method  string
		path    string
		handler func(http.ResponseWriter, *http.Request, map[string]string)
	}{
		{"GET", "/v1/margin/{user_id}", s.handleGetMarginSnapshot},
		{"GET", "/v1/margin/{user_id}/history", s.handleGetMarginHistory},
		{"POST", "/v1/margin/compute", s.handleComputeMargin},
		{"GET", "/v1/markets", s.handleListMarkets},
		{"GET", "/v1/admin/integrity", s.handleVerifyIntegrity},
		{"POST", "/v1/admin/oracle-price", s.handleInjectOraclePrice},
		{"POST", "/v1/admin/guard-rails", s.handleInjectGuardRails},
	}
	for _, r := range routes {
		if err := mux.HandlePath(r.method, r.path, r.handler); err != nil {
			return fmt.Errorf("register %s %s: %w", r.method, r.path, err)
		}
	}

	httpMux := http.NewServeMux()
	if s.healthChecker != nil {
		httpMux.HandleFunc("/healthz", s.healthChecker.LivenessHandler)
		httpMux.HandleFunc("/readyz", s.healthChecker.ReadinessHandler)
	} else {
		httpMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			fmt.Fprintf(w, `{"status":"ok"}`)
		})
	}
	httpMux.Handle("/", mux)

	s.httpServer = &http.Server{
		Addr:    s.httpAddr,
		Handler: httpMux,
	}

	go func() {
		<-ctx.Done()
		log.Println("INFO: HTTP gateway shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	log.Printf("INFO: HTTP gateway listening on %s", s.httpAddr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// ============================================================================
// Query API handlers
// ============================================================================

func (s *GRPCServer) handleGetMarginSnapshot(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	endpoint := "get_margin_snapshot"
	start := time.Now()

	userID, err := googleuuid.Parse(pathParams["user_id"])
	if err != nil {
		s.writeError(w, endpoint, http.StatusBadRequest, fmt.Errorf("invalid user_id: %w", err))
		return
	}
	marginType, err := query.ParseMarginType(r.URL.Query().Get("margin_type"))
	if err != nil {
		s.writeError(w, endpoint, http.StatusBadRequest, err)
		return
	}

	snap, err := s.queryService.GetMarginSnapshot(r.Context(), userID, marginType)
	if err != nil {
		s.writeError(w, endpoint, http.StatusInternalServerError, err)
		return
	}
	if snap == nil {
		s.writeError(w, endpoint, http.StatusNotFound,
			fmt.Errorf("no %s snapshot for user %s", marginType, userID))
		return
	}

	s.writeJSON(w, endpoint, start, snap)
}

func (s *GRPCServer) handleGetMarginHistory(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	endpoint := "get_margin_history"
	start := time.Now()

	userID, err := googleuuid.Parse(pathParams["user_id"])
	if err != nil {
		s.writeError(w, endpoint, http.StatusBadRequest, fmt.Errorf("invalid user_id: %w", err))
		return
	}

	q := r.URL.Query()
	var marginType *margin.RequirementType
	if mt := q.Get("margin_type"); mt != "" {
		parsed, err := query.ParseMarginType(mt)
		if err != nil {
			s.writeError(w, endpoint, http.StatusBadRequest, err)
			return
		}
		marginType = &parsed
	}

	limit := 50
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			s.writeError(w, endpoint, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		if n > 500 {
			n = 500
		}
		limit = n
	}

	var afterSequence *int64
	if raw := q.Get("after_sequence"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			s.writeError(w, endpoint, http.StatusBadRequest, fmt.Errorf("invalid after_sequence %q", raw))
			return
		}
		afterSequence = &n
	}

	history, err := s.queryService.GetMarginHistory(r.Context(), userID, marginType, limit, afterSequence)
	if err != nil {
		s.writeError(w, endpoint, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, endpoint, start, map[string]interface{}{
		"snapshots": history,
	})
}

type computeMarginRequest struct {
	UserID       string `json:"user_id"`
	MarginType   string `json:"margin_type"`
	Strict       bool   `json:"strict"`
	MarginBuffer uint64 `json:"margin_buffer"`
}

func (s *GRPCServer) handleComputeMargin(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	endpoint := "compute_margin"
	start := time.Now()

	var req computeMarginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, endpoint, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	userID, err := googleuuid.Parse(req.UserID)
	if err != nil {
		s.writeError(w, endpoint, http.StatusBadRequest, fmt.Errorf("invalid user_id: %w", err))
		return
	}
	marginType, err := query.ParseMarginType(req.MarginType)
	if err != nil {
		s.writeError(w, endpoint, http.StatusBadRequest, err)
		return
	}

	resp, err := s.queryService.ComputeMargin(r.Context(), userID, marginType, req.Strict, req.MarginBuffer)
	if err != nil {
		s.writeError(w, endpoint, http.StatusUnprocessableEntity, err)
		return
	}
	if resp == nil {
		s.writeError(w, endpoint, http.StatusNotFound, fmt.Errorf("user %s not tracked", userID))
		return
	}

	s.writeJSON(w, endpoint, start, resp)
}

func (s *GRPCServer) handleListMarkets(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	endpoint := "list_markets"
	start := time.Now()

	resp, err := s.queryService.ListMarkets(r.Context())
	if err != nil {
		s.writeError(w, endpoint, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, endpoint, start, resp)
}

func (s *GRPCServer) handleVerifyIntegrity(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	endpoint := "verify_integrity"
	start := time.Now()

	report, err := s.queryService.VerifyIntegrity(r.Context())
	if err != nil {
		s.writeError(w, endpoint, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, endpoint, start, report)
}

// ============================================================================
// Admin injection handlers
// ============================================================================

type injectOraclePriceRequest struct {
	OracleKey   string `json:"oracle_key"`
	Price       int64  `json:"price"`
	Confidence  uint64 `json:"confidence"`
	PublishSlot uint64 `json:"publish_slot"`
	NumPoints   uint32 `json:"num_points"`
	Slot        int64  `json:"slot"`
}

func (s *GRPCServer) handleInjectOraclePrice(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	endpoint := "inject_oracle_price"
	start := time.Now()

	if s.injector == nil {
		s.writeError(w, endpoint, http.StatusServiceUnavailable, errors.New("injection disabled"))
		return
	}

	var req injectOraclePriceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, endpoint, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	err := s.injector.InjectOraclePrice(r.Context(),
		req.OracleKey, req.Price, req.Confidence, req.PublishSlot, req.NumPoints, req.Slot)
	if err != nil {
		s.writeError(w, endpoint, http.StatusBadRequest, err)
		return
	}

	s.writeJSON(w, endpoint, start, map[string]bool{"accepted": true})
}

type injectGuardRailsRequest struct {
	TooVolatileRatio          int64  `json:"too_volatile_ratio"`
	ConfidenceIntervalMaxSize uint64 `json:"confidence_interval_max_size"`
	SlotsBeforeStaleForAMM    int64  `json:"slots_before_stale_for_amm"`
	SlotsBeforeStaleForMargin int64  `json:"slots_before_stale_for_margin"`
}

func (s *GRPCServer) handleInjectGuardRails(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	endpoint := "inject_guard_rails"
	start := time.Now()

	if s.injector == nil {
		s.writeError(w, endpoint, http.StatusServiceUnavailable, errors.New("injection disabled"))
		return
	}

	var req injectGuardRailsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, endpoint, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	rails := oracle.GuardRails{
		TooVolatileRatio:          req.TooVolatileRatio,
		ConfidenceIntervalMaxSize: req.ConfidenceIntervalMaxSize,
		SlotsBeforeStaleForAMM:    req.SlotsBeforeStaleForAMM,
		SlotsBeforeStaleForMargin: req.SlotsBeforeStaleForMargin,
	}
	if err := s.injector.InjectGuardRails(r.Context(), rails); err != nil {
		s.writeError(w, endpoint, http.StatusBadRequest, err)
		return
	}

	s.writeJSON(w, endpoint, start, map[string]bool{"accepted": true})
}

// ============================================================================
// Helpers
// ============================================================================

func (s *GRPCServer) writeJSON(w http.ResponseWriter, endpoint string, start time.Time, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: encode %s response: %v", endpoint, err)
	}
	if s.metrics != nil {
		s.metrics.QueryRequests.WithLabelValues(endpoint, "ok").Inc()
		s.metrics.QueryDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	}
}

func (s *GRPCServer) writeError(w http.ResponseWriter, endpoint string, code int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
	if s.metrics != nil {
		s.metrics.QueryRequests.WithLabelValues(endpoint, "error").Inc()
		s.metrics.QueryErrors.WithLabelValues(endpoint, errorCode(err)).Inc()
	}
}

func errorCode(err error) string {
	var e *errs.Error
	if errors.As(err, &e) {
		return e.Code.String()
	}
	return "Unknown"
}
