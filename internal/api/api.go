// Package api provides the diagnostic HTTP API server.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/diagnomed/ddx/internal/auth"
	"github.com/diagnomed/ddx/internal/catalog"
	"github.com/diagnomed/ddx/internal/database"
	"github.com/diagnomed/ddx/internal/imaging"
	"github.com/diagnomed/ddx/internal/matcher"
	"github.com/diagnomed/ddx/internal/priors"
	"github.com/diagnomed/ddx/internal/session"
	"github.com/diagnomed/ddx/internal/treatment"
)

// maxDisplayedTests caps the recommended-tests list in API responses. The
// session keeps the full list internally.
const maxDisplayedTests = 6

// Server is the diagnostic API server.
type Server struct {
	engine       *session.Engine
	matcher      *matcher.Mapper
	epidemiology *priors.Epidemiology
	genomic      *priors.Genomic
	treatment    *treatment.Recommender
	catalog      *catalog.Catalog
	imaging      *imaging.Client
	db           *database.DB
	authVerifier *auth.Verifier
	limiter      *rateLimiter
	mux          *http.ServeMux
}

// Config holds API server configuration. DB, Imaging, and AuthVerifier
// are optional; the endpoints that need them degrade or require them
// explicitly.
type Config struct {
	Engine       *session.Engine
	Matcher      *matcher.Mapper
	Epidemiology *priors.Epidemiology
	Genomic      *priors.Genomic
	Treatment    *treatment.Recommender
	Catalog      *catalog.Catalog
	Imaging      *imaging.Client
	DB           *database.DB
	AuthVerifier *auth.Verifier

	// RequestsPerSecond throttles per client IP. Zero disables throttling.
	RequestsPerSecond float64
	Burst             int
}

// NewServer creates a new API server.
func NewServer(cfg Config) *Server {
	s := &Server{
		engine:       cfg.Engine,
		matcher:      cfg.Matcher,
		epidemiology: cfg.Epidemiology,
		genomic:      cfg.Genomic,
		treatment:    cfg.Treatment,
		catalog:      cfg.Catalog,
		imaging:      cfg.Imaging,
		db:           cfg.DB,
		authVerifier: cfg.AuthVerifier,
		mux:          http.NewServeMux(),
	}
	if cfg.RequestsPerSecond > 0 {
		s.limiter = newRateLimiter(cfg.RequestsPerSecond, cfg.Burst)
	}

	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	// Public endpoints
	s.mux.HandleFunc("GET /health", s.handleHealth)

	// Session endpoints
	s.mux.HandleFunc("POST /api/diagnosis/start", s.protected(s.handleStartDiagnosis))
	s.mux.HandleFunc("GET /api/diagnosis/{sessionID}/status", s.protected(s.handleSessionStatus))
	s.mux.HandleFunc("POST /api/diagnosis/{sessionID}/test-result", s.protected(s.handleSubmitTestResult))
	s.mux.HandleFunc("GET /api/diagnosis/{sessionID}/result", s.protected(s.handleDiagnosisResult))
	s.mux.HandleFunc("POST /api/diagnosis/candidates", s.protected(s.handleCandidates))

	// Knowledge endpoints
	s.mux.HandleFunc("GET /api/priors/epidemiology", s.protected(s.handleEpidemiology))
	s.mux.HandleFunc("POST /api/priors/genomic", s.protected(s.handleGenomicModifiers))
	s.mux.HandleFunc("POST /api/symptoms/match", s.protected(s.handleSymptomMatch))
	s.mux.HandleFunc("GET /api/tests/{diseaseID}", s.protected(s.handleListTests))
	s.mux.HandleFunc("GET /api/treatment/{diseaseID}", s.protected(s.handleGetTreatment))
	s.mux.HandleFunc("GET /api/treatments/available", s.protected(s.handleAvailableTreatments))

	// Case history endpoints
	s.mux.HandleFunc("GET /api/cases", s.protected(s.handleListCases))
	s.mux.HandleFunc("GET /api/cases/{caseID}", s.protected(s.handleGetCase))
	s.mux.HandleFunc("POST /api/cases/similar", s.protected(s.handleSimilarCases))
}

// protected requires a valid clinician token when a verifier is configured.
// Without a verifier the API runs open, for local and test deployments.
func (s *Server) protected(handler http.HandlerFunc) http.HandlerFunc {
	if s.authVerifier == nil {
		return handler
	}
	middleware := auth.Middleware(s.authVerifier)
	return func(w http.ResponseWriter, r *http.Request) {
		middleware(http.HandlerFunc(handler)).ServeHTTP(w, r)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Add CORS headers
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

	if r.Method == "OPTIONS" {
		w.WriteHeader(http.StatusOK)
		return
	}

	if s.limiter != nil && !s.limiter.allow(r) {
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func readJSON(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
