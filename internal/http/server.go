// Package http exposes the REST API: auth, categories, expenses, user
// profile, insights, and the chatbot.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"budgetbuddy/internal/auth"
	"budgetbuddy/internal/cache"
	"budgetbuddy/internal/config"
	"budgetbuddy/internal/insights"
	"budgetbuddy/internal/middleware/ratelimit"
	"budgetbuddy/internal/middleware/security"
	"budgetbuddy/internal/middleware/trace"
	"budgetbuddy/internal/services"
	"budgetbuddy/internal/storage"
	"budgetbuddy/internal/uploads"
)

type Server struct {
	http.Server

	repo     *storage.SQLiteRepository
	tokens   *auth.TokenService
	files    *uploads.Store
	expenses *services.ExpenseService
	analyzer *insights.Analyzer

	limiter *ratelimit.Limiter
	janitor *cache.Janitor
	tracer  *trace.Middleware

	startTime time.Time

	// Insight responses are cached per endpoint, the sample dataset never
	// changes within a TTL window.
	insightCache *cache.LRU[any]

	shutdownOnce sync.Once
}

func NewServer(cfg *config.Config, repo *storage.SQLiteRepository, tokens *auth.TokenService, files *uploads.Store, expenses *services.ExpenseService, analyzer *insights.Analyzer) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      mux,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		repo:         repo,
		tokens:       tokens,
		files:        files,
		expenses:     expenses,
		analyzer:     analyzer,
		limiter:      ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		janitor:      cache.NewJanitor(),
		tracer:       trace.NewMiddleware(clientIP),
		startTime:    time.Now(),
		insightCache: cache.NewLRU[any](32, 5*time.Minute),
	}

	s.janitor.Register(s.insightCache)
	s.janitor.Start(10 * time.Minute)

	authLimit := s.limiter.Middleware(clientIP)

	// Auth
	mux.Handle("POST /api/auth/register", authLimit(http.HandlerFunc(s.handleRegister)))
	mux.Handle("POST /api/auth/login", authLimit(http.HandlerFunc(s.handleLogin)))
	mux.HandleFunc("GET /api/auth/me", s.withUser(s.handleMe))
	mux.HandleFunc("PUT /api/auth/updatepassword", s.withUser(s.handleUpdatePassword))

	// Categories
	mux.HandleFunc("GET /api/categories", s.withUser(s.handleListCategories))
	mux.HandleFunc("POST /api/categories", s.withUser(s.handleCreateCategory))
	mux.HandleFunc("PUT /api/categories/{id}", s.withUser(s.handleUpdateCategory))
	mux.HandleFunc("DELETE /api/categories/{id}", s.withUser(s.handleDeleteCategory))

	// Expenses
	mux.HandleFunc("GET /api/expenses", s.withUser(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.withUser(s.handleCreateExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", s.withUser(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withUser(s.handleDeleteExpense))

	// User profile
	mux.HandleFunc("PUT /api/user/email", s.withUser(s.handleUpdateEmail))
	mux.HandleFunc("PUT /api/user/profile-picture", s.withUser(s.handleUpdateProfilePicture))
	mux.HandleFunc("PUT /api/user/preferences", s.withUser(s.handleUpdatePreferences))

	// Insights
	mux.HandleFunc("GET /api/predictions/spending", s.withUser(s.handleSpendingPrediction))
	mux.HandleFunc("GET /api/predictions/anomaly-detection", s.withUser(s.handleAnomalyDetection))
	mux.HandleFunc("GET /api/predictions/budget-optimization", s.withUser(s.handleBudgetOptimization))
	mux.HandleFunc("GET /api/predictions/behavioral-nudges", s.withUser(s.handleBehavioralNudges))
	mux.HandleFunc("GET /api/predictions/benchmarking", s.withUser(s.handleBenchmarking))

	// Chatbot
	mux.HandleFunc("POST /api/chatbot/query", s.withUser(s.handleChatbotQuery))

	// Uploaded images
	static := http.StripPrefix("/uploads/", http.FileServer(http.Dir(files.Root())))
	mux.Handle("GET /uploads/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=3600")
		static.ServeHTTP(w, r)
	}))

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.HandleFunc("GET /api/status", s.handleStatus)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	s.Server.Handler = s.tracer.Middleware(headers.Middleware(mux))

	return s
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.repo.GetUserByID(r.Context(), 0); err != nil && err != storage.ErrNotFound {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// handleStatus reports process counters for operators.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, r, http.StatusOK, map[string]any{
		"status":               "ok",
		"uptime_seconds":       int64(time.Since(s.startTime).Seconds()),
		"total_requests":       s.tracer.TotalRequests(),
		"rate_limited_clients": s.limiter.ActiveClients(),
		"cached_insights":      s.insightCache.Size(),
	})
}

// Shutdown stops background goroutines before closing the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		s.janitor.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// clientIP resolves the caller address, preferring proxy headers.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		return ip
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	return r.RemoteAddr
}
