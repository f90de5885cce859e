// Package http exposes the ledger over a JSON API. Handlers stay thin:
// parse, call a service, encode. Balance and report responses are served
// through small LRU caches that are purged on every expense mutation.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"splitledger/internal/cache"
	"splitledger/internal/core"
	"splitledger/internal/log"
	"splitledger/internal/services"
	"splitledger/internal/store"
)

// Pinger reports storage readiness. The SQLite repository implements it;
// the in-memory store has nothing to check and passes nil.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	http.Server
	store       store.Store
	expenses    *services.ExpenseService
	settlements *services.SettlementService
	pinger      Pinger
	rateLimiter *rateLimiter
	logger      *log.Logger

	balanceCache *cache.LRUCache[core.ExpenseSummary]
	reportCache  *cache.LRUCache[core.MonthlyReport]

	shutdownOnce sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

// startCleanup runs periodic cleanup to remove stale client entries
func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

// stop gracefully shuts down the rate limiter cleanup goroutine
func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{
			lastRequest: now,
			requests:    1,
		}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now

	return client.requests <= 60
}

// NewServer wires routes and caches, returning a ready-to-run http.Server.
// pinger may be nil when the backend has no connection worth checking.
func NewServer(addr string, st store.Store, expenses *services.ExpenseService, settlements *services.SettlementService, pinger Pinger, cacheSize int, cacheTTL time.Duration) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		store:        st,
		expenses:     expenses,
		settlements:  settlements,
		pinger:       pinger,
		rateLimiter:  newRateLimiter(),
		logger:       log.New(log.Config{Component: log.ComponentHTTP}),
		balanceCache: cache.NewLRUCache[core.ExpenseSummary](cacheSize, cacheTTL),
		reportCache:  cache.NewLRUCache[core.MonthlyReport](cacheSize, cacheTTL),
	}

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/users", s.withSecurityHeaders(s.handleListUsers))
	mux.HandleFunc("POST /api/users", s.withSecurityHeaders(s.handleCreateUser))
	mux.HandleFunc("GET /api/users/{id}", s.withSecurityHeaders(s.handleGetUser))

	mux.HandleFunc("GET /api/groups", s.withSecurityHeaders(s.handleListGroups))
	mux.HandleFunc("POST /api/groups", s.withSecurityHeaders(s.handleCreateGroup))
	mux.HandleFunc("GET /api/groups/{id}", s.withSecurityHeaders(s.handleGetGroup))
	mux.HandleFunc("POST /api/groups/{id}/members", s.withSecurityHeaders(s.handleAddMember))
	mux.HandleFunc("DELETE /api/groups/{id}/members/{userID}", s.withSecurityHeaders(s.handleRemoveMember))

	mux.HandleFunc("GET /api/expenses", s.withSecurityHeaders(s.handleListExpenses))
	mux.HandleFunc("POST /api/expenses", s.withSecurityHeaders(s.handleCreateExpense))
	mux.HandleFunc("GET /api/expenses/{id}", s.withSecurityHeaders(s.handleGetExpense))
	mux.HandleFunc("PUT /api/expenses/{id}", s.withSecurityHeaders(s.handleUpdateExpense))
	mux.HandleFunc("DELETE /api/expenses/{id}", s.withSecurityHeaders(s.handleDeleteExpense))

	mux.HandleFunc("POST /api/split/equal", s.withSecurityHeaders(s.handleSplitEqual))
	mux.HandleFunc("POST /api/split/percentage", s.withSecurityHeaders(s.handleSplitPercentage))

	mux.HandleFunc("GET /api/balance", s.withSecurityHeaders(s.handleBalance))

	mux.HandleFunc("GET /api/settlements", s.withSecurityHeaders(s.handleProposeSettlements))
	mux.HandleFunc("POST /api/settlements", s.withSecurityHeaders(s.handleRecordSettlement))
	mux.HandleFunc("GET /api/settlements/records", s.withSecurityHeaders(s.handleListSettlementRecords))
	mux.HandleFunc("POST /api/settlements/{id}/complete", s.withSecurityHeaders(s.handleCompleteSettlement))

	mux.HandleFunc("GET /api/reports/monthly", s.withSecurityHeaders(s.handleMonthlyReport))

	return s
}

// Caches registers the server's caches with a cleanup manager.
func (s *Server) Caches(m *cache.Manager) {
	m.Register(s.balanceCache)
	m.Register(s.reportCache)
}

// invalidateDerived drops cached balances and reports. Called on every
// expense mutation; an expense can shift any participant's numbers.
func (s *Server) invalidateDerived() {
	s.balanceCache.Purge()
	s.reportCache.Purge()
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})

	return shutdownErr
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// withSecurityHeaders adds security headers, rate limiting, and request logging to responses
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		// Extract client IP (considering proxies)
		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		r = r.WithContext(ctx)

		started := log.NewFields().
			WithRequestID(requestID).
			WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.Header.Get("User-Agent")).
			WithClientIP(clientIP)
		s.logger.InfoContext(ctx, "Request started", started.ToSlice()...)

		if isMutating(r.Method) && !s.rateLimiter.allow(clientIP) {
			s.logger.WithComponent(log.ComponentRateLimit).WarnContext(ctx, "Rate limit exceeded",
				log.FieldClientIP, clientIP,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Content-Security-Policy", "default-src 'none'")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		duration := time.Since(start)
		completed := log.NewFields().
			WithRequestID(requestID).
			WithHTTPResponse(rw.statusCode, duration.Milliseconds(), rw.statusCode < 400).
			WithClientIP(clientIP)
		completed[log.FieldMethod] = r.Method
		completed[log.FieldPath] = r.URL.Path
		s.logger.InfoContext(ctx, "Request completed", completed.ToSlice()...)
	}
}

type requestIDKey struct{}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp if random fails
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.pinger.Ping(ctx); err != nil {
			s.logger.ErrorContext(r.Context(), "Readiness check failed", log.FieldError, err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("storage unavailable"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// sanitizeInput removes potentially dangerous characters and trims whitespace
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	// Remove control characters except tab, newline, carriage return
	result := strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1 // remove character
		}
		return r
	}, s)
	return result
}
