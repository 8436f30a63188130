package httpx

import (
	"fmt"
	sentinel "github.com/alibaba/sentinel-golang/api"
	"github.com/alibaba/sentinel-golang/core/base"
	"github.com/alibaba/sentinel-golang/core/flow"
	"github.com/ariefcatur/mitra-storefront/internal/actor"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"log"
	"net/http"
	"strings"
	"time"
)

// Rate-limited resources.
const (
	ResCheckout         = "checkout"
	ResSalesTransaction = "sales_transaction"
)

func NewRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return r
}

// InitLimiter loads a reject-above-qps rule for each write-heavy resource.
// A qps of zero or less leaves the routes unlimited.
func InitLimiter(qps float64) (bool, error) {
	if qps <= 0 {
		return false, nil
	}
	if err := sentinel.InitDefault(); err != nil {
		return false, fmt.Errorf("init sentinel: %w", err)
	}
	rules := make([]*flow.Rule, 0, 2)
	for _, res := range []string{ResCheckout, ResSalesTransaction} {
		rules = append(rules, &flow.Rule{
			Resource:               res,
			TokenCalculateStrategy: flow.Direct,
			ControlBehavior:        flow.Reject,
			Threshold:              qps,
			StatIntervalInMs:       1000,
		})
	}
	if _, err := flow.LoadRules(rules); err != nil {
		return false, fmt.Errorf("load sentinel rules: %w", err)
	}
	log.Printf("[httpx] rate limit %.1f qps on %s, %s", qps, ResCheckout, ResSalesTransaction)
	return true, nil
}

// limit guards next with a sentinel entry for resource.
func limit(resource string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			e, b := sentinel.Entry(resource, sentinel.WithTrafficType(base.Inbound))
			if b != nil {
				writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "too many requests, try again shortly"})
				return
			}
			defer e.Exit()
			next.ServeHTTP(w, r)
		})
	}
}

// authenticate puts the bearer token's actor in the request context. Requests
// without a token pass through anonymous; requireRole decides what they may do.
func authenticate(tokens actor.Tokens) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := r.Header.Get("Authorization")
			if h == "" {
				next.ServeHTTP(w, r)
				return
			}
			parts := strings.SplitN(h, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authorization header must be Bearer {token}"})
				return
			}
			a, err := tokens.Parse(parts[1])
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}
			next.ServeHTTP(w, r.WithContext(actor.WithActor(r.Context(), a)))
		})
	}
}

func requireRole(roles ...actor.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			a, ok := actor.FromContext(r.Context())
			if !ok {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "authentication required"})
				return
			}
			for _, role := range roles {
				if a.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "forbidden for role " + string(a.Role)})
		})
	}
}
