package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrKeyNotFound = errors.New("api key not found")

const cacheTTL = 5 * time.Minute

type APIKey struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	KeyHash   string    `json:"key_hash"`
	RateLimit int64     `json:"rate_limit"` // max tokens per minute
	BudgetUSD float64   `json:"budget_usd"` // monthly spend cap, 0 = unlimited
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

// MarshalBinary implements encoding.BinaryMarshaler for Redis
func (a *APIKey) MarshalBinary() ([]byte, error) {
	return json.Marshal(a)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for Redis
func (a *APIKey) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, a)
}

type Store interface {
	GetByKey(ctx context.Context, key string) (*APIKey, error)
	Create(ctx context.Context, apiKey *APIKey) error
	Revoke(ctx context.Context, keyID string) error
}

type Middleware func(next http.Handler) http.Handler

type contextKey string

const (
	tenantIDKey  contextKey = "tenant_id"
	apiKeyIDKey  contextKey = "api_key_id"
	requestIDKey contextKey = "request_id"
	rateLimitKey contextKey = "rate_limit"
	budgetKey    contextKey = "budget_usd"
)

// HashKey returns the sha256 hex digest used to store and look up keys.
func HashKey(key string) string {
	h := sha256.New()
	h.Write([]byte(key))
	return hex.EncodeToString(h.Sum(nil))
}

func NewMiddleware(store Store, cache *redis.Client) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			requestID := uuid.New().String()
			ctx = context.WithValue(ctx, requestIDKey, requestID)
			w.Header().Set("X-Request-ID", requestID)

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				http.Error(w, "Unauthorized: missing or invalid Authorization header", http.StatusUnauthorized)
				return
			}
			key := strings.TrimPrefix(authHeader, "Bearer ")

			apiKey, err := lookup(ctx, store, cache, key)
			if err != nil {
				if errors.Is(err, ErrKeyNotFound) {
					http.Error(w, "Unauthorized: invalid API key", http.StatusUnauthorized)
					return
				}
				http.Error(w, "Internal Server Error", http.StatusInternalServerError)
				return
			}

			ctx = context.WithValue(ctx, tenantIDKey, apiKey.TenantID)
			ctx = context.WithValue(ctx, apiKeyIDKey, apiKey.ID)
			ctx = context.WithValue(ctx, rateLimitKey, apiKey.RateLimit)
			ctx = context.WithValue(ctx, budgetKey, apiKey.BudgetUSD)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// lookup resolves a raw API key through the Redis cache, falling back to
// the store on miss and repopulating the cache.
func lookup(ctx context.Context, store Store, cache *redis.Client, key string) (*APIKey, error) {
	redisKey := fmt.Sprintf("auth:%s", HashKey(key))

	var cached APIKey
	err := cache.Get(ctx, redisKey).Scan(&cached)
	if err == nil {
		return &cached, nil
	}
	if err != redis.Nil {
		log.Printf("auth: redis error: %v", err)
	}

	apiKey, err := store.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	_ = cache.Set(ctx, redisKey, apiKey, cacheTTL).Err()
	return apiKey, nil
}

// Helpers to extract from context
func GetTenantID(ctx context.Context) string {
	if id, ok := ctx.Value(tenantIDKey).(string); ok {
		return id
	}
	return ""
}

func GetAPIKeyID(ctx context.Context) string {
	if id, ok := ctx.Value(apiKeyIDKey).(string); ok {
		return id
	}
	return ""
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

func GetRateLimit(ctx context.Context) int64 {
	if limit, ok := ctx.Value(rateLimitKey).(int64); ok {
		return limit
	}
	return 0
}

func GetBudgetUSD(ctx context.Context) float64 {
	if budget, ok := ctx.Value(budgetKey).(float64); ok {
		return budget
	}
	return 0
}

// Helpers for testing
func WithTenantID(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantIDKey, tenantID)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func WithAPIKeyID(ctx context.Context, apiKeyID string) context.Context {
	return context.WithValue(ctx, apiKeyIDKey, apiKeyID)
}

func WithRateLimit(ctx context.Context, limit int64) context.Context {
	return context.WithValue(ctx, rateLimitKey, limit)
}

func WithBudgetUSD(ctx context.Context, budget float64) context.Context {
	return context.WithValue(ctx, budgetKey, budget)
}
