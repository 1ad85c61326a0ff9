package billing

import (
	"context"
	"time"
)

type UsageLog struct {
	ID           string
	TenantID     string
	RequestID    string
	Provider     string
	Model        string
	Stage        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	FinishReason string
	Fallback     bool
	LatencyMs    int64
	CreatedAt    time.Time
}

// CostSummary is one row of the per-model usage rollup.
type CostSummary struct {
	Model        string
	Requests     int64
	InputTokens  int64
	OutputTokens int64
	CostUSD      float64
}

type Store interface {
	LogUsage(ctx context.Context, log *UsageLog) error
	GetUsageByTenant(ctx context.Context, tenantID string, from, to time.Time) ([]*UsageLog, error)
	GetTotalCostByTenant(ctx context.Context, tenantID string, from, to time.Time) (float64, error)
	GetCostByModel(ctx context.Context, tenantID string, from, to time.Time) ([]*CostSummary, error)
}
