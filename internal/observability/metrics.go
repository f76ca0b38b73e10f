package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "murmur_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "murmur_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// SessionsIssued counts session tokens signed, by the flow that issued them.
	SessionsIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "murmur_sessions_issued_total",
		Help: "Total number of session tokens issued",
	}, []string{"reason"})

	// SessionsRevoked counts tokens revoked on logout.
	SessionsRevoked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "murmur_sessions_revoked_total",
		Help: "Total number of session tokens revoked",
	})

	// FollowToggles counts follow edges that actually changed.
	FollowToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "murmur_follow_toggles_total",
		Help: "Follow and unfollow operations that changed state",
	}, []string{"action"})

	// LikeToggles counts likes that actually changed, by target kind.
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "murmur_like_toggles_total",
		Help: "Like and unlike operations that changed state",
	}, []string{"target", "action"})
)

const dbMetricsStartKey = "murmur:metrics_start"

// DatabaseMetrics is a GORM plugin recording per-statement latency.
type DatabaseMetrics struct{}

// NewDatabaseMetrics returns the plugin; register it with db.Use.
func NewDatabaseMetrics() *DatabaseMetrics {
	return &DatabaseMetrics{}
}

// Name implements gorm.Plugin.
func (*DatabaseMetrics) Name() string {
	return "murmur:metrics"
}

// Initialize implements gorm.Plugin.
func (m *DatabaseMetrics) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		operation string
		before    func(string, func(*gorm.DB)) error
		after     func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}

	for _, h := range hooks {
		op := h.operation
		if err := h.before("murmur:metrics_before_"+op, m.start); err != nil {
			return err
		}
		if err := h.after("murmur:metrics_after_"+op, func(tx *gorm.DB) { m.observe(tx, op) }); err != nil {
			return err
		}
	}
	return nil
}

func (*DatabaseMetrics) start(tx *gorm.DB) {
	tx.InstanceSet(dbMetricsStartKey, time.Now())
}

func (*DatabaseMetrics) observe(tx *gorm.DB, operation string) {
	v, ok := tx.InstanceGet(dbMetricsStartKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	table := tx.Statement.Table
	if table == "" {
		table = "unknown"
	}
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}
