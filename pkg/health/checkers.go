package health

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Pinger is anything with a context ping, e.g. the search client.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PostgresChecker pings the PostgreSQL pool and reports pool stats.
func PostgresChecker(pool *pgxpool.Pool) Checker {
	return CheckerFunc(func(ctx context.Context) CheckResult {
		start := time.Now()
		err := pool.Ping(ctx)
		duration := time.Since(start)

		if err != nil {
			return CheckResult{
				Status: StatusDown,
				Error:  err.Error(),
				Details: map[string]any{
					"duration_ms": duration.Milliseconds(),
				},
			}
		}

		stats := pool.Stat()
		return CheckResult{
			Status: StatusUp,
			Details: map[string]any{
				"duration_ms":    duration.Milliseconds(),
				"total_conns":    stats.TotalConns(),
				"idle_conns":     stats.IdleConns(),
				"acquired_conns": stats.AcquiredConns(),
			},
		}
	})
}

// PingChecker wraps any Pinger into a Checker.
func PingChecker(p Pinger) Checker {
	return CheckerFunc(func(ctx context.Context) CheckResult {
		start := time.Now()
		err := p.Ping(ctx)
		duration := time.Since(start)

		if err != nil {
			return CheckResult{
				Status: StatusDown,
				Error:  err.Error(),
				Details: map[string]any{
					"duration_ms": duration.Milliseconds(),
				},
			}
		}
		return CheckResult{
			Status: StatusUp,
			Details: map[string]any{
				"duration_ms": duration.Milliseconds(),
			},
		}
	})
}
