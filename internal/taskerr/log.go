package taskerr

import (
	"context"
	"log/slog"
	"time"
)

// Event logs a structured event matching the shape mandated by §4.9:
// {ts, level, component, event, task_id?, session_id?, customer_id?,
// error_kind?, detail}. ts and level are supplied by slog itself; the rest
// are passed as attrs so callers only need to name what they have.
func Event(ctx context.Context, logger *slog.Logger, level slog.Level, component, event string, attrs ...any) {
	logger.Log(ctx, level, event, append([]any{"component", component}, attrs...)...)
}

// LatencyEvent logs the start/end-with-latency pattern required for every
// external call ("Every external call logs start/end with latency", §4.9).
func LatencyEvent(ctx context.Context, logger *slog.Logger, component, event string, started time.Time, err error, attrs ...any) {
	base := append([]any{"component", component, "latency_ms", time.Since(started).Milliseconds()}, attrs...)
	if err != nil {
		base = append(base, "error_kind", string(KindOf(err)), "detail", err.Error())
		logger.Log(ctx, slog.LevelWarn, event, base...)
		return
	}
	logger.Log(ctx, slog.LevelInfo, event, base...)
}
