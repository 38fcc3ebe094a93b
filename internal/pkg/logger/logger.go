// internal/pkg/logger/logger.go
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

var (
	mu   sync.RWMutex
	base = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// Init 设置全局日志级别和服务名。level 无法解析时使用 info。
func Init(level, serviceName string) {
	InitWithWriter(os.Stdout, level, serviceName)
}

// InitWithWriter 与 Init 相同，但允许指定输出 (测试用)。
func InitWithWriter(w io.Writer, level, serviceName string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	mu.Lock()
	defer mu.Unlock()
	base = zerolog.New(w).Level(lvl).With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// L 返回不带请求上下文的全局 logger。
func L() *zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	l := base
	return &l
}

// Ctx 返回带有 trace_id / span_id 的 logger，便于和 Jaeger 中的链路对应。
func Ctx(ctx context.Context) *zerolog.Logger {
	l := L()
	if ctx == nil {
		return l
	}
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return l
	}
	withTrace := l.With().
		Str("trace_id", spanCtx.TraceID().String()).
		Str("span_id", spanCtx.SpanID().String()).
		Logger()
	return &withTrace
}
