package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"
)

// 構造化ログ（JSON）。service / hostname / action / request_id を必ず付ける。
type Logger struct {
	service  string
	hostname string
	handler  *slog.Logger
}

func New(service, level string) *Logger {
	return NewWithWriter(service, level, os.Stdout)
}

func NewWithWriter(service, level string, w io.Writer) *Logger {
	hostname, _ := os.Hostname()

	handler := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))

	return &Logger{
		service:  service,
		hostname: hostname,
		handler:  handler,
	}
}

// テスト用
func Nop() *Logger {
	return NewWithWriter("nop", "error", io.Discard)
}

func GenerateRequestID() string {
	return uuid.NewString()
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func (l *Logger) base(action, requestID string) []slog.Attr {
	return []slog.Attr{
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
		slog.String("service", l.service),
		slog.String("hostname", l.hostname),
		slog.String("action", action),
		slog.String("request_id", requestID),
	}
}

func (l *Logger) Info(action, requestID, message string, attrs ...slog.Attr) {
	l.handler.LogAttrs(context.TODO(), slog.LevelInfo, message, append(l.base(action, requestID), attrs...)...)
}

func (l *Logger) Debug(action, requestID, message string, attrs ...slog.Attr) {
	l.handler.LogAttrs(context.TODO(), slog.LevelDebug, message, append(l.base(action, requestID), attrs...)...)
}

func (l *Logger) Warn(action, requestID, message string, attrs ...slog.Attr) {
	l.handler.LogAttrs(context.TODO(), slog.LevelWarn, message, append(l.base(action, requestID), attrs...)...)
}

func (l *Logger) Error(action, requestID, message string, err error, attrs ...slog.Attr) {
	errGroup := slog.Group("error",
		slog.String("msg", errString(err)),
		slog.String("stack", string(debug.Stack())),
	)
	all := append(l.base(action, requestID), errGroup)
	l.handler.LogAttrs(context.TODO(), slog.LevelError, message, append(all, attrs...)...)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

type ctxKey struct{}

// リクエストIDを context に載せる（usecase のログで使う）
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, ctxKey{}, requestID)
}

func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
