package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// FormatConsole selects the human-readable writer; anything else logs JSON.
const FormatConsole = "console"

type Options struct {
	ServiceName string
	// Level is a zerolog level name; blank or unknown means info.
	Level string
	// WarnStack attaches a stack trace to warnings as well as errors.
	WarnStack bool
	Format    string
	Output    io.Writer
}

// Logger writes structured entries whose fields accumulate on the context.
type Logger struct {
	root      zerolog.Logger
	warnStack bool
}

func init() {
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

func New(opts Options) *Logger {
	level := ParseLevel(opts.Level)
	out := opts.Output
	if out == nil {
		out = os.Stdout
	}
	if strings.EqualFold(strings.TrimSpace(opts.Format), FormatConsole) {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
	}

	root := zerolog.New(out).Level(level).With().
		Timestamp().
		Str("service", opts.ServiceName).
		Logger()
	return &Logger{root: root, warnStack: opts.WarnStack}
}

// Nop discards everything.
func Nop() *Logger {
	return New(Options{Output: io.Discard, Level: zerolog.Disabled.String()})
}

// ParseLevel falls back to info for blank or unknown names.
func ParseLevel(value string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(value)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// from returns the context-scoped logger, or the root when ctx carries none.
func (l *Logger) from(ctx context.Context) *zerolog.Logger {
	if ctx != nil {
		if scoped, ok := ctx.Value(scopeKey{}).(*zerolog.Logger); ok {
			return scoped
		}
	}
	return &l.root
}

type scopeKey struct{}

func (l *Logger) extend(ctx context.Context, add func(zerolog.Context) zerolog.Context) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	scoped := add(l.from(ctx).With()).Logger()
	return context.WithValue(ctx, scopeKey{}, &scoped)
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
	return l.extend(ctx, func(c zerolog.Context) zerolog.Context { return c.Interface(key, value) })
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
	return l.extend(ctx, func(c zerolog.Context) zerolog.Context { return c.Fields(fields) })
}

func (l *Logger) WithRequestID(ctx context.Context, id string) context.Context {
	return l.withString(ctx, "request_id", id)
}

func (l *Logger) WithUserID(ctx context.Context, id string) context.Context {
	return l.withString(ctx, "user_id", id)
}

func (l *Logger) WithActorRole(ctx context.Context, role string) context.Context {
	return l.withString(ctx, "actor_role", role)
}

func (l *Logger) WithCartID(ctx context.Context, id string) context.Context {
	return l.withString(ctx, "cart_id", id)
}

func (l *Logger) WithOrderID(ctx context.Context, id string) context.Context {
	return l.withString(ctx, "order_id", id)
}

func (l *Logger) withString(ctx context.Context, key, value string) context.Context {
	return l.extend(ctx, func(c zerolog.Context) zerolog.Context { return c.Str(key, value) })
}

func (l *Logger) Debug(ctx context.Context, msg string) {
	l.from(ctx).Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
	l.from(ctx).Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
	ev := l.from(ctx).Warn()
	if l.warnStack && ev.Enabled() {
		ev.Str("stack", stack())
	}
	ev.Msg(msg)
}

// Error always records a stack trace; err may be nil.
func (l *Logger) Error(ctx context.Context, msg string, err error) {
	ev := l.from(ctx).Error()
	if !ev.Enabled() {
		return
	}
	if err != nil {
		ev.Err(err)
	}
	ev.Str("stack", stack()).Msg(msg)
}

func stack() string {
	return strings.TrimSpace(string(debug.Stack()))
}
