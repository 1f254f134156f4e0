// Package logger wraps zerolog with context-carried fields.
package logger

import (
    "context"
    "io"
    "os"
    "strings"
    "time"

    "github.com/rs/zerolog"
)

// Options configures the structured logger.
type Options struct {
    ServiceName string
    Level       zerolog.Level
    // Format is "json" (default) or "console".
    Format string
    Output io.Writer
}

type Logger struct {
    base *zerolog.Logger
}

type ctxKey struct{}

func New(opts Options) *Logger {
    if opts.Level == zerolog.NoLevel {
        opts.Level = zerolog.InfoLevel
    }
    var output io.Writer = opts.Output
    if output == nil {
        output = os.Stdout
    }
    if strings.EqualFold(opts.Format, "console") {
        output = zerolog.ConsoleWriter{Out: output, TimeFormat: "15:04:05"}
    }

    zerolog.TimeFieldFormat = time.RFC3339Nano

    logger := zerolog.
        New(output).
        With().
        Timestamp().
        Str("service", opts.ServiceName).
        Logger().
        Level(opts.Level)

    return &Logger{base: &logger}
}

// Nop discards everything. Handy in tests.
func Nop() *Logger {
    l := zerolog.Nop()
    return &Logger{base: &l}
}

func ParseLevel(value string) zerolog.Level {
    levelString := strings.ToLower(strings.TrimSpace(value))
    if levelString == "" {
        return zerolog.InfoLevel
    }
    if lvl, err := zerolog.ParseLevel(levelString); err == nil {
        return lvl
    }
    return zerolog.InfoLevel
}

func (l *Logger) fromContext(ctx context.Context) *zerolog.Logger {
    if ctx == nil {
        return l.base
    }
    if entry, ok := ctx.Value(ctxKey{}).(*zerolog.Logger); ok {
        return entry
    }
    return l.base
}

func (l *Logger) attach(ctx context.Context, entry zerolog.Logger) context.Context {
    if ctx == nil {
        ctx = context.Background()
    }
    return context.WithValue(ctx, ctxKey{}, &entry)
}

func (l *Logger) WithField(ctx context.Context, key string, value any) context.Context {
    entry := l.fromContext(ctx)
    return l.attach(ctx, entry.With().Interface(key, value).Logger())
}

func (l *Logger) WithFields(ctx context.Context, fields map[string]any) context.Context {
    entry := l.fromContext(ctx)
    builder := entry.With()
    for k, v := range fields {
        builder = builder.Interface(k, v)
    }
    return l.attach(ctx, builder.Logger())
}

func (l *Logger) Debug(ctx context.Context, msg string) {
    l.fromContext(ctx).Debug().Msg(msg)
}

func (l *Logger) Info(ctx context.Context, msg string) {
    l.fromContext(ctx).Info().Msg(msg)
}

func (l *Logger) Warn(ctx context.Context, msg string) {
    l.fromContext(ctx).Warn().Msg(msg)
}

func (l *Logger) Error(ctx context.Context, msg string, err error) {
    event := l.fromContext(ctx).Error()
    if err != nil {
        event = event.Err(err)
    }
    event.Msg(msg)
}
