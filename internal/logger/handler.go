package logger

import (
	"context"
	"fmt"
	"go/build"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"
)

func getEnvOrDefault(key, default_ string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return default_
}

// Options picks the handler format and level, by default from LOG_FORMAT and LOG_LEVEL
type Options struct {
	Format string
	Level  string
}

func OptionsFromEnv() Options {
	return Options{
		Format: strings.ToLower(getEnvOrDefault("LOG_FORMAT", "text")),
		Level:  strings.ToLower(getEnvOrDefault("LOG_LEVEL", "info")),
	}
}

func parseLevel(level string) (slog.Level, error) {
	switch level {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}

	return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error")
}

// New builds a logger writing to out. Source paths are reported relative to
// rootPath or GOPATH.
func New(out io.Writer, rootPath string, opts Options) (*slog.Logger, error) {
	lvl, err := parseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	ho := slog.HandlerOptions{
		Level: lvl,
	}

	var h slog.Handler
	switch opts.Format {
	case "json":
		h = slog.NewJSONHandler(out, &ho)
	case "text":
		h = slog.NewTextHandler(out, &ho)
	default:
		return nil, fmt.Errorf("LOG_FORMAT must be json or text")
	}

	gopath := os.Getenv("GOPATH")
	if gopath == "" {
		gopath = build.Default.GOPATH
	}

	return slog.New(&handler{
		baseHandler: h,
		rootPath:    strings.TrimSuffix(rootPath, "/") + "/",
		goPath:      strings.TrimSuffix(gopath, "/") + "/",
	}), nil
}

// SetupSLog installs the environment configured logger as the slog default.
// Terminal hosts pass a file since stdout belongs to the display.
func SetupSLog(out io.Writer, rootPath string) error {
	l, err := New(out, rootPath, OptionsFromEnv())
	if err != nil {
		return err
	}

	slog.SetDefault(l)

	return nil
}

type handler struct {
	baseHandler slog.Handler
	rootPath    string
	goPath      string
}

func (e *handler) Enabled(ctx context.Context, level slog.Level) bool {
	return e.baseHandler.Enabled(ctx, level)
}

func (e *handler) Handle(ctx context.Context, record slog.Record) error {
	record = record.Clone()

	hasSource := false
	record.Attrs(func(attr slog.Attr) bool {
		if attr.Key == slog.SourceKey {
			hasSource = true
			return false
		}

		return true
	})

	if !hasSource && record.PC != 0 {
		record.AddAttrs(e.getSourceAttr(record.PC))
	}

	return e.baseHandler.Handle(ctx, record)
}

func (e *handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &handler{
		baseHandler: e.baseHandler.WithAttrs(attrs),
		rootPath:    e.rootPath,
		goPath:      e.goPath,
	}
}

func (e *handler) WithGroup(name string) slog.Handler {
	return &handler{
		baseHandler: e.baseHandler.WithGroup(name),
		rootPath:    e.rootPath,
		goPath:      e.goPath,
	}
}

func (e *handler) getSourceAttr(pc uintptr) slog.Attr {
	fs := runtime.CallersFrames([]uintptr{pc})
	f, _ := fs.Next()
	file := f.File
	if strings.HasPrefix(file, e.rootPath) {
		file = file[len(e.rootPath):]
	} else if strings.HasPrefix(file, e.goPath) {
		file = file[len(e.goPath):]
	}

	return slog.Any(slog.SourceKey, slog.Source{
		Function: f.Function,
		File:     file,
		Line:     f.Line,
	})
}
