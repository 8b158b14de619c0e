package telemetry

import (
	"fmt"
	"io"
	"log/slog"
)

// InitSlog installs a text handler writing to w as the default slog logger.
func InitSlog(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	})))
}

// SlogAPI implements API using the log/slog package.
type SlogAPI struct{}

// formatParams turns errors into "err" attributes and string keys followed by
// a value into attributes of that name, anything else becomes "params.<i>".
func (SlogAPI) formatParams(out *[]any, params []any) {
	for i := 0; i < len(params); i++ {
		switch p := params[i].(type) {
		case error:
			*out = append(*out, "err", p.Error())
		case string:
			if i+1 < len(params) {
				*out = append(*out, p, params[i+1])
				i++
				continue
			}
			*out = append(*out, fmt.Sprintf("params.%d", i), p)
		default:
			*out = append(*out, fmt.Sprintf("params.%d", i), p)
		}
	}
}

func (s SlogAPI) ReportBroken(id string, params ...any) {
	remainingPairs := []any{"id", id}
	s.formatParams(&remainingPairs, params)
	slog.Error("broken component", remainingPairs...)
}

func (s SlogAPI) ReportWarning(id string, params ...any) {
	remainingPairs := []any{"id", id}
	s.formatParams(&remainingPairs, params)
	slog.Warn("warning", remainingPairs...)
}

func (s SlogAPI) ReportInfo(message string, params ...any) {
	remainingPairs := []any{}
	s.formatParams(&remainingPairs, params)
	slog.Info(message, remainingPairs...)
}

func (s SlogAPI) ReportDebug(message string, params ...any) {
	remainingPairs := []any{}
	s.formatParams(&remainingPairs, params)
	slog.Debug(message, remainingPairs...)
}

func (s SlogAPI) ReportCount(id string, count int64) {
	slog.Info("count", "id", id, "n", count)
}
