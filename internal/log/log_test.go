package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"fleetbudget/internal/core"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARN":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: ComponentBudget, Output: &buf, Level: slog.LevelInfo})
	l.Info("Budget check completed", FieldPeriod, "2025-03")
	out := buf.String()
	if !strings.Contains(out, "component=budget") || !strings.Contains(out, "period=2025-03") {
		t.Fatalf("unexpected output %q", out)
	}

	buf.Reset()
	l.WithComponent(ComponentWorker).Warn("retrying")
	if !strings.Contains(buf.String(), "component=worker") || strings.Contains(buf.String(), "component=budget") {
		t.Fatalf("component not replaced: %q", buf.String())
	}
}

func TestFieldsBuilder(t *testing.T) {
	f := NewFields().
		WithPeriod(core.MonthPeriod(2025, 3)).
		WithEvaluation(core.Evaluation{Notice: core.NoticeNoneOverBudget}).
		WithError(errors.New("boom")).
		WithError(nil)
	if f[FieldPeriod] != "2025-03" || f[FieldNotice] != "none_over_budget" || f[FieldAlertCount] != 0 || f[FieldError] != "boom" {
		t.Fatalf("unexpected fields %v", f)
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Fatalf("slice length mismatch")
	}
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: ComponentHTTP, Output: &buf}).With(FieldRequestID, "req-42")
	ctx := NewContext(context.Background(), l)

	FromContext(ctx).InfoContext(ctx, "handled")
	if !strings.Contains(buf.String(), "request_id=req-42") {
		t.Fatalf("request id missing: %q", buf.String())
	}
	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatalf("expected fallback logger")
	}
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Component: ComponentHTTP, Output: &buf}))
	sl.LogError(context.Background(), "Request failed", errors.New("disk full"), ComponentHTTP, OpCreate, NewFields().WithRequestID("req-7"))

	out := buf.String()
	for _, want := range []string{"level=ERROR", "error=\"disk full\"", "operation=create", "request_id=req-7"} {
		if !strings.Contains(out, want) {
			t.Errorf("output lacks %s: %q", want, out)
		}
	}
}
