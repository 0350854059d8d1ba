package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, k := range []string{"DB_DRIVER", "DB_URL", "OCR_ENGINE", "PARSE_MATCH_THRESHOLD", "QUEUE_WORKERS", "LOG_FORMAT", "WATCH_DEBOUNCE"} {
		t.Setenv(k, "")
	}
	cfg := LoadConfig()

	if cfg.Database.Driver != "postgres" {
		t.Errorf("driver = %q", cfg.Database.Driver)
	}
	if cfg.OCR.Engine != "cli" {
		t.Errorf("engine = %q", cfg.OCR.Engine)
	}
	if cfg.Parse.MatchThreshold != 0.65 {
		t.Errorf("match threshold = %v", cfg.Parse.MatchThreshold)
	}
	if cfg.Queue.Workers != 2 {
		t.Errorf("workers = %d", cfg.Queue.Workers)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("log format = %q", cfg.Log.Format)
	}
	if cfg.Watch.Debounce != 500*time.Millisecond {
		t.Errorf("debounce = %v", cfg.Watch.Debounce)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("DB_DRIVER", "SQLite")
	t.Setenv("DB_URL", ":memory:")
	t.Setenv("QUEUE_WORKERS", "8")
	t.Setenv("PARSE_CONFIDENCE_THRESHOLD", "0.7")
	t.Setenv("IMAGING_DESKEW", "false")
	t.Setenv("CACHE_TTL", "1h")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := LoadConfig()
	if cfg.Database.Driver != "sqlite" || cfg.Database.DSN != ":memory:" {
		t.Errorf("database = %+v", cfg.Database)
	}
	if cfg.Queue.Workers != 8 {
		t.Errorf("workers = %d", cfg.Queue.Workers)
	}
	if cfg.Parse.ConfidenceThreshold != 0.7 {
		t.Errorf("confidence threshold = %v", cfg.Parse.ConfidenceThreshold)
	}
	if cfg.Imaging.Deskew {
		t.Error("deskew should be off")
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("ttl = %v", cfg.Cache.TTL)
	}
	if cfg.Cache.RedisDB != 0 {
		t.Errorf("unparseable REDIS_DB should fall back to 0, got %d", cfg.Cache.RedisDB)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_URL", ":memory:")
	t.Setenv("OCR_ENGINE", "")
	t.Setenv("LOG_FORMAT", "")
	cfg := LoadConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cfg.Database.Driver = "mysql"
	cfg.Parse.MatchThreshold = 1.5
	cfg.Log.Format = "xml"
	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error")
	}
	if !HasCode(err, CodeConfig) {
		t.Errorf("code: %v", err)
	}
	if !errors.Is(err, ErrInvalidInput) {
		t.Errorf("cause: %v", err)
	}
	for _, field := range []string{"DB_DRIVER", "PARSE_MATCH_THRESHOLD", "LOG_FORMAT"} {
		if !strings.Contains(err.Error(), field) {
			t.Errorf("error %q does not mention %s", err, field)
		}
	}
}

func TestToStatus(t *testing.T) {
	already := status.Error(codes.AlreadyExists, "dup")
	cases := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"not found", fmt.Errorf("get: %w", ErrNotFound), codes.NotFound},
		{"invalid", ErrInvalidInput, codes.InvalidArgument},
		{"unsupported app error", NewAppError(CodeUnsupported, "txt", ErrUnsupported), codes.InvalidArgument},
		{"validation", ErrValidation, codes.InvalidArgument},
		{"unavailable", ErrUnavailable, codes.Unavailable},
		{"deadline", WrapError(context.DeadlineExceeded, "ocr"), codes.DeadlineExceeded},
		{"canceled", context.Canceled, codes.Canceled},
		{"status passthrough", already, codes.AlreadyExists},
		{"other", errors.New("boom"), codes.Internal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := status.Code(ToStatus(tc.err))
			if got != tc.want {
				t.Errorf("code = %v, want %v", got, tc.want)
			}
		})
	}
	if ToStatus(nil) != nil {
		t.Error("nil should stay nil")
	}
}

func TestAppError(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapError(NewAppError(CodeStorage, "save transcript", cause), "process")
	if got, want := err.Error(), "process: STORAGE_ERROR: save transcript: disk full"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, cause) || !HasCode(err, CodeStorage) || HasCode(err, CodeOCR) {
		t.Errorf("unwrap chain broken: %v", err)
	}
	if WrapError(nil, "x") != nil {
		t.Error("WrapError(nil) should be nil")
	}
}

func TestValidator(t *testing.T) {
	empty := ""
	v := NewValidator().
		Field("name", "  ", Required).
		Field("ptr", &empty, Required).
		Field("id", "abc", UUID).
		Field("ok_id", "7f1d8c1e-3a7b-4a51-9c55-0c7a3b5c9e10", UUID).
		Field("short", "tên", MaxLength(3)).
		Field("long", "điểm", MaxLength(3)).
		Field("score", 11, InRange(0, 10)).
		Field("kind", "x", OneOf("a", "b")).
		Field("custom", 1, Invalid("nope"))

	var got []string
	for _, e := range v.Errors() {
		got = append(got, e.Field)
	}
	want := []string{"name", "ptr", "id", "long", "score", "kind", "custom"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("failed fields (-want +got):\n%s", diff)
	}

	err := ValidateAndReturnError(v)
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("code = %v", status.Code(err))
	}
	if !strings.Contains(err.Error(), "must be at most 3 characters") {
		t.Errorf("message: %v", err)
	}
	if ValidateAndReturnError(NewValidator().Field("a", "b", Required)) != nil {
		t.Error("clean validator should return nil")
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := context.Background()
	if RequestIDFromContext(ctx) != "" || JobIDFromContext(ctx) != "" {
		t.Error("empty context should carry no ids")
	}
	ctx = WithJobID(WithRequestID(ctx, "req-1"), "job-1")
	if RequestIDFromContext(ctx) != "req-1" || JobIDFromContext(ctx) != "job-1" {
		t.Error("ids not round-tripped")
	}

	fallback := slog.New(slog.DiscardHandler)
	if LoggerFromContext(context.Background(), fallback) != fallback {
		t.Error("expected fallback logger")
	}
	if LoggerFromContext(context.Background(), nil) != slog.Default() {
		t.Error("expected default logger")
	}
	scoped := slog.New(slog.DiscardHandler)
	if LoggerFromContext(WithLogger(ctx, scoped), fallback) != scoped {
		t.Error("expected scoped logger")
	}
}

func TestWithTimeout(t *testing.T) {
	ctx, cancel := WithTimeout(context.Background(), 0)
	if _, ok := ctx.Deadline(); ok {
		t.Error("zero timeout should not set a deadline")
	}
	cancel()
	if ctx.Err() == nil {
		t.Error("cancel should end the context")
	}

	ctx, cancel = WithTimeout(context.Background(), time.Minute)
	defer cancel()
	if _, ok := ctx.Deadline(); !ok {
		t.Error("expected deadline")
	}
}
