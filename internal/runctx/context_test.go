package runctx

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func TestQueryName(t *testing.T) {
	if _, ok := QueryNameFromContext(context.Background()); ok {
		t.Error("expected no name on a bare context")
	}
	ctx := WithQueryName(context.Background(), "default")
	if name, ok := QueryNameFromContext(ctx); !ok || name != "default" {
		t.Errorf("got %q, %v", name, ok)
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))

	Logger(context.Background(), base).Info("plain")
	Logger(WithQueryName(context.Background(), "variants"), base).Info("tagged")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %q", buf.String())
	}
	if strings.Contains(lines[0], "query_name") {
		t.Errorf("untagged line carries a name: %s", lines[0])
	}
	if !strings.Contains(lines[1], "query_name=variants") {
		t.Errorf("tagged line misses the name: %s", lines[1])
	}
}
