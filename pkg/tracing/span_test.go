package tracing

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestSpanTree(t *testing.T) {
	ctx, root := Start(context.Background(), "build")
	_, read := StartChild(ctx, "read")
	time.Sleep(time.Millisecond)
	read.End()
	_, write := StartChild(ctx, "write")
	write.SetAttr("files", 3)
	write.End()
	root.End()

	if read.TraceID != root.TraceID || root.TraceID == "" {
		t.Errorf("trace ids = %q, %q", root.TraceID, read.TraceID)
	}
	phases := root.Phases()
	if len(phases) != 2 || phases["read"] <= 0 {
		t.Errorf("phases = %v", phases)
	}
	d := read.Duration()
	read.End()
	if read.Duration() != d {
		t.Error("second End changed the duration")
	}

	var buf bytes.Buffer
	root.Log(slog.New(slog.NewTextHandler(&buf, nil)), slog.LevelInfo)
	out := buf.String()
	if strings.Count(out, "msg=span") != 3 || !strings.Contains(out, "files=3") {
		t.Errorf("log output:\n%s", out)
	}
}

func TestStartChildWithoutParent(t *testing.T) {
	_, span := StartChild(context.Background(), "orphan")
	if span.TraceID == "" {
		t.Error("orphan span has no trace id")
	}
}
