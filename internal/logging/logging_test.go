package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevels(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn", "text")

	log.Info("hidden %d", 1)
	log.Warn("shown %d", 2)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info logged at warn level: %s", out)
	}
	if !strings.Contains(out, "shown 2") || !strings.Contains(out, "level=WARN") {
		t.Fatalf("warn missing: %s", out)
	}
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	New(&buf, "debug", "JSON").Debug("file %s", "a.txt")

	if !strings.HasPrefix(buf.String(), "{") || !strings.Contains(buf.String(), `"msg":"file a.txt"`) {
		t.Fatalf("not json: %s", buf.String())
	}
}

func TestNop(t *testing.T) {
	Nop().Error("nothing %s", "here")
}
