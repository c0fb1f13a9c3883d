package monitoring

import (
	"fmt"
	"testing"
)

func TestSetLogger(t *testing.T) {
	original := Logf
	defer func() { Logf = original }()

	var lines []string
	SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})
	Logf("journal: session %s: %v", "abc", "disk full")

	if len(lines) != 1 || lines[0] != "journal: session abc: disk full" {
		t.Errorf("lines = %q", lines)
	}

	SetLogger(nil)
	Logf("dropped")
	if len(lines) != 1 {
		t.Errorf("no-op logger forwarded a line: %q", lines)
	}
}

func TestLogf_Default(t *testing.T) {
	if Logf == nil {
		t.Fatal("Logf should not be nil by default")
	}
	Logf("[%d] %s %s", 200, "GET", "/api/tracks")
}
