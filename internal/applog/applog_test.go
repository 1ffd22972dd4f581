package applog

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestWriteFormatsKeyValues(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(nil)

	Error("host.remove", errors.New("no tab with id 7"), "tab", 7, "title", "Hello world")

	line := buf.String()
	for _, want := range []string{" ERROR host.remove ", `err="no tab with id 7"`, "tab=7", `title="Hello world"`} {
		if !strings.Contains(line, want) {
			t.Errorf("line %q missing %q", line, want)
		}
	}
	if !strings.HasSuffix(line, "\n") {
		t.Error("line not newline-terminated")
	}
}

func TestNoOutputIsNoop(t *testing.T) {
	SetOutput(nil)
	Info("nothing.happens", "k", "v")
}

func TestQuoteTruncates(t *testing.T) {
	long := strings.Repeat("a", maxValueLen+10)
	got := quote(long)
	if !strings.HasSuffix(got, truncSuffix) {
		t.Errorf("expected truncation suffix, got %q", got[len(got)-5:])
	}
}

func TestInitCreatesFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	if err := Init(dir); err != nil {
		t.Fatalf("Init: %v", err)
	}
	Info("test.event", "n", 1)
	Close()

	data, err := os.ReadFile(filepath.Join(dir, fileName))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "INFO test.event n=1") {
		t.Errorf("log content = %q", data)
	}
}
