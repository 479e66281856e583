package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSafeWriteFile_ReplacesAndCleansUp(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.md")
	if err := SafeWriteFile(path, []byte("one")); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := SafeWriteFile(path, []byte("two")); err != nil {
		t.Fatalf("second write: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "two" {
		t.Fatalf("got %q, want %q", b, "two")
	}
	if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
		t.Fatalf("temp file left behind: %v", err)
	}
}

func TestSafeWriteFile_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nope", "out.md")
	if err := SafeWriteFile(path, []byte("x")); err == nil {
		t.Fatalf("expected error for missing directory")
	}
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"rows": 3})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), "\n  \"rows\": 3") {
		t.Fatalf("unexpected json: %s", b)
	}
	if _, err := PrettyJSON(func() {}); err == nil {
		t.Fatalf("expected error for unsupported type")
	}
}
