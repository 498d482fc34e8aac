package testsupport

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// WriteFeedFile writes content into dir/name and optionally backdates its
// modification time. A zero modTime leaves the file's timestamp untouched.
func WriteFeedFile(t testing.TB, dir, name string, content []byte, modTime time.Time) string {
	t.Helper()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", dir, err)
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	if !modTime.IsZero() {
		if err := os.Chtimes(path, modTime, modTime); err != nil {
			t.Fatalf("chtimes %s: %v", path, err)
		}
	}
	return path
}
