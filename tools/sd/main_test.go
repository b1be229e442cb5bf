package sd

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

func TestRunErrors(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]struct {
		card  string
		psram string
	}{
		"missing card":      {filepath.Join(dir, "missing.img"), filepath.Join(dir, "psram.bin")},
		"missing psram dir": {dir, filepath.Join(dir, "none", "psram.bin")},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			if err := flags.Set("psram", tc.psram); err != nil {
				t.Fatal(err)
			}
			if err := run(tc.card); !errors.Is(err, fs.ErrNotExist) {
				t.Fatalf("expected %v, got %v", fs.ErrNotExist, err)
			}
		})
	}

	// a missing card fails before the shared memory file is created
	if _, err := os.Stat(filepath.Join(dir, "psram.bin")); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected %v, got %v", fs.ErrNotExist, err)
	}
}
