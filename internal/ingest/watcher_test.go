package ingest_test

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go-leave/internal/ingest"

	"github.com/stretchr/testify/assert"
)

func TestDirectoryWatcher(t *testing.T) {
	t.Run("reports absolute paths for created files", func(t *testing.T) {
		dir := t.TempDir()

		var mu sync.Mutex
		var seen []string
		w := ingest.NewDirectoryWatcher(dir, func(path string) {
			mu.Lock()
			seen = append(seen, path)
			mu.Unlock()
		})

		assert.NoError(t, w.Start())
		defer w.Stop()

		target := filepath.Join(dir, "drop.xlsx")
		assert.NoError(t, os.WriteFile(target, []byte("content"), 0o644))

		assert.Eventually(t, func() bool {
			mu.Lock()
			defer mu.Unlock()
			for _, p := range seen {
				if p == target && filepath.IsAbs(p) {
					return true
				}
			}
			return false
		}, 3*time.Second, 20*time.Millisecond)
	})

	t.Run("negative missing directory", func(t *testing.T) {
		w := ingest.NewDirectoryWatcher(filepath.Join(t.TempDir(), "missing"), func(string) {})
		assert.Error(t, w.Start())
	})

	t.Run("restart after stop", func(t *testing.T) {
		dir := t.TempDir()
		w := ingest.NewDirectoryWatcher(dir, func(string) {})

		assert.NoError(t, w.Start())
		w.Stop()
		assert.NoError(t, w.Start())
		w.Stop()
	})
}
