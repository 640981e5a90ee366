package store

import (
	"path/filepath"
	"testing"

	"github.com/stellarlinkco/rag-eval/internal/config"
)

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("nil config", func(t *testing.T) {
		t.Parallel()
		if _, err := Open(nil); err == nil {
			t.Fatalf("Open(nil): expected error")
		}
	})

	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		st, err := Open(&config.Config{Storage: config.StorageConfig{Type: "memory"}})
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		defer st.Close()
	})

	t.Run("sqlite with path", func(t *testing.T) {
		t.Parallel()
		cfg := &config.Config{Storage: config.StorageConfig{
			Type: "sqlite",
			Path: filepath.Join(t.TempDir(), "eval.db"),
		}}
		st, err := Open(cfg)
		if err != nil {
			t.Fatalf("Open: %v", err)
		}
		defer st.Close()
	})

	t.Run("unsupported type", func(t *testing.T) {
		t.Parallel()
		if _, err := Open(&config.Config{Storage: config.StorageConfig{Type: "postgres"}}); err == nil {
			t.Fatalf("Open: expected error for unsupported type")
		}
	})
}
