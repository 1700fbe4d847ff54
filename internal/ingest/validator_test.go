package ingest_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"go-leave/internal/ingest"

	"github.com/stretchr/testify/assert"
)

func TestFileValidator_Validate(t *testing.T) {
	v := ingest.NewFileValidator()

	t.Run("missing file", func(t *testing.T) {
		err := v.Validate(filepath.Join(t.TempDir(), "missing.xlsx"))

		var vErr *ingest.ValidationError
		assert.ErrorAs(t, err, &vErr)
		assert.Equal(t, ingest.ReasonNotFound, vErr.Reason)
	})

	t.Run("directory", func(t *testing.T) {
		err := v.Validate(t.TempDir())

		var vErr *ingest.ValidationError
		assert.ErrorAs(t, err, &vErr)
		assert.Equal(t, ingest.ReasonNotRegular, vErr.Reason)
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "empty.xlsx")
		assert.NoError(t, os.WriteFile(path, nil, 0o644))

		err := v.Validate(path)

		var vErr *ingest.ValidationError
		assert.ErrorAs(t, err, &vErr)
		assert.Equal(t, ingest.ReasonEmptyFile, vErr.Reason)
	})

	t.Run("readable file passes", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ok.xlsx")
		assert.NoError(t, os.WriteFile(path, []byte("content"), 0o644))

		assert.NoError(t, v.Validate(path))
	})

	t.Run("validation error unwraps cleanly", func(t *testing.T) {
		err := v.Validate(filepath.Join(t.TempDir(), "missing.xlsx"))
		assert.False(t, errors.Is(err, os.ErrNotExist))
		assert.Contains(t, err.Error(), ingest.ReasonNotFound)
	})
}
