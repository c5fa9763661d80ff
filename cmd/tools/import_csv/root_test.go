package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"assetdb-api/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"usage", usageError{errors.New("bad flag")}, exitUsage},
		{"rejected rows", rowErrors{3}, exitValidation},
		{"validation", apperr.Validation("unsupported type: widgets"), exitValidation},
		{"store down", apperr.Infrastructure("open store", errors.New("refused")), exitStore},
		{"wrapped store", fmt.Errorf("import: %w", apperr.Infrastructure("upsert", nil)), exitStore},
		{"other", errors.New("disk full"), exitFailure},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.err))
		})
	}
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORE_DRIVER", "memory")
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestTemplateCommand(t *testing.T) {
	out, err := run(t, "template", "clients")
	require.NoError(t, err)
	assert.Contains(t, out, "code,name")

	_, err = run(t, "template", "widgets")
	assert.Equal(t, exitUsage, exitCode(err))

	_, err = run(t, "template")
	assert.Equal(t, exitUsage, exitCode(err))
}

func TestImportCommandDryRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clients.csv")
	require.NoError(t, os.WriteFile(path, []byte("code,name\nACME,Acme Ltd\n,No code\n"), 0o600))

	out, err := run(t, "import", "clients", path)
	require.Error(t, err)
	assert.Equal(t, exitValidation, exitCode(err))
	assert.Contains(t, out, "clients dry run: 2 rows, 0 inserted, 0 updated, 1 errors")
	assert.Contains(t, out, "code required")

	_, err = run(t, "import", "clients", filepath.Join(dir, "missing.csv"))
	assert.Equal(t, exitUsage, exitCode(err))

	_, err = run(t, "import", "clients", path, "--bogus")
	assert.Equal(t, exitUsage, exitCode(err))
}
