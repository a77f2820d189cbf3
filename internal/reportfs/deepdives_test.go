package reportfs_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/reportfs"
)

func writeDeepDive(t *testing.T, root, month, name, body string) {
	t.Helper()
	dir := filepath.Join(root, month)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func TestDeepDivesList(t *testing.T) {
	root := t.TempDir()
	writeDeepDive(t, root, "2026-02", "2026-02-09_ESLint v10.0.0 released.md", "# ESLint")
	writeDeepDive(t, root, "2026-02", "2026-02-09_Bun 2.md", "# Bun")
	writeDeepDive(t, root, "2026-03", "2026-03-01_Go 1.26.md", "# Go")
	writeDeepDive(t, root, "2026-03", "notes.md", "ignored")
	writeDeepDive(t, root, "2026-03", "2026-03-02_draft.txt", "ignored")
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("x"), 0o644))

	got, err := reportfs.NewDeepDives(root).List()
	require.NoError(t, err)
	require.Equal(t, []reportfs.DeepDive{
		{Filename: "2026-03-01_Go 1.26.md", Date: "2026-03-01", Title: "Go 1.26", Path: "2026-03/2026-03-01_Go 1.26.md"},
		{Filename: "2026-02-09_Bun 2.md", Date: "2026-02-09", Title: "Bun 2", Path: "2026-02/2026-02-09_Bun 2.md"},
		{Filename: "2026-02-09_ESLint v10.0.0 released.md", Date: "2026-02-09", Title: "ESLint v10.0.0 released", Path: "2026-02/2026-02-09_ESLint v10.0.0 released.md"},
	}, got)

	empty, err := reportfs.NewDeepDives(filepath.Join(root, "absent")).List()
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestDeepDivesRead(t *testing.T) {
	root := t.TempDir()
	writeDeepDive(t, root, "2026-02", "2026-02-09_Bun.md", "# Bun\nbody")
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.md"), []byte("secret"), 0o644))
	d := reportfs.NewDeepDives(root)

	body, err := d.Read("2026-02", "2026-02-09_Bun.md")
	require.NoError(t, err)
	require.Equal(t, "# Bun\nbody", body)

	_, err = d.Read("2026-02", "2026-02-10_missing.md")
	require.ErrorIs(t, err, reportfs.ErrNotFound)

	for _, tc := range [][2]string{
		{"..", "secret.md"},
		{"2026-02", "../../secret.md"},
		{"2026-02", ".."},
		{"", "2026-02-09_Bun.md"},
		{"2026-02", "2026-02-09_Bun.json"},
	} {
		_, err := d.Read(tc[0], tc[1])
		require.ErrorIs(t, err, reportfs.ErrInvalidPath, "%s/%s", tc[0], tc[1])
	}
}
