package reportfs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/report"
	"github.com/silmo-yokohama/knowledge-hub-public/internal/reportfs"
)

func TestWatcherConvertsMarkdown(t *testing.T) {
	s := reportfs.New(t.TempDir())
	w := reportfs.NewWatcher(s, 20*time.Millisecond, nil)

	converted := make(chan string, 8)
	w.OnConvert = func(path string, err error) {
		if err == nil {
			converted <- path
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	defer func() {
		cancel()
		require.NoError(t, <-done)
	}()

	// Give the watcher time to register the root before creating the month dir.
	time.Sleep(100 * time.Millisecond)

	dir := filepath.Join(s.Root(), "2026-10")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	time.Sleep(100 * time.Millisecond)

	mdPath := filepath.Join(dir, "2026-10-19.md")
	md := report.RenderMarkdown(sampleReport("2026-10-19"))
	require.NoError(t, os.WriteFile(mdPath, []byte(md), 0o644))

	select {
	case got := <-converted:
		require.Equal(t, mdPath, got)
	case <-time.After(5 * time.Second):
		t.Fatal("markdown was not converted")
	}

	r, err := s.Load("2026-10-19")
	require.NoError(t, err)
	require.Len(t, r.Articles, 2)
}
