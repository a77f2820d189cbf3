package identity_test

import (
	"fmt"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/silmo-yokohama/knowledge-hub-public/internal/identity"
)

var hexID = regexp.MustCompile(`^[0-9a-f]{8}$`)

func TestIDDeterministic(t *testing.T) {
	urls := []string{
		"https://a.example/1",
		"https://zenn.dev/shio_shoppaize/articles/shogun-spec-first",
		"",
		"https://news.yahoo.co.jp/articles/f59b3c8a?source=rss",
	}
	for _, u := range urls {
		first := identity.ID(u)
		require.Equal(t, first, identity.ID(u))
		require.Regexp(t, hexID, first)
	}
}

func TestIDKnownDigest(t *testing.T) {
	// sha256("") = e3b0c442...
	require.Equal(t, "e3b0c442", identity.ID(""))
	// sha256("abc") = ba7816bf...
	require.Equal(t, "ba7816bf", identity.ID("abc"))
}

func TestIDDoesNotNormalize(t *testing.T) {
	require.NotEqual(t, identity.ID("https://a.example/1"), identity.ID("https://a.example/1/"))
	require.NotEqual(t, identity.ID("http://a.example/1"), identity.ID("https://a.example/1"))
	require.NotEqual(t, identity.ID("https://a.example/?a=1&b=2"), identity.ID("https://a.example/?b=2&a=1"))
}

func TestIDNoCollisionsOnRealisticCorpus(t *testing.T) {
	domains := []string{
		"https://zenn.dev/%s/articles/%04x",
		"https://qiita.com/%s/items/%06x",
		"https://old.reddit.com/r/%s/comments/%07x/post/",
		"https://news.yahoo.co.jp/articles/%s%010x",
		"https://tech.%s.example/entry/%d",
	}
	names := []string{"alice", "bob", "programming", "webdev", "nextjs", "LocalLLaMA", "ClaudeAI"}

	seen := make(map[string]string)
	count := 0
	for d, format := range domains {
		for n, name := range names {
			for i := 0; i < 20; i++ {
				u := fmt.Sprintf(format, name, d*100000+n*1000+i)
				id := identity.ID(u)
				if prev, ok := seen[id]; ok {
					require.Equal(t, prev, u, "collision between %s and %s", prev, u)
				}
				seen[id] = u
				count++
			}
		}
	}
	require.GreaterOrEqual(t, count, 500)
	require.Len(t, seen, count)
}

func TestDerive(t *testing.T) {
	id, err := identity.Derive("https://a.example/1")
	require.NoError(t, err)
	require.Equal(t, identity.ID("https://a.example/1"), id)

	_, err = identity.Derive("https://a.example/\xff")
	require.ErrorIs(t, err, identity.ErrInvalidUTF8)
}
