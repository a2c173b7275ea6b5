package cache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *RenderStore {
	t.Helper()
	s, err := OpenRenderStore(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRenderStoreInline(t *testing.T) {
	s := openTestStore(t)
	key := RenderKey("monokai", "# hi")

	_, ok := s.Get(key)
	assert.False(t, ok)

	require.NoError(t, s.Put(key, "<h1>hi</h1>"))
	got, ok := s.Get(key)
	require.True(t, ok)
	assert.Equal(t, "<h1>hi</h1>", got)

	hits, misses := s.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
	assert.Equal(t, 1, s.Len())
}

func TestRenderStoreLargeValuesAreCompressed(t *testing.T) {
	s := openTestStore(t)
	html := strings.Repeat("<p>lorem ipsum dolor sit amet</p>\n", 10000)
	key := RenderKey("github", "big")

	require.NoError(t, s.Put(key, html))
	got, ok := s.Get(key)
	require.True(t, ok)
	assert.Equal(t, html, got)
	assert.True(t, s.store.Exists(renderCategory, HashContent([]byte(html))))
}

func TestRenderStoreReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := OpenRenderStore(dir)
	require.NoError(t, err)
	require.NoError(t, s.Put("k", "v"))
	require.NoError(t, s.Close())

	s, err = OpenRenderStore(dir)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	got, ok := s.Get("k")
	assert.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestRenderKeyIsPartSensitive(t *testing.T) {
	assert.NotEqual(t, RenderKey("ab", "c"), RenderKey("a", "bc"))
	assert.Equal(t, RenderKey("a", "b"), RenderKey("a", "b"))
	assert.Len(t, RenderKey("x"), 64)
}

func TestStoreCompressionTiers(t *testing.T) {
	assert.Equal(t, CompressionNone, determineCompression(10))
	assert.Equal(t, CompressionZstdFast, determineCompression(RawThreshold))
	assert.Equal(t, CompressionZstdDefault, determineCompression(FastZstdMax))
}
