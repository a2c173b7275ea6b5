package clean

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ssg/kiln/builder/config"
	"github.com/kiln-ssg/kiln/builder/testutil"
)

func TestRunRemovesDestinationAndCache(t *testing.T) {
	fs, _ := testutil.CreateTestFilesystemWithContent(map[string]string{
		"/site/index.html":                   "src",
		"/site/_site/index.html":             "out",
		"/site/_site/a/b.html":               "out",
		"/site/.kiln-cache/incremental.json": "{}",
	})
	cfg := config.Default()
	cfg.Source = "/site"

	res, err := Run(fs, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.True(t, res.Cache)
	testutil.AssertFileNotExists(t, fs, "/site/_site")
	testutil.AssertFileNotExists(t, fs, "/site/.kiln-cache")
	testutil.AssertFileExists(t, fs, "/site/index.html")
}

func TestRunHonorsKeepFiles(t *testing.T) {
	fs, _ := testutil.CreateTestFilesystemWithContent(map[string]string{
		"/site/_site/index.html":          "out",
		"/site/_site/.git/HEAD":           "ref",
		"/site/_site/assets/vendor/x.js":  "keep",
		"/site/_site/assets/site.css":     "drop",
		"/site/_site/assets/img/logo.png": "drop",
	})
	cfg := config.Default()
	cfg.Source = "/site"
	cfg.KeepFiles = []string{".git", "/assets/vendor/"}

	res, err := Run(fs, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.False(t, res.Cache)
	assert.Equal(t, 2, res.Preserved)
	assert.Equal(t, 3, res.Removed)

	testutil.AssertFileExists(t, fs, "/site/_site/.git/HEAD")
	testutil.AssertFileExists(t, fs, "/site/_site/assets/vendor/x.js")
	testutil.AssertFileNotExists(t, fs, "/site/_site/index.html")
	testutil.AssertFileNotExists(t, fs, "/site/_site/assets/site.css")
	testutil.AssertFileNotExists(t, fs, "/site/_site/assets/img")
}

func TestRunMissingDirsIsNoop(t *testing.T) {
	fs, _ := testutil.CreateTestFilesystem()
	cfg := config.Default()
	cfg.Source = "/site"

	res, err := Run(fs, cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	assert.Equal(t, Result{}, res)
}
