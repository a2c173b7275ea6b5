package renderer

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiln-ssg/kiln/builder/testutil"
	"github.com/kiln-ssg/kiln/builder/utils"
)

func TestWriterWritePage(t *testing.T) {
	_, dest := testutil.CreateTestFilesystem()
	w := NewWriter(dest, "/out", nil)

	outputs := []string{"a/index.html", "a/b.html", "c/d/e.html", "index.html"}
	dirs := w.Dirs(outputs)
	assert.Equal(t, []string{"/out", "/out/a", "/out/c/d"}, dirs)
	require.NoError(t, utils.EnsureDirs(dest, dirs))

	require.NoError(t, w.WritePage("a/index.html", "<p>  hi  </p>"))
	testutil.AssertFileContent(t, dest, "/out/a/index.html", []byte("<p>  hi  </p>"))
	assert.True(t, w.Written("a/index.html"))
	assert.False(t, w.Written("a/b.html"))
	assert.Equal(t, 1, w.Count())
}

func TestWriterMinifies(t *testing.T) {
	_, dest := testutil.CreateTestFilesystem()
	w := NewWriter(dest, "/out", utils.NewMinifier())
	require.NoError(t, dest.MkdirAll("/out", 0755))

	require.NoError(t, w.WritePage("index.html", "<p>hello   world</p>\n"))
	testutil.AssertFileContent(t, dest, "/out/index.html", []byte("<p>hello world</p>"))
}

func TestWriterCopyFile(t *testing.T) {
	src, dest := testutil.CreateTestFilesystemWithContent(map[string]string{
		"/site/img/logo.png": "\x89PNG\r\n\x1a\n\x00raw",
	})
	w := NewWriter(dest, "/out", utils.NewMinifier())
	require.NoError(t, dest.MkdirAll("/out/img", 0755))

	require.NoError(t, w.CopyFile(src, "/site/img/logo.png", "img/logo.png"))
	testutil.AssertFileContent(t, dest, "/out/img/logo.png", []byte("\x89PNG\r\n\x1a\n\x00raw"))
	assert.True(t, w.Written("img/logo.png"))
}

var errClose = errors.New("close failed")

// closeFailFs creates files whose Close always fails.
type closeFailFs struct {
	afero.Fs
}

func (fs closeFailFs) Create(name string) (afero.File, error) {
	f, err := fs.Fs.Create(name)
	if err != nil {
		return nil, err
	}
	return closeFailFile{f}, nil
}

type closeFailFile struct {
	afero.File
}

func (f closeFailFile) Close() error {
	_ = f.File.Close()
	return errClose
}

func TestWriterReportsCloseError(t *testing.T) {
	dest := closeFailFs{afero.NewMemMapFs()}
	w := NewWriter(dest, "/out", nil)
	require.NoError(t, dest.MkdirAll("/out", 0755))

	err := w.WritePage("index.html", "<p>x</p>")
	require.Error(t, err)
	assert.ErrorIs(t, err, errClose)
	assert.False(t, w.Written("index.html"))
}
