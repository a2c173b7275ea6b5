package testutil

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
)

// CreateTestFilesystem creates source and destination filesystems for testing
func CreateTestFilesystem() (afero.Fs, afero.Fs) {
	return afero.NewMemMapFs(), afero.NewMemMapFs()
}

// CreateTestFilesystemWithContent creates filesystems with initial content
func CreateTestFilesystemWithContent(files map[string]string) (afero.Fs, afero.Fs) {
	sourceFs, destFs := CreateTestFilesystem()
	WriteFiles(sourceFs, files)
	return sourceFs, destFs
}

// WriteFiles writes every path -> content pair, creating parent directories.
func WriteFiles(fs afero.Fs, files map[string]string) {
	for path, content := range files {
		if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
			panic(err)
		}
		if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
			panic(err)
		}
	}
}

// AssertFileExists checks if a file exists in the filesystem
func AssertFileExists(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	exists, err := afero.Exists(fs, path)
	if err != nil {
		t.Fatalf("Error checking file existence: %v", err)
	}
	if !exists {
		t.Errorf("Expected file to exist: %s", path)
	}
}

// AssertFileNotExists checks if a file does not exist
func AssertFileNotExists(t *testing.T, fs afero.Fs, path string) {
	t.Helper()
	exists, err := afero.Exists(fs, path)
	if err != nil {
		t.Fatalf("Error checking file existence: %v", err)
	}
	if exists {
		t.Errorf("Expected file to not exist: %s", path)
	}
}

// AssertFileContent checks if a file has the expected content
func AssertFileContent(t *testing.T, fs afero.Fs, path string, expected []byte) {
	t.Helper()
	content := ReadFile(t, fs, path)
	if string(content) != string(expected) {
		t.Errorf("File %s content mismatch:\nexpected: %s\ngot: %s", path, expected, content)
	}
}

// ReadFile reads path or fails the test.
func ReadFile(t *testing.T, fs afero.Fs, path string) []byte {
	t.Helper()
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return content
}
