package documentStore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akolanti/KnowledgeAPI/internal/domain/ragErrors"
)

func TestSecureFilename(t *testing.T) {
	tests := map[string]string{
		"My cool movie.mov":         "My_cool_movie.mov",
		"../../../etc/passwd":       "etc_passwd",
		`C:\Users\me\report v2.pdf`: "C_Users_me_report_v2.pdf",
		"héllo wörld.txt":           "hllo_wrld.txt",
		".hidden.md":                "hidden.md",
		"...":                       "",
	}
	for in, want := range tests {
		assert.Equal(t, want, SecureFilename(in), in)
	}
}

func TestSave(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	lib := New(dir, 16)

	name, err := lib.Save("../notes v1.md", strings.NewReader("# hello"))
	require.NoError(t, err)
	assert.Equal(t, "notes_v1.md", name)

	data, err := os.ReadFile(filepath.Join(dir, name))
	require.NoError(t, err)
	assert.Equal(t, "# hello", string(data))

	_, err = lib.Save("image.png", strings.NewReader("x"))
	assert.True(t, errors.Is(err, ragErrors.ErrValidation))

	_, err = lib.Save("", strings.NewReader("x"))
	assert.True(t, errors.Is(err, ragErrors.ErrValidation))

	_, err = lib.Save("big.txt", strings.NewReader(strings.Repeat("a", 17)))
	assert.True(t, errors.Is(err, ragErrors.ErrValidation))
	_, statErr := os.Stat(filepath.Join(dir, "big.txt"))
	assert.True(t, os.IsNotExist(statErr), "oversized upload must not be kept")
}

func TestListAndHasDocuments(t *testing.T) {
	dir := t.TempDir()
	lib := New(dir, 0)
	assert.False(t, lib.HasDocuments())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.PDF"), []byte("pdf"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "skip.exe"), []byte("x"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested.txt"), 0o750))

	docs, err := lib.List()
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "a.txt", docs[0].Filename)
	assert.Equal(t, int64(5), docs[0].Size)
	assert.Equal(t, "txt", docs[0].Type)
	assert.Equal(t, "pdf", docs[1].Type)
	assert.True(t, lib.HasDocuments())
}

func TestList_MissingDir(t *testing.T) {
	docs, err := New(filepath.Join(t.TempDir(), "nope"), 0).List()
	require.NoError(t, err)
	assert.Empty(t, docs)
}
