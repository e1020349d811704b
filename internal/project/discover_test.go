package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func touch(t *testing.T, root string, paths ...string) {
	t.Helper()
	for _, p := range paths {
		full := filepath.Join(root, p)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, nil, 0o644))
	}
}

func TestDiscover(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"src/b.cpp",
		"src/a.cpp",
		"src/util/z.cc",
		"src/util/helpers.hpp",
		"src/util/deep/x.cxx",
		"src/README.md",
		"src/notes.txt",
		"src/c.h",
		"other/ignored.cpp",
	)

	set, err := Discover(root, "src", nil)
	require.NoError(t, err)

	want := SourceFileSet{
		{Path: filepath.Join("src", "a.cpp"), Kind: KindTranslationUnit},
		{Path: filepath.Join("src", "b.cpp"), Kind: KindTranslationUnit},
		{Path: filepath.Join("src", "c.h"), Kind: KindHeader},
		{Path: filepath.Join("src", "util", "deep", "x.cxx"), Kind: KindTranslationUnit},
		{Path: filepath.Join("src", "util", "helpers.hpp"), Kind: KindHeader},
		{Path: filepath.Join("src", "util", "z.cc"), Kind: KindTranslationUnit},
	}
	assert.Equal(t, want, set)
	assert.Equal(t, []string{
		filepath.Join("src", "a.cpp"),
		filepath.Join("src", "b.cpp"),
		filepath.Join("src", "util", "deep", "x.cxx"),
		filepath.Join("src", "util", "z.cc"),
	}, set.TranslationUnits())
	assert.Len(t, set.Headers(), 2)
}

func TestDiscoverIsStable(t *testing.T) {
	root := t.TempDir()
	touch(t, root, "src/q.cpp", "src/a/b.cpp", "src/m.cpp", "src/a/a.cpp")

	first, err := Discover(root, "./src/", nil)
	require.NoError(t, err)
	for range 5 {
		again, err := Discover(root, "src", nil)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDiscoverEmpty(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, "src"), 0o755))

	set, err := Discover(root, "src", nil)
	require.NoError(t, err)
	assert.NotNil(t, set)
	assert.Empty(t, set)
}

func TestDiscoverMissingRoot(t *testing.T) {
	set, err := Discover(t.TempDir(), "nope", nil)
	require.Error(t, err)
	assert.Nil(t, set)
	assert.ErrorIs(t, err, ErrDirectoryUnreadable)
	assert.ErrorIs(t, err, os.ErrNotExist)

	var derr *DirectoryUnreadableError
	require.True(t, errors.As(err, &derr))
	assert.Contains(t, derr.Path, "nope")
}

func TestDiscoverUnreadableSubdirectory(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	root := t.TempDir()
	touch(t, root, "src/a.cpp", "src/locked/b.cpp")
	locked := filepath.Join(root, "src", "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	set, err := Discover(root, "src", nil)
	assert.Nil(t, set)
	assert.ErrorIs(t, err, ErrDirectoryUnreadable)
}

func TestDiscoverExclude(t *testing.T) {
	root := t.TempDir()
	touch(t, root,
		"src/a.cpp",
		"src/a_test.cpp",
		"src/experimental/x.cpp",
		"src/experimental/y.hpp",
	)

	set, err := Discover(root, "src", []string{"src/experimental/**", "**/*_test.cpp"})
	require.NoError(t, err)
	assert.Equal(t, SourceFileSet{{Path: filepath.Join("src", "a.cpp"), Kind: KindTranslationUnit}}, set)

	_, err = Discover(root, "src", []string{"src/[a"})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestSourceFileSetWithout(t *testing.T) {
	set := SourceFileSet{
		{Path: "src/main.cpp", Kind: KindTranslationUnit},
		{Path: "src/a.cpp", Kind: KindTranslationUnit},
	}
	assert.Equal(t, []string{"src/a.cpp"}, set.Without("./src/main.cpp").TranslationUnits())
	assert.Len(t, set.Without("main.cpp"), 2)
}

func TestClassifyFile(t *testing.T) {
	k, ok := ClassifyFile("x/y.c++")
	assert.True(t, ok)
	assert.Equal(t, KindTranslationUnit, k)

	k, ok = ClassifyFile("y.hxx")
	assert.True(t, ok)
	assert.Equal(t, KindHeader, k)

	_, ok = ClassifyFile("y.c")
	assert.False(t, ok)
}
