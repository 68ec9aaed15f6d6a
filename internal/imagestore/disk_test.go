package imagestore

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskSaveOpenRemove(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uploads", "images")
	store, err := NewDisk(dir)
	require.NoError(t, err)
	ctx := context.Background()

	p, err := store.Save(ctx, ".png", "image/png", bytes.NewReader([]byte("pixels")))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p, "uploads/images/"))
	assert.True(t, strings.HasSuffix(p, ".png"))

	name := filepath.Base(p)
	rc, err := store.Open(ctx, name)
	require.NoError(t, err)
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "pixels", string(b))

	require.NoError(t, store.Remove(ctx, p))
	_, err = os.Stat(filepath.Join(dir, name))
	assert.True(t, os.IsNotExist(err))

	assert.ErrorIs(t, store.Remove(ctx, p), ErrNotFound)
}

func TestDiskSaveUsesFreshNames(t *testing.T) {
	store, err := NewDisk(t.TempDir())
	require.NoError(t, err)

	a, err := store.Save(context.Background(), "jpg", "image/jpeg", strings.NewReader("a"))
	require.NoError(t, err)
	b, err := store.Save(context.Background(), "jpg", "image/jpeg", strings.NewReader("b"))
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestDiskOpenRejectsTraversal(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.txt"), []byte("x"), 0o644))

	store, err := NewDisk(filepath.Join(root, "images"))
	require.NoError(t, err)

	for _, name := range []string{"../secret.txt", "..", "", "a/b.png"} {
		_, err := store.Open(context.Background(), name)
		assert.ErrorIs(t, err, ErrNotFound, name)
	}
}

func TestDiskRemoveOnlyTouchesImageDir(t *testing.T) {
	root := t.TempDir()
	outside := filepath.Join(root, "keep.png")
	require.NoError(t, os.WriteFile(outside, []byte("x"), 0o644))

	store, err := NewDisk(filepath.Join(root, "images"))
	require.NoError(t, err)

	assert.ErrorIs(t, store.Remove(context.Background(), "../keep.png"), ErrNotFound)
	_, err = os.Stat(outside)
	assert.NoError(t, err)
}
