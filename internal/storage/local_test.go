package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharsanguruparan/filevault/internal/common"
)

func TestLocal_PutGet(t *testing.T) {
	ctx := context.Background()
	root := filepath.Join(t.TempDir(), "files_manager")
	store, err := NewLocal(root)
	require.NoError(t, err)

	path, err := store.Put(ctx, "5d9c1b5a-blob", []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(store.Root(), "5d9c1b5a-blob"), path)

	data, err := store.Get(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, store.PutAt(ctx, path+"_100", []byte("small")))
	ok, err := store.Exists(ctx, path+"_100")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Exists(ctx, path+"_250")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = store.Get(ctx, path+"_250")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestLocal_RejectsEscapes(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(ctx, "../evil", []byte("x"))
	assert.Error(t, err)

	outside := filepath.Join(t.TempDir(), "other")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o600))
	err = store.PutAt(ctx, outside, []byte("x"))
	assert.ErrorIs(t, err, ErrOutsideRoot)

	_, err = store.Get(ctx, outside)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.Get(ctx, filepath.Join(store.Root(), "..", "other"))
	assert.ErrorIs(t, err, common.ErrNotFound)
}
