package savedata

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoback/internal/identity"
	apperrors "autoback/pkg/errors"
)

func TestDirStore_Open(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	s := NewDirStore(root)
	uid := identity.AccountUID{0x0011223344556677, 0x8899AABBCCDDEEFF}
	const app = uint64(0x0100F2C0115B6000)

	_, err := s.Open(ctx, app, uid)
	assert.ErrorIs(t, err, ErrNotFound)

	dir := s.Path(app, uid)
	assert.Equal(t, filepath.Join(root, "00112233445566778899AABBCCDDEEFF", "0100F2C0115B6000"), dir)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	_, err = s.Open(ctx, app, uid)
	assert.ErrorIs(t, err, ErrEmpty)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "save.dat"), []byte("data"), 0o644))
	snap, err := s.Open(ctx, app, uid)
	require.NoError(t, err)
	defer snap.Close()
	assert.Equal(t, 1, snap.Entries())
	data, err := fs.ReadFile(snap.FS(), "save.dat")
	require.NoError(t, err)
	assert.Equal(t, "data", string(data))
}

func TestDirStore_OpenNotADirectory(t *testing.T) {
	root := t.TempDir()
	s := NewDirStore(root)
	uid := identity.AccountUID{1, 2}
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path(7, uid)), 0o755))
	require.NoError(t, os.WriteFile(s.Path(7, uid), []byte("x"), 0o644))

	_, err := s.Open(context.Background(), 7, uid)
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindSaveData))
}
