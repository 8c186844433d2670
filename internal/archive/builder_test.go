package archive

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "autoback/pkg/errors"
)

func saveFS() fstest.MapFS {
	return fstest.MapFS{
		"save.dat":       {Data: bytes.Repeat([]byte("progress"), 4096)},
		"slot/slot1.bin": {Data: []byte("slot one")},
		"slot/slot2.bin": {Data: []byte("slot two")},
	}
}

func testHeader() Manifest {
	return Manifest{
		JobID:      "job-1",
		AppID:      "0100F2C0115B6000",
		AppName:    "Zelda",
		AccountUID: "00112233445566778899AABBCCDDEEFF",
		Nickname:   "Link",
	}
}

func TestBuilder_BuildStreamVerify(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	b := NewBuilder(filepath.Join(dir, ".staging"), nil)

	st, err := b.Build(ctx, saveFS(), testHeader())
	require.NoError(t, err)
	assert.FileExists(t, st.Path())
	assert.Equal(t, 3, st.Manifest().FileCount)
	assert.Equal(t, ManifestVersion, st.Manifest().Version)

	dst := filepath.Join(dir, "out.zip")
	res, err := NewStreamer(nil, 0, nil).Stream(ctx, st.Source(), dst)
	require.NoError(t, err)
	assert.Equal(t, st.Size(), res.Bytes)
	assert.Equal(t, st.Checksum(), res.Checksum)

	require.NoError(t, st.Release())
	require.NoError(t, st.Release())
	assert.True(t, st.Released())
	assert.NoFileExists(t, st.Path())

	vr := VerifyFile(dst)
	assert.True(t, vr.OK, "errors: %v", vr.Errors)
	assert.True(t, vr.ManifestValid)
	assert.Equal(t, 3, vr.Files)
	require.NotNil(t, vr.Manifest)
	assert.Equal(t, "Link", vr.Manifest.Nickname)

	zr, err := zip.OpenReader(dst)
	require.NoError(t, err)
	defer zr.Close()
	var found bool
	for _, f := range zr.File {
		if f.Name != "slot/slot1.bin" {
			continue
		}
		found = true
		assert.Equal(t, zip.Deflate, f.Method)
		rc, err := f.Open()
		require.NoError(t, err)
		data, _ := io.ReadAll(rc)
		rc.Close()
		assert.Equal(t, "slot one", string(data))
	}
	assert.True(t, found)
}

func TestBuilder_ReservedName(t *testing.T) {
	b := NewBuilder(t.TempDir(), nil)
	fsys := fstest.MapFS{ManifestName: {Data: []byte("{}")}}
	_, err := b.Build(context.Background(), fsys, testHeader())
	require.Error(t, err)
	assert.True(t, apperrors.IsKind(err, apperrors.KindBuild))
	assert.NoFileExists(t, b.StagingPath("0100F2C0115B6000", "00112233445566778899AABBCCDDEEFF"))
}

func TestVerify_DetectsTamper(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, _ := zw.Create("save.dat")
	_, _ = w.Write([]byte("tampered"))
	mw, _ := zw.Create(ManifestName)
	_, _ = mw.Write([]byte(`{"version":"1.0","file_hashes":{"save.dat":"` + ComputeHash([]byte("original")) + `","gone.dat":"00"}}`))
	require.NoError(t, zw.Close())

	vr := Verify(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	assert.False(t, vr.OK)
	assert.True(t, vr.ManifestValid)
	assert.Len(t, vr.Errors, 2)
}

func TestVerify_NotZip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.zip")
	require.NoError(t, os.WriteFile(path, []byte("nope"), 0o644))
	vr := VerifyFile(path)
	assert.False(t, vr.OK)
	assert.False(t, vr.ManifestValid)
}
