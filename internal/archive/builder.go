// Copyright 2026 fanjia1024
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package archive

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/zeebo/blake3"

	apperrors "autoback/pkg/errors"
)

// Builder 将存档快照打包为 zip 临时文件
type Builder struct {
	stagingDir string
	logger     *slog.Logger
	now        func() time.Time
}

// NewBuilder stagingDir 为临时文件目录；logger 可为 nil
func NewBuilder(stagingDir string, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Builder{stagingDir: stagingDir, logger: logger, now: time.Now}
}

// StagingPath 同一应用+账户的临时文件路径
func (b *Builder) StagingPath(appID, accountUID string) string {
	return filepath.Join(b.stagingDir, appID+"_"+accountUID+".zip.tmp")
}

// countingWriter 统计写入字节并同时计算整体哈希
type countingWriter struct {
	w    io.Writer
	h    *blake3.Hasher
	size int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	if n > 0 {
		c.size += int64(n)
		_, _ = c.h.Write(p[:n])
	}
	return n, err
}

// Build 遍历 fsys 写入 zip（deflate），末尾附加清单；返回的 Staging 已定位到文件开头。
// header 中的 AppID/AccountUID 等字段由调用方填写，FileHashes 等由 Build 计算。
func (b *Builder) Build(ctx context.Context, fsys fs.FS, header Manifest) (*Staging, error) {
	if err := os.MkdirAll(b.stagingDir, 0o755); err != nil {
		return nil, apperrors.E(apperrors.KindBuild, "mkdir", b.stagingDir, err)
	}
	path := b.StagingPath(header.AppID, header.AccountUID)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, apperrors.E(apperrors.KindBuild, "create", path, err)
	}
	fail := func(op string, err error) (*Staging, error) {
		_ = f.Close()
		_ = os.Remove(path)
		return nil, apperrors.E(apperrors.KindBuild, op, path, err)
	}

	cw := &countingWriter{w: f, h: blake3.New()}
	zw := zip.NewWriter(cw)
	manifest := header
	manifest.Version = ManifestVersion
	manifest.CreatedAt = b.now().UTC()
	manifest.FileHashes = make(map[string]string)

	walkErr := fs.WalkDir(fsys, ".", func(name string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if name == "." {
			return nil
		}
		if name == ManifestName {
			return fmt.Errorf("save data contains reserved name %s", ManifestName)
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		fh, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		fh.Name = name
		if d.IsDir() {
			fh.Name += "/"
			_, err = zw.CreateHeader(fh)
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		fh.Method = zip.Deflate
		w, err := zw.CreateHeader(fh)
		if err != nil {
			return err
		}
		src, err := fsys.Open(name)
		if err != nil {
			return err
		}
		defer src.Close()
		h := blake3.New()
		n, err := io.Copy(io.MultiWriter(w, h), src)
		if err != nil {
			return fmt.Errorf("copy %s: %w", name, err)
		}
		manifest.FileHashes[name] = hex.EncodeToString(h.Sum(nil))
		manifest.FileCount++
		manifest.TotalBytes += n
		return nil
	})
	if walkErr != nil {
		return fail("walk", walkErr)
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fail("manifest", err)
	}
	mw, err := zw.Create(ManifestName)
	if err != nil {
		return fail("manifest", err)
	}
	if _, err := mw.Write(data); err != nil {
		return fail("manifest", err)
	}
	if err := zw.Close(); err != nil {
		return fail("close zip", err)
	}
	if err := f.Sync(); err != nil {
		return fail("sync", err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return fail("seek", err)
	}
	b.logger.Info("save archive built",
		"staging", path, "files", manifest.FileCount, "bytes", cw.size)
	return &Staging{
		path:     path,
		file:     f,
		size:     cw.size,
		checksum: hex.EncodeToString(cw.h.Sum(nil)),
		manifest: manifest,
	}, nil
}
