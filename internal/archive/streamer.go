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
	"fmt"
	"io"
	"log/slog"

	"github.com/dustin/go-humanize"
	"github.com/zeebo/blake3"

	apperrors "autoback/pkg/errors"
	"autoback/pkg/utils"
)

const (
	// DefaultChunkSize 参考分块大小 8 KiB
	DefaultChunkSize = 8 * 1024
	// MaxChunkSize 分块上限，保证缓冲区有界
	MaxChunkSize = 1 << 20

	progressStep = 1 << 20
)

// Result 一次流式写入的结果
type Result struct {
	Bytes    int64
	Checksum string // 写入字节的 BLAKE3（hex）
}

// Streamer 将 Source 按块顺序追加到目标文件
type Streamer struct {
	vol       Volume
	chunkSize int
	logger    *slog.Logger
}

// NewStreamer chunkSize<=0 时使用 DefaultChunkSize，超过 MaxChunkSize 时截断；logger 可为 nil
func NewStreamer(vol Volume, chunkSize int, logger *slog.Logger) *Streamer {
	if vol == nil {
		vol = OSVolume{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	chunkSize = utils.ClampInt(utils.DefaultInt(chunkSize, DefaultChunkSize), 1, MaxChunkSize)
	return &Streamer{vol: vol, chunkSize: chunkSize, logger: logger}
}

// ChunkSize 实际使用的分块大小
func (s *Streamer) ChunkSize() int {
	return s.chunkSize
}

// Stream 读到 (0, nil) 为止，逐块追加写入 destination，完成后 Sync 再 Close。
// 任何路径上句柄都只释放一次；读取故障前已写入的块保留在目标中。
func (s *Streamer) Stream(ctx context.Context, src Source, destination string) (res Result, err error) {
	s.logger.Info("starting streaming", "path", destination)

	h, err := s.vol.OpenAppend(destination)
	if err != nil {
		return res, apperrors.E(apperrors.KindStreamWrite, "open", destination, err)
	}
	released := false
	release := func() error {
		if released {
			return nil
		}
		released = true
		return h.Close()
	}
	defer func() {
		if cerr := release(); cerr != nil && err == nil {
			err = apperrors.E(apperrors.KindStreamWrite, "close", destination, cerr)
		}
	}()

	hasher := blake3.New()
	buf := make([]byte, s.chunkSize)
	nextProgress := int64(progressStep)
	for {
		n, rerr := src.Read(buf)
		if rerr != nil {
			return res, apperrors.E(apperrors.KindStreamRead, "read", destination, rerr)
		}
		if n < 0 || n > len(buf) {
			return res, apperrors.E(apperrors.KindStreamRead, "read", destination,
				fmt.Errorf("invalid read count %d", n))
		}
		if n == 0 {
			break
		}
		w, werr := h.Write(buf[:n])
		if werr == nil && w != n {
			werr = io.ErrShortWrite
		}
		if w > 0 {
			res.Bytes += int64(w)
			_, _ = hasher.Write(buf[:w])
		}
		if werr != nil {
			return res, apperrors.E(apperrors.KindStreamWrite, "write", destination,
				fmt.Errorf("tried to write %d bytes at offset %d: %w", n, res.Bytes-int64(w), werr))
		}
		if res.Bytes >= nextProgress {
			s.logger.Info("streaming progress", "path", destination, "written", humanize.IBytes(uint64(res.Bytes)))
			nextProgress = (res.Bytes/progressStep + 1) * progressStep
		}
	}

	if ferr := h.Sync(); ferr != nil {
		return res, apperrors.E(apperrors.KindFlush, "flush", destination,
			fmt.Errorf("total bytes written %d: %w", res.Bytes, ferr))
	}
	if cerr := release(); cerr != nil {
		return res, apperrors.E(apperrors.KindStreamWrite, "close", destination, cerr)
	}
	res.Checksum = hex.EncodeToString(hasher.Sum(nil))
	s.logger.Info("streaming completed", "path", destination, "bytes", res.Bytes, "size", humanize.IBytes(uint64(res.Bytes)))
	return res, nil
}
