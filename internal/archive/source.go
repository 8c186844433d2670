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
	"errors"
	"io"
)

// Source 拉取式字节源：Read 返回 (0, nil) 表示流结束，返回 error 表示读取故障
type Source interface {
	Read(buf []byte) (int, error)
}

// readerSource 将 io.Reader 适配为 Source：io.EOF 映射为 (0, nil)
type readerSource struct {
	r   io.Reader
	eof bool
}

// ReaderSource 将 io.Reader 包装为 Source
func ReaderSource(r io.Reader) Source {
	return &readerSource{r: r}
}

func (s *readerSource) Read(buf []byte) (int, error) {
	if s.eof || len(buf) == 0 {
		return 0, nil
	}
	for {
		n, err := s.r.Read(buf)
		if errors.Is(err, io.EOF) {
			s.eof = true
			return n, nil
		}
		if err != nil {
			return n, err
		}
		// io.Reader 允许 (0, nil)，这里不能把它当作流结束
		if n > 0 {
			return n, nil
		}
	}
}
