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

// Package savedata 以只读快照方式打开某应用+账户的存档数据
package savedata

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"autoback/internal/identity"
	"autoback/internal/naming"
	apperrors "autoback/pkg/errors"
)

var (
	// ErrNotFound 该应用+账户没有存档，跳过
	ErrNotFound = errors.New("savedata: no save data found")
	// ErrEmpty 存档根目录为空，跳过
	ErrEmpty = errors.New("savedata: save data is empty")
)

// Snapshot 只读存档视图，用完必须 Close
type Snapshot interface {
	FS() fs.FS
	// Entries 根目录条目数
	Entries() int
	Close() error
}

// Store 打开存档快照
type Store interface {
	Open(ctx context.Context, appID uint64, uid identity.AccountUID) (Snapshot, error)
}

// DirStore 目录布局 <root>/<UID-HEX32>/<APPID-HEX16>/
// Open 返回的是目录的实时视图，不是拷贝；平台桥接需在离开边沿之前停止写入该目录
type DirStore struct {
	root string
}

// NewDirStore 创建基于目录的 Store
func NewDirStore(root string) *DirStore {
	return &DirStore{root: root}
}

// Path 某应用+账户的存档目录
func (s *DirStore) Path(appID uint64, uid identity.AccountUID) string {
	return filepath.Join(s.root, uid.Hex(), naming.HexID(appID))
}

// Open 目录不存在返回 ErrNotFound，为空返回 ErrEmpty
func (s *DirStore) Open(ctx context.Context, appID uint64, uid identity.AccountUID) (Snapshot, error) {
	dir := s.Path(appID, uid)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, apperrors.E(apperrors.KindSaveData, "open", dir, err)
	}
	if len(entries) == 0 {
		return nil, ErrEmpty
	}
	return &dirSnapshot{fsys: os.DirFS(dir), entries: len(entries)}, nil
}

type dirSnapshot struct {
	fsys    fs.FS
	entries int
}

func (d *dirSnapshot) FS() fs.FS    { return d.fsys }
func (d *dirSnapshot) Entries() int { return d.entries }
func (d *dirSnapshot) Close() error { return nil }
