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
	"encoding/hex"
	"time"

	"github.com/zeebo/blake3"
)

// ManifestName 归档内清单文件名
const ManifestName = "autoback-manifest.json"

// ManifestVersion 清单格式版本
const ManifestVersion = "1.0"

// Manifest 归档清单：来源信息与每个存档文件的 BLAKE3
type Manifest struct {
	Version    string            `json:"version"`
	JobID      string            `json:"job_id,omitempty"`
	AppID      string            `json:"app_id"`
	AppName    string            `json:"app_name,omitempty"`
	AccountUID string            `json:"account_uid"`
	Nickname   string            `json:"nickname,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
	FileCount  int               `json:"file_count"`
	TotalBytes int64             `json:"total_bytes"`
	FileHashes map[string]string `json:"file_hashes"`
}

// ComputeHash BLAKE3 hex
func ComputeHash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
