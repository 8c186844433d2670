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
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/zeebo/blake3"
)

// VerifyResult 归档校验结果
type VerifyResult struct {
	OK            bool      `json:"ok"`
	ManifestValid bool      `json:"manifest_valid"`
	Files         int       `json:"files"`
	Manifest      *Manifest `json:"manifest,omitempty"`
	Errors        []string  `json:"errors"`
}

func (r *VerifyResult) fail(format string, args ...interface{}) {
	r.OK = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// VerifyFile 打开 zip 文件并按清单校验每个条目的 BLAKE3
func VerifyFile(path string) VerifyResult {
	zr, err := zip.OpenReader(path)
	if err != nil {
		result := VerifyResult{OK: true, Errors: []string{}}
		result.fail("failed to read zip: %v", err)
		return result
	}
	defer zr.Close()
	return verifyZip(&zr.Reader)
}

// Verify 校验 r 中的 zip 归档
func Verify(r io.ReaderAt, size int64) VerifyResult {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		result := VerifyResult{OK: true, Errors: []string{}}
		result.fail("failed to read zip: %v", err)
		return result
	}
	return verifyZip(zr)
}

func verifyZip(zr *zip.Reader) VerifyResult {
	result := VerifyResult{OK: true, Errors: []string{}}

	hashes := make(map[string]string)
	var manifestData []byte
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			result.fail("failed to open %s: %v", f.Name, err)
			continue
		}
		if f.Name == ManifestName {
			manifestData, err = io.ReadAll(rc)
		} else {
			h := blake3.New()
			_, err = io.Copy(h, rc)
			hashes[f.Name] = hex.EncodeToString(h.Sum(nil))
		}
		rc.Close()
		if err != nil {
			result.fail("failed to read %s: %v", f.Name, err)
		}
	}
	result.Files = len(hashes)

	if manifestData == nil {
		result.fail("%s not found", ManifestName)
		return result
	}
	var manifest Manifest
	if err := json.Unmarshal(manifestData, &manifest); err != nil {
		result.fail("failed to parse manifest: %v", err)
		return result
	}
	result.ManifestValid = true
	result.Manifest = &manifest

	names := make([]string, 0, len(manifest.FileHashes))
	for name := range manifest.FileHashes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		expected := manifest.FileHashes[name]
		actual, ok := hashes[name]
		if !ok {
			result.fail("file %s declared in manifest but not found in zip", name)
			continue
		}
		if actual != expected {
			result.fail("file hash mismatch for %s: expected %s, got %s", name, expected, actual)
		}
	}
	for name := range hashes {
		if _, ok := manifest.FileHashes[name]; !ok {
			result.fail("file %s not declared in manifest", name)
		}
	}
	return result
}
