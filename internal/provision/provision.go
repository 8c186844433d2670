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

// Package provision 维护 <root>/<user>/<app> 目录层级
package provision

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"

	"autoback/internal/identity"
	"autoback/internal/naming"
	apperrors "autoback/pkg/errors"
	"autoback/pkg/metrics"
)

// Outcome 目录创建结果
type Outcome int

const (
	Created Outcome = iota + 1
	AlreadyExists
)

func (o Outcome) String() string {
	switch o {
	case Created:
		return "created"
	case AlreadyExists:
		return "exists"
	default:
		return "unknown"
	}
}

const defaultPerm fs.FileMode = 0o755

// Provisioner 幂等创建目录；失败时返回带路径与原始错误码的 KindDirectory 错误
type Provisioner struct {
	perm   fs.FileMode
	logger *slog.Logger
}

// New 创建 Provisioner；logger 可为 nil
func New(logger *slog.Logger) *Provisioner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Provisioner{perm: defaultPerm, logger: logger}
}

// EnsureDir 创建 path（含缺失的上级目录）；已存在返回 AlreadyExists
func (p *Provisioner) EnsureDir(path string) (Outcome, error) {
	out, err := p.ensureDir(path)
	if err != nil {
		metrics.ProvisionTotal.WithLabelValues("failed").Inc()
	} else {
		metrics.ProvisionTotal.WithLabelValues(out.String()).Inc()
	}
	return out, err
}

func (p *Provisioner) ensureDir(path string) (Outcome, error) {
	err := os.Mkdir(path, p.perm)
	switch {
	case err == nil:
		return Created, nil
	case errors.Is(err, fs.ErrExist):
		info, statErr := os.Stat(path)
		if statErr == nil && info.IsDir() {
			return AlreadyExists, nil
		}
		return 0, dirError(path, err)
	case errors.Is(err, fs.ErrNotExist):
		if err := os.MkdirAll(path, p.perm); err != nil {
			return 0, dirError(path, err)
		}
		return Created, nil
	default:
		return 0, dirError(path, err)
	}
}

func dirError(path string, err error) *apperrors.Error {
	e := apperrors.E(apperrors.KindDirectory, "mkdir", path, err)
	var errno syscall.Errno
	if errors.As(err, &errno) {
		e.WithCode(int64(errno))
	}
	return e
}

// EnsureArchiveDirs 依次确保 <root>/<user> 与 <root>/<user>/<app> 存在；
// 两次调用互不影响，返回应用目录路径与第一个错误
func (p *Provisioner) EnsureArchiveDirs(root, userFolder, appFolder string) (string, error) {
	userDir := filepath.Join(root, userFolder)
	appDir := filepath.Join(userDir, appFolder)
	var first error
	for _, dir := range []string{userDir, appDir} {
		out, err := p.EnsureDir(dir)
		if err != nil {
			p.logger.Warn(apperrors.Render(err))
			if first == nil {
				first = err
			}
			continue
		}
		if out == Created {
			p.logger.Info("created folder", "path", dir)
		}
	}
	return appDir, first
}

// EnsureAppDirs 为每个已知账户创建 <root>/<user>/<app>；单个失败只记录并继续，返回第一个错误
func (p *Provisioner) EnsureAppDirs(ctx context.Context, root, appFolder string, dir identity.Directory) error {
	if dir == nil {
		return nil
	}
	accounts, err := dir.Accounts(ctx)
	if err != nil {
		p.logger.Warn("failed to list users", "error", apperrors.Render(err))
		return err
	}
	var first error
	for _, acc := range accounts {
		path := filepath.Join(root, naming.UserFolderName(acc.Nickname), appFolder)
		out, err := p.EnsureDir(path)
		if err != nil {
			p.logger.Warn(apperrors.Render(err))
			if first == nil {
				first = err
			}
			continue
		}
		if out == Created {
			p.logger.Info("created folder", "path", path)
		}
	}
	return first
}

// Sweep 启动时创建 root 及每个已知账户的用户目录，逐个记录结果
func (p *Provisioner) Sweep(ctx context.Context, root string, dir identity.Directory) {
	switch out, err := p.EnsureDir(root); {
	case err != nil:
		p.logger.Error(apperrors.Render(err))
	case out == Created:
		p.logger.Info("backup root created", "path", root)
	default:
		p.logger.Info("backup root already exists", "path", root)
	}
	if dir == nil {
		return
	}
	accounts, err := dir.Accounts(ctx)
	if err != nil {
		p.logger.Error("failed to list users", "error", apperrors.Render(err))
		return
	}
	for _, acc := range accounts {
		path := filepath.Join(root, naming.UserFolderName(acc.Nickname))
		out, err := p.EnsureDir(path)
		switch {
		case err != nil:
			p.logger.Warn(apperrors.Render(err))
		case out == Created:
			p.logger.Info("created user folder", "path", path)
		default:
			p.logger.Info("user folder already exists", "path", path)
		}
	}
}
