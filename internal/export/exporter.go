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

// Package export 端到端执行单个归档任务：目录 → 存档快照 → 暂存 zip → 流式写出 → 记录
package export

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"autoback/internal/archive"
	"autoback/internal/history"
	"autoback/internal/identity"
	"autoback/internal/monitor"
	"autoback/internal/naming"
	"autoback/internal/notify"
	"autoback/internal/savedata"
	apperrors "autoback/pkg/errors"
	"autoback/pkg/metrics"
	"autoback/pkg/tracing"
)

// DirProvisioner 创建 <root>/<user>/<app>；EnsureAppDirs 覆盖全部已知账户
type DirProvisioner interface {
	EnsureAppDirs(ctx context.Context, root, appFolder string, dir identity.Directory) error
	EnsureArchiveDirs(root, userFolder, appFolder string) (string, error)
}

// ArchiveBuilder 生成暂存 zip
type ArchiveBuilder interface {
	Build(ctx context.Context, fsys fs.FS, header archive.Manifest) (*archive.Staging, error)
}

// ArchiveStreamer 将暂存 zip 写到输出卷
type ArchiveStreamer interface {
	Stream(ctx context.Context, src archive.Source, destination string) (archive.Result, error)
}

// Pruner 归档完成后清理应用目录
type Pruner interface {
	Prune(ctx context.Context, dir string) (int, error)
}

// Options Exporter 依赖；Names/Accounts/History/Notifier/Pruner 可为 nil。
// Accounts 为空且 Names 实现了 identity.Directory 时使用 Names
type Options struct {
	Root        string
	Names       identity.Resolver
	Accounts    identity.Directory
	Provisioner DirProvisioner
	Saves       savedata.Store
	Builder     ArchiveBuilder
	Streamer    ArchiveStreamer
	History     history.Store
	Notifier    notify.Notifier
	Pruner      Pruner
	Logger      *slog.Logger
}

// Exporter 实现 monitor.JobRunner
type Exporter struct {
	root        string
	names       identity.Resolver
	accounts    identity.Directory
	provisioner DirProvisioner
	saves       savedata.Store
	builder     ArchiveBuilder
	streamer    ArchiveStreamer
	history     history.Store
	notifier    notify.Notifier
	pruner      Pruner
	logger      *slog.Logger
	now         func() time.Time
}

var _ monitor.JobRunner = (*Exporter)(nil)

// New 创建 Exporter
func New(opts Options) *Exporter {
	e := &Exporter{
		root:        opts.Root,
		names:       opts.Names,
		accounts:    opts.Accounts,
		provisioner: opts.Provisioner,
		saves:       opts.Saves,
		builder:     opts.Builder,
		streamer:    opts.Streamer,
		history:     opts.History,
		notifier:    opts.Notifier,
		pruner:      opts.Pruner,
		logger:      opts.Logger,
		now:         time.Now,
	}
	if e.accounts == nil {
		if d, ok := opts.Names.(identity.Directory); ok {
			e.accounts = d
		}
	}
	if e.notifier == nil {
		e.notifier = notify.Noop{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// outcome 单次导出的结果
type outcome struct {
	status history.Status
	result archive.Result
	err    error
}

// Run 执行一个归档任务。所有错误都在任务内消化（记录、计数、通知），返回值仅供调用方记日志。
func (e *Exporter) Run(ctx context.Context, job monitor.ArchiveJob) error {
	started := e.now()
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Timestamp.IsZero() {
		job.Timestamp = started
	}

	ctx, span := tracing.StartArchiveSpan(ctx, job.ID, job.Application.Hex(), job.Account.Nickname)

	if job.Application.DisplayName == "" {
		job.Application.DisplayName = e.displayName(ctx, job.Application)
	}
	userFolder := naming.UserFolderName(job.Account.Nickname)
	appFolder := naming.FolderName(job.Application.ID, job.Application.DisplayName)
	appDir := filepath.Join(e.root, userFolder, appFolder)
	// 文件名使用本地时间
	job.OutputPath = filepath.Join(appDir, naming.ArchiveFileName(job.Application.ID, job.Timestamp.Local()))

	nj := notify.Job{
		ID:         job.ID,
		AppID:      job.Application.Hex(),
		AppName:    job.Application.DisplayName,
		Nickname:   job.Account.Nickname,
		OutputPath: job.OutputPath,
	}
	e.notifier.Begin(ctx, nj)

	out := e.export(ctx, job, userFolder, appFolder)
	finished := e.now()

	metrics.ArchiveTotal.WithLabelValues(string(out.status)).Inc()
	metrics.ArchiveDuration.WithLabelValues(string(out.status)).Observe(finished.Sub(started).Seconds())
	if out.status == history.StatusCompleted {
		metrics.ArchiveBytesTotal.Add(float64(out.result.Bytes))
	}
	e.record(ctx, job, out, started, finished)
	nj.Skipped = out.status == history.StatusSkipped
	e.notifier.End(ctx, nj, out.err)
	tracing.EndSpan(span, out.err)

	switch out.status {
	case history.StatusCompleted:
		e.logger.Info("archive written",
			"job_id", job.ID,
			"path", job.OutputPath,
			"size", humanize.IBytes(uint64(out.result.Bytes)),
			"blake3", out.result.Checksum,
		)
		e.prune(ctx, appDir)
	case history.StatusFailed:
		e.logger.Error("archive failed", "job_id", job.ID, "path", job.OutputPath, "error", apperrors.Render(out.err))
	}
	return out.err
}

func (e *Exporter) displayName(ctx context.Context, app identity.ApplicationIdentity) string {
	if e.names == nil {
		return ""
	}
	name, err := e.names.DisplayName(ctx, app)
	if err != nil {
		metrics.ResolverErrorsTotal.WithLabelValues("display_name").Inc()
		e.logger.Warn("display name unavailable, using hex id", "app_id", app.Hex(), "error", err)
		return ""
	}
	return name
}

func (e *Exporter) export(ctx context.Context, job monitor.ArchiveJob, userFolder, appFolder string) outcome {
	// 目录创建失败只降级，真正无法写入时由流式写出报告
	if e.provisioner != nil {
		pctx, span := tracing.StartStepSpan(ctx, "provision")
		if err := e.provisioner.EnsureAppDirs(pctx, e.root, appFolder, e.accounts); err != nil {
			e.logger.Warn("app folder provisioning incomplete for some users", "job_id", job.ID, "error", apperrors.Render(err))
		}
		_, err := e.provisioner.EnsureArchiveDirs(e.root, userFolder, appFolder)
		tracing.EndSpan(span, err)
		if err != nil {
			e.logger.Warn("folder provisioning degraded, attempting write anyway", "job_id", job.ID, "error", apperrors.Render(err))
		}
	}

	snap, err := e.saves.Open(ctx, job.Application.ID, job.Account.UID)
	switch {
	case errors.Is(err, savedata.ErrNotFound):
		e.logger.Info("no save data found, skipping", "job_id", job.ID, "app_id", job.Application.Hex())
		return outcome{status: history.StatusSkipped}
	case errors.Is(err, savedata.ErrEmpty):
		e.logger.Info("skipping empty save archive", "job_id", job.ID, "app_id", job.Application.Hex())
		return outcome{status: history.StatusSkipped}
	case err != nil:
		return outcome{status: history.StatusFailed, err: err}
	}
	defer func() {
		if cerr := snap.Close(); cerr != nil {
			e.logger.Warn("close save snapshot failed", "job_id", job.ID, "error", cerr)
		}
	}()

	bctx, bspan := tracing.StartStepSpan(ctx, "build")
	staging, err := e.builder.Build(bctx, snap.FS(), archive.Manifest{
		JobID:      job.ID,
		AppID:      job.Application.Hex(),
		AppName:    job.Application.DisplayName,
		AccountUID: job.Account.UID.Hex(),
		Nickname:   job.Account.Nickname,
		CreatedAt:  job.Timestamp,
	})
	tracing.EndSpan(bspan, err)
	if err != nil {
		return outcome{status: history.StatusFailed, err: err}
	}

	if _, statErr := os.Stat(job.OutputPath); statErr == nil {
		e.logger.Warn("archive already exists, appending", "path", job.OutputPath)
	}

	sctx, sspan := tracing.StartStepSpan(ctx, "stream")
	res, err := e.streamer.Stream(sctx, staging.Source(), job.OutputPath)
	tracing.EndSpan(sspan, err)
	// 暂存文件只在流式写出返回后释放
	if rerr := staging.Release(); rerr != nil {
		e.logger.Warn("release staging archive failed", "path", staging.Path(), "error", rerr)
	}
	if err != nil {
		return outcome{status: history.StatusFailed, result: res, err: err}
	}
	if res.Checksum != staging.Checksum() || res.Bytes != staging.Size() {
		err := apperrors.E(apperrors.KindStreamWrite, "verify", job.OutputPath,
			fmt.Errorf("streamed %d bytes blake3 %s, staged %d bytes blake3 %s",
				res.Bytes, res.Checksum, staging.Size(), staging.Checksum()))
		return outcome{status: history.StatusFailed, result: res, err: err}
	}
	return outcome{status: history.StatusCompleted, result: res}
}

func (e *Exporter) record(ctx context.Context, job monitor.ArchiveJob, out outcome, started, finished time.Time) {
	if e.history == nil {
		return
	}
	rec := history.JobRecord{
		JobID:      job.ID,
		AppID:      job.Application.Hex(),
		AppName:    job.Application.DisplayName,
		AccountUID: job.Account.UID.Hex(),
		Nickname:   job.Account.Nickname,
		OutputPath: job.OutputPath,
		Status:     out.status,
		Bytes:      out.result.Bytes,
		Checksum:   out.result.Checksum,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if out.err != nil {
		rec.Error = apperrors.Render(out.err)
	}
	if err := e.history.Record(ctx, rec); err != nil {
		e.logger.Warn("record job history failed", "job_id", job.ID, "error", err)
	}
}

func (e *Exporter) prune(ctx context.Context, appDir string) {
	if e.pruner == nil {
		return
	}
	n, err := e.pruner.Prune(ctx, appDir)
	if n > 0 {
		metrics.RetentionDeletedTotal.Add(float64(n))
		e.logger.Info("retention pruned archives", "dir", appDir, "deleted", n)
	}
	if err != nil {
		e.logger.Warn("retention prune failed", "dir", appDir, "error", err)
	}
}
