// Package errors 提供统一错误辅助：Wrap/Wrapf 与按 Kind 标记的归档错误，集中渲染日志文本
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// 常用哨兵错误
var (
	ErrNotFound   = errors.New("not found")
	ErrInvalidArg = errors.New("invalid argument")
)

// Kind 归档流程中的错误类别；同一 Kind 的错误只在单个 ArchiveJob 内处理，不向监视循环外传播
type Kind int

const (
	KindUnknown Kind = iota
	// KindResolverUnavailable 身份/账户查询失败，下个 tick 重试
	KindResolverUnavailable
	// KindDirectory 目录创建失败（非「已存在」），降级继续
	KindDirectory
	// KindStreamRead 归档源读取故障，仅中止本次任务
	KindStreamRead
	// KindStreamWrite 目标写入失败，仅中止本次任务
	KindStreamWrite
	// KindFlush 目标刷盘失败，与写入失败区分上报
	KindFlush
	// KindNoActiveAccount 边沿触发但未解析到驱动账户，跳过归档（非错误路径）
	KindNoActiveAccount
	// KindSaveData 存档快照打开失败
	KindSaveData
	// KindBuild 归档构建（staging）失败
	KindBuild
)

var kindNames = map[Kind]string{
	KindUnknown:             "unknown",
	KindResolverUnavailable: "resolver_unavailable",
	KindDirectory:           "directory_error",
	KindStreamRead:          "stream_read_fault",
	KindStreamWrite:         "stream_write_fault",
	KindFlush:               "flush_fault",
	KindNoActiveAccount:     "no_active_account",
	KindSaveData:            "save_data_error",
	KindBuild:               "build_error",
}

// String 返回 Kind 的稳定名称（用于日志与 metrics label）
func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error 带类别、操作、路径与原始错误码的错误
type Error struct {
	Kind Kind
	Op   string // 失败的操作，如 "mkdir"、"write"、"flush"
	Path string // 相关路径，可为空
	Code int64  // 底层原始错误码（如 errno），0 表示无
	Err  error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Op != "" {
		b.WriteString(": ")
		b.WriteString(e.Op)
	}
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Code != 0 {
		fmt.Fprintf(&b, " (code 0x%x)", e.Code)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// E 构造 *Error
func E(kind Kind, op, path string, err error) *Error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

// WithCode 附加原始错误码
func (e *Error) WithCode(code int64) *Error {
	e.Code = code
	return e
}

// KindOf 返回 err 链中第一个 *Error 的 Kind；不存在时为 KindUnknown
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsKind 判断 err 链中是否包含指定 Kind
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Render 将任意错误渲染为单行日志文本；按 Kind 选择措辞，避免每个调用点重复拼接
func Render(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if !errors.As(err, &e) {
		return err.Error()
	}
	var subject string
	switch e.Kind {
	case KindResolverUnavailable:
		subject = "identity resolver unavailable"
	case KindDirectory:
		subject = "failed to create folder"
	case KindStreamRead:
		subject = "error reading archive data"
	case KindStreamWrite:
		subject = "failed to write archive"
	case KindFlush:
		subject = "failed to flush archive"
	case KindNoActiveAccount:
		subject = "no active account, skipping archive"
	case KindSaveData:
		subject = "failed to open save data"
	case KindBuild:
		subject = "failed to build archive"
	default:
		subject = "archive error"
	}
	var b strings.Builder
	b.WriteString(subject)
	if e.Path != "" {
		b.WriteString(" ")
		b.WriteString(e.Path)
	}
	if e.Code != 0 {
		fmt.Fprintf(&b, ": 0x%x", e.Code)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Wrap 包装错误并附加消息
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf 带格式的 Wrap
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is / As 透传标准库，便于调用方只引入本包
func Is(err, target error) bool { return errors.Is(err, target) }

func As(err error, target interface{}) bool { return errors.As(err, target) }

// New 透传 errors.New
func New(text string) error { return errors.New(text) }
