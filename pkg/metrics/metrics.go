package metrics

import (
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// 全局 Registry，供守护进程与管理接口注册与暴露
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	DefaultRegistry.MustRegister(
		ArchiveDuration, ArchiveTotal, ArchiveBytesTotal,
		EdgeTotal, ResolverErrorsTotal, ProvisionTotal,
		RetentionDeletedTotal, MonitorTracking,
	)
}

// ArchiveDuration 单个归档任务耗时（秒）
var ArchiveDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "autoback_archive_duration_seconds",
		Help:    "归档任务耗时（秒）",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"status"},
)

// ArchiveTotal 归档任务总数（按状态）
var ArchiveTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "autoback_archive_total",
		Help: "归档任务总数（按状态）",
	},
	[]string{"status"}, // completed | failed | skipped
)

// ArchiveBytesTotal 写入输出卷的字节数
var ArchiveBytesTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "autoback_archive_bytes_total",
		Help: "写入输出卷的归档字节总数",
	},
)

// EdgeTotal 检测到的会话边沿数
var EdgeTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "autoback_session_edges_total",
		Help: "检测到的会话切换次数",
	},
	[]string{"kind"}, // departure | arrival
)

// ResolverErrorsTotal 身份解析失败次数
var ResolverErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "autoback_resolver_errors_total",
		Help: "身份解析失败次数",
	},
	[]string{"op"}, // active_application | driving_account | display_name
)

// ProvisionTotal 目录创建结果
var ProvisionTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "autoback_provision_total",
		Help: "目录创建结果计数",
	},
	[]string{"outcome"}, // created | exists | failed
)

// RetentionDeletedTotal 保留策略删除的归档数
var RetentionDeletedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "autoback_retention_deleted_total",
		Help: "保留策略删除的归档文件数",
	},
)

// MonitorTracking 当前是否在跟踪某个应用（0/1）
var MonitorTracking = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "autoback_monitor_tracking",
		Help: "会话监视器是否处于 Tracking 状态",
	},
)

// WritePrometheus 将 Prometheus 文本格式写入 w（供 Hertz 等复用）
func WritePrometheus(w io.Writer) error {
	metrics, err := DefaultRegistry.Gather()
	if err != nil {
		return err
	}
	enc := expfmt.NewEncoder(w, expfmt.FmtText)
	for _, mf := range metrics {
		if err := enc.Encode(mf); err != nil {
			return err
		}
	}
	return nil
}
