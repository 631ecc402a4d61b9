/*
 * @module service/monitoring/metrics
 * @description Prometheus指标定义，覆盖数据接入、质量任务执行、问题发现与报告生成
 * @architecture 分层架构 - 监控层
 * @documentReference ai_docs/quality_engine.md
 * @stateFlow 服务调用 -> 指标累加 -> /metrics 暴露
 * @rules 指标在包加载时注册到默认Registry，构建信息由启动流程显式注册一次
 * @dependencies github.com/prometheus/client_golang, github.com/prometheus/common
 * @refs service/ingest/, service/quality_task/, service/quality_report/, main.go
 */

package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/version"
)

var (
	// IngestedRecordsTotal 成功写入数据集的接入记录数，按来源统计
	IngestedRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dataquality_ingested_records_total",
		Help: "Number of records appended to datasets through streaming ingestion.",
	}, []string{"source"})

	// IngestDroppedTotal 解码或规整失败被丢弃的接入消息数，按来源统计
	IngestDroppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dataquality_ingest_dropped_total",
		Help: "Number of ingested messages dropped because they could not be decoded or mapped.",
	}, []string{"source"})

	// TaskExecutionsTotal 质量检测任务执行次数，按终态统计
	TaskExecutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dataquality_task_executions_total",
		Help: "Number of quality task executions by final status.",
	}, []string{"status"})

	// TaskDurationSeconds 质量检测任务执行耗时分布
	TaskDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "dataquality_task_duration_seconds",
		Help:    "Duration of quality task executions in seconds.",
		Buckets: prometheus.DefBuckets,
	})

	// IssuesFoundTotal 质量检测发现的问题记录数，按问题类型统计
	IssuesFoundTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dataquality_issues_found_total",
		Help: "Number of quality issues recorded by issue type.",
	}, []string{"issue_type"})

	// ReportsGeneratedTotal 生成的质量报告数，按评级统计
	ReportsGeneratedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "dataquality_reports_generated_total",
		Help: "Number of quality reports generated by grade.",
	}, []string{"grade"})
)

// RegisterBuildInfo 注册构建信息采集器，启动时调用一次
func RegisterBuildInfo() {
	prometheus.MustRegister(version.NewCollector("dataquality_service"))
}
