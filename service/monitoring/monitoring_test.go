/*
 * @module service/monitoring/monitoring_test
 * @description 健康检查与Prometheus指标的单元测试
 * @architecture 测试层
 * @documentReference ai_docs/quality_engine.md
 * @stateFlow 构造检查器 -> 触发检查 -> 校验评分与状态
 * @rules 使用sqlite内存库验证数据库检查路径
 * @dependencies github.com/stretchr/testify, github.com/prometheus/client_golang
 * @refs service/monitoring/health_checker.go, service/monitoring/metrics.go
 */

package monitoring

import (
	"context"
	"errors"
	"testing"

	"dataquality-service/service/models"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckOverallHealth(t *testing.T) {
	testDB := models.NewModelTestDB()
	defer testDB.Close()

	checker := NewHealthChecker(testDB.DB)
	status := checker.CheckOverallHealth(context.Background())

	assert.Equal(t, "healthy", status.Overall)
	assert.GreaterOrEqual(t, status.Score, 80)
	require.Contains(t, status.Components, "database")
	require.Contains(t, status.Components, "runtime")
	assert.NotContains(t, status.Components, "cache")
	assert.Equal(t, "healthy", status.Components["database"].Status)
	assert.NotEmpty(t, status.Uptime)
}

func TestCheckOverallHealthCacheDegraded(t *testing.T) {
	testDB := models.NewModelTestDB()
	defer testDB.Close()

	checker := NewHealthChecker(testDB.DB)
	checker.SetCachePing(func(ctx context.Context) error {
		return errors.New("连接已断开")
	})

	status := checker.CheckOverallHealth(context.Background())

	require.Contains(t, status.Components, "cache")
	cache := status.Components["cache"]
	assert.Equal(t, "warning", cache.Status)
	assert.Equal(t, 50, cache.Score)
	assert.Contains(t, cache.ErrorMessage, "连接已断开")

	// 数据库和运行时健康时，缓存降级不应把整体拖到critical
	assert.NotEqual(t, "critical", status.Overall)
}

func TestCheckOverallHealthCacheHealthy(t *testing.T) {
	testDB := models.NewModelTestDB()
	defer testDB.Close()

	checker := NewHealthChecker(testDB.DB)
	checker.SetCachePing(func(ctx context.Context) error { return nil })

	status := checker.CheckOverallHealth(context.Background())

	require.Contains(t, status.Components, "cache")
	assert.Equal(t, "healthy", status.Components["cache"].Status)
	assert.Equal(t, "healthy", status.Overall)
}

func TestStatusFromScore(t *testing.T) {
	cases := []struct {
		name  string
		score int
		want  string
	}{
		{"满分", 100, "healthy"},
		{"健康下界", 80, "healthy"},
		{"警告上界", 79, "warning"},
		{"警告下界", 60, "warning"},
		{"严重", 59, "critical"},
		{"零分", 0, "critical"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, statusFromScore(tc.score))
		})
	}
}

func TestMetricsCounters(t *testing.T) {
	IngestedRecordsTotal.WithLabelValues("kafka").Add(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(IngestedRecordsTotal.WithLabelValues("kafka")))

	IngestDroppedTotal.WithLabelValues("mqtt").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(IngestDroppedTotal.WithLabelValues("mqtt")))

	TaskExecutionsTotal.WithLabelValues("completed").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(TaskExecutionsTotal.WithLabelValues("completed")))

	IssuesFoundTotal.WithLabelValues("missing_value").Add(5)
	assert.Equal(t, 5.0, testutil.ToFloat64(IssuesFoundTotal.WithLabelValues("missing_value")))

	ReportsGeneratedTotal.WithLabelValues("fair").Inc()
	assert.Equal(t, 1.0, testutil.ToFloat64(ReportsGeneratedTotal.WithLabelValues("fair")))

	TaskDurationSeconds.Observe(0.25)
	assert.Equal(t, 1, testutil.CollectAndCount(TaskDurationSeconds))
}
