/*
 * @module service/monitoring/health_checker
 * @description 健康检查器，检查数据库、缓存与运行时状态并计算健康评分
 * @architecture 分层架构 - 监控层
 * @documentReference ai_docs/quality_engine.md
 * @stateFlow 组件检测 -> 评分计算 -> 整体状态聚合
 * @rules 缓存不可用降级为warning而非critical，报告读取有数据库兜底
 * @dependencies gorm.io/gorm
 * @refs api/controllers/health_controller.go, service/init.go
 */

package monitoring

import (
	"context"
	"runtime"
	"sync"
	"time"

	"gorm.io/gorm"
)

// HealthChecker 健康检查器
type HealthChecker struct {
	db        *gorm.DB
	cachePing func(ctx context.Context) error
	startedAt time.Time
	mutex     sync.RWMutex
}

// HealthStatus 整体健康状态
type HealthStatus struct {
	Overall    string                      `json:"overall"` // healthy, warning, critical
	Score      int                         `json:"score"`   // 健康评分 0-100
	Timestamp  time.Time                   `json:"timestamp"`
	Uptime     string                      `json:"uptime"`
	Components map[string]*ComponentHealth `json:"components"` // 组件健康状态
}

// ComponentHealth 组件健康状态
type ComponentHealth struct {
	Name         string        `json:"name"`
	Status       string        `json:"status"` // healthy, warning, critical
	Score        int           `json:"score"`  // 0-100
	LastChecked  time.Time     `json:"last_checked"`
	ResponseTime time.Duration `json:"response_time"`
	ErrorMessage string        `json:"error_message,omitempty"`
}

// NewHealthChecker 创建健康检查器实例
func NewHealthChecker(db *gorm.DB) *HealthChecker {
	return &HealthChecker{
		db:        db,
		startedAt: time.Now(),
	}
}

// SetCachePing 注入缓存连通性探测，未注入时跳过缓存检查
func (h *HealthChecker) SetCachePing(ping func(ctx context.Context) error) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	h.cachePing = ping
}

// CheckOverallHealth 执行全部组件检查并聚合整体状态
func (h *HealthChecker) CheckOverallHealth(ctx context.Context) *HealthStatus {
	status := &HealthStatus{
		Timestamp:  time.Now(),
		Uptime:     time.Since(h.startedAt).Round(time.Second).String(),
		Components: make(map[string]*ComponentHealth),
	}

	status.Components["database"] = h.checkDatabase(ctx)
	status.Components["runtime"] = h.checkRuntime()

	h.mutex.RLock()
	ping := h.cachePing
	h.mutex.RUnlock()
	if ping != nil {
		status.Components["cache"] = h.checkCache(ctx, ping)
	}

	total := 0
	for _, component := range status.Components {
		total += component.Score
	}
	status.Score = total / len(status.Components)
	status.Overall = statusFromScore(status.Score)

	return status
}

// checkDatabase 检查数据库连通性与响应时间
func (h *HealthChecker) checkDatabase(ctx context.Context) *ComponentHealth {
	health := &ComponentHealth{
		Name:        "database",
		LastChecked: time.Now(),
	}

	start := time.Now()
	sqlDB, err := h.db.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx)
	}
	health.ResponseTime = time.Since(start)

	if err != nil {
		health.Status = "critical"
		health.Score = 0
		health.ErrorMessage = err.Error()
		return health
	}

	switch {
	case health.ResponseTime < 100*time.Millisecond:
		health.Score = 100
	case health.ResponseTime < 500*time.Millisecond:
		health.Score = 80
	default:
		health.Score = 60
	}
	health.Status = statusFromScore(health.Score)
	return health
}

// checkCache 检查缓存连通性，缓存故障降级为warning
func (h *HealthChecker) checkCache(ctx context.Context, ping func(ctx context.Context) error) *ComponentHealth {
	health := &ComponentHealth{
		Name:        "cache",
		LastChecked: time.Now(),
	}

	start := time.Now()
	err := ping(ctx)
	health.ResponseTime = time.Since(start)

	if err != nil {
		health.Status = "warning"
		health.Score = 50
		health.ErrorMessage = err.Error()
		return health
	}

	health.Status = "healthy"
	health.Score = 100
	return health
}

// checkRuntime 检查Go运行时状态
func (h *HealthChecker) checkRuntime() *ComponentHealth {
	health := &ComponentHealth{
		Name:        "runtime",
		LastChecked: time.Now(),
	}

	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	goroutines := runtime.NumGoroutine()
	switch {
	case goroutines < 1000:
		health.Score = 100
	case goroutines < 5000:
		health.Score = 70
	default:
		health.Score = 40
	}
	health.Status = statusFromScore(health.Score)
	return health
}

// statusFromScore 评分到状态的映射
func statusFromScore(score int) string {
	switch {
	case score >= 80:
		return "healthy"
	case score >= 60:
		return "warning"
	default:
		return "critical"
	}
}
