/*
 * @module api/controllers/health_controller
 * @description 健康检查控制器，提供服务健康状态检查
 * @architecture MVC架构 - 控制器层
 * @documentReference ai_docs/requirements.md
 * @stateFlow HTTP请求处理流程
 * @rules 提供简单的健康检查接口，用于容器健康检查和负载均衡
 * @dependencies net/http
 * @refs service/monitoring
 */

package controllers

import (
	"net/http"
	"time"

	"dataquality-service/service/monitoring"

	"github.com/go-chi/render"
)

// HealthController 健康检查控制器
type HealthController struct {
	checker *monitoring.HealthChecker
}

// NewHealthController 创建健康检查控制器实例
func NewHealthController(checker *monitoring.HealthChecker) *HealthController {
	return &HealthController{checker: checker}
}

// HealthResponse 健康检查响应结构
type HealthResponse struct {
	Status    string    `json:"status" example:"ok"`
	Timestamp time.Time `json:"timestamp" example:"2024-01-01T00:00:00Z"`
	Version   string    `json:"version" example:"1.0.0"`
	Service   string    `json:"service" example:"dataquality-service"`
}

// Health 健康检查
// @Summary 健康检查
// @Description 检查服务健康状态
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /health [get]
func (c *HealthController) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Service:   "dataquality-service",
	}

	render.JSON(w, r, response)
}

// Ready 就绪检查
// @Summary 就绪检查
// @Description 检查服务是否就绪
// @Tags 系统
// @Produce json
// @Success 200 {object} HealthResponse
// @Router /ready [get]
func (c *HealthController) Ready(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   "1.0.0",
		Service:   "dataquality-service",
	}

	render.JSON(w, r, response)
}

// Detail 组件级健康详情
// @Summary 组件级健康详情
// @Description 逐项检查数据库、缓存与运行时状态，返回各组件得分与整体状态
// @Tags 系统
// @Produce json
// @Success 200 {object} APIResponse{data=monitoring.HealthStatus}
// @Router /health/detail [get]
func (c *HealthController) Detail(w http.ResponseWriter, r *http.Request) {
	if c.checker == nil {
		render.Render(w, r, ErrorResponse(http.StatusServiceUnavailable, "健康检查器未初始化", nil))
		return
	}

	status := c.checker.CheckOverallHealth(r.Context())
	render.Render(w, r, SuccessResponse("获取健康详情成功", status))
}
