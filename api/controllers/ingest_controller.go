/*
 * @module api/controllers/ingest_controller
 * @description 数据接入控制器，提供数据集与消息主题的订阅绑定管理API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/quality_engine.md
 * @stateFlow HTTP请求 -> 业务逻辑处理 -> 响应返回
 * @rules 订阅创建即启动消费，来源未注册时订阅保留待来源恢复
 * @dependencies dataquality-service/service/ingest, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/ingest/, client/connectors/
 */

package controllers

import (
	"net/http"

	"dataquality-service/service/ingest"
	"dataquality-service/service/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// IngestController 数据接入控制器
type IngestController struct {
	ingestService *ingest.IngestService
}

// NewIngestController 创建数据接入控制器实例
func NewIngestController(ingestService *ingest.IngestService) *IngestController {
	return &IngestController{ingestService: ingestService}
}

// CreateSubscription 创建接入订阅
// @Summary 创建接入订阅
// @Description 绑定数据集与Kafka/MQTT主题并启动消费
// @Tags 数据接入
// @Accept json
// @Produce json
// @Param subscription body models.IngestSubscription true "订阅信息"
// @Success 200 {object} APIResponse{data=models.IngestSubscription}
// @Failure 400 {object} APIResponse "订阅配置错误"
// @Router /ingest/subscriptions [post]
func (c *IngestController) CreateSubscription(w http.ResponseWriter, r *http.Request) {
	var sub models.IngestSubscription
	if err := render.DecodeJSON(r.Body, &sub); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	if err := c.ingestService.CreateSubscription(&sub); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "创建接入订阅失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("创建接入订阅成功", sub))
}

// GetSubscriptions 获取接入订阅列表
// @Summary 获取接入订阅列表
// @Tags 数据接入
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页大小" default(10)
// @Param dataset_id query string false "数据集过滤"
// @Param source query string false "来源过滤: kafka, mqtt"
// @Success 200 {object} PaginatedResponse{data=[]models.IngestSubscription}
// @Router /ingest/subscriptions [get]
func (c *IngestController) GetSubscriptions(w http.ResponseWriter, r *http.Request) {
	page, size := parsePagination(r)
	datasetID := r.URL.Query().Get("dataset_id")
	source := r.URL.Query().Get("source")

	subscriptions, total, err := c.ingestService.GetSubscriptions(page, size, datasetID, source)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "获取接入订阅列表失败", err))
		return
	}

	render.Render(w, r, PaginatedSuccessResponse("获取接入订阅列表成功", subscriptions, total, page, size))
}

// StartSubscription 启动订阅消费
// @Summary 启动订阅消费
// @Tags 数据接入
// @Produce json
// @Param id path string true "订阅ID"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse "订阅来源不可用"
// @Router /ingest/subscriptions/{id}/start [post]
func (c *IngestController) StartSubscription(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := c.ingestService.StartSubscription(id); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "启动订阅失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("订阅已启动", nil))
}

// StopSubscription 停止订阅消费
// @Summary 停止订阅消费
// @Tags 数据接入
// @Produce json
// @Param id path string true "订阅ID"
// @Success 200 {object} APIResponse
// @Router /ingest/subscriptions/{id}/stop [post]
func (c *IngestController) StopSubscription(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := c.ingestService.StopSubscription(id); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "停止订阅失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("订阅已停止", nil))
}

// DeleteSubscription 删除接入订阅
// @Summary 删除接入订阅
// @Description 停止消费并删除订阅
// @Tags 数据接入
// @Produce json
// @Param id path string true "订阅ID"
// @Success 200 {object} APIResponse
// @Router /ingest/subscriptions/{id} [delete]
func (c *IngestController) DeleteSubscription(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := c.ingestService.DeleteSubscription(id); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "删除订阅失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("删除订阅成功", nil))
}
