/*
 * @module api/controllers/sharing_controller
 * @description 数据共享控制器，提供API密钥签发、查询、更新与吊销API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/sharing.md
 * @stateFlow HTTP请求 -> 业务逻辑处理 -> 响应返回
 * @rules 密钥明文只在签发响应中返回一次，之后任何接口不再可见
 * @dependencies dataquality-service/service/sharing, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/sharing/
 */

package controllers

import (
	"net/http"
	"time"

	"dataquality-service/service/sharing"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// SharingController 数据共享控制器
type SharingController struct {
	sharingService *sharing.SharingService
}

// NewSharingController 创建数据共享控制器实例
func NewSharingController(sharingService *sharing.SharingService) *SharingController {
	return &SharingController{sharingService: sharingService}
}

// CreateApiKeyRequest API密钥签发请求
type CreateApiKeyRequest struct {
	Name        string     `json:"name" example:"报表平台"`
	Description string     `json:"description"`
	Scopes      []string   `json:"scopes"`      // datasets:read, reports:read
	DatasetIDs  []string   `json:"dataset_ids"` // 可访问数据集，空表示全部
	ExpiresAt   *time.Time `json:"expires_at"`
}

// CreateApiKey 签发API密钥
// @Summary 签发API密钥
// @Description 签发新密钥，明文仅在本次响应中返回
// @Tags 数据共享
// @Accept json
// @Produce json
// @Param request body CreateApiKeyRequest true "签发请求"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse "请求参数错误"
// @Router /sharing/api-keys [post]
func (c *SharingController) CreateApiKey(w http.ResponseWriter, r *http.Request) {
	var req CreateApiKeyRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	apiKey, plainKey, err := c.sharingService.CreateApiKey(req.Name, req.Description, req.Scopes, req.DatasetIDs, req.ExpiresAt)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "签发API密钥失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("签发API密钥成功", map[string]interface{}{
		"api_key":   apiKey,
		"key_value": plainKey, // 明文仅此一次
	}))
}

// GetApiKeys 获取API密钥列表
// @Summary 获取API密钥列表
// @Tags 数据共享
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页大小" default(10)
// @Param status query string false "状态过滤: active, inactive, revoked"
// @Success 200 {object} PaginatedResponse{data=[]models.ApiKey}
// @Router /sharing/api-keys [get]
func (c *SharingController) GetApiKeys(w http.ResponseWriter, r *http.Request) {
	page, size := parsePagination(r)
	status := r.URL.Query().Get("status")

	keys, total, err := c.sharingService.GetApiKeys(page, size, status)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "获取API密钥列表失败", err))
		return
	}

	render.Render(w, r, PaginatedSuccessResponse("获取API密钥列表成功", keys, total, page, size))
}

// GetApiKey 获取API密钥详情
// @Summary 获取API密钥详情
// @Tags 数据共享
// @Produce json
// @Param id path string true "密钥ID"
// @Success 200 {object} APIResponse{data=models.ApiKey}
// @Failure 404 {object} APIResponse "密钥不存在"
// @Router /sharing/api-keys/{id} [get]
func (c *SharingController) GetApiKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	apiKey, err := c.sharingService.GetApiKeyByID(id)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "API密钥不存在", err))
		return
	}

	render.Render(w, r, SuccessResponse("获取API密钥成功", apiKey))
}

// UpdateApiKey 更新API密钥
// @Summary 更新API密钥
// @Description 更新名称、描述、权限范围或可访问数据集
// @Tags 数据共享
// @Accept json
// @Produce json
// @Param id path string true "密钥ID"
// @Param updates body map[string]interface{} true "更新字段"
// @Success 200 {object} APIResponse
// @Router /sharing/api-keys/{id} [put]
func (c *SharingController) UpdateApiKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var updates map[string]interface{}
	if err := render.DecodeJSON(r.Body, &updates); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	if err := c.sharingService.UpdateApiKey(id, updates); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "更新API密钥失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("更新API密钥成功", nil))
}

// RevokeApiKey 吊销API密钥
// @Summary 吊销API密钥
// @Description 吊销密钥，记录保留用于审计
// @Tags 数据共享
// @Produce json
// @Param id path string true "密钥ID"
// @Success 200 {object} APIResponse
// @Router /sharing/api-keys/{id}/revoke [post]
func (c *SharingController) RevokeApiKey(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := c.sharingService.RevokeApiKey(id); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "吊销API密钥失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("吊销API密钥成功", nil))
}
