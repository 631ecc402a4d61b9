/*
 * @module api/controllers/template_controller
 * @description 质量规则模板控制器，提供模板增删改查、脚本校验与模板应用API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/quality_engine.md
 * @stateFlow HTTP请求 -> 业务逻辑处理 -> 响应返回
 * @rules 内置模板不可删除，脚本模板保存前必须通过编译校验
 * @dependencies dataquality-service/service/quality_task, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/quality_task/template_service.go
 */

package controllers

import (
	"net/http"
	"strconv"

	"dataquality-service/service/models"
	"dataquality-service/service/quality_task"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// TemplateController 质量规则模板控制器
type TemplateController struct {
	templateService *quality_task.TemplateService
	taskService     *quality_task.QualityTaskService
}

// NewTemplateController 创建质量规则模板控制器实例
func NewTemplateController(templateService *quality_task.TemplateService, taskService *quality_task.QualityTaskService) *TemplateController {
	return &TemplateController{
		templateService: templateService,
		taskService:     taskService,
	}
}

// CreateTemplate 创建质量规则模板
// @Summary 创建质量规则模板
// @Tags 规则模板
// @Accept json
// @Produce json
// @Param template body models.QualityRuleTemplate true "模板信息"
// @Success 200 {object} APIResponse{data=models.QualityRuleTemplate}
// @Failure 400 {object} APIResponse "模板配置错误"
// @Router /quality/templates [post]
func (c *TemplateController) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	var template models.QualityRuleTemplate
	if err := render.DecodeJSON(r.Body, &template); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	if err := c.templateService.CreateQualityRuleTemplate(&template); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "创建规则模板失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("创建规则模板成功", template))
}

// GetTemplates 获取质量规则模板列表
// @Summary 获取质量规则模板列表
// @Tags 规则模板
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页大小" default(10)
// @Param type query string false "规则类型过滤"
// @Param category query string false "分类过滤"
// @Param is_built_in query bool false "是否内置过滤"
// @Success 200 {object} PaginatedResponse{data=[]models.QualityRuleTemplate}
// @Router /quality/templates [get]
func (c *TemplateController) GetTemplates(w http.ResponseWriter, r *http.Request) {
	page, size := parsePagination(r)
	ruleType := r.URL.Query().Get("type")
	category := r.URL.Query().Get("category")

	var isBuiltIn *bool
	if v := r.URL.Query().Get("is_built_in"); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			isBuiltIn = &parsed
		}
	}

	templates, total, err := c.templateService.GetQualityRuleTemplates(page, size, ruleType, category, isBuiltIn)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "获取规则模板列表失败", err))
		return
	}

	render.Render(w, r, PaginatedSuccessResponse("获取规则模板列表成功", templates, total, page, size))
}

// GetTemplate 获取质量规则模板详情
// @Summary 获取质量规则模板详情
// @Tags 规则模板
// @Produce json
// @Param id path string true "模板ID"
// @Success 200 {object} APIResponse{data=models.QualityRuleTemplate}
// @Failure 404 {object} APIResponse "模板不存在"
// @Router /quality/templates/{id} [get]
func (c *TemplateController) GetTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	template, err := c.templateService.GetQualityRuleTemplateByID(id)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "规则模板不存在", err))
		return
	}

	render.Render(w, r, SuccessResponse("获取规则模板成功", template))
}

// UpdateTemplate 更新质量规则模板
// @Summary 更新质量规则模板
// @Tags 规则模板
// @Accept json
// @Produce json
// @Param id path string true "模板ID"
// @Param updates body map[string]interface{} true "更新字段"
// @Success 200 {object} APIResponse
// @Router /quality/templates/{id} [put]
func (c *TemplateController) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var updates map[string]interface{}
	if err := render.DecodeJSON(r.Body, &updates); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	if err := c.templateService.UpdateQualityRuleTemplate(id, updates); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "更新规则模板失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("更新规则模板成功", nil))
}

// DeleteTemplate 删除质量规则模板
// @Summary 删除质量规则模板
// @Description 删除自定义规则模板，内置模板不可删除
// @Tags 规则模板
// @Produce json
// @Param id path string true "模板ID"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse "内置模板不可删除"
// @Router /quality/templates/{id} [delete]
func (c *TemplateController) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := c.templateService.DeleteQualityRuleTemplate(id); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "删除规则模板失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("删除规则模板成功", nil))
}

// ValidateScriptRequest 脚本校验请求
type ValidateScriptRequest struct {
	Script string `json:"script"`
}

// ValidateScript 校验自定义脚本
// @Summary 校验自定义脚本
// @Description 编译校验脚本规则，通过校验的脚本在执行时直接命中编译缓存
// @Tags 规则模板
// @Accept json
// @Produce json
// @Param request body ValidateScriptRequest true "脚本内容"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse "脚本编译失败"
// @Router /quality/templates/validate-script [post]
func (c *TemplateController) ValidateScript(w http.ResponseWriter, r *http.Request) {
	var req ValidateScriptRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}
	if req.Script == "" {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "脚本内容不能为空", nil))
		return
	}

	if err := c.templateService.ValidateScript(req.Script); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "脚本编译失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("脚本校验通过", nil))
}

// ApplyTemplateRequest 模板应用请求
type ApplyTemplateRequest struct {
	TaskID string `json:"task_id"`
}

// ApplyTemplate 将模板应用到任务
// @Summary 将模板应用到任务
// @Description 将模板默认配置合并进指定任务的评估配置并保存
// @Tags 规则模板
// @Accept json
// @Produce json
// @Param id path string true "模板ID"
// @Param request body ApplyTemplateRequest true "目标任务"
// @Success 200 {object} APIResponse{data=models.QualityTask}
// @Failure 400 {object} APIResponse "模板或任务不可用"
// @Router /quality/templates/{id}/apply [post]
func (c *TemplateController) ApplyTemplate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req ApplyTemplateRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}
	if req.TaskID == "" {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "任务ID不能为空", nil))
		return
	}

	task, err := c.taskService.GetQualityTaskByID(req.TaskID)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "任务不存在", err))
		return
	}

	if err := c.templateService.ApplyTemplateToTask(id, task); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "应用规则模板失败", err))
		return
	}

	updates := map[string]interface{}{
		"mandatory_fields": task.MandatoryFields,
		"format_rules":     task.FormatRules,
		"key_fields":       task.KeyFields,
		"custom_script":    task.CustomScript,
		"threshold":        task.Threshold,
	}
	if err := c.taskService.UpdateQualityTask(task.ID, updates); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "保存任务配置失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("应用规则模板成功", task))
}
