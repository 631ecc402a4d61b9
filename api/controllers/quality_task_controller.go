/*
 * @module api/controllers/quality_task_controller
 * @description 质量检测任务控制器，提供任务增删改查、手动执行、执行记录与问题记录查询API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/quality_engine.md
 * @stateFlow HTTP请求 -> 业务逻辑处理 -> 响应返回
 * @rules 任务配置在创建与更新时即校验，配置非法的任务不落库
 * @dependencies dataquality-service/service/quality_task, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/quality_task/
 */

package controllers

import (
	"errors"
	"log/slog"
	"net/http"

	"dataquality-service/service/models"
	"dataquality-service/service/quality_task"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"gorm.io/gorm"
)

// QualityTaskController 质量检测任务控制器
type QualityTaskController struct {
	taskService *quality_task.QualityTaskService
	scheduler   *quality_task.QualityScheduler
}

// NewQualityTaskController 创建质量检测任务控制器实例
func NewQualityTaskController(taskService *quality_task.QualityTaskService, scheduler *quality_task.QualityScheduler) *QualityTaskController {
	return &QualityTaskController{
		taskService: taskService,
		scheduler:   scheduler,
	}
}

// syncScheduler 任务调度配置变更后同步到调度器
func (c *QualityTaskController) syncScheduler() {
	if c.scheduler == nil {
		return
	}
	// 调度器同步失败不影响任务本身的变更结果
	if err := c.scheduler.ReloadScheduledTasks(); err != nil {
		slog.Warn("调度器同步失败", "error", err)
	}
}

// CreateQualityTask 创建质量检测任务
// @Summary 创建质量检测任务
// @Description 创建任务并校验评估配置与调度配置，配置非法时拒绝创建
// @Tags 质量任务
// @Accept json
// @Produce json
// @Param task body models.QualityTask true "任务信息"
// @Success 200 {object} APIResponse{data=models.QualityTask}
// @Failure 400 {object} APIResponse "配置错误"
// @Router /quality/tasks [post]
func (c *QualityTaskController) CreateQualityTask(w http.ResponseWriter, r *http.Request) {
	var task models.QualityTask
	if err := render.DecodeJSON(r.Body, &task); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	if err := c.taskService.CreateQualityTask(&task); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "创建质量检测任务失败", err))
		return
	}

	c.syncScheduler()
	render.Render(w, r, SuccessResponse("创建质量检测任务成功", task))
}

// GetQualityTasks 获取质量检测任务列表
// @Summary 获取质量检测任务列表
// @Tags 质量任务
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页大小" default(10)
// @Param status query string false "状态过滤"
// @Param dataset_id query string false "数据集过滤"
// @Success 200 {object} PaginatedResponse{data=[]models.QualityTask}
// @Router /quality/tasks [get]
func (c *QualityTaskController) GetQualityTasks(w http.ResponseWriter, r *http.Request) {
	page, size := parsePagination(r)
	status := r.URL.Query().Get("status")
	datasetID := r.URL.Query().Get("dataset_id")

	tasks, total, err := c.taskService.GetQualityTasks(page, size, status, datasetID)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "获取任务列表失败", err))
		return
	}

	render.Render(w, r, PaginatedSuccessResponse("获取任务列表成功", tasks, total, page, size))
}

// GetQualityTask 获取质量检测任务详情
// @Summary 获取质量检测任务详情
// @Tags 质量任务
// @Produce json
// @Param id path string true "任务ID"
// @Success 200 {object} APIResponse{data=models.QualityTask}
// @Failure 404 {object} APIResponse "任务不存在"
// @Router /quality/tasks/{id} [get]
func (c *QualityTaskController) GetQualityTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	task, err := c.taskService.GetQualityTaskByID(id)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "任务不存在", err))
		return
	}

	render.Render(w, r, SuccessResponse("获取任务成功", task))
}

// UpdateQualityTask 更新质量检测任务
// @Summary 更新质量检测任务
// @Description 更新任务字段并重新校验评估与调度配置
// @Tags 质量任务
// @Accept json
// @Produce json
// @Param id path string true "任务ID"
// @Param updates body map[string]interface{} true "更新字段"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse "配置错误"
// @Router /quality/tasks/{id} [put]
func (c *QualityTaskController) UpdateQualityTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var updates map[string]interface{}
	if err := render.DecodeJSON(r.Body, &updates); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	if err := c.taskService.UpdateQualityTask(id, updates); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "更新任务失败", err))
		return
	}

	c.syncScheduler()
	render.Render(w, r, SuccessResponse("更新任务成功", nil))
}

// DeleteQualityTask 删除质量检测任务
// @Summary 删除质量检测任务
// @Description 删除任务及其执行记录与问题记录
// @Tags 质量任务
// @Produce json
// @Param id path string true "任务ID"
// @Success 200 {object} APIResponse
// @Router /quality/tasks/{id} [delete]
func (c *QualityTaskController) DeleteQualityTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := c.taskService.DeleteQualityTask(id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, gorm.ErrRecordNotFound) {
			status = http.StatusNotFound
		}
		render.Render(w, r, ErrorResponse(status, "删除任务失败", err))
		return
	}

	if c.scheduler != nil {
		c.scheduler.RemoveScheduledTask(id)
	}
	render.Render(w, r, SuccessResponse("删除任务成功", nil))
}

// StartQualityTask 手动执行质量检测任务
// @Summary 手动执行质量检测任务
// @Description 创建执行记录并异步运行质量评估
// @Tags 质量任务
// @Produce json
// @Param id path string true "任务ID"
// @Success 200 {object} APIResponse{data=models.QualityTaskExecution}
// @Failure 400 {object} APIResponse "任务正在运行"
// @Router /quality/tasks/{id}/start [post]
func (c *QualityTaskController) StartQualityTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	execution, err := c.taskService.StartQualityTask(id, "manual", "api")
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "启动任务失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("任务已启动", execution))
}

// StopQualityTask 停止质量检测任务
// @Summary 停止质量检测任务
// @Tags 质量任务
// @Produce json
// @Param id path string true "任务ID"
// @Success 200 {object} APIResponse
// @Router /quality/tasks/{id}/stop [post]
func (c *QualityTaskController) StopQualityTask(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := c.taskService.StopQualityTask(id); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "停止任务失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("任务已停止", nil))
}

// GetTaskExecutions 获取任务执行记录列表
// @Summary 获取任务执行记录列表
// @Tags 质量任务
// @Produce json
// @Param id path string true "任务ID"
// @Param page query int false "页码" default(1)
// @Param size query int false "每页大小" default(10)
// @Success 200 {object} PaginatedResponse{data=[]models.QualityTaskExecution}
// @Router /quality/tasks/{id}/executions [get]
func (c *QualityTaskController) GetTaskExecutions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	page, size := parsePagination(r)

	executions, total, err := c.taskService.GetQualityTaskExecutions(id, page, size)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "获取执行记录失败", err))
		return
	}

	render.Render(w, r, PaginatedSuccessResponse("获取执行记录成功", executions, total, page, size))
}

// GetExecution 获取执行记录详情
// @Summary 获取执行记录详情
// @Tags 质量任务
// @Produce json
// @Param id path string true "执行记录ID"
// @Success 200 {object} APIResponse{data=models.QualityTaskExecution}
// @Failure 404 {object} APIResponse "执行记录不存在"
// @Router /quality/executions/{id} [get]
func (c *QualityTaskController) GetExecution(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	execution, err := c.taskService.GetExecutionByID(id)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "执行记录不存在", err))
		return
	}

	render.Render(w, r, SuccessResponse("获取执行记录成功", execution))
}

// GetQualityIssues 获取质量问题记录列表
// @Summary 获取质量问题记录列表
// @Description 分页查询质量问题记录，支持按任务、执行、字段、严重度、问题类型过滤
// @Tags 质量任务
// @Produce json
// @Param task_id query string false "任务过滤"
// @Param execution_id query string false "执行记录过滤"
// @Param field_name query string false "字段过滤"
// @Param severity query string false "严重度过滤"
// @Param issue_type query string false "问题类型过滤"
// @Param page query int false "页码" default(1)
// @Param size query int false "每页大小" default(10)
// @Success 200 {object} PaginatedResponse{data=[]models.QualityIssueRecord}
// @Router /quality/issues [get]
func (c *QualityTaskController) GetQualityIssues(w http.ResponseWriter, r *http.Request) {
	page, size := parsePagination(r)
	taskID := r.URL.Query().Get("task_id")
	executionID := r.URL.Query().Get("execution_id")
	fieldName := r.URL.Query().Get("field_name")
	severity := r.URL.Query().Get("severity")
	issueType := r.URL.Query().Get("issue_type")

	issues, total, err := c.taskService.GetQualityIssueRecords(taskID, executionID, page, size, fieldName, severity, issueType)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "获取问题记录失败", err))
		return
	}

	render.Render(w, r, PaginatedSuccessResponse("获取问题记录成功", issues, total, page, size))
}
