/*
 * @module api/controllers/quality_report_controller
 * @description 质量报告控制器，提供报告查询、最新报告、原始报告数据读取与删除API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/quality_engine.md
 * @stateFlow HTTP请求 -> 业务逻辑处理 -> 响应返回
 * @rules 原始报告数据优先走缓存，缓存不可用时回源数据库
 * @dependencies dataquality-service/service/quality_report, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/quality_report/
 */

package controllers

import (
	"net/http"

	"dataquality-service/service/quality_report"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// QualityReportController 质量报告控制器
type QualityReportController struct {
	reportService *quality_report.ReportService
}

// NewQualityReportController 创建质量报告控制器实例
func NewQualityReportController(reportService *quality_report.ReportService) *QualityReportController {
	return &QualityReportController{reportService: reportService}
}

// GetReports 获取质量报告列表
// @Summary 获取质量报告列表
// @Tags 质量报告
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页大小" default(10)
// @Param dataset_id query string false "数据集过滤"
// @Param task_id query string false "任务过滤"
// @Param grade query string false "等级过滤: excellent, good, fair, poor"
// @Success 200 {object} PaginatedResponse{data=[]models.QualityReportRecord}
// @Router /quality/reports [get]
func (c *QualityReportController) GetReports(w http.ResponseWriter, r *http.Request) {
	page, size := parsePagination(r)
	datasetID := r.URL.Query().Get("dataset_id")
	taskID := r.URL.Query().Get("task_id")
	grade := r.URL.Query().Get("grade")

	reports, total, err := c.reportService.GetReports(page, size, datasetID, taskID, grade)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "获取质量报告列表失败", err))
		return
	}

	render.Render(w, r, PaginatedSuccessResponse("获取质量报告列表成功", reports, total, page, size))
}

// GetReport 获取质量报告详情
// @Summary 获取质量报告详情
// @Tags 质量报告
// @Produce json
// @Param id path string true "报告ID"
// @Success 200 {object} APIResponse{data=models.QualityReportRecord}
// @Failure 404 {object} APIResponse "报告不存在"
// @Router /quality/reports/{id} [get]
func (c *QualityReportController) GetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	report, err := c.reportService.GetReportByID(id)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "质量报告不存在", err))
		return
	}

	render.Render(w, r, SuccessResponse("获取质量报告成功", report))
}

// GetLatestReport 获取数据集最新质量报告
// @Summary 获取数据集最新质量报告
// @Tags 质量报告
// @Produce json
// @Param dataset_id query string true "数据集ID"
// @Success 200 {object} APIResponse{data=models.QualityReportRecord}
// @Failure 404 {object} APIResponse "数据集尚无报告"
// @Router /quality/reports/latest [get]
func (c *QualityReportController) GetLatestReport(w http.ResponseWriter, r *http.Request) {
	datasetID := r.URL.Query().Get("dataset_id")
	if datasetID == "" {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "数据集ID不能为空", nil))
		return
	}

	report, err := c.reportService.GetLatestReport(datasetID)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "数据集尚无质量报告", err))
		return
	}

	render.Render(w, r, SuccessResponse("获取最新质量报告成功", report))
}

// GetReportData 读取原始报告数据
// @Summary 读取原始报告数据
// @Description 返回引擎产出的完整报告JSON，优先命中缓存
// @Tags 质量报告
// @Produce json
// @Param id path string true "报告ID"
// @Success 200 {object} quality.Report
// @Failure 404 {object} APIResponse "报告不存在"
// @Router /quality/reports/{id}/data [get]
func (c *QualityReportController) GetReportData(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	data, err := c.reportService.GetReportData(r.Context(), id)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "读取报告数据失败", err))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write(data)
}

// DeleteReport 删除质量报告
// @Summary 删除质量报告
// @Description 删除报告并使其缓存失效
// @Tags 质量报告
// @Produce json
// @Param id path string true "报告ID"
// @Success 200 {object} APIResponse
// @Router /quality/reports/{id} [delete]
func (c *QualityReportController) DeleteReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := c.reportService.DeleteReport(id); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "删除质量报告失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("删除质量报告成功", nil))
}
