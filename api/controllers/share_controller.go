/*
 * @module api/controllers/share_controller
 * @description 共享访问控制器，对外部系统提供密钥认证的数据集导出与质量报告读取API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/sharing.md
 * @stateFlow 中间件认证 -> 数据集访问范围检查 -> 业务逻辑处理 -> 响应返回
 * @rules 所有接口要求密钥已通过认证中间件，数据集级访问范围在此逐接口检查
 * @dependencies dataquality-service/api/middleware, dataquality-service/service/dataset, dataquality-service/service/quality_report
 * @refs api/middleware/apikey_auth.go
 */

package controllers

import (
	"fmt"
	"net/http"
	"time"

	"dataquality-service/api/middleware"
	"dataquality-service/service/dataset"
	"dataquality-service/service/quality_report"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// ShareController 共享访问控制器
type ShareController struct {
	datasetService *dataset.DatasetService
	reportService  *quality_report.ReportService
	exporter       *dataset.Exporter
}

// NewShareController 创建共享访问控制器实例
func NewShareController(datasetService *dataset.DatasetService, reportService *quality_report.ReportService) *ShareController {
	return &ShareController{
		datasetService: datasetService,
		reportService:  reportService,
		exporter:       dataset.NewExporter(),
	}
}

// canAccessDataset 检查上下文中的密钥是否可访问指定数据集
func canAccessDataset(r *http.Request, datasetID string) bool {
	apiKey, ok := middleware.ApiKeyFromContext(r.Context())
	if !ok {
		return false
	}
	return apiKey.CanAccessDataset(datasetID)
}

// ExportSharedDataset 导出共享数据集
// @Summary 导出共享数据集
// @Description 外部系统使用API密钥导出数据集，支持CSV与JSON格式
// @Tags 共享访问
// @Produce json
// @Param id path string true "数据集ID"
// @Param format query string false "导出格式: csv, json" default(csv)
// @Param X-Api-Key header string true "API密钥"
// @Success 200 {string} string "导出文件"
// @Failure 403 {object} APIResponse "密钥无权访问该数据集"
// @Router /share/datasets/{id}/export [get]
func (c *ShareController) ExportSharedDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if !canAccessDataset(r, id) {
		render.Render(w, r, ErrorResponse(http.StatusForbidden, "密钥无权访问该数据集", nil))
		return
	}

	ds, err := c.datasetService.LoadRecords(id)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "数据集不存在", err))
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	filename := fmt.Sprintf("dataset_%s_%s", id, time.Now().Format("20060102150405"))
	switch format {
	case "json":
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.json", filename))
		if err := c.exporter.ExportJSON(w, ds); err != nil {
			render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "导出数据集失败", err))
		}
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.csv", filename))
		if err := c.exporter.ExportCSV(w, ds, nil); err != nil {
			render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "导出数据集失败", err))
		}
	default:
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "不支持的导出格式", nil))
	}
}

// GetSharedLatestReport 获取共享数据集最新质量报告
// @Summary 获取共享数据集最新质量报告
// @Tags 共享访问
// @Produce json
// @Param dataset_id query string true "数据集ID"
// @Param X-Api-Key header string true "API密钥"
// @Success 200 {object} APIResponse{data=models.QualityReportRecord}
// @Failure 403 {object} APIResponse "密钥无权访问该数据集"
// @Router /share/reports/latest [get]
func (c *ShareController) GetSharedLatestReport(w http.ResponseWriter, r *http.Request) {
	datasetID := r.URL.Query().Get("dataset_id")
	if datasetID == "" {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "数据集ID不能为空", nil))
		return
	}

	if !canAccessDataset(r, datasetID) {
		render.Render(w, r, ErrorResponse(http.StatusForbidden, "密钥无权访问该数据集", nil))
		return
	}

	report, err := c.reportService.GetLatestReport(datasetID)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "数据集尚无质量报告", err))
		return
	}

	render.Render(w, r, SuccessResponse("获取最新质量报告成功", report))
}

// GetSharedReportData 读取共享报告原始数据
// @Summary 读取共享报告原始数据
// @Tags 共享访问
// @Produce json
// @Param id path string true "报告ID"
// @Param X-Api-Key header string true "API密钥"
// @Success 200 {object} quality.Report
// @Failure 403 {object} APIResponse "密钥无权访问该数据集"
// @Router /share/reports/{id}/data [get]
func (c *ShareController) GetSharedReportData(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	report, err := c.reportService.GetReportByID(id)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "质量报告不存在", err))
		return
	}

	if !canAccessDataset(r, report.DatasetID) {
		render.Render(w, r, ErrorResponse(http.StatusForbidden, "密钥无权访问该数据集", nil))
		return
	}

	data, err := c.reportService.GetReportData(r.Context(), id)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "读取报告数据失败", err))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Write(data)
}
