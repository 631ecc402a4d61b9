/*
 * @module api/controllers/quality_controller
 * @description 质量评估控制器，提供对临时提交或已存数据集的即席质量评估API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/quality_engine_design.md
 * @stateFlow HTTP请求 -> 数据集解析 -> 质量引擎评估 -> 响应返回
 * @rules 配置错误返回400并指明出错字段，质量发现体现在报告数值中而非错误
 * @dependencies dataquality-service/service/quality, github.com/go-chi/render
 * @refs service/quality/, service/quality_report/
 */

package controllers

import (
	"errors"
	"net/http"

	"dataquality-service/service/dataset"
	"dataquality-service/service/quality"
	"dataquality-service/service/quality_report"

	"github.com/go-chi/render"
)

// QualityController 质量评估控制器
type QualityController struct {
	datasetService *dataset.DatasetService
	reportService  *quality_report.ReportService
}

// NewQualityController 创建质量评估控制器实例
func NewQualityController(datasetService *dataset.DatasetService, reportService *quality_report.ReportService) *QualityController {
	return &QualityController{
		datasetService: datasetService,
		reportService:  reportService,
	}
}

// AssessRequest 即席评估请求，records与dataset_id二选一
type AssessRequest struct {
	DatasetID         string                        `json:"dataset_id"`         // 已存数据集ID
	Records           []quality.Record              `json:"records"`            // 临时提交的记录
	MandatoryFields   []string                      `json:"mandatory_fields"`   // 必填字段
	FormatRules       map[string]quality.FormatRule `json:"format_rules"`       // 格式规则
	KeyFields         []string                      `json:"key_fields"`         // 重复识别键
	CategoricalFields []string                      `json:"categorical_fields"` // 分类统计字段
	Threshold         float64                       `json:"threshold"`          // 完整率阈值
	Save              bool                          `json:"save"`               // 是否持久化报告，仅对已存数据集生效
}

// resolveDataset 解析评估目标数据集
func (c *QualityController) resolveDataset(req *AssessRequest) (quality.Dataset, error) {
	if req.DatasetID != "" {
		return c.datasetService.LoadRecords(req.DatasetID)
	}
	if req.Records == nil {
		return nil, errors.New("必须提供 dataset_id 或 records")
	}
	return quality.Dataset(req.Records), nil
}

// renderEngineError 配置错误返回400，其余返回500
func renderEngineError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if quality.IsConfigError(err) {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, msg, err))
		return
	}
	render.Render(w, r, ErrorResponse(http.StatusInternalServerError, msg, err))
}

// AssessCompleteness 完整性评估
// @Summary 完整性评估
// @Description 对数据集的必填字段逐项计算完整率与缺失数，按阈值给出PASS/FAIL
// @Tags 质量评估
// @Accept json
// @Produce json
// @Param request body AssessRequest true "评估请求"
// @Success 200 {object} APIResponse{data=quality.CompletenessResult}
// @Failure 400 {object} APIResponse "请求参数错误"
// @Router /quality/assess/completeness [post]
func (c *QualityController) AssessCompleteness(w http.ResponseWriter, r *http.Request) {
	var req AssessRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	ds, err := c.resolveDataset(&req)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "解析目标数据集失败", err))
		return
	}

	result := quality.AssessCompleteness(ds, req.MandatoryFields, &quality.Options{Threshold: req.Threshold})
	render.Render(w, r, SuccessResponse("完整性评估完成", result))
}

// AssessFormats 格式校验
// @Summary 格式校验
// @Description 对存在值做正则或数值范围校验，缺失值不计入格式有效性
// @Tags 质量评估
// @Accept json
// @Produce json
// @Param request body AssessRequest true "评估请求"
// @Success 200 {object} APIResponse{data=quality.FormatResult}
// @Failure 400 {object} APIResponse "配置错误"
// @Router /quality/assess/formats [post]
func (c *QualityController) AssessFormats(w http.ResponseWriter, r *http.Request) {
	var req AssessRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	ds, err := c.resolveDataset(&req)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "解析目标数据集失败", err))
		return
	}

	result, err := quality.AssessFormats(ds, req.FormatRules, nil)
	if err != nil {
		renderEngineError(w, r, "格式校验失败", err)
		return
	}
	render.Render(w, r, SuccessResponse("格式校验完成", result))
}

// DetectDuplicates 重复检测
// @Summary 重复检测
// @Description 按识别键分组，组内每条记录（含首条）均计为重复
// @Tags 质量评估
// @Accept json
// @Produce json
// @Param request body AssessRequest true "评估请求"
// @Success 200 {object} APIResponse{data=quality.DuplicateResult}
// @Failure 400 {object} APIResponse "配置错误"
// @Router /quality/assess/duplicates [post]
func (c *QualityController) DetectDuplicates(w http.ResponseWriter, r *http.Request) {
	var req AssessRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	ds, err := c.resolveDataset(&req)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "解析目标数据集失败", err))
		return
	}

	result, err := quality.DetectDuplicates(ds, req.KeyFields, nil)
	if err != nil {
		renderEngineError(w, r, "重复检测失败", err)
		return
	}
	render.Render(w, r, SuccessResponse("重复检测完成", result))
}

// GenerateReport 生成质量报告
// @Summary 生成质量报告
// @Description 组合完整性、格式、重复检测与数据集级聚合生成完整报告，save为真且目标为已存数据集时落库
// @Tags 质量评估
// @Accept json
// @Produce json
// @Param request body AssessRequest true "评估请求"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse "配置错误"
// @Router /quality/assess/report [post]
func (c *QualityController) GenerateReport(w http.ResponseWriter, r *http.Request) {
	var req AssessRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	ds, err := c.resolveDataset(&req)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "解析目标数据集失败", err))
		return
	}

	cfg := quality.ReportConfig{
		MandatoryFields:   req.MandatoryFields,
		FormatRules:       req.FormatRules,
		KeyFields:         req.KeyFields,
		CategoricalFields: req.CategoricalFields,
		Threshold:         req.Threshold,
	}
	progress := quality.NewProgressLog()
	report, err := quality.GenerateReport(ds, cfg, &quality.Options{Progress: progress})
	if err != nil {
		renderEngineError(w, r, "生成质量报告失败", err)
		return
	}

	data := map[string]interface{}{
		"report":        report,
		"overall_score": report.OverallScore(),
		"progress":      progress.Entries(),
	}

	if req.Save && req.DatasetID != "" && c.reportService != nil {
		record, err := c.reportService.SaveReport(req.DatasetID, "", "", report)
		if err != nil {
			render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "保存质量报告失败", err))
			return
		}
		data["report_id"] = record.ID
		data["grade"] = record.Grade
	}

	render.Render(w, r, SuccessResponse("质量报告生成完成", data))
}
