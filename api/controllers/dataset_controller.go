/*
 * @module api/controllers/dataset_controller
 * @description 数据集管理控制器，提供数据集增删改查、记录导入导出API
 * @architecture RESTful API架构 - 控制器层
 * @documentReference ai_docs/dataset_management.md
 * @stateFlow HTTP请求 -> 业务逻辑处理 -> 响应返回
 * @rules 遵循RESTful API设计规范，统一错误处理和响应格式
 * @dependencies dataquality-service/service/dataset, github.com/go-chi/chi/v5, github.com/go-chi/render
 * @refs service/dataset/
 */

package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"dataquality-service/service/dataset"
	"dataquality-service/service/models"
	"dataquality-service/service/quality"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
)

// 上传文件大小上限，32MB
const maxImportSize = 32 << 20

// DatasetController 数据集管理控制器
type DatasetController struct {
	datasetService *dataset.DatasetService
	importer       *dataset.Importer
	exporter       *dataset.Exporter
}

// NewDatasetController 创建数据集控制器实例
func NewDatasetController(datasetService *dataset.DatasetService) *DatasetController {
	return &DatasetController{
		datasetService: datasetService,
		importer:       dataset.NewImporter(),
		exporter:       dataset.NewExporter(),
	}
}

// CreateDataset 创建数据集
// @Summary 创建数据集
// @Description 创建一个新的采集数据集
// @Tags 数据集管理
// @Accept json
// @Produce json
// @Param dataset body models.Dataset true "数据集信息"
// @Success 200 {object} APIResponse{data=models.Dataset}
// @Failure 400 {object} APIResponse "请求参数错误"
// @Router /datasets [post]
func (c *DatasetController) CreateDataset(w http.ResponseWriter, r *http.Request) {
	var ds models.Dataset
	if err := render.DecodeJSON(r.Body, &ds); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	if err := c.datasetService.CreateDataset(&ds); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "创建数据集失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("创建数据集成功", ds))
}

// GetDatasets 获取数据集列表
// @Summary 获取数据集列表
// @Description 分页获取数据集列表，支持按城市、科室、状态过滤
// @Tags 数据集管理
// @Produce json
// @Param page query int false "页码" default(1)
// @Param size query int false "每页大小" default(10)
// @Param city query string false "城市过滤"
// @Param specialty query string false "科室过滤"
// @Param status query string false "状态过滤"
// @Success 200 {object} PaginatedResponse{data=[]models.Dataset}
// @Router /datasets [get]
func (c *DatasetController) GetDatasets(w http.ResponseWriter, r *http.Request) {
	page, size := parsePagination(r)
	city := r.URL.Query().Get("city")
	specialty := r.URL.Query().Get("specialty")
	status := r.URL.Query().Get("status")

	datasets, total, err := c.datasetService.GetDatasets(page, size, city, specialty, status)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "获取数据集列表失败", err))
		return
	}

	render.Render(w, r, PaginatedSuccessResponse("获取数据集列表成功", datasets, total, page, size))
}

// GetDataset 获取数据集详情
// @Summary 获取数据集详情
// @Tags 数据集管理
// @Produce json
// @Param id path string true "数据集ID"
// @Success 200 {object} APIResponse{data=models.Dataset}
// @Failure 404 {object} APIResponse "数据集不存在"
// @Router /datasets/{id} [get]
func (c *DatasetController) GetDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ds, err := c.datasetService.GetDatasetByID(id)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "数据集不存在", err))
		return
	}

	render.Render(w, r, SuccessResponse("获取数据集成功", ds))
}

// UpdateDataset 更新数据集
// @Summary 更新数据集
// @Tags 数据集管理
// @Accept json
// @Produce json
// @Param id path string true "数据集ID"
// @Param updates body map[string]interface{} true "更新字段"
// @Success 200 {object} APIResponse
// @Router /datasets/{id} [put]
func (c *DatasetController) UpdateDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var updates map[string]interface{}
	if err := render.DecodeJSON(r.Body, &updates); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}

	if err := c.datasetService.UpdateDataset(id, updates); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "更新数据集失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("更新数据集成功", nil))
}

// DeleteDataset 删除数据集
// @Summary 删除数据集
// @Description 删除数据集及其全部记录
// @Tags 数据集管理
// @Produce json
// @Param id path string true "数据集ID"
// @Success 200 {object} APIResponse
// @Router /datasets/{id} [delete]
func (c *DatasetController) DeleteDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := c.datasetService.DeleteDataset(id); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "删除数据集失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("删除数据集成功", nil))
}

// GetDatasetRecords 获取数据集记录列表
// @Summary 获取数据集记录列表
// @Tags 数据集管理
// @Produce json
// @Param id path string true "数据集ID"
// @Param page query int false "页码" default(1)
// @Param size query int false "每页大小" default(10)
// @Success 200 {object} PaginatedResponse{data=[]models.DatasetRecord}
// @Router /datasets/{id}/records [get]
func (c *DatasetController) GetDatasetRecords(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	page, size := parsePagination(r)

	records, total, err := c.datasetService.GetRecords(id, page, size)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "获取数据集记录失败", err))
		return
	}

	render.Render(w, r, PaginatedSuccessResponse("获取数据集记录成功", records, total, page, size))
}

// AddRecords 批量追加记录
// @Summary 批量追加记录
// @Description 向数据集追加一批JSON记录
// @Tags 数据集管理
// @Accept json
// @Produce json
// @Param id path string true "数据集ID"
// @Param records body []map[string]interface{} true "记录列表"
// @Success 200 {object} APIResponse
// @Failure 400 {object} APIResponse "请求参数错误"
// @Router /datasets/{id}/records [post]
func (c *DatasetController) AddRecords(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var records []quality.Record
	if err := render.DecodeJSON(r.Body, &records); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "请求参数解析失败", err))
		return
	}
	if len(records) == 0 {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "记录列表不能为空", nil))
		return
	}

	inserted, err := c.datasetService.AddRecords(id, quality.Dataset(records), "api")
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "追加记录失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("追加记录成功", map[string]interface{}{
		"inserted": inserted,
	}))
}

// ImportDataset 文件导入记录
// @Summary 文件导入记录
// @Description 上传CSV或JSON文件导入记录，CSV首行为字段名，支持GBK编码与医生记录规整
// @Tags 数据集管理
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "数据集ID"
// @Param file formData file true "数据文件"
// @Param format query string false "文件格式: csv(默认), json"
// @Param encoding query string false "源文件编码: utf-8(默认), gbk"
// @Param required_field query string false "该字段为空的行整行跳过"
// @Param numeric_fields query string false "需要数值化的列，逗号分隔"
// @Param map_doctor query bool false "按医生记录规整"
// @Success 200 {object} APIResponse{data=dataset.ImportResult}
// @Failure 400 {object} APIResponse "请求参数错误"
// @Router /datasets/{id}/import [post]
func (c *DatasetController) ImportDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := r.ParseMultipartForm(maxImportSize); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "解析上传文件失败", err))
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "未找到上传文件", err))
		return
	}
	defer file.Close()

	opts := dataset.ImportOptions{
		Encoding:      r.URL.Query().Get("encoding"),
		RequiredField: r.URL.Query().Get("required_field"),
		MapDoctor:     r.URL.Query().Get("map_doctor") == "true",
	}
	if fields := r.URL.Query().Get("numeric_fields"); fields != "" {
		opts.NumericFields = strings.Split(fields, ",")
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}

	var ds quality.Dataset
	var result *dataset.ImportResult
	switch format {
	case "csv":
		ds, result, err = c.importer.ImportCSV(file, opts)
	case "json":
		ds, result, err = c.importer.ImportJSON(file, opts)
	default:
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, fmt.Sprintf("不支持的文件格式: %s", format), nil))
		return
	}
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, "解析数据文件失败", err))
		return
	}

	if _, err := c.datasetService.AddRecords(id, ds, header.Filename); err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "导入记录入库失败", err))
		return
	}

	render.Render(w, r, SuccessResponse("导入记录成功", result))
}

// ExportDataset 导出数据集
// @Summary 导出数据集
// @Description 按CSV或JSON格式导出数据集记录，可选按识别键去重后导出
// @Tags 数据集管理
// @Produce json
// @Param id path string true "数据集ID"
// @Param format query string false "导出格式: csv(默认), json"
// @Param dedup query bool false "是否按识别键去重"
// @Param key_fields query string false "去重识别键字段，逗号分隔"
// @Success 200 {string} string "导出文件流"
// @Failure 400 {object} APIResponse "请求参数错误"
// @Router /datasets/{id}/export [get]
func (c *DatasetController) ExportDataset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	ds, err := c.datasetService.LoadRecords(id)
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusNotFound, "加载数据集记录失败", err))
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "csv"
	}
	dedup := r.URL.Query().Get("dedup") == "true"
	var keyFields []string
	if fields := r.URL.Query().Get("key_fields"); fields != "" {
		keyFields = strings.Split(fields, ",")
	}

	if dedup {
		if format == "csv" {
			w.Header().Set("Content-Type", "text/csv; charset=utf-8")
			w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, id))
			if err := c.exporter.ExportDeduplicatedCSV(w, ds, keyFields, nil); err != nil {
				render.Render(w, r, ErrorResponse(http.StatusBadRequest, "去重导出失败", err))
			}
			return
		}
		ds, err = quality.Deduplicate(ds, keyFields)
		if err != nil {
			render.Render(w, r, ErrorResponse(http.StatusBadRequest, "去重导出失败", err))
			return
		}
	}

	switch format {
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.csv"`, id))
		err = c.exporter.ExportCSV(w, ds, nil)
	case "json":
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s.json"`, id))
		err = c.exporter.ExportJSON(w, ds)
	default:
		render.Render(w, r, ErrorResponse(http.StatusBadRequest, fmt.Sprintf("不支持的导出格式: %s", format), nil))
		return
	}
	if err != nil {
		render.Render(w, r, ErrorResponse(http.StatusInternalServerError, "导出数据集失败", err))
	}
}
