/*
 * @module service/quality_report/report_service
 * @description 质量报告服务，持久化引擎产出的报告、评定质量等级、生成改进建议并提供读穿缓存
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/quality_engine.md
 * @stateFlow 引擎报告 -> 评级与建议 -> 落库 -> 缓存供查询
 * @rules 引擎报告本体不含时间戳，落库时间与生成者由本服务补充
 * @dependencies dataquality-service/service/models, dataquality-service/service/quality, gorm.io/gorm
 * @refs service/quality_task/task_service.go
 */

package quality_report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"dataquality-service/service/models"
	"dataquality-service/service/monitoring"
	"dataquality-service/service/quality"

	"gorm.io/gorm"
)

// 质量等级阈值
const (
	GradeExcellent = "excellent" // >= 0.90
	GradeGood      = "good"      // >= 0.75
	GradeFair      = "fair"      // >= 0.60
	GradePoor      = "poor"
)

const reportCacheTTL = 30 * time.Minute

// Cache 报告JSON的读穿缓存端口，由Redis连接器实现，可为空
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error) // 未命中返回 (nil, nil)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// EventPublisher 报告生成事件的发布端口，由事件服务实现
type EventPublisher interface {
	PublishQualityEvent(eventType string, data map[string]interface{})
}

// ReportService 质量报告服务
type ReportService struct {
	db        *gorm.DB
	cache     Cache
	publisher EventPublisher
}

// NewReportService 创建质量报告服务实例
func NewReportService(db *gorm.DB) *ReportService {
	return &ReportService{db: db}
}

// SetCache 设置报告缓存
func (s *ReportService) SetCache(cache Cache) {
	s.cache = cache
	if cache != nil {
		slog.Info("质量报告服务已启用缓存")
	}
}

// SetEventPublisher 设置报告生成事件发布器
func (s *ReportService) SetEventPublisher(pub EventPublisher) {
	s.publisher = pub
}

// GradeForScore 根据总体得分评定质量等级
func GradeForScore(score float64) string {
	switch {
	case score >= 0.90:
		return GradeExcellent
	case score >= 0.75:
		return GradeGood
	case score >= 0.60:
		return GradeFair
	default:
		return GradePoor
	}
}

// SaveReport 持久化引擎产出的质量报告并评定等级、生成建议
func (s *ReportService) SaveReport(datasetID, taskID, executionID string, report *quality.Report) (*models.QualityReportRecord, error) {
	data, err := report.Marshal()
	if err != nil {
		return nil, fmt.Errorf("序列化质量报告失败: %w", err)
	}

	var reportData models.JSONB
	if err := json.Unmarshal(data, &reportData); err != nil {
		return nil, fmt.Errorf("转换质量报告失败: %w", err)
	}

	score := report.OverallScore()
	record := &models.QualityReportRecord{
		DatasetID:       datasetID,
		TaskID:          taskID,
		ExecutionID:     executionID,
		TotalRecords:    report.Summary.TotalRecords,
		OverallScore:    score,
		Grade:           GradeForScore(score),
		ReportData:      reportData,
		Recommendations: models.JSONBStringArray(BuildRecommendations(report)),
		GeneratedAt:     time.Now(),
	}

	if err := s.db.Create(record).Error; err != nil {
		return nil, fmt.Errorf("保存质量报告失败: %w", err)
	}
	monitoring.ReportsGeneratedTotal.WithLabelValues(record.Grade).Inc()

	if s.cache != nil {
		if err := s.cache.Set(context.Background(), reportCacheKey(record.ID), data, reportCacheTTL); err != nil {
			slog.Warn("质量报告写入缓存失败", "report_id", record.ID, "error", err)
		}
	}

	if s.publisher != nil {
		s.publisher.PublishQualityEvent("report_generated", map[string]interface{}{
			"report_id":     record.ID,
			"dataset_id":    datasetID,
			"task_id":       taskID,
			"execution_id":  executionID,
			"overall_score": score,
			"grade":         record.Grade,
		})
	}

	return record, nil
}

// GetReports 获取质量报告列表
func (s *ReportService) GetReports(page, pageSize int, datasetID, taskID, grade string) ([]models.QualityReportRecord, int64, error) {
	query := s.db.Model(&models.QualityReportRecord{})

	if datasetID != "" {
		query = query.Where("dataset_id = ?", datasetID)
	}
	if taskID != "" {
		query = query.Where("task_id = ?", taskID)
	}
	if grade != "" {
		query = query.Where("grade = ?", grade)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var reports []models.QualityReportRecord
	offset := (page - 1) * pageSize
	if err := query.Order("generated_at DESC").Offset(offset).Limit(pageSize).Find(&reports).Error; err != nil {
		return nil, 0, err
	}

	return reports, total, nil
}

// GetReportByID 根据ID获取质量报告
func (s *ReportService) GetReportByID(id string) (*models.QualityReportRecord, error) {
	var report models.QualityReportRecord
	if err := s.db.First(&report, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// GetLatestReport 获取数据集最近一次的质量报告
func (s *ReportService) GetLatestReport(datasetID string) (*models.QualityReportRecord, error) {
	var report models.QualityReportRecord
	if err := s.db.Where("dataset_id = ?", datasetID).
		Order("generated_at DESC").First(&report).Error; err != nil {
		return nil, err
	}
	return &report, nil
}

// GetReportData 获取报告JSON本体，优先读缓存
func (s *ReportService) GetReportData(ctx context.Context, id string) ([]byte, error) {
	key := reportCacheKey(id)
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err != nil {
			slog.Warn("质量报告读取缓存失败", "report_id", id, "error", err)
		} else if data != nil {
			return data, nil
		}
	}

	report, err := s.GetReportByID(id)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(report.ReportData)
	if err != nil {
		return nil, fmt.Errorf("序列化质量报告失败: %w", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, data, reportCacheTTL); err != nil {
			slog.Warn("质量报告写入缓存失败", "report_id", id, "error", err)
		}
	}
	return data, nil
}

// DeleteReport 删除质量报告
func (s *ReportService) DeleteReport(id string) error {
	if err := s.db.Delete(&models.QualityReportRecord{}, "id = ?", id).Error; err != nil {
		return err
	}
	if s.cache != nil {
		if err := s.cache.Delete(context.Background(), reportCacheKey(id)); err != nil {
			slog.Warn("质量报告删除缓存失败", "report_id", id, "error", err)
		}
	}
	return nil
}

func reportCacheKey(id string) string {
	return "quality_report:" + id
}

// BuildRecommendations 从报告聚合指标生成改进建议，输出顺序确定
func BuildRecommendations(report *quality.Report) []string {
	var recommendations []string

	completenessFields := make([]string, 0, len(report.Completeness.Fields))
	for field := range report.Completeness.Fields {
		completenessFields = append(completenessFields, field)
	}
	sort.Strings(completenessFields)

	for _, field := range completenessFields {
		fc := report.Completeness.Fields[field]
		if fc.Status != quality.StatusFail {
			continue
		}
		recommendations = append(recommendations, fmt.Sprintf(
			"字段 %s 完整率 %.1f%% 低于阈值 %.0f%%，建议补采缺失的 %d 条记录",
			field, fc.CompletionRate*100, report.Completeness.Threshold*100, fc.MissingCount))
	}

	formatFields := make([]string, 0, len(report.Formats.Fields))
	for field := range report.Formats.Fields {
		formatFields = append(formatFields, field)
	}
	sort.Strings(formatFields)

	for _, field := range formatFields {
		ff := report.Formats.Fields[field]
		if ff.NoData {
			recommendations = append(recommendations, fmt.Sprintf(
				"字段 %s 在数据集中没有任何取值，建议检查采集端是否遗漏该字段", field))
			continue
		}
		if invalid := ff.TotalCount - ff.ValidCount; invalid > 0 {
			recommendations = append(recommendations, fmt.Sprintf(
				"字段 %s 有 %d 条取值不符合格式规则，建议校对采集解析逻辑", field, invalid))
		}
	}

	if report.Duplicates.DuplicateCount > 0 {
		recommendations = append(recommendations, fmt.Sprintf(
			"检测到 %d 条重复记录（%d 组），建议按识别键去重后再使用",
			report.Duplicates.DuplicateCount, len(report.Duplicates.DuplicateGroups)))
	}

	if len(recommendations) == 0 {
		recommendations = append(recommendations, "各项质量指标均达标")
	}
	return recommendations
}
