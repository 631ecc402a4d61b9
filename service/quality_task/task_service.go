/*
 * @module service/quality_task/task_service
 * @description 质量检测任务服务，负责任务的创建、调度执行、问题落库与结果通知
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/quality_engine.md
 * @stateFlow 任务创建 -> 任务启动 -> 异步评估 -> 报告与问题落库 -> 结果通知
 * @rules 评估配置随任务持久化并在创建时校验，执行快照取自数据集当前全量记录
 * @dependencies gorm.io/gorm, service/models, service/quality, github.com/robfig/cron/v3
 * @refs scheduler.go, template_service.go
 */

package quality_task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dataquality-service/service/dataset"
	"dataquality-service/service/datasource"
	"dataquality-service/service/models"
	"dataquality-service/service/monitoring"
	"dataquality-service/service/quality"
	"dataquality-service/service/quality_report"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// EventPublisher 任务结果事件的发布端口，由事件服务实现
type EventPublisher interface {
	PublishQualityEvent(eventType string, data map[string]interface{})
}

// QualityTaskService 质量检测任务服务
type QualityTaskService struct {
	db             *gorm.DB
	datasetService *dataset.DatasetService
	reportService  *quality_report.ReportService
	scriptExecutor datasource.ScriptExecutor
	eventPublisher EventPublisher
}

// NewQualityTaskService 创建质量检测任务服务实例
func NewQualityTaskService(db *gorm.DB, datasetService *dataset.DatasetService, reportService *quality_report.ReportService) *QualityTaskService {
	return &QualityTaskService{
		db:             db,
		datasetService: datasetService,
		reportService:  reportService,
		scriptExecutor: datasource.NewYaegiScriptExecutor(),
	}
}

// SetEventPublisher 设置任务结果事件发布器
func (s *QualityTaskService) SetEventPublisher(pub EventPublisher) {
	s.eventPublisher = pub
	if pub != nil {
		slog.Info("质量检测任务服务已启用结果通知")
	}
}

// === 任务管理 ===

// CreateQualityTask 创建质量检测任务，评估配置与调度配置在创建时整体校验
func (s *QualityTaskService) CreateQualityTask(task *models.QualityTask) error {
	if task.Name == "" {
		return errors.New("任务名称不能为空")
	}
	if task.DatasetID == "" {
		return errors.New("必须指定目标数据集")
	}

	var ds models.Dataset
	if err := s.db.First(&ds, "id = ?", task.DatasetID).Error; err != nil {
		return fmt.Errorf("目标数据集不存在: %w", err)
	}

	if task.Threshold < 0 || task.Threshold > 1 {
		return errors.New("完整率阈值必须在 [0,1] 区间内")
	}

	// 评估配置校验失败时不落库，避免产生一个必然失败的任务
	cfg, err := buildReportConfig(task)
	if err != nil {
		return err
	}
	if err := quality.ValidateConfig(cfg); err != nil {
		return err
	}
	if task.CustomScript != "" {
		if err := s.scriptExecutor.Validate(task.CustomScript); err != nil {
			return fmt.Errorf("自定义脚本校验失败: %w", err)
		}
	}

	if task.ScheduleType == "" {
		task.ScheduleType = string(models.ScheduleTypeManual)
	}
	nextExec, err := s.CalculateNextExecution(scheduleConfigOf(task), nil)
	if err != nil {
		return err
	}
	task.NextExecution = nextExec

	if task.Status == "" {
		task.Status = "pending"
	}

	return s.db.Create(task).Error
}

// GetQualityTasks 获取质量检测任务列表
func (s *QualityTaskService) GetQualityTasks(page, pageSize int, status, datasetID string) ([]models.QualityTask, int64, error) {
	query := s.db.Model(&models.QualityTask{})

	if status != "" {
		query = query.Where("status = ?", status)
	}
	if datasetID != "" {
		query = query.Where("dataset_id = ?", datasetID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var tasks []models.QualityTask
	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

// GetQualityTaskByID 根据ID获取质量检测任务
func (s *QualityTaskService) GetQualityTaskByID(id string) (*models.QualityTask, error) {
	var task models.QualityTask
	if err := s.db.First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// UpdateQualityTask 更新质量检测任务，更新后的整体配置重新校验
func (s *QualityTaskService) UpdateQualityTask(id string, updates map[string]interface{}) error {
	var task models.QualityTask
	if err := s.db.First(&task, "id = ?", id).Error; err != nil {
		return err
	}
	if task.Status == "running" {
		return errors.New("正在运行的任务不能修改")
	}
	if len(updates) == 0 {
		return nil
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.QualityTask{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		var updated models.QualityTask
		if err := tx.First(&updated, "id = ?", id).Error; err != nil {
			return err
		}

		cfg, err := buildReportConfig(&updated)
		if err != nil {
			return err
		}
		if err := quality.ValidateConfig(cfg); err != nil {
			return err
		}
		if updated.CustomScript != "" {
			if err := s.scriptExecutor.Validate(updated.CustomScript); err != nil {
				return fmt.Errorf("自定义脚本校验失败: %w", err)
			}
		}

		nextExec, err := s.CalculateNextExecution(scheduleConfigOf(&updated), nil)
		if err != nil {
			return err
		}
		return tx.Model(&models.QualityTask{}).Where("id = ?", id).
			Update("next_execution", nextExec).Error
	})
}

// DeleteQualityTask 删除质量检测任务及其执行记录与问题记录
func (s *QualityTaskService) DeleteQualityTask(id string) error {
	var task models.QualityTask
	if err := s.db.First(&task, "id = ?", id).Error; err != nil {
		return err
	}
	if task.Status == "running" {
		return errors.New("正在运行的任务不能删除")
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.QualityIssueRecord{}, "task_id = ?", id).Error; err != nil {
			return fmt.Errorf("删除问题记录失败: %w", err)
		}
		if err := tx.Delete(&models.QualityTaskExecution{}, "task_id = ?", id).Error; err != nil {
			return fmt.Errorf("删除执行记录失败: %w", err)
		}
		if err := tx.Delete(&models.QualityTask{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("删除任务失败: %w", err)
		}
		return nil
	})
}

// === 任务执行 ===

// StartQualityTask 启动质量检测任务，评估在独立协程中异步执行
func (s *QualityTaskService) StartQualityTask(id, executionType, triggerSource string) (*models.QualityTaskExecution, error) {
	var task models.QualityTask
	if err := s.db.First(&task, "id = ?", id).Error; err != nil {
		return nil, err
	}

	if task.Status == "running" {
		return nil, errors.New("任务正在运行中")
	}

	if executionType == "" {
		executionType = "manual"
	}

	execution := &models.QualityTaskExecution{
		TaskID:        id,
		DatasetID:     task.DatasetID,
		ExecutionType: executionType,
		StartTime:     time.Now(),
		Status:        "running",
		TriggerSource: triggerSource,
	}

	if err := s.db.Create(execution).Error; err != nil {
		return nil, err
	}

	if err := s.db.Model(&task).Updates(map[string]interface{}{
		"status":        "running",
		"last_executed": time.Now(),
	}).Error; err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		s.eventPublisher.PublishQualityEvent("task_started", map[string]interface{}{
			"task_id":        task.ID,
			"task_name":      task.Name,
			"dataset_id":     task.DatasetID,
			"execution_id":   execution.ID,
			"execution_type": executionType,
			"trigger_source": triggerSource,
		})
	}

	// 异步执行任务
	go s.executeQualityTask(execution)

	return execution, nil
}

// StopQualityTask 停止质量检测任务的后续调度
func (s *QualityTaskService) StopQualityTask(id string) error {
	return s.db.Model(&models.QualityTask{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status": "cancelled",
	}).Error
}

// executeQualityTask 执行质量检测任务：加载数据集快照、运行质量引擎、落库报告与问题
func (s *QualityTaskService) executeQualityTask(execution *models.QualityTaskExecution) {
	var task models.QualityTask
	if err := s.db.First(&task, "id = ?", execution.TaskID).Error; err != nil {
		s.finishExecution(execution.ID, "failed", 0, 0, "", 0, fmt.Sprintf("获取任务失败: %v", err))
		return
	}

	ds, err := s.datasetService.LoadRecords(task.DatasetID)
	if err != nil {
		s.finishExecution(execution.ID, "failed", 0, 0, "", 0, fmt.Sprintf("加载数据集失败: %v", err))
		return
	}

	cfg, err := buildReportConfig(&task)
	if err != nil {
		s.finishExecution(execution.ID, "failed", int64(len(ds)), 0, "", 0, fmt.Sprintf("解析任务配置失败: %v", err))
		return
	}

	progress := quality.NewProgressLog()
	report, err := quality.GenerateReport(ds, cfg, &quality.Options{
		Threshold: task.Threshold,
		Progress:  progress,
	})
	if err != nil {
		s.finishExecution(execution.ID, "failed", int64(len(ds)), 0, "", 0, fmt.Sprintf("质量评估失败: %v", err))
		return
	}
	for _, entry := range progress.Entries() {
		slog.Debug("质量评估进度", "task_id", task.ID, "stage", entry.Stage, "message", entry.Message)
	}

	findings, err := quality.CollectFindings(ds, cfg)
	if err != nil {
		s.finishExecution(execution.ID, "failed", int64(len(ds)), 0, "", 0, fmt.Sprintf("收集质量问题失败: %v", err))
		return
	}

	reportRecord, err := s.reportService.SaveReport(task.DatasetID, task.ID, execution.ID, report)
	if err != nil {
		s.finishExecution(execution.ID, "failed", int64(len(ds)), report.OverallScore(), "", 0, fmt.Sprintf("保存质量报告失败: %v", err))
		return
	}

	issueCount := s.recordFindings(execution, &task, ds, findings)
	if task.CustomScript != "" {
		issueCount += s.recordScriptIssues(execution, &task, ds)
	}

	status := "completed"
	if issueCount > 0 {
		status = "completed_with_issues"
	}
	s.finishExecution(execution.ID, status, int64(len(ds)), report.OverallScore(), reportRecord.ID, issueCount, "")
}

// recordFindings 将引擎逐条问题落库，返回落库的问题数量
func (s *QualityTaskService) recordFindings(execution *models.QualityTaskExecution, task *models.QualityTask, ds quality.Dataset, findings []quality.Finding) int64 {
	if len(findings) == 0 {
		return 0
	}

	severity := s.determineSeverity(task.Priority)
	issues := make([]models.QualityIssueRecord, 0, len(findings))
	for _, f := range findings {
		issues = append(issues, models.QualityIssueRecord{
			ExecutionID:      execution.ID,
			TaskID:           task.ID,
			FieldName:        f.Field,
			IssueType:        f.Kind,
			IssueDescription: f.Detail,
			FieldValue:       f.Value,
			ExpectedValue:    f.Expected,
			RecordIdentifier: recordIdentifier(ds, f.RecordIndex),
			Severity:         severity,
		})
	}

	if err := s.db.CreateInBatches(issues, 200).Error; err != nil {
		// 问题落库失败不中断执行，报告与执行记录仍然有效
		slog.Error("记录质量问题失败", "task_id", task.ID, "execution_id", execution.ID, "error", err)
		return 0
	}
	for _, issue := range issues {
		monitoring.IssuesFoundTotal.WithLabelValues(issue.IssueType).Inc()
	}
	return int64(len(issues))
}

// recordScriptIssues 逐条执行自定义脚本谓词并落库未通过的记录，返回问题数量。
// 脚本运行时出错即停止剩余记录的评估，已产生的问题保留。
func (s *QualityTaskService) recordScriptIssues(execution *models.QualityTaskExecution, task *models.QualityTask, ds quality.Dataset) int64 {
	severity := s.determineSeverity(task.Priority)
	issues := make([]models.QualityIssueRecord, 0)
	for i, record := range ds {
		result, err := s.scriptExecutor.Execute(context.Background(), task.CustomScript, map[string]interface{}{
			"record":    map[string]interface{}(record),
			"row_index": i,
		})
		if err != nil {
			slog.Warn("自定义脚本执行失败，跳过剩余记录",
				"task_id", task.ID, "row", i+1, "error", err)
			break
		}
		pass, message := scriptVerdict(result)
		if pass {
			continue
		}
		if message == "" {
			message = "记录未通过自定义脚本检查"
		}
		issues = append(issues, models.QualityIssueRecord{
			ExecutionID:      execution.ID,
			TaskID:           task.ID,
			IssueType:        "script_rule",
			IssueDescription: message,
			ExpectedValue:    "自定义脚本检查通过",
			RecordIdentifier: recordIdentifier(ds, i),
			Severity:         severity,
		})
	}

	if len(issues) == 0 {
		return 0
	}
	if err := s.db.CreateInBatches(issues, 200).Error; err != nil {
		slog.Error("记录脚本检查问题失败", "task_id", task.ID, "execution_id", execution.ID, "error", err)
		return 0
	}
	monitoring.IssuesFoundTotal.WithLabelValues("script_rule").Add(float64(len(issues)))
	return int64(len(issues))
}

// scriptVerdict 解析脚本返回值。false 或 {"pass": false, "message": ...}
// 视为记录未通过，其余返回值一律视为通过。
func scriptVerdict(result interface{}) (bool, string) {
	switch v := result.(type) {
	case bool:
		return v, ""
	case map[string]interface{}:
		return cast.ToBool(v["pass"]), cast.ToString(v["message"])
	default:
		return true, ""
	}
}

// recordIdentifier 构建问题记录的标识：优先取记录的name字段，否则使用行号
func recordIdentifier(ds quality.Dataset, index int) string {
	if index >= 0 && index < len(ds) {
		if v, ok := ds[index]["name"]; ok && v != nil {
			if s := strings.TrimSpace(cast.ToString(v)); s != "" {
				return s
			}
		}
	}
	return fmt.Sprintf("row_%d", index+1)
}

// determineSeverity 根据任务优先级确定问题严重程度
func (s *QualityTaskService) determineSeverity(priority int) string {
	if priority >= 80 {
		return "critical"
	} else if priority >= 60 {
		return "high"
	} else if priority >= 40 {
		return "medium"
	}
	return "low"
}

// finishExecution 完成执行并更新状态
func (s *QualityTaskService) finishExecution(executionID, status string, totalRecords int64, overallScore float64, reportID string, issueCount int64, errorMessage string) {
	endTime := time.Now()

	var execution models.QualityTaskExecution
	s.db.First(&execution, "id = ?", executionID)

	duration := endTime.Sub(execution.StartTime).Milliseconds()

	monitoring.TaskExecutionsTotal.WithLabelValues(status).Inc()
	monitoring.TaskDurationSeconds.Observe(endTime.Sub(execution.StartTime).Seconds())

	updates := map[string]interface{}{
		"end_time":      &endTime,
		"duration":      duration,
		"status":        status,
		"total_records": totalRecords,
		"overall_score": overallScore,
		"issue_count":   issueCount,
	}
	if reportID != "" {
		updates["report_id"] = reportID
	}
	if errorMessage != "" {
		updates["error_message"] = errorMessage
	}

	s.db.Model(&models.QualityTaskExecution{}).Where("id = ?", executionID).Updates(updates)

	// 更新任务状态
	taskUpdates := map[string]interface{}{
		"status":          status,
		"last_executed":   &endTime,
		"execution_count": gorm.Expr("execution_count + 1"),
	}

	if status == "completed" || status == "completed_with_issues" {
		taskUpdates["success_count"] = gorm.Expr("success_count + 1")
	} else {
		taskUpdates["failure_count"] = gorm.Expr("failure_count + 1")
	}

	s.db.Model(&models.QualityTask{}).Where("id = ?", execution.TaskID).Updates(taskUpdates)

	s.notifyExecutionResult(execution.TaskID, executionID, status, totalRecords, overallScore, reportID, issueCount, errorMessage)
}

// notifyExecutionResult 按任务的通知配置发布执行结果事件
func (s *QualityTaskService) notifyExecutionResult(taskID, executionID, status string, totalRecords int64, overallScore float64, reportID string, issueCount int64, errorMessage string) {
	if s.eventPublisher == nil {
		return
	}

	var task models.QualityTask
	if err := s.db.First(&task, "id = ?", taskID).Error; err != nil {
		return
	}
	if !task.NotifyEnabled {
		return
	}

	succeeded := status == "completed" || status == "completed_with_issues"
	if succeeded && !task.NotifyOnSuccess {
		return
	}
	if !succeeded && !task.NotifyOnFailure {
		return
	}

	eventType := "task_completed"
	if !succeeded {
		eventType = "task_failed"
	}

	s.eventPublisher.PublishQualityEvent(eventType, map[string]interface{}{
		"task_id":       task.ID,
		"task_name":     task.Name,
		"dataset_id":    task.DatasetID,
		"execution_id":  executionID,
		"status":        status,
		"total_records": totalRecords,
		"overall_score": overallScore,
		"report_id":     reportID,
		"issue_count":   issueCount,
		"error_message": errorMessage,
		"recipients":    []string(task.Recipients),
	})

	if succeeded && issueCount > 0 {
		s.eventPublisher.PublishQualityEvent("issues_found", map[string]interface{}{
			"task_id":      task.ID,
			"task_name":    task.Name,
			"dataset_id":   task.DatasetID,
			"execution_id": executionID,
			"issue_count":  issueCount,
			"recipients":   []string(task.Recipients),
		})
	}
}

// === 执行记录与问题查询 ===

// GetQualityTaskExecutions 获取质量检测任务执行记录
func (s *QualityTaskService) GetQualityTaskExecutions(taskID string, page, pageSize int) ([]models.QualityTaskExecution, int64, error) {
	query := s.db.Model(&models.QualityTaskExecution{}).Where("task_id = ?", taskID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var executions []models.QualityTaskExecution
	offset := (page - 1) * pageSize
	if err := query.Order("start_time DESC").Offset(offset).Limit(pageSize).Find(&executions).Error; err != nil {
		return nil, 0, err
	}

	return executions, total, nil
}

// GetExecutionByID 根据ID获取执行记录
func (s *QualityTaskService) GetExecutionByID(id string) (*models.QualityTaskExecution, error) {
	var execution models.QualityTaskExecution
	if err := s.db.First(&execution, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &execution, nil
}

// GetQualityIssueRecords 获取质量问题记录
func (s *QualityTaskService) GetQualityIssueRecords(taskID, executionID string, page, pageSize int, fieldName, severity, issueType string) ([]models.QualityIssueRecord, int64, error) {
	query := s.db.Model(&models.QualityIssueRecord{})

	if taskID != "" {
		query = query.Where("task_id = ?", taskID)
	}
	if executionID != "" {
		query = query.Where("execution_id = ?", executionID)
	}
	if fieldName != "" {
		query = query.Where("field_name = ?", fieldName)
	}
	if severity != "" {
		query = query.Where("severity = ?", severity)
	}
	if issueType != "" {
		query = query.Where("issue_type = ?", issueType)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var records []models.QualityIssueRecord
	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// === 调度时间计算 ===

// CalculateNextExecution 计算下次执行时间
func (s *QualityTaskService) CalculateNextExecution(config models.ScheduleConfig, lastExecution *time.Time) (*time.Time, error) {
	now := time.Now()
	if lastExecution != nil {
		now = *lastExecution
	}

	switch config.Type {
	case string(models.ScheduleTypeManual):
		// 手动触发，不设置下次执行时间
		return nil, nil

	case string(models.ScheduleTypeOnce):
		if config.StartTime != nil && config.StartTime.After(time.Now()) {
			return config.StartTime, nil
		}
		return nil, nil

	case string(models.ScheduleTypeInterval):
		if config.Interval <= 0 {
			return nil, errors.New("间隔时间必须大于0")
		}
		nextTime := now.Add(time.Duration(config.Interval) * time.Second)
		return &nextTime, nil

	case string(models.ScheduleTypeCron):
		if config.CronExpr == "" {
			return nil, errors.New("Cron表达式不能为空")
		}
		parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
		schedule, err := parser.Parse(config.CronExpr)
		if err != nil {
			return nil, fmt.Errorf("解析Cron表达式失败: %w", err)
		}
		nextTime := schedule.Next(now)
		return &nextTime, nil

	default:
		return nil, fmt.Errorf("不支持的调度类型: %s", config.Type)
	}
}

// scheduleConfigOf 从任务模型提取调度配置
func scheduleConfigOf(task *models.QualityTask) models.ScheduleConfig {
	return models.ScheduleConfig{
		Type:      task.ScheduleType,
		CronExpr:  task.CronExpression,
		Interval:  task.IntervalSeconds,
		StartTime: task.ScheduledTime,
	}
}

// buildReportConfig 将任务持久化的评估配置转换为引擎配置
func buildReportConfig(task *models.QualityTask) (quality.ReportConfig, error) {
	rules := make(map[string]quality.FormatRule, len(task.FormatRules))
	for field, raw := range task.FormatRules {
		spec, err := cast.ToStringMapE(raw)
		if err != nil {
			return quality.ReportConfig{}, fmt.Errorf("字段 %s 的格式规则必须是对象: %w", field, err)
		}

		var rule quality.FormatRule
		if pattern, ok := spec["pattern"]; ok && pattern != nil {
			rule.Pattern = cast.ToString(pattern)
		}
		if v, ok := spec["min"]; ok && v != nil {
			f, err := cast.ToFloat64E(v)
			if err != nil {
				return quality.ReportConfig{}, fmt.Errorf("字段 %s 的数值下界无法解析: %w", field, err)
			}
			rule.Min = &f
		}
		if v, ok := spec["max"]; ok && v != nil {
			f, err := cast.ToFloat64E(v)
			if err != nil {
				return quality.ReportConfig{}, fmt.Errorf("字段 %s 的数值上界无法解析: %w", field, err)
			}
			rule.Max = &f
		}
		rules[field] = rule
	}

	return quality.ReportConfig{
		MandatoryFields:   []string(task.MandatoryFields),
		FormatRules:       rules,
		KeyFields:         []string(task.KeyFields),
		CategoricalFields: []string(task.CategoricalFields),
		Threshold:         task.Threshold,
	}, nil
}
