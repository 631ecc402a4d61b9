/*
 * @module service/models/quality_models
 * @description 数据质量相关模型，包含规则模板、检测任务、执行记录、问题记录与质量报告
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/quality_engine.md
 * @stateFlow 任务调度 -> 质量评估 -> 问题记录 -> 质量报告
 * @rules 确保数据质量评估的准确性和一致性，评估配置随任务持久化
 * @dependencies gorm.io/gorm, github.com/lib/pq
 * @refs service/quality/, service/quality_task/
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// QualityRuleTemplate 质量规则模板模型
type QualityRuleTemplate struct {
	ID              string           `gorm:"type:varchar(50);primaryKey" json:"id"`
	Name            string           `gorm:"type:varchar(100);not null" json:"name"`
	Type            string           `gorm:"type:varchar(30);not null" json:"type"`     // completeness, format, uniqueness
	Category        string           `gorm:"type:varchar(50);not null" json:"category"` // basic_quality, data_validation
	Description     string           `gorm:"type:text" json:"description"`
	RuleConfig      JSONB            `gorm:"type:jsonb" json:"rule_config"`        // pattern/min/max/threshold 等参数
	DefaultFields   JSONBStringArray `gorm:"type:jsonb" json:"default_fields"`     // 默认作用字段
	ApplicableTypes pq.StringArray   `gorm:"type:text[]" json:"applicable_types"` // 适用的值类型
	IsBuiltIn       bool             `gorm:"default:false" json:"is_built_in"`
	IsEnabled       bool             `gorm:"default:true" json:"is_enabled"`
	Version         string           `gorm:"type:varchar(20);default:'1.0'" json:"version"`
	CreatedBy       string           `gorm:"type:varchar(50)" json:"created_by"`
	UpdatedBy       string           `gorm:"type:varchar(50)" json:"updated_by"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	DeletedAt       time.Time        `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (QualityRuleTemplate) TableName() string {
	return "quality_rule_templates"
}

// BeforeCreate 创建前钩子
func (q *QualityRuleTemplate) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.CreatedBy == "" {
		q.CreatedBy = "system"
	}
	if q.UpdatedBy == "" {
		q.UpdatedBy = "system"
	}
	return nil
}

// BeforeUpdate 更新前钩子
func (q *QualityRuleTemplate) BeforeUpdate(tx *gorm.DB) error {
	if q.UpdatedBy == "" {
		q.UpdatedBy = "system"
	}
	return nil
}

// ScheduleType 调度类型
type ScheduleType string

const (
	ScheduleTypeCron     ScheduleType = "cron"     // cron表达式
	ScheduleTypeInterval ScheduleType = "interval" // 间隔执行
	ScheduleTypeOnce     ScheduleType = "once"     // 一次性执行
	ScheduleTypeManual   ScheduleType = "manual"   // 手动执行
)

// ScheduleConfig 调度配置结构体
type ScheduleConfig struct {
	Type      string     `json:"type"`       // cron, interval, once, manual
	CronExpr  string     `json:"cron_expr"`  // cron表达式 (当type=cron时)
	Interval  int64      `json:"interval"`   // 间隔秒数 (当type=interval时)
	StartTime *time.Time `json:"start_time"` // 开始时间 (当type=once时)
}

// QualityTask 质量检测任务模型，评估配置随任务持久化
type QualityTask struct {
	ID                string           `gorm:"type:varchar(50);primaryKey" json:"id"`
	Name              string           `gorm:"type:varchar(100);not null" json:"name"`
	Description       string           `gorm:"type:text" json:"description"`
	DatasetID         string           `gorm:"type:varchar(50);not null;index" json:"dataset_id"` // 目标数据集ID
	MandatoryFields   JSONBStringArray `gorm:"type:jsonb" json:"mandatory_fields"`                // 必填字段列表
	FormatRules       JSONB            `gorm:"type:jsonb" json:"format_rules"`                    // 字段 -> {pattern} 或 {min,max}
	KeyFields         JSONBStringArray `gorm:"type:jsonb" json:"key_fields"`                      // 重复识别键字段
	CategoricalFields JSONBStringArray `gorm:"type:jsonb" json:"categorical_fields"`              // 分类统计字段
	CustomScript      string           `gorm:"type:text" json:"custom_script"`                    // 自定义脚本谓词，逐条记录执行
	Threshold         float64          `gorm:"default:0.95" json:"threshold"`                     // 完整性通过阈值
	ScheduleType      string           `gorm:"type:varchar(20);not null" json:"schedule_type"`    // cron, interval, once, manual
	CronExpression    string           `gorm:"type:varchar(100)" json:"cron_expression"`
	IntervalSeconds   int64            `gorm:"default:0" json:"interval_seconds"`
	ScheduledTime     *time.Time       `json:"scheduled_time"` // 计划执行时间(once类型)
	NotifyEnabled     bool             `gorm:"default:false" json:"notify_enabled"`
	NotifyOnSuccess   bool             `gorm:"default:false" json:"notify_on_success"`
	NotifyOnFailure   bool             `gorm:"default:true" json:"notify_on_failure"`
	Recipients        JSONBStringArray `gorm:"type:jsonb" json:"recipients"`
	Status            string           `gorm:"type:varchar(30);default:'pending'" json:"status"` // pending, running, completed, failed, completed_with_issues, cancelled
	Priority          int              `gorm:"default:50" json:"priority"`                       // 优先级 (1-100)
	IsEnabled         bool             `gorm:"default:true" json:"is_enabled"`
	LastExecuted      *time.Time       `json:"last_executed,omitempty"`
	NextExecution     *time.Time       `json:"next_execution,omitempty"`
	ExecutionCount    int64            `gorm:"default:0" json:"execution_count"`
	SuccessCount      int64            `gorm:"default:0" json:"success_count"`
	FailureCount      int64            `gorm:"default:0" json:"failure_count"`
	CreatedBy         string           `gorm:"type:varchar(50)" json:"created_by"`
	UpdatedBy         string           `gorm:"type:varchar(50)" json:"updated_by"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
	DeletedAt         time.Time        `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (QualityTask) TableName() string {
	return "quality_tasks"
}

// BeforeCreate 创建前钩子
func (q *QualityTask) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.CreatedBy == "" {
		q.CreatedBy = "system"
	}
	if q.UpdatedBy == "" {
		q.UpdatedBy = "system"
	}
	return nil
}

// BeforeUpdate 更新前钩子
func (q *QualityTask) BeforeUpdate(tx *gorm.DB) error {
	if q.UpdatedBy == "" {
		q.UpdatedBy = "system"
	}
	return nil
}

// QualityTaskExecution 质量检测任务执行记录模型
type QualityTaskExecution struct {
	ID            string     `gorm:"type:varchar(50);primaryKey" json:"id"`
	TaskID        string     `gorm:"type:varchar(50);not null;index" json:"task_id"`
	DatasetID     string     `gorm:"type:varchar(50);not null;index" json:"dataset_id"`
	ExecutionType string     `gorm:"type:varchar(30);not null" json:"execution_type"` // scheduled, manual, triggered
	StartTime     time.Time  `json:"start_time"`
	EndTime       *time.Time `json:"end_time,omitempty"`
	Duration      int64      `json:"duration"`                                // 执行时长，毫秒
	Status        string     `gorm:"type:varchar(30);not null" json:"status"` // running, completed, failed, cancelled, completed_with_issues
	TotalRecords  int64      `json:"total_records"`
	OverallScore  float64    `json:"overall_score"`                    // 总体质量评分 (0-1)
	ReportID      string     `gorm:"type:varchar(50)" json:"report_id"` // 关联质量报告ID
	IssueCount    int64      `json:"issue_count"`                      // 问题记录数量
	ErrorMessage  string     `gorm:"type:text" json:"error_message,omitempty"`
	TriggerSource string     `gorm:"type:varchar(50)" json:"trigger_source"` // 触发来源
	ExecutedBy    string     `gorm:"type:varchar(50)" json:"executed_by"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	DeletedAt     time.Time  `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (QualityTaskExecution) TableName() string {
	return "quality_task_executions"
}

// BeforeCreate 创建前钩子
func (q *QualityTaskExecution) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.ExecutedBy == "" {
		q.ExecutedBy = "system"
	}
	return nil
}

// BeforeUpdate 更新前钩子
func (q *QualityTaskExecution) BeforeUpdate(tx *gorm.DB) error {
	// 更新时不自动设置字段，保持原有逻辑
	return nil
}

// QualityIssueRecord 质量问题数据记录模型
type QualityIssueRecord struct {
	ID               string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	ExecutionID      string    `gorm:"type:varchar(50);not null;index" json:"execution_id"` // 关联执行记录ID
	TaskID           string    `gorm:"type:varchar(50);not null;index" json:"task_id"`      // 关联任务ID
	FieldName        string    `gorm:"type:varchar(100);index" json:"field_name"`           // 问题字段名，重复问题为空
	IssueType        string    `gorm:"type:varchar(50);not null" json:"issue_type"`         // missing_value, invalid_format, duplicate_record, script_rule
	IssueDescription string    `gorm:"type:text;not null" json:"issue_description"`         // 问题描述
	FieldValue       string    `gorm:"type:text" json:"field_value"`                        // 问题字段值
	ExpectedValue    string    `gorm:"type:text" json:"expected_value"`                     // 期望值或规则描述
	RecordIdentifier string    `gorm:"type:text;not null" json:"record_identifier"`         // 问题记录的标识
	Severity         string    `gorm:"type:varchar(20);not null;index" json:"severity"`     // low, medium, high, critical
	CreatedAt        time.Time `json:"created_at"`
	DeletedAt        time.Time `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (QualityIssueRecord) TableName() string {
	return "quality_issue_records"
}

// BeforeCreate 创建前钩子
func (q *QualityIssueRecord) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	return nil
}

// QualityReportRecord 质量报告持久化模型，ReportData 保存引擎产出的完整报告
type QualityReportRecord struct {
	ID              string           `gorm:"type:varchar(50);primaryKey" json:"id"`
	DatasetID       string           `gorm:"type:varchar(50);not null;index" json:"dataset_id"`
	TaskID          string           `gorm:"type:varchar(50);index" json:"task_id"`      // 任务触发时关联任务ID
	ExecutionID     string           `gorm:"type:varchar(50);index" json:"execution_id"` // 关联执行记录ID
	TotalRecords    int              `json:"total_records"`
	OverallScore    float64          `json:"overall_score"`                        // 总体质量评分 (0-1)
	Grade           string           `gorm:"type:varchar(20)" json:"grade"`        // excellent, good, fair, poor
	ReportData      JSONB            `gorm:"type:jsonb;not null" json:"report_data"`
	Recommendations JSONBStringArray `gorm:"type:jsonb" json:"recommendations"` // 改进建议
	GeneratedAt     time.Time        `json:"generated_at"`
	GeneratedBy     string           `gorm:"type:varchar(50)" json:"generated_by"`
	CreatedAt       time.Time        `json:"created_at"`
	DeletedAt       time.Time        `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (QualityReportRecord) TableName() string {
	return "quality_report_records"
}

// BeforeCreate 创建前钩子
func (q *QualityReportRecord) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.New().String()
	}
	if q.GeneratedBy == "" {
		q.GeneratedBy = "system"
	}
	return nil
}
