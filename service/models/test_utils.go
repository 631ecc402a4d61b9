/*
 * @module service/models/test_utils
 * @description 模型测试辅助工具
 * @architecture 测试基础设施 - 专门为模型测试提供工具
 * @documentReference .specify/memory/test_plan.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 避免循环导入，专门为模型层测试提供工具
 * @dependencies gorm, sqlite, time
 */

package models

import (
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ModelTestDB 模型测试数据库配置
type ModelTestDB struct {
	DB *gorm.DB
}

// NewModelTestDB 创建模型测试数据库
func NewModelTestDB() *ModelTestDB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		panic(fmt.Sprintf("failed to connect test database: %v", err))
	}

	// sqlite内存库按连接隔离，限制单连接保证异步执行的协程访问同一个库
	sqlDB, err := db.DB()
	if err != nil {
		panic(fmt.Sprintf("failed to get underlying DB: %v", err))
	}
	sqlDB.SetMaxOpenConns(1)

	// 自动迁移所有模型
	err = db.AutoMigrate(
		&Dataset{},
		&DatasetRecord{},
		&QualityRuleTemplate{},
		&QualityTask{},
		&QualityTaskExecution{},
		&QualityIssueRecord{},
		&QualityReportRecord{},
		&IngestSubscription{},
		&ApiKey{},
		&SSEEvent{},
		&SSEConnection{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &ModelTestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *ModelTestDB) CleanDB() {
	// 清空所有表的数据
	tables := []string{
		"datasets",
		"dataset_records",
		"quality_rule_templates",
		"quality_tasks",
		"quality_task_executions",
		"quality_issue_records",
		"quality_report_records",
		"ingest_subscriptions",
		"api_keys",
		"sse_events",
		"sse_connections",
	}

	for _, table := range tables {
		tdb.DB.Exec(fmt.Sprintf("DELETE FROM %s", table))
	}
}

// Close 关闭数据库连接
func (tdb *ModelTestDB) Close() {
	sqlDB, err := tdb.DB.DB()
	if err != nil {
		fmt.Printf("Error getting underlying DB: %v\n", err)
		return
	}
	sqlDB.Close()
}

// ModelTestDataFactory 模型测试数据工厂
type ModelTestDataFactory struct {
	DB *gorm.DB
}

// NewModelTestDataFactory 创建新的模型测试数据工厂
func NewModelTestDataFactory(db *gorm.DB) *ModelTestDataFactory {
	return &ModelTestDataFactory{DB: db}
}

// CreateDataset 创建测试数据集
func (f *ModelTestDataFactory) CreateDataset() *Dataset {
	dataset := &Dataset{
		ID:          generateID("ds"),
		Name:        "测试数据集_" + generateSuffix(),
		Source:      "practo",
		City:        "bangalore",
		Specialty:   "dentist",
		Description: "这是一个测试数据集",
		Status:      "active",
		CreatedBy:   "test",
		UpdatedBy:   "test",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}

	err := f.DB.Create(dataset).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test dataset: %v", err))
	}

	return dataset
}

// CreateDatasetRecord 创建测试数据集记录
func (f *ModelTestDataFactory) CreateDatasetRecord(datasetID string, payload JSONB) *DatasetRecord {
	if payload == nil {
		payload = JSONB{
			"name":    "测试医生",
			"address": "测试地址",
			"rating":  4.5,
		}
	}
	record := &DatasetRecord{
		ID:         generateID("dr"),
		DatasetID:  datasetID,
		Payload:    payload,
		SourceFile: "test.csv",
		RowNumber:  1,
		CreatedAt:  time.Now(),
	}

	err := f.DB.Create(record).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test dataset record: %v", err))
	}

	return record
}

// CreateQualityTask 创建测试质量检测任务
func (f *ModelTestDataFactory) CreateQualityTask(datasetID string) *QualityTask {
	task := &QualityTask{
		ID:              generateID("qt"),
		Name:            "测试质量任务_" + generateSuffix(),
		Description:     "这是一个测试质量检测任务",
		DatasetID:       datasetID,
		MandatoryFields: JSONBStringArray{"name", "address"},
		FormatRules:     JSONB{"rating": map[string]interface{}{"min": 0.0, "max": 5.0}},
		KeyFields:       JSONBStringArray{"name", "address"},
		Threshold:       0.95,
		ScheduleType:    "manual",
		Status:          "pending",
		Priority:        50,
		IsEnabled:       true,
		CreatedBy:       "test",
		UpdatedBy:       "test",
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	err := f.DB.Create(task).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test quality task: %v", err))
	}

	return task
}

// 辅助函数
func generateID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixNano(), generateSuffix())
}

func generateSuffix() string {
	return fmt.Sprintf("%d", time.Now().UnixNano()%100000)
}
