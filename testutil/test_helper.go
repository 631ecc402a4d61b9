/*
 * @module testutil/test_helper
 * @description 测试工具和辅助函数
 * @architecture 测试基础设施 - 提供测试通用工具和数据工厂
 * @documentReference ai_docs/quality_engine.md
 * @stateFlow 测试环境初始化 -> 测试数据创建 -> 测试执行 -> 清理资源
 * @rules 提供可重用的测试工具，确保测试环境的一致性
 * @dependencies gorm, sqlite, testify, time
 * @refs service/models
 */

package testutil

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"dataquality-service/service/models"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// TestDB 测试数据库配置
type TestDB struct {
	DB *gorm.DB
}

// NewTestDB 创建测试数据库
func NewTestDB() *TestDB {
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
		&models.Dataset{},
		&models.DatasetRecord{},
		&models.QualityRuleTemplate{},
		&models.QualityTask{},
		&models.QualityTaskExecution{},
		&models.QualityIssueRecord{},
		&models.QualityReportRecord{},
		&models.IngestSubscription{},
		&models.ApiKey{},
		&models.SSEEvent{},
		&models.SSEConnection{},
	)
	if err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}

	return &TestDB{DB: db}
}

// CleanDB 清理数据库
func (tdb *TestDB) CleanDB() {
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
func (tdb *TestDB) Close() {
	if db, err := tdb.DB.DB(); err == nil {
		db.Close()
	}
}

// TestDataFactory 测试数据工厂
type TestDataFactory struct {
	DB *gorm.DB
}

// NewTestDataFactory 创建测试数据工厂
func NewTestDataFactory(db *gorm.DB) *TestDataFactory {
	return &TestDataFactory{DB: db}
}

// DatasetOption 数据集选项函数类型
type DatasetOption func(*models.Dataset)

// CreateDataset 创建测试数据集
func (f *TestDataFactory) CreateDataset(opts ...DatasetOption) *models.Dataset {
	dataset := &models.Dataset{
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

	// 应用选项
	for _, opt := range opts {
		opt(dataset)
	}

	err := f.DB.Create(dataset).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test dataset: %v", err))
	}

	return dataset
}

// DatasetRecordOption 数据集记录选项函数类型
type DatasetRecordOption func(*models.DatasetRecord)

// CreateDatasetRecord 创建测试数据集记录
func (f *TestDataFactory) CreateDatasetRecord(datasetID string, opts ...DatasetRecordOption) *models.DatasetRecord {
	record := &models.DatasetRecord{
		ID:        generateID("dr"),
		DatasetID: datasetID,
		Payload: models.JSONB{
			"name":      "测试医生",
			"address":   "测试地址",
			"specialty": "dentist",
			"rating":    4.5,
		},
		SourceFile: "test.csv",
		RowNumber:  1,
		CreatedAt:  time.Now(),
	}

	// 应用选项
	for _, opt := range opts {
		opt(record)
	}

	err := f.DB.Create(record).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test dataset record: %v", err))
	}

	return record
}

// QualityTaskOption 质量任务选项函数类型
type QualityTaskOption func(*models.QualityTask)

// CreateQualityTask 创建测试质量检测任务
func (f *TestDataFactory) CreateQualityTask(datasetID string, opts ...QualityTaskOption) *models.QualityTask {
	task := &models.QualityTask{
		ID:              generateID("qt"),
		Name:            "测试质量任务_" + generateSuffix(),
		Description:     "这是一个测试质量检测任务",
		DatasetID:       datasetID,
		MandatoryFields: models.JSONBStringArray{"name", "address"},
		FormatRules:     models.JSONB{"rating": map[string]interface{}{"min": 0.0, "max": 5.0}},
		KeyFields:       models.JSONBStringArray{"name", "address"},
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

	// 应用选项
	for _, opt := range opts {
		opt(task)
	}

	err := f.DB.Create(task).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test quality task: %v", err))
	}

	return task
}

// QualityRuleTemplateOption 质量规则模板选项函数类型
type QualityRuleTemplateOption func(*models.QualityRuleTemplate)

// CreateQualityRuleTemplate 创建测试质量规则模板
func (f *TestDataFactory) CreateQualityRuleTemplate(opts ...QualityRuleTemplateOption) *models.QualityRuleTemplate {
	template := &models.QualityRuleTemplate{
		ID:          generateID("qrt"),
		Name:        "测试质量规则_" + generateSuffix(),
		Type:        "completeness",
		Category:    "basic_quality",
		Description: "这是一个测试质量规则模板",
		RuleConfig: models.JSONB{
			"threshold": 0.95,
		},
		DefaultFields: models.JSONBStringArray{"name", "address"},
		IsBuiltIn:     false,
		IsEnabled:     true,
		Version:       "1.0",
		CreatedBy:     "test",
		UpdatedBy:     "test",
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}

	// 应用选项
	for _, opt := range opts {
		opt(template)
	}

	err := f.DB.Create(template).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test quality rule template: %v", err))
	}

	return template
}

// IngestSubscriptionOption 接入订阅选项函数类型
type IngestSubscriptionOption func(*models.IngestSubscription)

// CreateIngestSubscription 创建测试接入订阅
func (f *TestDataFactory) CreateIngestSubscription(datasetID string, opts ...IngestSubscriptionOption) *models.IngestSubscription {
	sub := &models.IngestSubscription{
		ID:        generateID("sub"),
		DatasetID: datasetID,
		Source:    "kafka",
		Topic:     "doctors." + generateSuffix(),
		IsEnabled: true,
		CreatedBy: "test",
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	// 应用选项
	for _, opt := range opts {
		opt(sub)
	}

	err := f.DB.Create(sub).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test ingest subscription: %v", err))
	}

	return sub
}

// ApiKeyOption API密钥选项函数类型
type ApiKeyOption func(*models.ApiKey)

// CreateApiKey 创建测试API密钥
func (f *TestDataFactory) CreateApiKey(opts ...ApiKeyOption) *models.ApiKey {
	apiKey := &models.ApiKey{
		ID:           generateID("ak"),
		Name:         "测试API密钥",
		KeyPrefix:    "test",
		KeyValueHash: "test_key_hash_" + generateSuffix(),
		Description:  "这是一个测试API密钥",
		Scopes:       models.JSONBStringArray{"datasets:read", "reports:read"},
		Status:       "active",
		CreatedBy:    "test",
		UpdatedBy:    "test",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	// 应用选项
	for _, opt := range opts {
		opt(apiKey)
	}

	err := f.DB.Create(apiKey).Error
	if err != nil {
		panic(fmt.Sprintf("failed to create test api key: %v", err))
	}

	return apiKey
}

// 辅助函数
func generateID(prefix string) string {
	return fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixNano(), generateSuffix())
}

func generateSuffix() string {
	return fmt.Sprintf("%d", time.Now().UnixNano()%100000)
}

// HTTPTestHelper HTTP测试辅助工具
type HTTPTestHelper struct{}

// NewHTTPTestHelper 创建HTTP测试辅助工具
func NewHTTPTestHelper() *HTTPTestHelper {
	return &HTTPTestHelper{}
}

// CreateJSONRequest 创建JSON请求
func (h *HTTPTestHelper) CreateJSONRequest(method, url string, body interface{}) (*http.Request, error) {
	var reqBody io.Reader

	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonBody)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// AssertJSONResponse 断言JSON响应
func (h *HTTPTestHelper) AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedBody interface{}) {
	assert.Equal(t, expectedStatus, w.Code)

	if expectedBody != nil {
		var actualBody interface{}
		err := json.Unmarshal(w.Body.Bytes(), &actualBody)
		assert.NoError(t, err)

		expectedJSON, _ := json.Marshal(expectedBody)
		actualJSON, _ := json.Marshal(actualBody)

		assert.JSONEq(t, string(expectedJSON), string(actualJSON))
	}
}
