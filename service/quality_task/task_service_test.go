/*
 * @module service/quality_task/task_service_test
 * @description 质量检测任务服务测试，覆盖任务生命周期、异步执行、问题落库与结果通知
 * @architecture 测试层 - 业务服务验证
 * @documentReference ai_docs/quality_engine.md
 * @stateFlow 任务创建 -> 启动执行 -> 断言执行记录、问题记录与报告
 * @rules 使用sqlite内存数据库，异步执行通过轮询执行记录状态收敛
 * @dependencies testing, testify, service/models
 * @refs task_service.go
 */

package quality_task

import (
	"testing"
	"time"

	"dataquality-service/service/dataset"
	"dataquality-service/service/models"
	"dataquality-service/service/quality"
	"dataquality-service/service/quality_report"

	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"
)

// QualityTaskServiceTestSuite 质量检测任务服务测试套件
type QualityTaskServiceTestSuite struct {
	suite.Suite
	testDB         *models.ModelTestDB
	factory        *models.ModelTestDataFactory
	datasetService *dataset.DatasetService
	reportService  *quality_report.ReportService
	service        *QualityTaskService
}

// SetupSuite 设置测试套件
func (suite *QualityTaskServiceTestSuite) SetupSuite() {
	suite.testDB = models.NewModelTestDB()
	suite.factory = models.NewModelTestDataFactory(suite.testDB.DB)
	suite.datasetService = dataset.NewDatasetService(suite.testDB.DB)
	suite.reportService = quality_report.NewReportService(suite.testDB.DB)
	suite.service = NewQualityTaskService(suite.testDB.DB, suite.datasetService, suite.reportService)
}

// TearDownSuite 清理测试套件
func (suite *QualityTaskServiceTestSuite) TearDownSuite() {
	suite.testDB.Close()
}

// SetupTest 设置每个测试
func (suite *QualityTaskServiceTestSuite) SetupTest() {
	suite.testDB.CleanDB()
}

func (suite *QualityTaskServiceTestSuite) TestCreateQualityTaskDefaults() {
	ds := suite.factory.CreateDataset()

	task := &models.QualityTask{
		Name:            "核心字段检查",
		DatasetID:       ds.ID,
		MandatoryFields: models.JSONBStringArray{"name"},
		KeyFields:       models.JSONBStringArray{"name"},
		Threshold:       0.9,
	}
	suite.NoError(suite.service.CreateQualityTask(task))

	// 未指定时落默认调度类型与状态
	suite.Equal("manual", task.ScheduleType)
	suite.Equal("pending", task.Status)
	suite.Nil(task.NextExecution)

	saved, err := suite.service.GetQualityTaskByID(task.ID)
	suite.NoError(err)
	suite.Equal("核心字段检查", saved.Name)
	suite.Equal(ds.ID, saved.DatasetID)
}

func (suite *QualityTaskServiceTestSuite) TestCreateQualityTaskValidation() {
	ds := suite.factory.CreateDataset()

	testCases := []struct {
		name     string
		task     *models.QualityTask
		errorMsg string
	}{
		{
			name:     "缺少任务名称",
			task:     &models.QualityTask{DatasetID: ds.ID, KeyFields: models.JSONBStringArray{"name"}},
			errorMsg: "任务名称不能为空",
		},
		{
			name:     "缺少目标数据集",
			task:     &models.QualityTask{Name: "t", KeyFields: models.JSONBStringArray{"name"}},
			errorMsg: "必须指定目标数据集",
		},
		{
			name:     "目标数据集不存在",
			task:     &models.QualityTask{Name: "t", DatasetID: "ds_missing", KeyFields: models.JSONBStringArray{"name"}},
			errorMsg: "目标数据集不存在",
		},
		{
			name:     "阈值越界",
			task:     &models.QualityTask{Name: "t", DatasetID: ds.ID, KeyFields: models.JSONBStringArray{"name"}, Threshold: 1.5},
			errorMsg: "完整率阈值必须在 [0,1] 区间内",
		},
		{
			name: "正则无法编译",
			task: &models.QualityTask{
				Name:      "t",
				DatasetID: ds.ID,
				KeyFields: models.JSONBStringArray{"name"},
				FormatRules: models.JSONB{
					"phone": map[string]interface{}{"pattern": "("},
				},
			},
			errorMsg: "",
		},
		{
			name:     "识别键为空",
			task:     &models.QualityTask{Name: "t", DatasetID: ds.ID},
			errorMsg: "识别键",
		},
		{
			name: "Cron任务缺少表达式",
			task: &models.QualityTask{
				Name:         "t",
				DatasetID:    ds.ID,
				KeyFields:    models.JSONBStringArray{"name"},
				ScheduleType: "cron",
			},
			errorMsg: "Cron表达式不能为空",
		},
		{
			name: "间隔任务间隔无效",
			task: &models.QualityTask{
				Name:         "t",
				DatasetID:    ds.ID,
				KeyFields:    models.JSONBStringArray{"name"},
				ScheduleType: "interval",
			},
			errorMsg: "间隔时间必须大于0",
		},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			err := suite.service.CreateQualityTask(tc.task)
			suite.Error(err)
			if tc.errorMsg != "" {
				suite.Contains(err.Error(), tc.errorMsg)
			}
		})
	}

	// 校验失败的任务不落库
	var count int64
	suite.testDB.DB.Model(&models.QualityTask{}).Count(&count)
	suite.Equal(int64(0), count)
}

func (suite *QualityTaskServiceTestSuite) TestCreateQualityTaskComputesNextExecution() {
	ds := suite.factory.CreateDataset()
	before := time.Now()

	task := &models.QualityTask{
		Name:            "按小时巡检",
		DatasetID:       ds.ID,
		KeyFields:       models.JSONBStringArray{"name"},
		ScheduleType:    "interval",
		IntervalSeconds: 3600,
	}
	suite.NoError(suite.service.CreateQualityTask(task))
	suite.NotNil(task.NextExecution)
	suite.True(task.NextExecution.After(before.Add(59 * time.Minute)))

	cronTask := &models.QualityTask{
		Name:           "每日巡检",
		DatasetID:      ds.ID,
		KeyFields:      models.JSONBStringArray{"name"},
		ScheduleType:   "cron",
		CronExpression: "0 0 2 * * *",
	}
	suite.NoError(suite.service.CreateQualityTask(cronTask))
	suite.NotNil(cronTask.NextExecution)
	suite.True(cronTask.NextExecution.After(before))
}

func (suite *QualityTaskServiceTestSuite) TestStartQualityTaskLifecycle() {
	ds := suite.factory.CreateDataset()
	suite.factory.CreateDatasetRecord(ds.ID, models.JSONB{"name": "Dr. Asha Rao", "address": "12 MG Road", "rating": 4.5})
	suite.factory.CreateDatasetRecord(ds.ID, models.JSONB{"name": "Dr. Vikram Shetty", "address": "", "rating": 4.2})
	suite.factory.CreateDatasetRecord(ds.ID, models.JSONB{"name": "Dr. Meena Iyer", "address": "5 Brigade Road", "rating": 9.9})
	task := suite.factory.CreateQualityTask(ds.ID)

	execution, err := suite.service.StartQualityTask(task.ID, "", "api")
	suite.NoError(err)
	suite.Equal("manual", execution.ExecutionType)
	suite.Equal(ds.ID, execution.DatasetID)
	suite.Equal("api", execution.TriggerSource)

	// 等待异步执行收敛
	suite.Eventually(func() bool {
		var current models.QualityTaskExecution
		if err := suite.testDB.DB.First(&current, "id = ?", execution.ID).Error; err != nil {
			return false
		}
		return current.Status != "running"
	}, 5*time.Second, 20*time.Millisecond)

	var finished models.QualityTaskExecution
	suite.NoError(suite.testDB.DB.First(&finished, "id = ?", execution.ID).Error)
	suite.Equal("completed_with_issues", finished.Status)
	suite.Equal(int64(3), finished.TotalRecords)
	suite.Equal(int64(2), finished.IssueCount)
	suite.NotEmpty(finished.ReportID)
	suite.NotNil(finished.EndTime)
	suite.InDelta(0.8333, finished.OverallScore, 0.01)

	// 任务计数器与状态
	var updatedTask models.QualityTask
	suite.NoError(suite.testDB.DB.First(&updatedTask, "id = ?", task.ID).Error)
	suite.Equal("completed_with_issues", updatedTask.Status)
	suite.Equal(int64(1), updatedTask.ExecutionCount)
	suite.Equal(int64(1), updatedTask.SuccessCount)
	suite.Equal(int64(0), updatedTask.FailureCount)
	suite.NotNil(updatedTask.LastExecuted)

	// 问题记录：缺失地址 + 评分越界
	missing, total, err := suite.service.GetQualityIssueRecords(task.ID, "", 1, 10, "", "", "missing_value")
	suite.NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal("address", missing[0].FieldName)
	suite.Equal("Dr. Vikram Shetty", missing[0].RecordIdentifier)
	suite.Equal("medium", missing[0].Severity)

	invalid, total, err := suite.service.GetQualityIssueRecords(task.ID, execution.ID, 1, 10, "rating", "", "invalid_format")
	suite.NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal("Dr. Meena Iyer", invalid[0].RecordIdentifier)

	// 报告落库并关联执行记录
	reportRecord, err := suite.reportService.GetReportByID(finished.ReportID)
	suite.NoError(err)
	suite.Equal(task.ID, reportRecord.TaskID)
	suite.Equal(execution.ID, reportRecord.ExecutionID)
	suite.Equal(3, reportRecord.TotalRecords)
	suite.Equal("good", reportRecord.Grade)
	suite.NotEmpty(reportRecord.Recommendations)
}

func (suite *QualityTaskServiceTestSuite) TestStartQualityTaskRejectsRunning() {
	ds := suite.factory.CreateDataset()
	task := suite.factory.CreateQualityTask(ds.ID)
	suite.NoError(suite.testDB.DB.Model(task).Update("status", "running").Error)

	_, err := suite.service.StartQualityTask(task.ID, "manual", "api")
	suite.Error(err)
	suite.Contains(err.Error(), "任务正在运行中")
}

func (suite *QualityTaskServiceTestSuite) TestExecuteQualityTaskEmptyDataset() {
	ds := suite.factory.CreateDataset()
	task := suite.factory.CreateQualityTask(ds.ID)

	execution := &models.QualityTaskExecution{
		TaskID:        task.ID,
		DatasetID:     ds.ID,
		ExecutionType: "manual",
		StartTime:     time.Now(),
		Status:        "running",
	}
	suite.NoError(suite.testDB.DB.Create(execution).Error)

	suite.service.executeQualityTask(execution)

	var finished models.QualityTaskExecution
	suite.NoError(suite.testDB.DB.First(&finished, "id = ?", execution.ID).Error)
	suite.Equal("completed", finished.Status)
	suite.Equal(int64(0), finished.TotalRecords)
	suite.Equal(int64(0), finished.IssueCount)
	suite.NotEmpty(finished.ReportID)
	suite.Zero(finished.OverallScore)

	// 空数据集仍产出报告，评分为零
	reportRecord, err := suite.reportService.GetLatestReport(ds.ID)
	suite.NoError(err)
	suite.Equal(0, reportRecord.TotalRecords)
	suite.Equal("poor", reportRecord.Grade)
}

func (suite *QualityTaskServiceTestSuite) TestExecuteQualityTaskConfigFailure() {
	ds := suite.factory.CreateDataset()
	suite.factory.CreateDatasetRecord(ds.ID, nil)
	task := suite.factory.CreateQualityTask(ds.ID)
	// 绕过创建校验写入损坏的格式规则
	suite.NoError(suite.testDB.DB.Model(task).Update("format_rules", models.JSONB{"rating": "not-an-object"}).Error)

	execution := &models.QualityTaskExecution{
		TaskID:        task.ID,
		DatasetID:     ds.ID,
		ExecutionType: "manual",
		StartTime:     time.Now(),
		Status:        "running",
	}
	suite.NoError(suite.testDB.DB.Create(execution).Error)

	suite.service.executeQualityTask(execution)

	var finished models.QualityTaskExecution
	suite.NoError(suite.testDB.DB.First(&finished, "id = ?", execution.ID).Error)
	suite.Equal("failed", finished.Status)
	suite.Contains(finished.ErrorMessage, "解析任务配置失败")
	suite.Empty(finished.ReportID)

	var updatedTask models.QualityTask
	suite.NoError(suite.testDB.DB.First(&updatedTask, "id = ?", task.ID).Error)
	suite.Equal("failed", updatedTask.Status)
	suite.Equal(int64(1), updatedTask.FailureCount)
	suite.Equal(int64(0), updatedTask.SuccessCount)
}

func (suite *QualityTaskServiceTestSuite) TestExecuteQualityTaskScriptRule() {
	ds := suite.factory.CreateDataset()
	suite.factory.CreateDatasetRecord(ds.ID, models.JSONB{"name": "Dr. Asha Rao", "address": "12 MG Road", "rating": 4.5, "rating_count": 12})
	suite.factory.CreateDatasetRecord(ds.ID, models.JSONB{"name": "Dr. Vikram Shetty", "address": "9 Residency Road", "rating": 0, "rating_count": 8})
	suite.factory.CreateDatasetRecord(ds.ID, models.JSONB{"name": "Dr. Meena Iyer", "address": "5 Brigade Road", "rating": 4.1, "rating_count": 0})

	// 通过内置脚本模板为任务挂上自定义脚本
	templateService := NewTemplateService(suite.testDB.DB)
	var scriptTemplate models.QualityRuleTemplate
	suite.NoError(suite.testDB.DB.Where("name = ? AND is_built_in = ?", "评分与评价数一致性检查", true).
		First(&scriptTemplate).Error)

	task := &models.QualityTask{
		Name:            "脚本规则检测",
		DatasetID:       ds.ID,
		MandatoryFields: models.JSONBStringArray{"name", "address"},
		KeyFields:       models.JSONBStringArray{"name", "address"},
		Threshold:       0.95,
		Priority:        70,
	}
	suite.NoError(templateService.ApplyTemplateToTask(scriptTemplate.ID, task))
	suite.NotEmpty(task.CustomScript)
	suite.NoError(suite.service.CreateQualityTask(task))

	execution := &models.QualityTaskExecution{
		TaskID:        task.ID,
		DatasetID:     ds.ID,
		ExecutionType: "manual",
		StartTime:     time.Now(),
		Status:        "running",
	}
	suite.NoError(suite.testDB.DB.Create(execution).Error)

	suite.service.executeQualityTask(execution)

	var finished models.QualityTaskExecution
	suite.NoError(suite.testDB.DB.First(&finished, "id = ?", execution.ID).Error)
	suite.Equal("completed_with_issues", finished.Status)
	suite.Equal(int64(1), finished.IssueCount)

	issues, total, err := suite.service.GetQualityIssueRecords(task.ID, execution.ID, 1, 10, "", "", "script_rule")
	suite.NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal("Dr. Vikram Shetty", issues[0].RecordIdentifier)
	suite.Equal("存在患者评价但评分为0，疑似解析缺失", issues[0].IssueDescription)
	suite.Equal("自定义脚本检查通过", issues[0].ExpectedValue)
	suite.Equal("high", issues[0].Severity)
}

func (suite *QualityTaskServiceTestSuite) TestCreateQualityTaskRejectsBadScript() {
	ds := suite.factory.CreateDataset()
	task := &models.QualityTask{
		Name:            "坏脚本任务",
		DatasetID:       ds.ID,
		MandatoryFields: models.JSONBStringArray{"name"},
		KeyFields:       models.JSONBStringArray{"name"},
		Threshold:       0.95,
		CustomScript:    "if true {",
	}
	err := suite.service.CreateQualityTask(task)
	suite.Error(err)
	suite.Contains(err.Error(), "自定义脚本校验失败")

	var count int64
	suite.testDB.DB.Model(&models.QualityTask{}).Count(&count)
	suite.Equal(int64(0), count)
}

func (suite *QualityTaskServiceTestSuite) TestUpdateQualityTaskRejectsBadScript() {
	ds := suite.factory.CreateDataset()
	task := suite.factory.CreateQualityTask(ds.ID)

	err := suite.service.UpdateQualityTask(task.ID, map[string]interface{}{"custom_script": "if true {"})
	suite.Error(err)
	suite.Contains(err.Error(), "自定义脚本校验失败")

	// 事务回滚，脚本未被写入
	var reloaded models.QualityTask
	suite.NoError(suite.testDB.DB.First(&reloaded, "id = ?", task.ID).Error)
	suite.Empty(reloaded.CustomScript)
}

// capturingPublisher 捕获已发布事件的测试替身
type capturingPublisher struct {
	events []capturedEvent
}

type capturedEvent struct {
	eventType string
	data      map[string]interface{}
}

func (p *capturingPublisher) PublishQualityEvent(eventType string, data map[string]interface{}) {
	p.events = append(p.events, capturedEvent{eventType: eventType, data: data})
}

func (suite *QualityTaskServiceTestSuite) TestNotifyExecutionResult() {
	ds := suite.factory.CreateDataset()
	task := suite.factory.CreateQualityTask(ds.ID)
	suite.NoError(suite.testDB.DB.Model(task).Updates(map[string]interface{}{
		"notify_enabled":    true,
		"notify_on_success": false,
		"notify_on_failure": true,
		"format_rules":      models.JSONB{"rating": "not-an-object"},
	}).Error)

	publisher := &capturingPublisher{}
	svc := NewQualityTaskService(suite.testDB.DB, suite.datasetService, suite.reportService)
	svc.SetEventPublisher(publisher)

	execution := &models.QualityTaskExecution{
		TaskID:        task.ID,
		DatasetID:     ds.ID,
		ExecutionType: "manual",
		StartTime:     time.Now(),
		Status:        "running",
	}
	suite.NoError(suite.testDB.DB.Create(execution).Error)

	svc.executeQualityTask(execution)

	suite.Len(publisher.events, 1)
	suite.Equal("task_failed", publisher.events[0].eventType)
	suite.Equal(task.ID, publisher.events[0].data["task_id"])
	suite.Contains(publisher.events[0].data["error_message"].(string), "解析任务配置失败")

	// 修复配置后成功执行，但未开启成功通知，不再发布事件
	suite.NoError(suite.testDB.DB.Model(task).Update("format_rules", models.JSONB{}).Error)
	execution2 := &models.QualityTaskExecution{
		TaskID:        task.ID,
		DatasetID:     ds.ID,
		ExecutionType: "manual",
		StartTime:     time.Now(),
		Status:        "running",
	}
	suite.NoError(suite.testDB.DB.Create(execution2).Error)

	svc.executeQualityTask(execution2)

	var finished models.QualityTaskExecution
	suite.NoError(suite.testDB.DB.First(&finished, "id = ?", execution2.ID).Error)
	suite.Equal("completed", finished.Status)
	suite.Len(publisher.events, 1)
}

func (suite *QualityTaskServiceTestSuite) TestUpdateQualityTaskRollsBackInvalidConfig() {
	ds := suite.factory.CreateDataset()
	task := suite.factory.CreateQualityTask(ds.ID)

	err := suite.service.UpdateQualityTask(task.ID, map[string]interface{}{
		"format_rules": models.JSONB{"phone": map[string]interface{}{"pattern": "("}},
	})
	suite.Error(err)
	suite.True(quality.IsConfigError(err))

	// 校验失败时整个更新回滚，原有规则保持不变
	var current models.QualityTask
	suite.NoError(suite.testDB.DB.First(&current, "id = ?", task.ID).Error)
	suite.Contains(current.FormatRules, "rating")
	suite.NotContains(current.FormatRules, "phone")
}

func (suite *QualityTaskServiceTestSuite) TestUpdateQualityTaskRecomputesSchedule() {
	ds := suite.factory.CreateDataset()
	task := suite.factory.CreateQualityTask(ds.ID)
	before := time.Now()

	err := suite.service.UpdateQualityTask(task.ID, map[string]interface{}{
		"schedule_type":    "interval",
		"interval_seconds": int64(600),
	})
	suite.NoError(err)

	var current models.QualityTask
	suite.NoError(suite.testDB.DB.First(&current, "id = ?", task.ID).Error)
	suite.Equal("interval", current.ScheduleType)
	suite.NotNil(current.NextExecution)
	suite.True(current.NextExecution.After(before.Add(9 * time.Minute)))
}

func (suite *QualityTaskServiceTestSuite) TestUpdateQualityTaskRejectsRunning() {
	ds := suite.factory.CreateDataset()
	task := suite.factory.CreateQualityTask(ds.ID)
	suite.NoError(suite.testDB.DB.Model(task).Update("status", "running").Error)

	err := suite.service.UpdateQualityTask(task.ID, map[string]interface{}{"name": "重命名"})
	suite.Error(err)
	suite.Contains(err.Error(), "正在运行的任务不能修改")
}

func (suite *QualityTaskServiceTestSuite) TestDeleteQualityTaskCascades() {
	ds := suite.factory.CreateDataset()
	task := suite.factory.CreateQualityTask(ds.ID)

	execution := &models.QualityTaskExecution{
		TaskID:        task.ID,
		DatasetID:     ds.ID,
		ExecutionType: "manual",
		StartTime:     time.Now(),
		Status:        "completed",
	}
	suite.NoError(suite.testDB.DB.Create(execution).Error)
	issue := &models.QualityIssueRecord{
		ExecutionID:      execution.ID,
		TaskID:           task.ID,
		FieldName:        "address",
		IssueType:        "missing_value",
		IssueDescription: "必填字段缺失或为空",
		RecordIdentifier: "Dr. A",
		Severity:         "medium",
	}
	suite.NoError(suite.testDB.DB.Create(issue).Error)

	suite.NoError(suite.service.DeleteQualityTask(task.ID))

	_, err := suite.service.GetQualityTaskByID(task.ID)
	suite.ErrorIs(err, gorm.ErrRecordNotFound)

	var executionCount, issueCount int64
	suite.testDB.DB.Model(&models.QualityTaskExecution{}).Where("task_id = ?", task.ID).Count(&executionCount)
	suite.testDB.DB.Model(&models.QualityIssueRecord{}).Where("task_id = ?", task.ID).Count(&issueCount)
	suite.Equal(int64(0), executionCount)
	suite.Equal(int64(0), issueCount)
}

func (suite *QualityTaskServiceTestSuite) TestDeleteQualityTaskRejectsRunning() {
	ds := suite.factory.CreateDataset()
	task := suite.factory.CreateQualityTask(ds.ID)
	suite.NoError(suite.testDB.DB.Model(task).Update("status", "running").Error)

	err := suite.service.DeleteQualityTask(task.ID)
	suite.Error(err)
	suite.Contains(err.Error(), "正在运行的任务不能删除")
}

func (suite *QualityTaskServiceTestSuite) TestStopQualityTask() {
	ds := suite.factory.CreateDataset()
	task := suite.factory.CreateQualityTask(ds.ID)

	suite.NoError(suite.service.StopQualityTask(task.ID))

	var current models.QualityTask
	suite.NoError(suite.testDB.DB.First(&current, "id = ?", task.ID).Error)
	suite.Equal("cancelled", current.Status)
}

func (suite *QualityTaskServiceTestSuite) TestGetQualityTasksFiltering() {
	ds1 := suite.factory.CreateDataset()
	ds2 := suite.factory.CreateDataset()
	suite.factory.CreateQualityTask(ds1.ID)
	suite.factory.CreateQualityTask(ds1.ID)
	completed := suite.factory.CreateQualityTask(ds2.ID)
	suite.NoError(suite.testDB.DB.Model(completed).Update("status", "completed").Error)

	_, total, err := suite.service.GetQualityTasks(1, 10, "", ds1.ID)
	suite.NoError(err)
	suite.Equal(int64(2), total)

	tasks, total, err := suite.service.GetQualityTasks(1, 10, "completed", "")
	suite.NoError(err)
	suite.Equal(int64(1), total)
	suite.Equal(completed.ID, tasks[0].ID)

	tasks, total, err = suite.service.GetQualityTasks(1, 1, "", "")
	suite.NoError(err)
	suite.Equal(int64(3), total)
	suite.Len(tasks, 1)
}

func (suite *QualityTaskServiceTestSuite) TestGetQualityTaskExecutionsOrdered() {
	ds := suite.factory.CreateDataset()
	task := suite.factory.CreateQualityTask(ds.ID)

	now := time.Now()
	for _, offset := range []time.Duration{-2 * time.Hour, 0, -1 * time.Hour} {
		execution := &models.QualityTaskExecution{
			TaskID:        task.ID,
			DatasetID:     ds.ID,
			ExecutionType: "scheduled",
			StartTime:     now.Add(offset),
			Status:        "completed",
		}
		suite.NoError(suite.testDB.DB.Create(execution).Error)
	}

	executions, total, err := suite.service.GetQualityTaskExecutions(task.ID, 1, 2)
	suite.NoError(err)
	suite.Equal(int64(3), total)
	suite.Len(executions, 2)
	// 最近一次执行排在最前
	suite.True(executions[0].StartTime.After(executions[1].StartTime))
}

func (suite *QualityTaskServiceTestSuite) TestCalculateNextExecution() {
	base := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	future := time.Now().Add(2 * time.Hour)
	past := time.Now().Add(-2 * time.Hour)

	// 手动任务无下次执行时间
	next, err := suite.service.CalculateNextExecution(models.ScheduleConfig{Type: "manual"}, nil)
	suite.NoError(err)
	suite.Nil(next)

	// 单次任务返回未来的计划时间
	next, err = suite.service.CalculateNextExecution(models.ScheduleConfig{Type: "once", StartTime: &future}, nil)
	suite.NoError(err)
	suite.NotNil(next)
	suite.Equal(future, *next)

	// 过期的单次任务不再调度
	next, err = suite.service.CalculateNextExecution(models.ScheduleConfig{Type: "once", StartTime: &past}, nil)
	suite.NoError(err)
	suite.Nil(next)

	// 间隔任务从基准时间顺延
	next, err = suite.service.CalculateNextExecution(models.ScheduleConfig{Type: "interval", Interval: 60}, &base)
	suite.NoError(err)
	suite.NotNil(next)
	suite.Equal(base.Add(time.Minute), *next)

	_, err = suite.service.CalculateNextExecution(models.ScheduleConfig{Type: "interval"}, nil)
	suite.Error(err)

	// 六字段cron表达式
	next, err = suite.service.CalculateNextExecution(models.ScheduleConfig{Type: "cron", CronExpr: "0 */5 * * * *"}, &base)
	suite.NoError(err)
	suite.NotNil(next)
	suite.True(next.After(base))
	suite.LessOrEqual(next.Sub(base), 5*time.Minute)

	// 五字段表达式与描述符同样可解析
	next, err = suite.service.CalculateNextExecution(models.ScheduleConfig{Type: "cron", CronExpr: "*/5 * * * *"}, &base)
	suite.NoError(err)
	suite.NotNil(next)

	next, err = suite.service.CalculateNextExecution(models.ScheduleConfig{Type: "cron", CronExpr: "@daily"}, &base)
	suite.NoError(err)
	suite.NotNil(next)

	_, err = suite.service.CalculateNextExecution(models.ScheduleConfig{Type: "cron"}, nil)
	suite.Error(err)
	suite.Contains(err.Error(), "Cron表达式不能为空")

	_, err = suite.service.CalculateNextExecution(models.ScheduleConfig{Type: "cron", CronExpr: "every day"}, nil)
	suite.Error(err)

	_, err = suite.service.CalculateNextExecution(models.ScheduleConfig{Type: "weekly"}, nil)
	suite.Error(err)
	suite.Contains(err.Error(), "不支持的调度类型")
}

func (suite *QualityTaskServiceTestSuite) TestDetermineSeverity() {
	suite.Equal("critical", suite.service.determineSeverity(95))
	suite.Equal("critical", suite.service.determineSeverity(80))
	suite.Equal("high", suite.service.determineSeverity(79))
	suite.Equal("high", suite.service.determineSeverity(60))
	suite.Equal("medium", suite.service.determineSeverity(59))
	suite.Equal("medium", suite.service.determineSeverity(40))
	suite.Equal("low", suite.service.determineSeverity(39))
	suite.Equal("low", suite.service.determineSeverity(0))
}

func (suite *QualityTaskServiceTestSuite) TestBuildReportConfig() {
	task := &models.QualityTask{
		MandatoryFields: models.JSONBStringArray{"name", "address"},
		FormatRules: models.JSONB{
			"phone":  map[string]interface{}{"pattern": `\+?[0-9][0-9 -]{5,17}[0-9]`},
			"rating": map[string]interface{}{"min": 0.0, "max": 5.0},
		},
		KeyFields:         models.JSONBStringArray{"name"},
		CategoricalFields: models.JSONBStringArray{"specialization"},
		Threshold:         0.9,
	}

	cfg, err := buildReportConfig(task)
	suite.NoError(err)
	suite.Equal([]string{"name", "address"}, cfg.MandatoryFields)
	suite.Equal([]string{"name"}, cfg.KeyFields)
	suite.Equal([]string{"specialization"}, cfg.CategoricalFields)
	suite.Equal(0.9, cfg.Threshold)
	suite.Equal(`\+?[0-9][0-9 -]{5,17}[0-9]`, cfg.FormatRules["phone"].Pattern)
	suite.NotNil(cfg.FormatRules["rating"].Min)
	suite.Equal(0.0, *cfg.FormatRules["rating"].Min)
	suite.NotNil(cfg.FormatRules["rating"].Max)
	suite.Equal(5.0, *cfg.FormatRules["rating"].Max)

	_, err = buildReportConfig(&models.QualityTask{
		FormatRules: models.JSONB{"rating": "not-an-object"},
	})
	suite.Error(err)
	suite.Contains(err.Error(), "格式规则必须是对象")

	_, err = buildReportConfig(&models.QualityTask{
		FormatRules: models.JSONB{"rating": map[string]interface{}{"min": "abc"}},
	})
	suite.Error(err)
	suite.Contains(err.Error(), "数值下界无法解析")
}

func (suite *QualityTaskServiceTestSuite) TestRecordIdentifier() {
	ds := quality.Dataset{
		{"name": " Dr. X "},
		{"name": ""},
		{"specialization": "dentist"},
	}
	suite.Equal("Dr. X", recordIdentifier(ds, 0))
	suite.Equal("row_2", recordIdentifier(ds, 1))
	suite.Equal("row_3", recordIdentifier(ds, 2))
	suite.Equal("row_8", recordIdentifier(ds, 7))
}

// TestQualityTaskService 运行质量检测任务服务测试套件
func TestQualityTaskService(t *testing.T) {
	suite.Run(t, new(QualityTaskServiceTestSuite))
}
