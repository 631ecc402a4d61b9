/*
 * @module service/database/migrate
 * @description 数据库迁移模块，负责创建和更新数据库表结构
 * @architecture 数据访问层 - 迁移管理
 * @documentReference dev_docs/model.md
 * @stateFlow 应用启动时执行数据库迁移
 * @rules 确保数据库结构与模型定义保持一致
 * @dependencies dataquality-service/service/models, gorm.io/gorm
 * @refs dev_docs/backend_requirements.md
 */

package database

import (
	"dataquality-service/service/models"
	"log"

	"gorm.io/gorm"
)

// AutoMigrate 自动迁移数据库表结构
func AutoMigrate(db *gorm.DB) error {
	log.Println("开始数据库迁移...")

	// 数据集相关表
	err := db.AutoMigrate(
		&models.Dataset{},
		&models.DatasetRecord{},
	)
	if err != nil {
		return err
	}

	// 质量检测相关表
	err = db.AutoMigrate(
		&models.QualityRuleTemplate{},
		&models.QualityTask{},
		&models.QualityTaskExecution{},
		&models.QualityIssueRecord{},
		&models.QualityReportRecord{},
	)
	if err != nil {
		return err
	}

	// 数据接入相关表
	err = db.AutoMigrate(
		&models.IngestSubscription{},
	)
	if err != nil {
		return err
	}

	// 数据共享相关表
	err = db.AutoMigrate(
		&models.ApiKey{},
	)
	if err != nil {
		return err
	}

	// 事件管理相关表
	err = db.AutoMigrate(
		&models.SSEEvent{},
		&models.SSEConnection{},
	)
	if err != nil {
		return err
	}

	log.Println("数据库迁移完成")
	return nil
}

// InitializeData 初始化基础数据
func InitializeData(db *gorm.DB) error {
	log.Println("开始初始化基础数据...")

	// 内置规则模板由模板服务在构造时播种，这里只记录支持的类型

	// 质量规则类型
	qualityRuleTypes := []string{
		"completeness", // 完整性
		"format",       // 格式规范性
		"uniqueness",   // 唯一性
		"script",       // 自定义脚本
	}

	// 事件类型
	eventTypes := []string{
		"dataset_imported", // 数据集导入完成
		"task_completed",   // 质量任务完成
		"report_generated", // 质量报告生成
		"alert",            // 告警
	}

	log.Printf("支持的质量规则类型: %v", qualityRuleTypes)
	log.Printf("支持的事件类型: %v", eventTypes)

	log.Println("基础数据初始化完成")
	return nil
}
