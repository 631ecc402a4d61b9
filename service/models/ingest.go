/*
 * @module service/models/ingest
 * @description 数据集接入订阅模型，描述数据集与消息主题的绑定关系及消费统计
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/quality_engine.md
 * @stateFlow 订阅创建 -> 消费启动 -> 统计更新 -> 订阅停用
 * @rules 同一数据集与主题的组合唯一，消费统计由接入服务异步更新
 * @dependencies gorm.io/gorm
 * @refs service/ingest/, client/connectors/
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// 接入来源类型
const (
	IngestSourceKafka = "kafka"
	IngestSourceMQTT  = "mqtt"
)

// IngestSubscription 数据集接入订阅模型
type IngestSubscription struct {
	ID              string     `gorm:"type:varchar(50);primaryKey" json:"id"`
	DatasetID       string     `gorm:"type:varchar(50);not null;index" json:"dataset_id"` // 目标数据集ID
	Source          string     `gorm:"type:varchar(20);not null" json:"source"`           // kafka, mqtt
	Topic           string     `gorm:"type:varchar(200);not null" json:"topic"`           // 消息主题
	IsEnabled       bool       `gorm:"default:true" json:"is_enabled"`
	RecordsIngested int64      `gorm:"default:0" json:"records_ingested"` // 成功写入的记录数
	RecordsDropped  int64      `gorm:"default:0" json:"records_dropped"`  // 解码失败被丢弃的消息数
	LastMessageAt   *time.Time `json:"last_message_at,omitempty"`         // 最近一次收到消息的时间
	LastError       string     `gorm:"type:text" json:"last_error,omitempty"`
	CreatedBy       string     `gorm:"type:varchar(50)" json:"created_by"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       time.Time  `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (IngestSubscription) TableName() string {
	return "ingest_subscriptions"
}

// BeforeCreate 创建前钩子
func (i *IngestSubscription) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	if i.CreatedBy == "" {
		i.CreatedBy = "system"
	}
	return nil
}
