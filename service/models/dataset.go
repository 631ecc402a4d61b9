/*
 * @module service/models/dataset
 * @description 数据集相关模型定义，包括采集数据集、无模式记录等
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/dataset_management.md
 * @stateFlow 数据导入 -> 记录存储 -> 质量评估 -> 导出
 * @rules 记录载荷为无模式 JSONB，字段完全由采集来源决定
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/dataset/, service/quality/
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Dataset 采集数据集模型，对应一次抓取批次
type Dataset struct {
	ID          string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name"`
	Source      string    `gorm:"type:varchar(100)" json:"source"`          // 采集来源站点
	City        string    `gorm:"type:varchar(50);index" json:"city"`       // 采集城市
	Specialty   string    `gorm:"type:varchar(50);index" json:"specialty"`  // 采集科室
	Description string    `gorm:"type:text" json:"description"`
	RecordCount int64     `gorm:"default:0" json:"record_count"`
	Status      string    `gorm:"type:varchar(20);default:'active'" json:"status"` // active, archived
	CreatedBy   string    `gorm:"type:varchar(50)" json:"created_by"`
	UpdatedBy   string    `gorm:"type:varchar(50)" json:"updated_by"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	DeletedAt   time.Time `gorm:"index" json:"deleted_at,omitempty"`
}

// TableName 指定表名
func (Dataset) TableName() string {
	return "datasets"
}

// BeforeCreate 创建前钩子
func (d *Dataset) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.New().String()
	}
	if d.CreatedBy == "" {
		d.CreatedBy = "system"
	}
	if d.UpdatedBy == "" {
		d.UpdatedBy = "system"
	}
	return nil
}

// BeforeUpdate 更新前钩子
func (d *Dataset) BeforeUpdate(tx *gorm.DB) error {
	if d.UpdatedBy == "" {
		d.UpdatedBy = "system"
	}
	return nil
}

// DatasetRecord 数据集记录模型，载荷为无模式 JSONB
type DatasetRecord struct {
	ID         string    `gorm:"type:varchar(50);primaryKey" json:"id"`
	DatasetID  string    `gorm:"type:varchar(50);not null;index" json:"dataset_id"`
	Payload    JSONB     `gorm:"type:jsonb;not null" json:"payload"`
	SourceFile string    `gorm:"type:varchar(255)" json:"source_file"` // 来源文件名或消息主题
	RowNumber  int       `json:"row_number"`                           // 来源文件中的行号，消息来源为0
	CreatedAt  time.Time `json:"created_at"`
}

// TableName 指定表名
func (DatasetRecord) TableName() string {
	return "dataset_records"
}

// BeforeCreate 创建前钩子
func (r *DatasetRecord) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	return nil
}
