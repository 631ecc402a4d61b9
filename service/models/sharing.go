/*
 * @module service/models/sharing
 * @description 数据共享相关模型定义，外部消费方通过API密钥读取数据集与质量报告
 * @architecture 分层架构 - 数据模型层
 * @documentReference ai_docs/sharing.md
 * @stateFlow 密钥签发 -> 访问校验 -> 使用统计 -> 吊销
 * @rules 密钥明文只在签发时返回一次，库中仅保存Hash
 * @dependencies gorm.io/gorm, github.com/google/uuid
 * @refs service/sharing/
 */

package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ApiKey API密钥模型 - 授权外部消费方访问共享接口
type ApiKey struct {
	ID           string           `gorm:"type:uuid;primary_key" json:"id"`
	Name         string           `gorm:"not null" json:"name"`              // ApiKey名称
	KeyPrefix    string           `gorm:"not null;size:8" json:"key_prefix"` // Key的前缀，用于快速识别
	KeyValueHash string           `gorm:"not null;unique" json:"-"`          // 存储Hash后的Key值
	Description  string           `json:"description"`
	Scopes       JSONBStringArray `gorm:"type:jsonb" json:"scopes"`                // datasets:read, reports:read
	DatasetIDs   JSONBStringArray `gorm:"type:jsonb" json:"dataset_ids"`           // 可访问数据集，空表示全部
	Status       string           `gorm:"not null;default:'active'" json:"status"` // active, inactive, revoked
	ExpiresAt    *time.Time       `json:"expires_at"`
	LastUsedAt   *time.Time       `json:"last_used_at"`
	UsageCount   int64            `gorm:"default:0" json:"usage_count"`
	CreatedBy    string           `gorm:"size:100" json:"created_by"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	UpdatedBy    string           `gorm:"size:100" json:"updated_by"`
}

// TableName 指定表名
func (ApiKey) TableName() string {
	return "api_keys"
}

// BeforeCreate 创建前钩子
func (ak *ApiKey) BeforeCreate(tx *gorm.DB) error {
	if ak.ID == "" {
		ak.ID = uuid.New().String()
	}
	if ak.CreatedBy == "" {
		ak.CreatedBy = "system"
	}
	if ak.UpdatedBy == "" {
		ak.UpdatedBy = "system"
	}
	return nil
}

// BeforeUpdate 更新前钩子
func (ak *ApiKey) BeforeUpdate(tx *gorm.DB) error {
	if ak.UpdatedBy == "" {
		ak.UpdatedBy = "system"
	}
	return nil
}

// HasScope 判断密钥是否具备指定权限
func (ak *ApiKey) HasScope(scope string) bool {
	for _, s := range ak.Scopes {
		if s == scope || s == "*" {
			return true
		}
	}
	return false
}

// CanAccessDataset 判断密钥是否可访问指定数据集，空列表表示全部可访问
func (ak *ApiKey) CanAccessDataset(datasetID string) bool {
	if len(ak.DatasetIDs) == 0 {
		return true
	}
	for _, id := range ak.DatasetIDs {
		if id == datasetID {
			return true
		}
	}
	return false
}
