/*
 * @module service/sharing/sharing_service
 * @description 数据共享服务，负责ApiKey的签发、校验与吊销，外部消费方凭Key读取数据集与质量报告
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/sharing.md
 * @stateFlow 密钥签发 -> 外部请求携带X-Api-Key -> 校验与使用计数 -> 吊销
 * @rules 明文Key只在签发时返回一次，库中仅保存bcrypt Hash；吊销后的Key立即失效
 * @dependencies dataquality-service/service/models, gorm.io/gorm, golang.org/x/crypto/bcrypt
 * @refs api/middleware/apikey_auth.go, service/models/sharing.go
 */

package sharing

import (
	"crypto/rand"
	"dataquality-service/service/models"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SharingService 数据共享服务
type SharingService struct {
	db *gorm.DB
}

// NewSharingService 创建数据共享服务实例
func NewSharingService(db *gorm.DB) *SharingService {
	return &SharingService{db: db}
}

// CreateApiKey 签发一个新的ApiKey
// 返回的keyValue是明文Key，仅此一次给出，数据库只存储其bcrypt Hash
func (s *SharingService) CreateApiKey(name, description string, scopes, datasetIDs []string, expiresAt *time.Time) (*models.ApiKey, string, error) {
	if name == "" {
		return nil, "", errors.New("密钥名称不能为空")
	}

	if len(scopes) == 0 {
		return nil, "", errors.New("至少需要指定一个权限范围")
	}

	// 验证权限范围
	validScopes := []string{"datasets:read", "reports:read", "*"}
	for _, scope := range scopes {
		isValid := false
		for _, validScope := range validScopes {
			if scope == validScope {
				isValid = true
				break
			}
		}
		if !isValid {
			return nil, "", fmt.Errorf("无效的权限范围: %s", scope)
		}
	}

	// 验证数据集是否存在，空列表表示可访问全部数据集
	if len(datasetIDs) > 0 {
		var datasets []models.Dataset
		if err := s.db.Where("id IN ?", datasetIDs).Find(&datasets).Error; err != nil {
			return nil, "", err
		}
		if len(datasets) != len(datasetIDs) {
			return nil, "", errors.New("部分数据集不存在")
		}
	}

	// 生成API Key
	fullKey, err := generateRandomString(64) // 生成32字节的随机字符串，转为64字符的hex
	if err != nil {
		return nil, "", err
	}

	// 生成前缀（取前8个字符），用于校验时缩小比对范围
	keyPrefix := fullKey[:8]

	// 对完整Key进行哈希
	hashedKey, err := bcrypt.GenerateFromPassword([]byte(fullKey), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", err
	}

	apiKey := &models.ApiKey{
		Name:         name,
		KeyPrefix:    keyPrefix,
		KeyValueHash: string(hashedKey),
		Description:  description,
		Scopes:       models.JSONBStringArray(scopes),
		DatasetIDs:   models.JSONBStringArray(datasetIDs),
		ExpiresAt:    expiresAt,
		Status:       "active",
	}

	if err := s.db.Create(apiKey).Error; err != nil {
		return nil, "", err
	}

	// 返回完整的Key值（仅此一次），数据库存储其Hash
	return apiKey, fullKey, nil
}

// GetApiKeys 获取ApiKey列表（不包含Key本身）
func (s *SharingService) GetApiKeys(page, pageSize int, status string) ([]models.ApiKey, int64, error) {
	var keys []models.ApiKey
	var total int64

	query := s.db.Model(&models.ApiKey{})

	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&keys).Error; err != nil {
		return nil, 0, err
	}

	return keys, total, nil
}

// GetApiKeyByID 根据ID获取ApiKey
func (s *SharingService) GetApiKeyByID(keyID string) (*models.ApiKey, error) {
	var key models.ApiKey
	if err := s.db.First(&key, "id = ?", keyID).Error; err != nil {
		return nil, err
	}
	return &key, nil
}

// UpdateApiKey 更新ApiKey信息（如名称、描述、状态）
func (s *SharingService) UpdateApiKey(keyID string, updates map[string]interface{}) error {
	return s.db.Model(&models.ApiKey{}).Where("id = ?", keyID).Updates(updates).Error
}

// RevokeApiKey 吊销一个ApiKey
// 记录保留用于审计，状态置为revoked后校验立即失败
func (s *SharingService) RevokeApiKey(keyID string) error {
	var key models.ApiKey
	if err := s.db.First(&key, "id = ?", keyID).Error; err != nil {
		return err
	}

	return s.db.Model(&key).Update("status", "revoked").Error
}

// VerifyApiKey 校验明文Key，命中后更新使用统计并返回对应的ApiKey记录
func (s *SharingService) VerifyApiKey(keyValue string) (*models.ApiKey, error) {
	if len(keyValue) < 8 {
		return nil, errors.New("无效的API Key格式")
	}

	keyPrefix := keyValue[:8]

	var keys []models.ApiKey
	if err := s.db.Where("key_prefix = ? AND status = 'active'", keyPrefix).Find(&keys).Error; err != nil {
		return nil, err
	}

	// 遍历所有匹配前缀的Key，验证完整Key
	for _, key := range keys {
		if err := bcrypt.CompareHashAndPassword([]byte(key.KeyValueHash), []byte(keyValue)); err == nil {
			// 检查是否过期
			if key.ExpiresAt != nil && key.ExpiresAt.Before(time.Now()) {
				return nil, errors.New("API Key已过期")
			}

			// 更新最后使用时间和使用次数
			s.db.Model(&key).Updates(map[string]interface{}{
				"last_used_at": time.Now(),
				"usage_count":  key.UsageCount + 1,
			})

			return &key, nil
		}
	}

	return nil, errors.New("无效的API Key")
}

// generateRandomString 生成随机字符串
func generateRandomString(length int) (string, error) {
	bytes := make([]byte, length/2)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
