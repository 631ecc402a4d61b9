/*
 * @module service/dataset/dataset_service
 * @description 数据集管理服务，提供数据集的增删改查、记录批量入库与质量评估快照加载
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/dataset_management.md
 * @stateFlow 数据集生命周期管理，记录入库后通过快照供质量评估消费
 * @rules 记录载荷以JSONB原样保存，入库与计数更新在同一事务内完成
 * @dependencies dataquality-service/service/models, dataquality-service/service/quality, gorm.io/gorm
 * @refs importer.go, exporter.go
 */

package dataset

import (
	"errors"
	"fmt"

	"dataquality-service/service/models"
	"dataquality-service/service/quality"

	"gorm.io/gorm"
)

// DatasetService 数据集管理服务
type DatasetService struct {
	db *gorm.DB
}

// NewDatasetService 创建数据集管理服务实例
func NewDatasetService(db *gorm.DB) *DatasetService {
	return &DatasetService{db: db}
}

// CreateDataset 创建数据集
func (s *DatasetService) CreateDataset(dataset *models.Dataset) error {
	if dataset.Name == "" {
		return errors.New("数据集名称不能为空")
	}

	validStatuses := []string{"active", "archived"}
	if dataset.Status != "" {
		isValid := false
		for _, status := range validStatuses {
			if dataset.Status == status {
				isValid = true
				break
			}
		}
		if !isValid {
			return errors.New("无效的数据集状态")
		}
	}

	return s.db.Create(dataset).Error
}

// GetDatasets 获取数据集列表
func (s *DatasetService) GetDatasets(page, pageSize int, city, specialty, status string) ([]models.Dataset, int64, error) {
	var datasets []models.Dataset
	var total int64

	query := s.db.Model(&models.Dataset{})

	if city != "" {
		query = query.Where("city = ?", city)
	}
	if specialty != "" {
		query = query.Where("specialty = ?", specialty)
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Order("created_at DESC").Find(&datasets).Error; err != nil {
		return nil, 0, err
	}

	return datasets, total, nil
}

// GetDatasetByID 根据ID获取数据集
func (s *DatasetService) GetDatasetByID(id string) (*models.Dataset, error) {
	var dataset models.Dataset
	if err := s.db.First(&dataset, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &dataset, nil
}

// UpdateDataset 更新数据集
func (s *DatasetService) UpdateDataset(id string, updates map[string]interface{}) error {
	return s.db.Model(&models.Dataset{}).Where("id = ?", id).Updates(updates).Error
}

// DeleteDataset 删除数据集及其全部记录
func (s *DatasetService) DeleteDataset(id string) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&models.DatasetRecord{}, "dataset_id = ?", id).Error; err != nil {
			return fmt.Errorf("删除数据集记录失败: %w", err)
		}
		if err := tx.Delete(&models.Dataset{}, "id = ?", id).Error; err != nil {
			return fmt.Errorf("删除数据集失败: %w", err)
		}
		return nil
	})
}

// AddRecords 批量入库记录并更新数据集计数
func (s *DatasetService) AddRecords(datasetID string, ds quality.Dataset, sourceFile string) (int, error) {
	if len(ds) == 0 {
		return 0, nil
	}

	var dataset models.Dataset
	if err := s.db.First(&dataset, "id = ?", datasetID).Error; err != nil {
		return 0, fmt.Errorf("获取数据集失败: %w", err)
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var base int64
		if err := tx.Model(&models.DatasetRecord{}).Where("dataset_id = ?", datasetID).Count(&base).Error; err != nil {
			return fmt.Errorf("统计已有记录失败: %w", err)
		}

		records := make([]models.DatasetRecord, 0, len(ds))
		for i, record := range ds {
			records = append(records, models.DatasetRecord{
				DatasetID:  datasetID,
				Payload:    models.JSONB(record),
				SourceFile: sourceFile,
				RowNumber:  int(base) + i + 1,
			})
		}

		if err := tx.CreateInBatches(records, 200).Error; err != nil {
			return fmt.Errorf("批量写入记录失败: %w", err)
		}

		if err := tx.Model(&models.Dataset{}).Where("id = ?", datasetID).
			Update("record_count", gorm.Expr("record_count + ?", len(records))).Error; err != nil {
			return fmt.Errorf("更新记录计数失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(ds), nil
}

// GetRecords 分页获取数据集记录
func (s *DatasetService) GetRecords(datasetID string, page, pageSize int) ([]models.DatasetRecord, int64, error) {
	var records []models.DatasetRecord
	var total int64

	query := s.db.Model(&models.DatasetRecord{}).Where("dataset_id = ?", datasetID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Order("row_number ASC").Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

// LoadRecords 加载数据集全量记录作为质量评估快照
func (s *DatasetService) LoadRecords(datasetID string) (quality.Dataset, error) {
	var records []models.DatasetRecord
	if err := s.db.Where("dataset_id = ?", datasetID).Order("row_number ASC").Find(&records).Error; err != nil {
		return nil, fmt.Errorf("加载数据集记录失败: %w", err)
	}

	ds := make(quality.Dataset, 0, len(records))
	for _, record := range records {
		ds = append(ds, quality.Record(record.Payload))
	}
	return ds, nil
}
