/*
 * @module service/ingest/ingest_service
 * @description 数据集流式接入服务，管理数据集与消息主题的订阅关系，消费消息规整后写入数据集
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/quality_engine.md
 * @stateFlow 订阅创建 -> 消息消费 -> 记录规整 -> 加锁写入 -> 统计更新
 * @rules 无法解码的消息丢弃并计数，写入在分布式锁保护下进行，避免多实例并发写入同一数据集
 * @dependencies gorm.io/gorm, dataquality-service/client/connectors, dataquality-service/service/dataset
 * @refs client/connectors/, service/models/ingest.go, service/init.go
 */

package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"dataquality-service/client/connectors"
	"dataquality-service/service/dataset"
	"dataquality-service/service/distributed_lock"
	"dataquality-service/service/models"
	"dataquality-service/service/monitoring"
	"dataquality-service/service/quality"

	"gorm.io/gorm"
)

const (
	ingestLockTTL     = 30 * time.Second
	ingestLockRetry   = 100 * time.Millisecond
	ingestLockWaitMax = 10 * time.Second
)

// MessageSource 消息源端口，由Kafka/MQTT连接器适配
type MessageSource interface {
	Subscribe(topic string, handler func(payload []byte) error) error
	Unsubscribe(topic string) error
}

// KafkaSource 将Kafka连接器适配为消息源
type KafkaSource struct {
	Connector *connectors.KafkaConnector
}

func (s KafkaSource) Subscribe(topic string, handler func(payload []byte) error) error {
	return s.Connector.Subscribe(topic, func(key, value []byte) error {
		return handler(value)
	})
}

func (s KafkaSource) Unsubscribe(topic string) error {
	return s.Connector.Unsubscribe(topic)
}

// MQTTSource 将MQTT连接器适配为消息源
type MQTTSource struct {
	Connector *connectors.MQTTConnector
}

func (s MQTTSource) Subscribe(topic string, handler func(payload []byte) error) error {
	return s.Connector.Subscribe(topic, func(_ string, payload []byte) error {
		return handler(payload)
	})
}

func (s MQTTSource) Unsubscribe(topic string) error {
	return s.Connector.Unsubscribe(topic)
}

// IngestService 数据集流式接入服务
type IngestService struct {
	db             *gorm.DB
	datasetService *dataset.DatasetService
	mapper         *dataset.DoctorRecordMapper
	lockExecutor   *distributed_lock.LockExecutor
	sources        map[string]MessageSource
	mu             sync.RWMutex
}

// NewIngestService 创建数据集接入服务实例
func NewIngestService(db *gorm.DB, datasetService *dataset.DatasetService) *IngestService {
	return &IngestService{
		db:             db,
		datasetService: datasetService,
		mapper:         dataset.NewDoctorRecordMapper(),
		sources:        make(map[string]MessageSource),
	}
}

// RegisterSource 注册消息源，未注册来源的订阅无法启动消费
func (s *IngestService) RegisterSource(name string, source MessageSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[name] = source
	slog.Info("接入消息源已注册", "source", name)
}

// SetLockExecutor 设置分布式锁执行器，多实例部署时数据集写入需要加锁防重
func (s *IngestService) SetLockExecutor(executor *distributed_lock.LockExecutor) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lockExecutor = executor
}

// Start 启动全部已启用订阅的消费，启动失败的订阅保留错误待来源恢复后重启
func (s *IngestService) Start() {
	var subs []models.IngestSubscription
	if err := s.db.Where("is_enabled = ?", true).Find(&subs).Error; err != nil {
		slog.Error("加载接入订阅失败", "error", err)
		return
	}

	started := 0
	for i := range subs {
		if err := s.startSubscription(&subs[i]); err != nil {
			slog.Warn("接入订阅启动失败",
				"subscription_id", subs[i].ID, "topic", subs[i].Topic, "error", err)
			s.db.Model(&subs[i]).Update("last_error", err.Error())
			continue
		}
		started++
	}
	slog.Info("数据接入服务已启动", "total", len(subs), "started", started)
}

// Stop 停止全部已启用订阅的消费
func (s *IngestService) Stop() {
	var subs []models.IngestSubscription
	if err := s.db.Where("is_enabled = ?", true).Find(&subs).Error; err != nil {
		slog.Error("加载接入订阅失败", "error", err)
		return
	}

	for i := range subs {
		source := s.sourceFor(subs[i].Source)
		if source == nil {
			continue
		}
		if err := source.Unsubscribe(subs[i].Topic); err != nil {
			slog.Warn("取消主题订阅失败", "topic", subs[i].Topic, "error", err)
		}
	}
	slog.Info("数据接入服务已停止")
}

// === 订阅管理 ===

// CreateSubscription 创建接入订阅并立即开始消费，新订阅总是启用状态
func (s *IngestService) CreateSubscription(sub *models.IngestSubscription) error {
	if sub.DatasetID == "" {
		return errors.New("必须指定目标数据集")
	}
	if sub.Topic == "" {
		return errors.New("订阅主题不能为空")
	}
	if sub.Source != models.IngestSourceKafka && sub.Source != models.IngestSourceMQTT {
		return fmt.Errorf("不支持的接入来源: %s", sub.Source)
	}

	var ds models.Dataset
	if err := s.db.First(&ds, "id = ?", sub.DatasetID).Error; err != nil {
		return fmt.Errorf("目标数据集不存在: %w", err)
	}

	var count int64
	if err := s.db.Model(&models.IngestSubscription{}).
		Where("dataset_id = ? AND source = ? AND topic = ?", sub.DatasetID, sub.Source, sub.Topic).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return errors.New("相同数据集与主题的订阅已存在")
	}

	sub.IsEnabled = true
	if err := s.db.Create(sub).Error; err != nil {
		return err
	}

	if err := s.startSubscription(sub); err != nil {
		// 订阅保留，消费启动失败记录在订阅上
		slog.Warn("接入订阅启动失败", "subscription_id", sub.ID, "topic", sub.Topic, "error", err)
		s.db.Model(sub).Update("last_error", err.Error())
	}
	return nil
}

// GetSubscriptions 获取接入订阅列表
func (s *IngestService) GetSubscriptions(page, pageSize int, datasetID, source string) ([]models.IngestSubscription, int64, error) {
	query := s.db.Model(&models.IngestSubscription{})

	if datasetID != "" {
		query = query.Where("dataset_id = ?", datasetID)
	}
	if source != "" {
		query = query.Where("source = ?", source)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var subs []models.IngestSubscription
	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC").Offset(offset).Limit(pageSize).Find(&subs).Error; err != nil {
		return nil, 0, err
	}

	return subs, total, nil
}

// StartSubscription 启动订阅消费并标记启用
func (s *IngestService) StartSubscription(id string) error {
	var sub models.IngestSubscription
	if err := s.db.First(&sub, "id = ?", id).Error; err != nil {
		return fmt.Errorf("获取接入订阅失败: %w", err)
	}

	if err := s.startSubscription(&sub); err != nil {
		return err
	}
	return s.db.Model(&sub).Updates(map[string]interface{}{
		"is_enabled": true,
		"last_error": "",
	}).Error
}

// StopSubscription 停止订阅消费并标记停用
func (s *IngestService) StopSubscription(id string) error {
	var sub models.IngestSubscription
	if err := s.db.First(&sub, "id = ?", id).Error; err != nil {
		return fmt.Errorf("获取接入订阅失败: %w", err)
	}

	if source := s.sourceFor(sub.Source); source != nil {
		if err := source.Unsubscribe(sub.Topic); err != nil {
			slog.Warn("取消主题订阅失败", "topic", sub.Topic, "error", err)
		}
	}
	return s.db.Model(&sub).Update("is_enabled", false).Error
}

// DeleteSubscription 删除订阅，消费中的订阅先停止
func (s *IngestService) DeleteSubscription(id string) error {
	var sub models.IngestSubscription
	if err := s.db.First(&sub, "id = ?", id).Error; err != nil {
		return fmt.Errorf("获取接入订阅失败: %w", err)
	}

	if sub.IsEnabled {
		if source := s.sourceFor(sub.Source); source != nil {
			if err := source.Unsubscribe(sub.Topic); err != nil {
				slog.Warn("取消主题订阅失败", "topic", sub.Topic, "error", err)
			}
		}
	}
	return s.db.Delete(&models.IngestSubscription{}, "id = ?", id).Error
}

// startSubscription 向消息源发起主题订阅
func (s *IngestService) startSubscription(sub *models.IngestSubscription) error {
	source := s.sourceFor(sub.Source)
	if source == nil {
		return fmt.Errorf("接入来源 %s 不可用", sub.Source)
	}

	subscriptionID := sub.ID
	sourceName := sub.Source
	datasetID := sub.DatasetID
	return source.Subscribe(sub.Topic, func(payload []byte) error {
		return s.handlePayload(subscriptionID, sourceName, datasetID, payload)
	})
}

// handlePayload 处理一条接入消息：解码、规整、加锁写入、更新统计
func (s *IngestService) handlePayload(subscriptionID, source, datasetID string, payload []byte) error {
	rawRecords, err := decodePayload(payload)
	if err != nil {
		monitoring.IngestDroppedTotal.WithLabelValues(source).Inc()
		s.bookFailure(subscriptionID, 1, fmt.Sprintf("解析接入消息失败: %v", err))
		return fmt.Errorf("解析接入消息失败: %w", err)
	}

	mapped := make(quality.Dataset, 0, len(rawRecords))
	dropped := 0
	for _, raw := range rawRecords {
		record, ok := s.mapper.MapRecord(raw)
		if !ok {
			dropped++
			continue
		}
		mapped = append(mapped, record)
	}

	if len(mapped) > 0 {
		if err := s.appendRecords(datasetID, mapped, source); err != nil {
			monitoring.IngestDroppedTotal.WithLabelValues(source).Add(float64(len(mapped)))
			s.bookFailure(subscriptionID, len(mapped), fmt.Sprintf("写入数据集失败: %v", err))
			return fmt.Errorf("写入数据集失败: %w", err)
		}
	}

	if dropped > 0 {
		monitoring.IngestDroppedTotal.WithLabelValues(source).Add(float64(dropped))
	}
	if len(mapped) > 0 {
		monitoring.IngestedRecordsTotal.WithLabelValues(source).Add(float64(len(mapped)))
	}
	s.bookSuccess(subscriptionID, len(mapped), dropped)
	return nil
}

// appendRecords 将规整后的记录写入数据集，配置了分布式锁时等待锁保护写入
func (s *IngestService) appendRecords(datasetID string, ds quality.Dataset, source string) error {
	write := func() error {
		_, err := s.datasetService.AddRecords(datasetID, ds, "stream:"+source)
		return err
	}

	s.mu.RLock()
	executor := s.lockExecutor
	s.mu.RUnlock()
	if executor == nil {
		return write()
	}

	ctx, cancel := context.WithTimeout(context.Background(), ingestLockWaitMax)
	defer cancel()
	return executor.ExecuteWithLockWait(ctx, "dataset_ingest:"+datasetID, ingestLockTTL, ingestLockRetry, write)
}

// bookSuccess 累加消费统计并清除错误
func (s *IngestService) bookSuccess(subscriptionID string, ingested, dropped int) {
	now := time.Now()
	updates := map[string]interface{}{
		"records_ingested": gorm.Expr("records_ingested + ?", ingested),
		"last_message_at":  &now,
		"last_error":       "",
	}
	if dropped > 0 {
		updates["records_dropped"] = gorm.Expr("records_dropped + ?", dropped)
	}

	if err := s.db.Model(&models.IngestSubscription{}).Where("id = ?", subscriptionID).
		Updates(updates).Error; err != nil {
		slog.Error("更新接入订阅统计失败", "subscription_id", subscriptionID, "error", err)
	}
}

// bookFailure 记录消费失败与丢弃数量
func (s *IngestService) bookFailure(subscriptionID string, dropped int, message string) {
	now := time.Now()
	if err := s.db.Model(&models.IngestSubscription{}).Where("id = ?", subscriptionID).
		Updates(map[string]interface{}{
			"records_dropped": gorm.Expr("records_dropped + ?", dropped),
			"last_message_at": &now,
			"last_error":      message,
		}).Error; err != nil {
		slog.Error("更新接入订阅统计失败", "subscription_id", subscriptionID, "error", err)
	}
}

func (s *IngestService) sourceFor(name string) MessageSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sources[name]
}

// decodePayload 解码消息载荷，支持单条对象与对象数组两种形式
func decodePayload(payload []byte) ([]map[string]interface{}, error) {
	var decoded interface{}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return nil, err
	}

	switch v := decoded.(type) {
	case map[string]interface{}:
		return []map[string]interface{}{v}, nil
	case []interface{}:
		records := make([]map[string]interface{}, 0, len(v))
		for _, item := range v {
			record, ok := item.(map[string]interface{})
			if !ok {
				return nil, errors.New("数组元素必须是对象")
			}
			records = append(records, record)
		}
		return records, nil
	default:
		return nil, errors.New("载荷必须是对象或对象数组")
	}
}
