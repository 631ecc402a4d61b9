/*
 * @module KafkaConnector
 * @description Kafka连接器，为数据集接入订阅提供消息消费与发布能力，按主题动态管理生产者和消费者
 * @architecture 适配器模式 - 封装第三方Kafka客户端，提供统一的接口
 * @documentReference ai_docs/quality_engine.md
 * @stateFlow 连接建立 -> 订阅主题 -> 消息消费/发布 -> 连接断开
 * @rules 处理失败的消息记录日志后提交位移跳过，避免毒消息阻塞整个订阅
 * @dependencies github.com/segmentio/kafka-go
 * @refs service/ingest/ingest_service.go, service/models/ingest.go
 */
package connectors

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaMessageHandler 消息处理函数类型
type KafkaMessageHandler func(key, value []byte) error

// KafkaConfig Kafka配置信息
type KafkaConfig struct {
	Brokers []string `json:"brokers"`  // Broker地址列表
	GroupID string   `json:"group_id"` // 消费者组ID
}

// DefaultKafkaConfig 从环境变量构建Kafka配置
func DefaultKafkaConfig() *KafkaConfig {
	return &KafkaConfig{
		Brokers: strings.Split(envOrDefault("KAFKA_BROKERS", "localhost:9092"), ","),
		GroupID: envOrDefault("KAFKA_GROUP_ID", "dataquality-ingest"),
	}
}

// KafkaConnector Kafka连接器结构体
type KafkaConnector struct {
	config      *KafkaConfig
	writers     map[string]*kafka.Writer // 按topic分组的生产者
	readers     map[string]*kafka.Reader // 按topic分组的消费者
	mutex       sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
	isConnected bool
	stats       *KafkaStats
}

// KafkaStats Kafka连接器统计信息
type KafkaStats struct {
	ConnectedAt       time.Time `json:"connected_at"`       // 连接时间
	MessagesProduced  int64     `json:"messages_produced"`  // 发布消息数
	MessagesConsumed  int64     `json:"messages_consumed"`  // 消费消息数
	MessagesDiscarded int64     `json:"messages_discarded"` // 因处理失败被跳过的消息数
	LastError         string    `json:"last_error"`         // 最后错误信息
	mutex             sync.RWMutex
}

// NewKafkaConnector 创建新的Kafka连接器
func NewKafkaConnector(config *KafkaConfig) *KafkaConnector {
	ctx, cancel := context.WithCancel(context.Background())

	return &KafkaConnector{
		config:  config,
		writers: make(map[string]*kafka.Writer),
		readers: make(map[string]*kafka.Reader),
		ctx:     ctx,
		cancel:  cancel,
		stats:   &KafkaStats{},
	}
}

// Connect 建立Kafka连接并验证Broker可达
func (kc *KafkaConnector) Connect() error {
	kc.mutex.Lock()
	defer kc.mutex.Unlock()

	if kc.isConnected {
		return nil
	}

	if len(kc.config.Brokers) == 0 {
		return fmt.Errorf("Kafka连接失败: 未配置Broker地址")
	}

	ctx, cancel := context.WithTimeout(kc.ctx, 10*time.Second)
	defer cancel()

	conn, err := kafka.DialContext(ctx, "tcp", kc.config.Brokers[0])
	if err != nil {
		kc.updateError(fmt.Sprintf("Kafka连接失败: %v", err))
		return fmt.Errorf("Kafka连接失败: %w", err)
	}
	conn.Close()

	kc.isConnected = true
	kc.stats.mutex.Lock()
	kc.stats.ConnectedAt = time.Now()
	kc.stats.mutex.Unlock()

	slog.Info("Kafka连接器已连接", "brokers", kc.config.Brokers, "group_id", kc.config.GroupID)
	return nil
}

// Disconnect 断开Kafka连接，关闭所有生产者和消费者
func (kc *KafkaConnector) Disconnect() error {
	kc.mutex.Lock()
	defer kc.mutex.Unlock()

	if !kc.isConnected {
		return nil
	}

	kc.cancel()

	for topic, writer := range kc.writers {
		if err := writer.Close(); err != nil {
			slog.Error("关闭Kafka生产者失败", "topic", topic, "error", err)
		}
	}
	kc.writers = make(map[string]*kafka.Writer)

	for topic, reader := range kc.readers {
		if err := reader.Close(); err != nil {
			slog.Error("关闭Kafka消费者失败", "topic", topic, "error", err)
		}
	}
	kc.readers = make(map[string]*kafka.Reader)

	kc.isConnected = false
	slog.Info("Kafka连接器已断开连接")
	return nil
}

// Publish 发布消息到指定主题
func (kc *KafkaConnector) Publish(ctx context.Context, topic string, key, value []byte) error {
	writer := kc.writerFor(topic)

	err := writer.WriteMessages(ctx, kafka.Message{
		Key:   key,
		Value: value,
		Time:  time.Now(),
	})
	if err != nil {
		kc.updateError(fmt.Sprintf("发布消息到主题 %s 失败: %v", topic, err))
		return fmt.Errorf("发布消息到主题 %s 失败: %w", topic, err)
	}

	kc.stats.mutex.Lock()
	kc.stats.MessagesProduced++
	kc.stats.mutex.Unlock()
	return nil
}

// writerFor 获取或创建指定主题的生产者
func (kc *KafkaConnector) writerFor(topic string) *kafka.Writer {
	kc.mutex.RLock()
	writer, exists := kc.writers[topic]
	kc.mutex.RUnlock()
	if exists {
		return writer
	}

	kc.mutex.Lock()
	defer kc.mutex.Unlock()
	if writer, exists = kc.writers[topic]; exists {
		return writer
	}

	writer = &kafka.Writer{
		Addr:         kafka.TCP(kc.config.Brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
	}
	kc.writers[topic] = writer
	return writer
}

// Subscribe 订阅主题并启动消费循环
func (kc *KafkaConnector) Subscribe(topic string, handler KafkaMessageHandler) error {
	kc.mutex.Lock()
	defer kc.mutex.Unlock()

	if _, exists := kc.readers[topic]; exists {
		return fmt.Errorf("主题 %s 已被订阅", topic)
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        kc.config.Brokers,
		GroupID:        kc.config.GroupID,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: 0, // 同步提交位移
	})
	kc.readers[topic] = reader

	go kc.consumeLoop(topic, reader, handler)

	slog.Info("Kafka主题已订阅", "topic", topic, "group_id", kc.config.GroupID)
	return nil
}

// consumeLoop 消费循环，处理失败的消息跳过并提交位移
func (kc *KafkaConnector) consumeLoop(topic string, reader *kafka.Reader, handler KafkaMessageHandler) {
	for {
		msg, err := reader.FetchMessage(kc.ctx)
		if err != nil {
			select {
			case <-kc.ctx.Done():
				return
			default:
			}
			kc.updateError(fmt.Sprintf("拉取主题 %s 消息失败: %v", topic, err))
			slog.Error("拉取Kafka消息失败，停止消费", "topic", topic, "error", err)
			return
		}

		if err := handler(msg.Key, msg.Value); err != nil {
			kc.stats.mutex.Lock()
			kc.stats.MessagesDiscarded++
			kc.stats.mutex.Unlock()
			slog.Warn("Kafka消息处理失败，跳过该消息",
				"topic", topic, "partition", msg.Partition, "offset", msg.Offset, "error", err)
		} else {
			kc.stats.mutex.Lock()
			kc.stats.MessagesConsumed++
			kc.stats.mutex.Unlock()
		}

		if err := reader.CommitMessages(kc.ctx, msg); err != nil {
			kc.updateError(fmt.Sprintf("提交主题 %s 位移失败: %v", topic, err))
			slog.Error("提交Kafka位移失败", "topic", topic, "error", err)
		}
	}
}

// Unsubscribe 取消订阅主题，关闭对应的消费者
func (kc *KafkaConnector) Unsubscribe(topic string) error {
	kc.mutex.Lock()
	defer kc.mutex.Unlock()

	reader, exists := kc.readers[topic]
	if !exists {
		return fmt.Errorf("主题 %s 未被订阅", topic)
	}

	delete(kc.readers, topic)
	if err := reader.Close(); err != nil {
		return fmt.Errorf("关闭主题 %s 消费者失败: %w", topic, err)
	}

	slog.Info("Kafka主题已取消订阅", "topic", topic)
	return nil
}

// SubscribedTopics 返回当前已订阅的主题列表
func (kc *KafkaConnector) SubscribedTopics() []string {
	kc.mutex.RLock()
	defer kc.mutex.RUnlock()

	topics := make([]string, 0, len(kc.readers))
	for topic := range kc.readers {
		topics = append(topics, topic)
	}
	return topics
}

// updateError 记录最后错误
func (kc *KafkaConnector) updateError(errMsg string) {
	kc.stats.mutex.Lock()
	defer kc.stats.mutex.Unlock()
	kc.stats.LastError = errMsg
}

// IsConnected 检查连接状态
func (kc *KafkaConnector) IsConnected() bool {
	kc.mutex.RLock()
	defer kc.mutex.RUnlock()
	return kc.isConnected
}

// GetStatistics 获取统计信息
func (kc *KafkaConnector) GetStatistics() map[string]interface{} {
	kc.stats.mutex.RLock()
	defer kc.stats.mutex.RUnlock()

	return map[string]interface{}{
		"connected_at":       kc.stats.ConnectedAt,
		"messages_produced":  kc.stats.MessagesProduced,
		"messages_consumed":  kc.stats.MessagesConsumed,
		"messages_discarded": kc.stats.MessagesDiscarded,
		"last_error":         kc.stats.LastError,
		"is_connected":       kc.IsConnected(),
		"subscribed_topics":  kc.SubscribedTopics(),
	}
}
