/*
 * @module MQTTConnector
 * @description MQTT连接器，为数据集接入订阅提供MQTT主题消费与发布能力，断线重连后自动恢复订阅
 * @architecture 适配器模式 - 封装第三方MQTT客户端，提供统一的接口
 * @documentReference ai_docs/quality_engine.md
 * @stateFlow 连接建立 -> 主题订阅/发布 -> 消息处理 -> 连接断开
 * @rules 处理失败的消息记录日志后丢弃，重连成功后按订阅表重新订阅所有主题
 * @dependencies github.com/eclipse/paho.mqtt.golang
 * @refs service/ingest/ingest_service.go, service/models/ingest.go
 */
package connectors

import (
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTMessageHandler 消息处理函数类型
type MQTTMessageHandler func(topic string, payload []byte) error

// MQTTConfig MQTT配置信息
type MQTTConfig struct {
	Broker         string        `json:"broker"`          // Broker地址，如 tcp://localhost:1883
	ClientID       string        `json:"client_id"`       // 客户端ID
	Username       string        `json:"username"`        // 用户名
	Password       string        `json:"password"`        // 密码
	QoS            byte          `json:"qos"`             // 服务质量等级
	CleanSession   bool          `json:"clean_session"`   // 是否清理会话
	KeepAlive      time.Duration `json:"keep_alive"`      // 心跳间隔
	ConnectTimeout time.Duration `json:"connect_timeout"` // 连接超时时间
}

// DefaultMQTTConfig 从环境变量构建MQTT配置
func DefaultMQTTConfig() *MQTTConfig {
	hostname, _ := os.Hostname()

	return &MQTTConfig{
		Broker:         envOrDefault("MQTT_BROKER", "tcp://localhost:1883"),
		ClientID:       envOrDefault("MQTT_CLIENT_ID", fmt.Sprintf("dataquality-%s-%d", hostname, os.Getpid())),
		Username:       os.Getenv("MQTT_USERNAME"),
		Password:       os.Getenv("MQTT_PASSWORD"),
		QoS:            1,
		CleanSession:   true,
		KeepAlive:      30 * time.Second,
		ConnectTimeout: 10 * time.Second,
	}
}

// MQTTConnector MQTT连接器结构体
type MQTTConnector struct {
	config      *MQTTConfig
	client      mqtt.Client
	subscribers map[string]MQTTMessageHandler // 主题订阅处理器映射
	mutex       sync.RWMutex
	isConnected bool
	stats       *MQTTStats
}

// MQTTStats MQTT连接器统计信息
type MQTTStats struct {
	ConnectedAt       time.Time `json:"connected_at"`       // 连接时间
	MessagesSent      int64     `json:"messages_sent"`      // 发送消息数
	MessagesReceived  int64     `json:"messages_received"`  // 接收消息数
	MessagesDiscarded int64     `json:"messages_discarded"` // 因处理失败被丢弃的消息数
	ReconnectCount    int       `json:"reconnect_count"`    // 重连次数
	LastError         string    `json:"last_error"`         // 最后错误信息
	mutex             sync.RWMutex
}

// NewMQTTConnector 创建新的MQTT连接器
func NewMQTTConnector(config *MQTTConfig) *MQTTConnector {
	connector := &MQTTConnector{
		config:      config,
		subscribers: make(map[string]MQTTMessageHandler),
		stats:       &MQTTStats{},
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)

	if config.Username != "" {
		opts.SetUsername(config.Username)
		opts.SetPassword(config.Password)
	}

	opts.SetCleanSession(config.CleanSession)
	opts.SetKeepAlive(config.KeepAlive)
	opts.SetConnectTimeout(config.ConnectTimeout)
	opts.SetAutoReconnect(true)

	opts.SetOnConnectHandler(connector.onConnected)
	opts.SetConnectionLostHandler(connector.onConnectionLost)

	connector.client = mqtt.NewClient(opts)
	return connector
}

// Connect 建立MQTT连接
func (mc *MQTTConnector) Connect() error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if mc.isConnected {
		return nil
	}

	if token := mc.client.Connect(); token.WaitTimeout(mc.config.ConnectTimeout) && token.Error() != nil {
		mc.updateError(fmt.Sprintf("MQTT连接失败: %v", token.Error()))
		return fmt.Errorf("MQTT连接失败: %w", token.Error())
	}

	mc.isConnected = true
	mc.stats.mutex.Lock()
	mc.stats.ConnectedAt = time.Now()
	mc.stats.mutex.Unlock()

	slog.Info("MQTT连接器已连接", "broker", mc.config.Broker, "client_id", mc.config.ClientID)
	return nil
}

// Disconnect 断开MQTT连接
func (mc *MQTTConnector) Disconnect() error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if !mc.isConnected {
		return nil
	}

	mc.client.Disconnect(250)
	mc.isConnected = false

	slog.Info("MQTT连接器已断开连接")
	return nil
}

// Subscribe 订阅主题，连接断开期间的订阅会在重连后生效
func (mc *MQTTConnector) Subscribe(topic string, handler MQTTMessageHandler) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if _, exists := mc.subscribers[topic]; exists {
		return fmt.Errorf("主题 %s 已被订阅", topic)
	}
	mc.subscribers[topic] = handler

	if mc.isConnected {
		if err := mc.subscribeInternal(topic); err != nil {
			delete(mc.subscribers, topic)
			return err
		}
	}

	slog.Info("MQTT主题已订阅", "topic", topic, "qos", mc.config.QoS)
	return nil
}

// subscribeInternal 向broker发起订阅，调用方需持有锁
func (mc *MQTTConnector) subscribeInternal(topic string) error {
	token := mc.client.Subscribe(topic, mc.config.QoS, mc.messageHandler)
	if token.WaitTimeout(mc.config.ConnectTimeout) && token.Error() != nil {
		mc.updateError(fmt.Sprintf("订阅主题 %s 失败: %v", topic, token.Error()))
		return fmt.Errorf("订阅主题 %s 失败: %w", topic, token.Error())
	}
	return nil
}

// Unsubscribe 取消订阅主题
func (mc *MQTTConnector) Unsubscribe(topic string) error {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	if _, exists := mc.subscribers[topic]; !exists {
		return fmt.Errorf("主题 %s 未被订阅", topic)
	}
	delete(mc.subscribers, topic)

	if mc.isConnected {
		token := mc.client.Unsubscribe(topic)
		if token.WaitTimeout(mc.config.ConnectTimeout) && token.Error() != nil {
			return fmt.Errorf("取消订阅主题 %s 失败: %w", topic, token.Error())
		}
	}

	slog.Info("MQTT主题已取消订阅", "topic", topic)
	return nil
}

// Publish 发布消息到指定主题
func (mc *MQTTConnector) Publish(topic string, payload []byte) error {
	token := mc.client.Publish(topic, mc.config.QoS, false, payload)
	if token.WaitTimeout(mc.config.ConnectTimeout) && token.Error() != nil {
		mc.updateError(fmt.Sprintf("发布消息到主题 %s 失败: %v", topic, token.Error()))
		return fmt.Errorf("发布消息到主题 %s 失败: %w", topic, token.Error())
	}

	mc.stats.mutex.Lock()
	mc.stats.MessagesSent++
	mc.stats.mutex.Unlock()
	return nil
}

// messageHandler 统一消息入口，按主题分发给注册的处理器
func (mc *MQTTConnector) messageHandler(_ mqtt.Client, msg mqtt.Message) {
	mc.mutex.RLock()
	handler, exists := mc.subscribers[msg.Topic()]
	mc.mutex.RUnlock()

	if !exists {
		slog.Warn("收到未注册主题的MQTT消息", "topic", msg.Topic())
		return
	}

	if err := handler(msg.Topic(), msg.Payload()); err != nil {
		mc.stats.mutex.Lock()
		mc.stats.MessagesDiscarded++
		mc.stats.mutex.Unlock()
		slog.Warn("MQTT消息处理失败，丢弃该消息", "topic", msg.Topic(), "error", err)
		return
	}

	mc.stats.mutex.Lock()
	mc.stats.MessagesReceived++
	mc.stats.mutex.Unlock()
}

// onConnected 连接成功回调，恢复所有已注册的订阅
func (mc *MQTTConnector) onConnected(_ mqtt.Client) {
	mc.mutex.Lock()
	defer mc.mutex.Unlock()

	mc.isConnected = true
	for topic := range mc.subscribers {
		if err := mc.subscribeInternal(topic); err != nil {
			slog.Error("重连后恢复MQTT订阅失败", "topic", topic, "error", err)
		}
	}
}

// onConnectionLost 连接丢失回调
func (mc *MQTTConnector) onConnectionLost(_ mqtt.Client, err error) {
	mc.mutex.Lock()
	mc.isConnected = false
	mc.mutex.Unlock()

	mc.stats.mutex.Lock()
	mc.stats.ReconnectCount++
	mc.stats.LastError = fmt.Sprintf("MQTT连接丢失: %v", err)
	mc.stats.mutex.Unlock()

	slog.Warn("MQTT连接丢失，等待自动重连", "broker", mc.config.Broker, "error", err)
}

// updateError 记录最后错误
func (mc *MQTTConnector) updateError(errMsg string) {
	mc.stats.mutex.Lock()
	defer mc.stats.mutex.Unlock()
	mc.stats.LastError = errMsg
}

// IsConnected 检查连接状态
func (mc *MQTTConnector) IsConnected() bool {
	mc.mutex.RLock()
	defer mc.mutex.RUnlock()
	return mc.isConnected
}

// GetStatistics 获取统计信息
func (mc *MQTTConnector) GetStatistics() map[string]interface{} {
	mc.stats.mutex.RLock()
	defer mc.stats.mutex.RUnlock()

	return map[string]interface{}{
		"connected_at":       mc.stats.ConnectedAt,
		"messages_sent":      mc.stats.MessagesSent,
		"messages_received":  mc.stats.MessagesReceived,
		"messages_discarded": mc.stats.MessagesDiscarded,
		"reconnect_count":    mc.stats.ReconnectCount,
		"last_error":         mc.stats.LastError,
		"is_connected":       mc.IsConnected(),
	}
}
