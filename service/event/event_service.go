/*
 * @module service/event/event_service
 * @description 质量事件服务，通过PostgreSQL LISTEN/NOTIFY在实例间分发事件并以SSE推送给订阅客户端
 * @architecture 事件驱动架构 - 业务服务层
 * @stateFlow 业务服务发布事件 -> 落库 -> pg_notify跨实例分发 -> 本地SSE连接推送
 * @rules 事件先落库再分发；非PostgreSQL环境（如sqlite）退化为进程内广播，不做跨实例分发
 * @dependencies dataquality-service/service/models, gorm.io/gorm, github.com/lib/pq
 * @refs service/quality_task/task_service.go, service/quality_report/report_service.go
 */

package event

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"dataquality-service/service/models"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// 事件通过该PostgreSQL通道在实例间分发
const eventChannel = "quality_events"

const (
	scopeUser      = "user"
	scopeBroadcast = "broadcast"
)

// 广播事件在事件表中的接收人标记
const broadcastUser = "*"

// getEnvWithDefault 获取环境变量，如果不存在则返回默认值
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// EventService 质量事件服务
type EventService struct {
	db          *gorm.DB
	connections map[string]map[string]*SSEClient // userName -> connectionID -> client
	mu          sync.RWMutex

	dbListener *pq.Listener
	listenMu   sync.RWMutex
	listening  bool

	ctx    context.Context
	cancel context.CancelFunc
}

// SSEClient SSE客户端连接
type SSEClient struct {
	ID       string
	UserName string
	Channel  chan *models.SSEEvent
	Done     chan bool
	ClientIP string
}

// notifyPayload pg_notify载荷，携带完整事件以避免接收端回查数据库
type notifyPayload struct {
	Scope    string           `json:"scope"`
	UserName string           `json:"user_name"`
	Event    *models.SSEEvent `json:"event"`
}

// NewEventService 创建事件服务实例
// PostgreSQL环境下启动LISTEN/NOTIFY监听器，其他数据库退化为进程内广播
func NewEventService(db *gorm.DB) *EventService {
	ctx, cancel := context.WithCancel(context.Background())

	service := &EventService{
		db:          db,
		connections: make(map[string]map[string]*SSEClient),
		ctx:         ctx,
		cancel:      cancel,
	}

	if db.Dialector.Name() == "postgres" {
		go service.startDBListener()
	} else {
		slog.Info("事件服务以进程内广播模式运行", "dialect", db.Dialector.Name())
	}

	go service.startConnectionJanitor()

	return service
}

// === 事件发布 ===

// PublishQualityEvent 发布质量事件
// data中的recipients指定定向接收人，为空时广播给所有连接
func (s *EventService) PublishQualityEvent(eventType string, data map[string]interface{}) {
	recipients := popRecipients(data)

	if len(recipients) == 0 {
		event := &models.SSEEvent{
			EventType: eventType,
			UserName:  broadcastUser,
			Data:      models.JSONB(data),
		}
		if err := s.BroadcastEvent(event); err != nil {
			slog.Error("广播质量事件失败", "event_type", eventType, "error", err)
		}
		return
	}

	for _, recipient := range recipients {
		event := &models.SSEEvent{
			EventType: eventType,
			UserName:  recipient,
			Data:      models.JSONB(data),
		}
		if err := s.SendEventToUser(recipient, event); err != nil {
			slog.Warn("发送定向质量事件失败", "event_type", eventType, "recipient", recipient, "error", err)
		}
	}
}

// popRecipients 从事件数据中取出接收人列表
func popRecipients(data map[string]interface{}) []string {
	raw, exists := data["recipients"]
	if !exists {
		return nil
	}
	delete(data, "recipients")

	switch v := raw.(type) {
	case []string:
		return v
	case []interface{}:
		recipients := make([]string, 0, len(v))
		for _, item := range v {
			if name, ok := item.(string); ok && name != "" {
				recipients = append(recipients, name)
			}
		}
		return recipients
	default:
		return nil
	}
}

// SendEventToUser 向指定用户发送事件
// 用户可能连接在其他实例上，事件总是先落库再分发
func (s *EventService) SendEventToUser(userName string, event *models.SSEEvent) error {
	return s.publish(scopeUser, userName, event)
}

// BroadcastEvent 广播事件给所有连接的用户
func (s *EventService) BroadcastEvent(event *models.SSEEvent) error {
	return s.publish(scopeBroadcast, broadcastUser, event)
}

// publish 落库并分发事件
// 监听器健康时通过pg_notify分发，本实例的连接由监听器收到自身通知后触达；否则直接进程内分发
func (s *EventService) publish(scope, userName string, event *models.SSEEvent) error {
	now := time.Now()
	event.Sent = true
	event.SentAt = &now

	if err := s.db.Create(event).Error; err != nil {
		return fmt.Errorf("保存SSE事件失败: %w", err)
	}

	if s.db.Dialector.Name() == "postgres" {
		wasListening := s.isListening()

		payload, err := json.Marshal(&notifyPayload{Scope: scope, UserName: userName, Event: event})
		if err == nil {
			if err := s.db.Exec("SELECT pg_notify(?, ?)", eventChannel, string(payload)).Error; err == nil {
				if wasListening {
					// 本地分发由监听器收到自身通知后完成
					return nil
				}
			} else {
				slog.Warn("pg_notify分发失败，退回进程内分发", "error", err)
			}
		}
	}

	s.dispatchLocal(scope, userName, event)
	return nil
}

// dispatchLocal 将事件推送给本实例上匹配的SSE连接
func (s *EventService) dispatchLocal(scope, userName string, event *models.SSEEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if scope == scopeUser {
		for _, client := range s.connections[userName] {
			s.pushToClient(client, event)
		}
		return
	}

	for connUser, userConnections := range s.connections {
		for _, client := range userConnections {
			eventCopy := *event
			eventCopy.UserName = connUser
			s.pushToClient(client, &eventCopy)
		}
	}
}

// pushToClient 非阻塞推送，队列满时丢弃并记录
func (s *EventService) pushToClient(client *SSEClient, event *models.SSEEvent) {
	select {
	case client.Channel <- event:
	default:
		slog.Warn("SSE连接事件队列已满，跳过推送",
			"user_name", client.UserName,
			"connection_id", client.ID,
			"event_type", event.EventType)
	}
}

// === 数据库监听 ===

// startDBListener 启动PostgreSQL监听器，接收其他实例发布的事件
func (s *EventService) startDBListener() {
	connStr := buildListenerConnStr()

	s.dbListener = pq.NewListener(connStr, 10*time.Second, time.Minute, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			slog.Warn("PostgreSQL监听器状态变化", "listener_event", int(ev), "error", err)
		}
	})

	if err := s.dbListener.Listen(eventChannel); err != nil {
		slog.Error("监听质量事件通道失败，退化为进程内分发", "channel", eventChannel, "error", err)
		return
	}

	s.setListening(true)
	slog.Info("质量事件监听器已启动", "channel", eventChannel)

	for {
		select {
		case notification := <-s.dbListener.Notify:
			// 重连后监听器会投递一个nil通知
			if notification != nil {
				s.handleNotification(notification)
			}
		case <-s.ctx.Done():
			slog.Info("质量事件监听器已停止")
			return
		}
	}
}

// buildListenerConnStr 构建监听器连接串，监听器不走gorm连接池
func buildListenerConnStr() string {
	if connStr := os.Getenv("DATABASE_URL"); connStr != "" {
		return connStr
	}

	host := getEnvWithDefault("DB_HOST", "localhost")
	port := getEnvWithDefault("DB_PORT", "5432")
	user := getEnvWithDefault("DB_USER", "postgres")
	password := getEnvWithDefault("DB_PASSWORD", "postgres")
	dbname := getEnvWithDefault("DB_NAME", "dataquality")
	sslmode := getEnvWithDefault("DB_SSLMODE", "disable")

	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		host, port, user, password, dbname, sslmode)
}

// handleNotification 处理pg_notify通知并分发给本地连接
func (s *EventService) handleNotification(notification *pq.Notification) {
	var payload notifyPayload
	if err := json.Unmarshal([]byte(notification.Extra), &payload); err != nil {
		slog.Warn("解析质量事件通知失败", "error", err)
		return
	}
	if payload.Event == nil {
		return
	}

	s.dispatchLocal(payload.Scope, payload.UserName, payload.Event)
}

func (s *EventService) isListening() bool {
	s.listenMu.RLock()
	defer s.listenMu.RUnlock()
	return s.listening
}

func (s *EventService) setListening(listening bool) {
	s.listenMu.Lock()
	s.listening = listening
	s.listenMu.Unlock()
}

// === SSE连接管理 ===

// AddSSEConnection 添加SSE连接
func (s *EventService) AddSSEConnection(userName, connectionID, clientIP string) *SSEClient {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connections[userName] == nil {
		s.connections[userName] = make(map[string]*SSEClient)
	}

	client := &SSEClient{
		ID:       connectionID,
		UserName: userName,
		Channel:  make(chan *models.SSEEvent, 100), // 缓冲100个事件
		Done:     make(chan bool),
		ClientIP: clientIP,
	}

	s.connections[userName][connectionID] = client

	// 记录连接到数据库
	connection := &models.SSEConnection{
		UserName:     userName,
		ConnectionID: connectionID,
		ClientIP:     clientIP,
		ConnectedAt:  time.Now(),
		LastPingAt:   time.Now(),
		IsActive:     true,
	}
	if err := s.db.Create(connection).Error; err != nil {
		slog.Warn("记录SSE连接失败", "connection_id", connectionID, "error", err)
	}

	slog.Info("SSE连接已建立", "user_name", userName, "connection_id", connectionID, "client_ip", clientIP)
	return client
}

// RemoveSSEConnection 移除SSE连接
func (s *EventService) RemoveSSEConnection(userName, connectionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userConnections, exists := s.connections[userName]
	if !exists {
		return
	}
	client, exists := userConnections[connectionID]
	if !exists {
		return
	}

	close(client.Done)
	delete(userConnections, connectionID)
	if len(userConnections) == 0 {
		delete(s.connections, userName)
	}

	// 更新数据库连接状态
	s.db.Model(&models.SSEConnection{}).
		Where("connection_id = ?", connectionID).
		Update("is_active", false)

	slog.Info("SSE连接已断开", "user_name", userName, "connection_id", connectionID)
}

// startConnectionJanitor 周期清理已结束的连接
func (s *EventService) startConnectionJanitor() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanupInactiveConnections()
		case <-s.ctx.Done():
			return
		}
	}
}

// cleanupInactiveConnections 清理不活跃的连接
func (s *EventService) cleanupInactiveConnections() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for userName, userConnections := range s.connections {
		for connectionID, client := range userConnections {
			select {
			case <-client.Done:
				delete(userConnections, connectionID)
				slog.Info("清理已断开的SSE连接", "user_name", userName, "connection_id", connectionID)
			default:
				// 连接仍然活跃
			}
		}

		if len(userConnections) == 0 {
			delete(s.connections, userName)
		}
	}
}

// Stop 停止事件服务
func (s *EventService) Stop() {
	s.cancel()
	s.setListening(false)

	if s.dbListener != nil {
		s.dbListener.Close()
	}

	// 关闭所有SSE连接
	s.mu.Lock()
	for _, userConnections := range s.connections {
		for _, client := range userConnections {
			close(client.Done)
		}
	}
	s.connections = make(map[string]map[string]*SSEClient)
	s.mu.Unlock()

	slog.Info("事件服务已停止")
}

// === 连接与事件历史查询 ===

// GetSSEConnectionList 获取SSE连接列表
func (s *EventService) GetSSEConnectionList(page, pageSize int, userName, clientIP string, isActive *bool) ([]models.SSEConnection, int64, error) {
	var connections []models.SSEConnection
	var total int64

	query := s.db.Model(&models.SSEConnection{})

	if userName != "" {
		query = query.Where("user_name = ?", userName)
	}
	if clientIP != "" {
		query = query.Where("client_ip = ?", clientIP)
	}
	if isActive != nil {
		query = query.Where("is_active = ?", *isActive)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("connected_at DESC").
		Offset(offset).Limit(pageSize).Find(&connections).Error

	return connections, total, err
}

// GetEventHistoryList 获取事件历史列表
func (s *EventService) GetEventHistoryList(page, pageSize int, userName, eventType string, read *bool) ([]models.SSEEvent, int64, error) {
	var events []models.SSEEvent
	var total int64

	query := s.db.Model(&models.SSEEvent{})

	if userName != "" {
		query = query.Where("user_name = ?", userName)
	}
	if eventType != "" {
		query = query.Where("event_type = ?", eventType)
	}
	if read != nil {
		query = query.Where("read = ?", *read)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	err := query.Order("created_at DESC").
		Offset(offset).Limit(pageSize).Find(&events).Error

	return events, total, err
}

// MarkEventsRead 将用户的事件标记为已读
func (s *EventService) MarkEventsRead(userName string, eventIDs []string) error {
	if len(eventIDs) == 0 {
		return nil
	}

	return s.db.Model(&models.SSEEvent{}).
		Where("user_name = ? AND id IN ?", userName, eventIDs).
		Updates(map[string]interface{}{
			"read":    true,
			"read_at": time.Now(),
		}).Error
}
