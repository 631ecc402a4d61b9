/*
 * @module RedisConnector
 * @description Redis连接器，为质量报告提供字节缓存，封装连接管理与统计
 * @architecture 适配器模式 - 封装第三方Redis客户端，提供统一的接口
 * @documentReference ai_docs/quality_engine.md
 * @stateFlow 连接建立 -> 缓存读写 -> 连接断开
 * @rules 键未命中返回nil而非错误，调用方以此区分未命中与故障
 * @dependencies github.com/go-redis/redis/v8
 * @refs service/quality_report/report_service.go, service/init.go
 */
package connectors

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisConnector Redis缓存连接器结构体
type RedisConnector struct {
	config      *RedisConfig
	client      *redis.Client
	ctx         context.Context
	cancel      context.CancelFunc
	isConnected bool
	mutex       sync.RWMutex
	stats       *RedisStats
}

// RedisConfig Redis配置信息
type RedisConfig struct {
	Address      string        `json:"address"`        // Redis地址
	Password     string        `json:"password"`       // 密码
	Database     int           `json:"database"`       // 数据库编号
	PoolSize     int           `json:"pool_size"`      // 连接池大小
	MinIdleConns int           `json:"min_idle_conns"` // 最小空闲连接数
	DialTimeout  time.Duration `json:"dial_timeout"`   // 连接超时时间
	ReadTimeout  time.Duration `json:"read_timeout"`   // 读取超时时间
	WriteTimeout time.Duration `json:"write_timeout"`  // 写入超时时间
}

// DefaultRedisConfig 从环境变量构建Redis配置
func DefaultRedisConfig() *RedisConfig {
	db := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if parsed, err := strconv.Atoi(dbStr); err == nil {
			db = parsed
		}
	}

	return &RedisConfig{
		Address:      fmt.Sprintf("%s:%s", envOrDefault("REDIS_HOST", "localhost"), envOrDefault("REDIS_PORT", "6379")),
		Password:     os.Getenv("REDIS_PASSWORD"),
		Database:     db,
		PoolSize:     10,
		MinIdleConns: 5,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// RedisStats Redis连接器统计信息
type RedisStats struct {
	ConnectedAt      time.Time `json:"connected_at"`      // 连接时间
	CommandsExecuted int64     `json:"commands_executed"` // 执行命令数
	CacheHits        int64     `json:"cache_hits"`        // 缓存命中数
	CacheMisses      int64     `json:"cache_misses"`      // 缓存未命中数
	LastError        string    `json:"last_error"`        // 最后错误信息
	mutex            sync.RWMutex
}

// NewRedisConnector 创建新的Redis缓存连接器
func NewRedisConnector(config *RedisConfig) *RedisConnector {
	ctx, cancel := context.WithCancel(context.Background())

	return &RedisConnector{
		config: config,
		client: redis.NewClient(&redis.Options{
			Addr:         config.Address,
			Password:     config.Password,
			DB:           config.Database,
			PoolSize:     config.PoolSize,
			MinIdleConns: config.MinIdleConns,
			DialTimeout:  config.DialTimeout,
			ReadTimeout:  config.ReadTimeout,
			WriteTimeout: config.WriteTimeout,
		}),
		ctx:    ctx,
		cancel: cancel,
		stats:  &RedisStats{},
	}
}

// Connect 建立Redis连接
func (rc *RedisConnector) Connect() error {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	if rc.isConnected {
		return nil
	}

	ctx, cancel := context.WithTimeout(rc.ctx, rc.config.DialTimeout)
	defer cancel()

	if err := rc.client.Ping(ctx).Err(); err != nil {
		rc.updateError(fmt.Sprintf("Redis连接失败: %v", err))
		return fmt.Errorf("Redis连接失败: %w", err)
	}

	rc.isConnected = true
	rc.stats.mutex.Lock()
	rc.stats.ConnectedAt = time.Now()
	rc.stats.mutex.Unlock()

	slog.Info("Redis缓存连接器已连接", "address", rc.config.Address, "db", rc.config.Database)
	return nil
}

// Disconnect 断开Redis连接
func (rc *RedisConnector) Disconnect() error {
	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	if !rc.isConnected {
		return nil
	}

	rc.cancel()
	rc.isConnected = false

	if err := rc.client.Close(); err != nil {
		return fmt.Errorf("关闭Redis客户端失败: %w", err)
	}

	slog.Info("Redis缓存连接器已断开连接")
	return nil
}

// Get 读取缓存值，键不存在时返回nil且无错误
func (rc *RedisConnector) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := rc.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			rc.updateStats(1, 0, 1)
			return nil, nil
		}
		rc.updateError(fmt.Sprintf("GET命令失败: %v", err))
		return nil, fmt.Errorf("GET命令失败: %w", err)
	}

	rc.updateStats(1, 1, 0)
	return data, nil
}

// Set 写入缓存值并设置过期时间
func (rc *RedisConnector) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := rc.client.Set(ctx, key, value, ttl).Err(); err != nil {
		rc.updateError(fmt.Sprintf("SET命令失败: %v", err))
		return fmt.Errorf("SET命令失败: %w", err)
	}

	rc.updateStats(1, 0, 0)
	return nil
}

// Delete 删除缓存键
func (rc *RedisConnector) Delete(ctx context.Context, key string) error {
	if err := rc.client.Del(ctx, key).Err(); err != nil {
		rc.updateError(fmt.Sprintf("DEL命令失败: %v", err))
		return fmt.Errorf("DEL命令失败: %w", err)
	}

	rc.updateStats(1, 0, 0)
	return nil
}

// Exists 检查缓存键是否存在
func (rc *RedisConnector) Exists(ctx context.Context, key string) (bool, error) {
	count, err := rc.client.Exists(ctx, key).Result()
	if err != nil {
		rc.updateError(fmt.Sprintf("EXISTS命令失败: %v", err))
		return false, fmt.Errorf("EXISTS命令失败: %w", err)
	}

	rc.updateStats(1, 0, 0)
	return count > 0, nil
}

// Ping 探测Redis连通性
func (rc *RedisConnector) Ping(ctx context.Context) error {
	if err := rc.client.Ping(ctx).Err(); err != nil {
		rc.updateError(fmt.Sprintf("PING命令失败: %v", err))
		return fmt.Errorf("PING命令失败: %w", err)
	}

	rc.updateStats(1, 0, 0)
	return nil
}

// updateStats 更新统计信息
func (rc *RedisConnector) updateStats(commands, hits, misses int64) {
	rc.stats.mutex.Lock()
	defer rc.stats.mutex.Unlock()
	rc.stats.CommandsExecuted += commands
	rc.stats.CacheHits += hits
	rc.stats.CacheMisses += misses
}

// updateError 记录最后错误
func (rc *RedisConnector) updateError(errMsg string) {
	rc.stats.mutex.Lock()
	defer rc.stats.mutex.Unlock()
	rc.stats.LastError = errMsg
}

// IsConnected 检查连接状态
func (rc *RedisConnector) IsConnected() bool {
	rc.mutex.RLock()
	defer rc.mutex.RUnlock()
	return rc.isConnected
}

// GetStatistics 获取统计信息
func (rc *RedisConnector) GetStatistics() map[string]interface{} {
	rc.stats.mutex.RLock()
	defer rc.stats.mutex.RUnlock()

	return map[string]interface{}{
		"connected_at":      rc.stats.ConnectedAt,
		"commands_executed": rc.stats.CommandsExecuted,
		"cache_hits":        rc.stats.CacheHits,
		"cache_misses":      rc.stats.CacheMisses,
		"last_error":        rc.stats.LastError,
		"is_connected":      rc.IsConnected(),
	}
}

// envOrDefault 获取环境变量，如果不存在则返回默认值
func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
