/*
 * @module service/rate_limiter/redis_rate_limiter_test
 * @description Redis限流器单元测试和性能测试
 * @architecture 测试层
 * @stateFlow Redis不可用时整组跳过，可用时验证计数、优先级与并发精确性
 * @rules 时间窗口取足够大的值，避免测试跨越窗口边界导致计数重置
 * @dependencies github.com/stretchr/testify
 * @refs redis_rate_limiter.go
 */

package rate_limiter

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis 连接测试用Redis，环境中没有Redis时跳过用例
func setupTestRedis(tb testing.TB) *RedisRateLimiter {
	limiter, err := NewRedisRateLimiter()
	if err != nil {
		tb.Skipf("redis不可用，跳过限流测试: %v", err)
	}

	// 清理历史限流计数
	ctx := context.Background()
	keys, err := limiter.client.Keys(ctx, "rate_limit:*").Result()
	require.NoError(tb, err)
	if len(keys) > 0 {
		require.NoError(tb, limiter.client.Del(ctx, keys...).Err())
	}

	return limiter
}

func TestCheckRateLimit_SingleRule_Success(t *testing.T) {
	limiter := setupTestRedis(t)
	defer limiter.Close()

	ctx := context.Background()
	rule := RateLimitRule{
		Type:        "global",
		TargetID:    "",
		TimeWindow:  3600,
		MaxRequests: 10,
	}

	// 第一次请求应该成功
	result, err := limiter.checkSingleRule(ctx, rule)
	require.NoError(t, err)
	assert.True(t, result.Allowed, "第一次请求应该被允许")
	assert.Equal(t, 10, result.Limit, "限制数应该为10")
	assert.Equal(t, 9, result.Remaining, "剩余数应该为9")
	assert.Equal(t, "global", result.RateLimitType)
}

func TestCheckRateLimit_SingleRule_RateLimited(t *testing.T) {
	limiter := setupTestRedis(t)
	defer limiter.Close()

	ctx := context.Background()
	rule := RateLimitRule{
		Type:        "api_key",
		TargetID:    "test-key-123",
		TimeWindow:  3600,
		MaxRequests: 5,
	}

	// 发送5次请求
	for i := 0; i < 5; i++ {
		result, err := limiter.checkSingleRule(ctx, rule)
		require.NoError(t, err)
		assert.True(t, result.Allowed, fmt.Sprintf("第%d次请求应该被允许", i+1))
		assert.Equal(t, 5-i-1, result.Remaining, fmt.Sprintf("第%d次请求剩余数应该为%d", i+1, 5-i-1))
	}

	// 第6次请求应该被限流
	result, err := limiter.checkSingleRule(ctx, rule)
	require.NoError(t, err)
	assert.False(t, result.Allowed, "第6次请求应该被限流")
	assert.Equal(t, 0, result.Remaining, "剩余数应该为0")
	assert.Contains(t, result.Message, "API密钥限流限制")
}

func TestCheckRateLimit_MultipleRules_Priority(t *testing.T) {
	limiter := setupTestRedis(t)
	defer limiter.Close()

	ctx := context.Background()
	rules := []RateLimitRule{
		{Type: "global", TargetID: "", TimeWindow: 3600, MaxRequests: 100},
		{Type: "api_key", TargetID: "key-123", TimeWindow: 3600, MaxRequests: 50},
		{Type: "dataset", TargetID: "ds-456", TimeWindow: 3600, MaxRequests: 10},
	}

	// 应该按优先级检查：dataset > api_key > global
	// 发送10次请求
	for i := 0; i < 10; i++ {
		result, err := limiter.CheckRateLimit(ctx, rules)
		require.NoError(t, err)
		assert.True(t, result.Allowed, fmt.Sprintf("第%d次请求应该被允许", i+1))
	}

	// 第11次请求应该被数据集层限流
	result, err := limiter.CheckRateLimit(ctx, rules)
	require.NoError(t, err)
	assert.False(t, result.Allowed, "第11次请求应该被限流")
	assert.Equal(t, "dataset", result.RateLimitType, "应该是数据集层触发限流")
}

func TestCheckRateLimit_NoRules(t *testing.T) {
	limiter := setupTestRedis(t)
	defer limiter.Close()

	ctx := context.Background()
	rules := []RateLimitRule{}

	result, err := limiter.CheckRateLimit(ctx, rules)
	require.NoError(t, err)
	assert.True(t, result.Allowed, "没有限流规则应该允许通过")
	assert.Equal(t, "none", result.RateLimitType)
	assert.Equal(t, -1, result.Limit)
}

func TestGetStats(t *testing.T) {
	limiter := setupTestRedis(t)
	defer limiter.Close()

	ctx := context.Background()
	rule := RateLimitRule{
		Type:        "dataset",
		TargetID:    "ds-789",
		TimeWindow:  3600,
		MaxRequests: 20,
	}

	// 发送5次请求
	for i := 0; i < 5; i++ {
		_, err := limiter.checkSingleRule(ctx, rule)
		require.NoError(t, err)
	}

	// 获取统计信息
	stats, err := limiter.GetStats(ctx, rule)
	require.NoError(t, err)
	assert.Equal(t, "dataset", stats["type"])
	assert.Equal(t, "ds-789", stats["target_id"])
	assert.Equal(t, 5, stats["current"], "当前计数应该为5")
	assert.Equal(t, 20, stats["limit"], "限制数应该为20")
	assert.Equal(t, 15, stats["remaining"], "剩余数应该为15")
}

func TestResetRateLimit(t *testing.T) {
	limiter := setupTestRedis(t)
	defer limiter.Close()

	ctx := context.Background()
	rule := RateLimitRule{
		Type:        "api_key",
		TargetID:    "reset-test-key",
		TimeWindow:  3600,
		MaxRequests: 10,
	}

	// 发送5次请求
	for i := 0; i < 5; i++ {
		_, err := limiter.checkSingleRule(ctx, rule)
		require.NoError(t, err)
	}

	// 验证计数
	stats, err := limiter.GetStats(ctx, rule)
	require.NoError(t, err)
	assert.Equal(t, 5, stats["current"])

	// 重置计数
	err = limiter.ResetRateLimit(ctx, rule)
	require.NoError(t, err)

	// 验证重置后计数为0
	stats, err = limiter.GetStats(ctx, rule)
	require.NoError(t, err)
	assert.Equal(t, 0, stats["current"], "重置后计数应该为0")
}

func TestSortRulesByPriority(t *testing.T) {
	limiter := &RedisRateLimiter{}

	rules := []RateLimitRule{
		{Type: "global", TimeWindow: 3600, MaxRequests: 1000},
		{Type: "api_key", TargetID: "key-1", TimeWindow: 3600, MaxRequests: 100},
		{Type: "dataset", TargetID: "ds-1", TimeWindow: 3600, MaxRequests: 50},
	}

	sorted := limiter.sortRulesByPriority(rules)
	assert.Equal(t, "dataset", sorted[0].Type, "第一个应该是dataset")
	assert.Equal(t, "api_key", sorted[1].Type, "第二个应该是api_key")
	assert.Equal(t, "global", sorted[2].Type, "第三个应该是global")
}

func TestBuildRateLimitKey(t *testing.T) {
	limiter := &RedisRateLimiter{}

	// 测试全局限流Key
	globalKey := limiter.buildRateLimitKey("global", "", 3600)
	assert.Contains(t, globalKey, "rate_limit:global")

	// 测试API密钥限流Key
	keyKey := limiter.buildRateLimitKey("api_key", "key-123", 3600)
	assert.Contains(t, keyKey, "rate_limit:api_key:key-123")

	// 测试数据集限流Key
	dsKey := limiter.buildRateLimitKey("dataset", "ds-456", 3600)
	assert.Contains(t, dsKey, "rate_limit:dataset:ds-456")
}

// TestConcurrentRateLimitCheck 并发测试：多个goroutine同时检查限流
func TestConcurrentRateLimitCheck(t *testing.T) {
	limiter := setupTestRedis(t)
	defer limiter.Close()

	ctx := context.Background()
	rule := RateLimitRule{
		Type:        "api_key",
		TargetID:    "concurrent-key",
		TimeWindow:  3600,
		MaxRequests: 100,
	}

	var wg sync.WaitGroup
	allowedCount := 0
	deniedCount := 0
	var mu sync.Mutex

	// 启动200个goroutine并发请求
	concurrency := 200
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := limiter.checkSingleRule(ctx, rule)
			assert.NoError(t, err)
			if err != nil {
				return
			}

			mu.Lock()
			if result.Allowed {
				allowedCount++
			} else {
				deniedCount++
			}
			mu.Unlock()
		}()
	}

	wg.Wait()

	// Lua脚本保证原子性，放行数量应该精确等于配额
	t.Logf("允许请求: %d, 拒绝请求: %d", allowedCount, deniedCount)
	assert.Equal(t, 100, allowedCount, "应该有100个请求被允许")
	assert.Equal(t, 100, deniedCount, "应该有100个请求被拒绝")
}

// BenchmarkCheckRateLimit_SingleRule 基准测试：单个规则限流检查
func BenchmarkCheckRateLimit_SingleRule(b *testing.B) {
	limiter := setupTestRedis(b)
	defer limiter.Close()

	ctx := context.Background()
	rule := RateLimitRule{
		Type:        "global",
		TargetID:    "",
		TimeWindow:  3600,
		MaxRequests: 1000000, // 设置足够大，避免触发限流
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = limiter.checkSingleRule(ctx, rule)
	}
}

// BenchmarkCheckRateLimit_MultipleRules 基准测试：多层规则限流检查
func BenchmarkCheckRateLimit_MultipleRules(b *testing.B) {
	limiter := setupTestRedis(b)
	defer limiter.Close()

	ctx := context.Background()
	rules := []RateLimitRule{
		{Type: "global", TargetID: "", TimeWindow: 3600, MaxRequests: 1000000},
		{Type: "api_key", TargetID: "bench-key", TimeWindow: 3600, MaxRequests: 1000000},
		{Type: "dataset", TargetID: "bench-ds", TimeWindow: 3600, MaxRequests: 1000000},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = limiter.CheckRateLimit(ctx, rules)
	}
}
