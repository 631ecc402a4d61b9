/*
 * @module service/distributed_lock/lock_executor_test
 * @description 带锁执行器测试，验证加锁执行、跳过、等待与自动续期行为
 * @architecture 测试层
 * @documentReference ai_docs/quality_engine.md
 * @stateFlow 内存锁模拟多实例竞争 -> 断言执行与释放
 * @rules 不依赖真实Redis，使用进程内锁替身
 * @dependencies testing, testify
 * @refs redis_lock.go
 */

package distributed_lock

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryLock 进程内锁替身，记录续期与释放调用
type memoryLock struct {
	mu        sync.Mutex
	held      map[string]bool
	refreshes int
	unlocks   []string
}

func newMemoryLock() *memoryLock {
	return &memoryLock{held: make(map[string]bool)}
}

func (m *memoryLock) TryLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.held[key] {
		return false, nil
	}
	m.held[key] = true
	return true, nil
}

func (m *memoryLock) Unlock(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
	m.unlocks = append(m.unlocks, key)
	return nil
}

func (m *memoryLock) Refresh(ctx context.Context, key string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.held[key] {
		return errors.New("锁不存在或已被其他实例持有")
	}
	m.refreshes++
	return nil
}

func (m *memoryLock) IsLocked(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.held[key], nil
}

func (m *memoryLock) refreshCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshes
}

func TestLockKeyPrefix(t *testing.T) {
	assert.Equal(t, "dataquality:lock:quality_task:t1", lockKey("quality_task:t1"))
}

func TestExecuteWithLockRunsFunction(t *testing.T) {
	lock := newMemoryLock()
	executor := NewLockExecutor(lock)

	ran := false
	err := executor.ExecuteWithLock(context.Background(), "ds_1", time.Minute, func() error {
		ran = true
		// 执行期间锁被持有
		locked, lockErr := lock.IsLocked(context.Background(), "ds_1")
		require.NoError(t, lockErr)
		assert.True(t, locked)
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []string{"ds_1"}, lock.unlocks)

	locked, err := lock.IsLocked(context.Background(), "ds_1")
	require.NoError(t, err)
	assert.False(t, locked)
}

func TestExecuteWithLockSkipsWhenHeld(t *testing.T) {
	lock := newMemoryLock()
	executor := NewLockExecutor(lock)

	// 模拟其他实例持有锁
	acquired, err := lock.TryLock(context.Background(), "ds_1", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	ran := false
	err = executor.ExecuteWithLock(context.Background(), "ds_1", time.Minute, func() error {
		ran = true
		return nil
	})

	// 被跳过不算错误，也不触碰他人持有的锁
	assert.NoError(t, err)
	assert.False(t, ran)
	assert.Empty(t, lock.unlocks)
}

func TestExecuteWithLockReleasesOnError(t *testing.T) {
	lock := newMemoryLock()
	executor := NewLockExecutor(lock)

	wantErr := errors.New("评估失败")
	err := executor.ExecuteWithLock(context.Background(), "ds_1", time.Minute, func() error {
		return wantErr
	})

	assert.ErrorIs(t, err, wantErr)
	assert.Equal(t, []string{"ds_1"}, lock.unlocks)
}

func TestExecuteWithLockWaitAcquiresAfterRelease(t *testing.T) {
	lock := newMemoryLock()
	executor := NewLockExecutor(lock)

	// 模拟其他实例短暂持有锁后释放
	acquired, err := lock.TryLock(context.Background(), "dataset_ingest:ds_1", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	go func() {
		time.Sleep(30 * time.Millisecond)
		lock.mu.Lock()
		delete(lock.held, "dataset_ingest:ds_1")
		lock.mu.Unlock()
	}()

	ran := false
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	err = executor.ExecuteWithLockWait(ctx, "dataset_ingest:ds_1", time.Minute, 10*time.Millisecond, func() error {
		ran = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, []string{"dataset_ingest:ds_1"}, lock.unlocks)
}

func TestExecuteWithLockWaitTimesOut(t *testing.T) {
	lock := newMemoryLock()
	executor := NewLockExecutor(lock)

	acquired, err := lock.TryLock(context.Background(), "dataset_ingest:ds_1", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	ran := false
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	err = executor.ExecuteWithLockWait(ctx, "dataset_ingest:ds_1", time.Minute, 10*time.Millisecond, func() error {
		ran = true
		return nil
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran)
	assert.Empty(t, lock.unlocks)
}

func TestExecuteWithLockAndRefresh(t *testing.T) {
	lock := newMemoryLock()
	executor := NewLockExecutor(lock)

	err := executor.ExecuteWithLockAndRefresh(context.Background(), "ds_1", time.Minute, 10*time.Millisecond, func() error {
		time.Sleep(60 * time.Millisecond)
		return nil
	})

	require.NoError(t, err)
	assert.GreaterOrEqual(t, lock.refreshCount(), 1)
	assert.Equal(t, []string{"ds_1"}, lock.unlocks)
}

func TestExecuteWithLockAndRefreshSkipsWhenHeld(t *testing.T) {
	lock := newMemoryLock()
	executor := NewLockExecutor(lock)

	acquired, err := lock.TryLock(context.Background(), "ds_1", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	ran := false
	err = executor.ExecuteWithLockAndRefresh(context.Background(), "ds_1", time.Minute, 10*time.Millisecond, func() error {
		ran = true
		return nil
	})

	assert.NoError(t, err)
	assert.False(t, ran)
}
