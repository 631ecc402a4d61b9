package quality

import (
	"fmt"
	"sync"
)

// ProgressEntry 一条进度事件
type ProgressEntry struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// ProgressLog 调用方持有的进度累加器。
// 引擎在各评估阶段向其追加事件，取代进程级的全局进度/错误单例，
// 由调用方按需分配并传入，保证并发校验运行之间互不干扰。
// 所有方法对 nil 接收者安全，便于不关心进度的调用方直接传 nil。
type ProgressLog struct {
	mu      sync.Mutex
	entries []ProgressEntry
}

// NewProgressLog 创建进度累加器
func NewProgressLog() *ProgressLog {
	return &ProgressLog{}
}

func (l *ProgressLog) add(stage, format string, args ...interface{}) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, ProgressEntry{Stage: stage, Message: fmt.Sprintf(format, args...)})
}

// Entries 返回已累积事件的副本
func (l *ProgressLog) Entries() []ProgressEntry {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]ProgressEntry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len 返回已累积事件数
func (l *ProgressLog) Len() int {
	if l == nil {
		return 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
