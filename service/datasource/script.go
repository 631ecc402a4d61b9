/*
 * @module service/datasource/script
 * @description 自定义脚本规则执行器，基于Yaegi解释器逐条评估记录谓词
 * @architecture 工具层 - 脚本化扩展点
 * @documentReference ai_docs/quality_engine.md
 * @stateFlow 脚本哈希查缓存 -> 编译 -> 注入记录参数执行
 * @rules 脚本作为Run函数体执行，返回false或{"pass": false}视为记录未通过
 * @dependencies github.com/traefik/yaegi
 * @refs service/quality_task/task_service.go, service/quality_task/template_service.go
 */

package datasource

import (
	"context"
	"crypto/sha1"
	"fmt"
	"sync"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// ScriptExecutor 自定义脚本执行器接口
type ScriptExecutor interface {
	// Execute 执行脚本，params注入为Run函数的参数
	Execute(ctx context.Context, script string, params map[string]interface{}) (interface{}, error)
	// Validate 校验脚本可编译
	Validate(script string) error
}

// YaegiScriptExecutor Yaegi脚本执行器实现，按脚本哈希缓存编译结果
type YaegiScriptExecutor struct {
	mu    sync.RWMutex
	cache map[string]*CompiledScript
}

// CompiledScript 编译后的脚本，保存可执行函数
type CompiledScript struct {
	fn       func(map[string]interface{}) (interface{}, error)
	compiled time.Time
	hash     string
}

// NewYaegiScriptExecutor 创建Yaegi脚本执行器
func NewYaegiScriptExecutor() *YaegiScriptExecutor {
	return &YaegiScriptExecutor{
		cache: make(map[string]*CompiledScript),
	}
}

// Execute 执行脚本（带参数注入和缓存优化）
func (y *YaegiScriptExecutor) Execute(ctx context.Context, script string, params map[string]interface{}) (result interface{}, err error) {
	compiled, err := y.compiledScript(script)
	if err != nil {
		return nil, err
	}

	// 解释器内部的运行时panic不能打穿到调用方
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("脚本执行异常: %v", r)
		}
	}()
	return compiled.fn(params)
}

// Validate 校验脚本可编译，校验通过的编译结果进入缓存供后续执行复用
func (y *YaegiScriptExecutor) Validate(script string) error {
	_, err := y.compiledScript(script)
	return err
}

// ClearCache 清理编译缓存
func (y *YaegiScriptExecutor) ClearCache() {
	y.mu.Lock()
	defer y.mu.Unlock()
	y.cache = make(map[string]*CompiledScript)
}

// compiledScript 按脚本内容哈希取缓存，未命中则编译后写入
func (y *YaegiScriptExecutor) compiledScript(script string) (*CompiledScript, error) {
	hash := fmt.Sprintf("%x", sha1.Sum([]byte(script)))

	y.mu.RLock()
	compiled, ok := y.cache[hash]
	y.mu.RUnlock()
	if ok {
		return compiled, nil
	}

	compiled, err := y.compile(script, hash)
	if err != nil {
		return nil, err
	}

	y.mu.Lock()
	y.cache[hash] = compiled
	y.mu.Unlock()
	return compiled, nil
}

// compile 编译脚本为可执行函数
func (y *YaegiScriptExecutor) compile(script, hash string) (*CompiledScript, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, fmt.Errorf("加载标准库失败: %w", err)
	}

	// 包装脚本：脚本内容作为 Run 函数体，记录与行号已预先提取
	wrapped := fmt.Sprintf(`
package main

import (
	"fmt"
	"strconv"
	"strings"
	"regexp"
	"time"
)

func Run(params map[string]interface{}) (interface{}, error) {
	var record map[string]interface{}
	if r, exists := params["record"]; exists {
		if m, ok := r.(map[string]interface{}); ok {
			record = m
		}
	}

	rowIndex := 0
	if idx, exists := params["row_index"]; exists {
		if n, ok := idx.(int); ok {
			rowIndex = n
		}
	}

	_ = record
	_ = rowIndex

	// 脚本内容
%s
}
`, script)

	if _, err := i.Eval(wrapped); err != nil {
		return nil, fmt.Errorf("脚本编译失败: %w", err)
	}

	v, err := i.Eval("Run")
	if err != nil {
		return nil, fmt.Errorf("脚本缺少 Run 函数: %w", err)
	}

	runFunc, ok := v.Interface().(func(map[string]interface{}) (interface{}, error))
	if !ok {
		return nil, fmt.Errorf("Run 函数签名必须是 func(map[string]interface{}) (interface{}, error)")
	}

	return &CompiledScript{
		fn:       runFunc,
		compiled: time.Now(),
		hash:     hash,
	}, nil
}
