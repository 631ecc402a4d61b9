package quality

import (
	"errors"
	"fmt"
)

// ConfigError 配置错误：引用了数据集中不存在的字段，或规则本身非法。
// 属于致命错误，评估在产生任何部分结果前即中止；
// 与之相对，缺失值、格式不符、重复记录是质量发现，体现在报告数值中，从不作为错误抛出。
type ConfigError struct {
	Field  string // 出错的字段名或规则名，可为空
	Reason string // 出错原因
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("配置错误: %s", e.Reason)
	}
	return fmt.Sprintf("配置错误: 字段 %q %s", e.Field, e.Reason)
}

// newConfigError 构造配置错误
func newConfigError(field, reason string) error {
	return &ConfigError{Field: field, Reason: reason}
}

// IsConfigError 判断错误是否为配置错误
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
