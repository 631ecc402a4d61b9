/*
 * @module service/quality
 * @description 记录质量引擎核心，提供采集记录数据集的完整性评估、格式校验、重复检测与质量报告生成
 * @architecture 纯函数库 - 无状态、无副作用、无 I/O，所有结果均为输入的确定性函数
 * @documentReference ai_docs/quality_engine_design.md
 * @stateFlow 数据集加载（调用方） -> 配置校验 -> 单遍统计 -> 结果聚合 -> 质量报告
 * @rules
 *   - 缺失值和格式不符是"质量发现"而非错误，引擎从不丢弃或拒绝输入记录
 *   - 唯一的失败条件是配置非法（引用不存在的字段、正则无法编译），必须在产生任何部分结果前快速失败
 *   - 同一数据集同一配置多次运行产生字节级一致的报告
 * @dependencies github.com/spf13/cast
 * @refs service/quality_task, service/quality_report, service/dataset
 */
package quality

import (
	"encoding/json"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Record 单条采集记录，字段名到可选值的映射。
// 值可以缺失（键不存在）、为 nil、为标量，也可以是嵌套的子记录列表（如一个机构的多个门诊点）。
type Record map[string]interface{}

// Dataset 一次校验运行期间不可变的记录序列，按采集顺序排列
type Dataset []Record

// 完整率及格判定结果
const (
	StatusPass = "PASS"
	StatusFail = "FAIL"
)

// DefaultThreshold 默认完整率及格阈值，完整率严格大于该值才判定 PASS
const DefaultThreshold = 0.95

// Options 单次评估的可选参数
type Options struct {
	// Threshold 完整率及格阈值，取值范围 (0,1]，非正数表示使用 DefaultThreshold
	Threshold float64
	// Progress 调用方持有的进度累加器，可为 nil。
	// 引擎自身不写任何进程级日志，并发运行互不干扰。
	Progress *ProgressLog
}

func (o *Options) threshold() float64 {
	if o == nil || o.Threshold <= 0 {
		return DefaultThreshold
	}
	return o.Threshold
}

func (o *Options) progress() *ProgressLog {
	if o == nil {
		return nil
	}
	return o.Progress
}

// fieldValue 返回记录中某字段的值及其是否存在。
// 键不存在或值为 nil 均视为缺失。
func fieldValue(r Record, field string) (interface{}, bool) {
	v, ok := r[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// valueNonEmpty 判断一个存在的值是否非空：
// 字符串去除首尾空白后非空；切片、映射长度大于 0；其余类型（数值、布尔等）恒为非空。
func valueNonEmpty(v interface{}) bool {
	switch tv := v.(type) {
	case string:
		return strings.TrimSpace(tv) != ""
	case []interface{}:
		return len(tv) > 0
	case map[string]interface{}:
		return len(tv) > 0
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() > 0
	}
	return true
}

// renderValue 把任意字段值渲染为确定性的字符串表示，
// 用于正则匹配、分类分布统计与重复键的展示。
func renderValue(v interface{}) string {
	switch tv := v.(type) {
	case string:
		return tv
	case float64:
		return strconv.FormatFloat(tv, 'g', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(tv), 'g', -1, 32)
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	// 嵌套结构回退到 JSON 序列化，键按字典序输出，保证确定性
	if data, err := json.Marshal(v); err == nil {
		return string(data)
	}
	return ""
}

// schemaFields 返回数据集的字段全集（任一记录中出现过的键，含值为 nil 的键），按字典序排序
func schemaFields(ds Dataset) []string {
	seen := make(map[string]struct{})
	for _, r := range ds {
		for name := range r {
			seen[name] = struct{}{}
		}
	}
	fields := make([]string, 0, len(seen))
	for name := range seen {
		fields = append(fields, name)
	}
	sort.Strings(fields)
	return fields
}

// fieldExists 判断字段是否属于数据集模式（在至少一条记录中出现过键，值可以为 nil）
func fieldExists(ds Dataset, field string) bool {
	for _, r := range ds {
		if _, ok := r[field]; ok {
			return true
		}
	}
	return false
}
