/**
 * @module data_converter
 * @description 数据转换工具模块，负责采集值的类型转换、编码转换与字符串规整
 * @architecture 工具函数模式，提供静态转换方法集合
 * @documentReference 参考 ai_docs/dataset_management.md 第3节
 * @stateFlow 无状态转换：输入 -> 转换逻辑 -> 输出
 * @rules
 *   - 转换操作需要处理异常情况
 *   - 类型转换需要保证数据精度
 *   - 编码转换需要支持多种字符集
 * @dependencies
 *   - reflect: 反射支持
 *   - encoding/*: 编码转换
 *   - strconv: 字符串转换
 * @refs
 *   - service/dataset/*: 数据集导入导出
 */

package utils

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/transform"
)

// DataConverter 数据转换器
type DataConverter struct{}

// NewDataConverter 创建新的数据转换器实例
func NewDataConverter() *DataConverter {
	return &DataConverter{}
}

// 类型转换功能

// ToString 转换为字符串
func (dc *DataConverter) ToString(value interface{}) string {
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case []byte:
		return string(v)
	case int, int8, int16, int32, int64:
		return fmt.Sprintf("%d", v)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case float32, float64:
		return fmt.Sprintf("%g", v)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		// 尝试JSON序列化
		if data, err := json.Marshal(value); err == nil {
			return string(data)
		}
		return fmt.Sprintf("%v", value)
	}
}

// ToInt 转换为整数
func (dc *DataConverter) ToInt(value interface{}) (int, error) {
	if value == nil {
		return 0, fmt.Errorf("nil值无法转换为整数")
	}

	switch v := value.(type) {
	case int:
		return v, nil
	case int8:
		return int(v), nil
	case int16:
		return int(v), nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint:
		return int(v), nil
	case uint8:
		return int(v), nil
	case uint16:
		return int(v), nil
	case uint32:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float32:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("无法将类型 %T 转换为整数", value)
	}
}

// ToFloat 转换为浮点数
func (dc *DataConverter) ToFloat(value interface{}) (float64, error) {
	if value == nil {
		return 0, fmt.Errorf("nil值无法转换为浮点数")
	}

	switch v := value.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int, int8, int16, int32, int64:
		return float64(reflect.ValueOf(v).Int()), nil
	case uint, uint8, uint16, uint32, uint64:
		return float64(reflect.ValueOf(v).Uint()), nil
	case string:
		return strconv.ParseFloat(strings.TrimSpace(v), 64)
	case bool:
		if v {
			return 1.0, nil
		}
		return 0.0, nil
	default:
		return 0, fmt.Errorf("无法将类型 %T 转换为浮点数", value)
	}
}

// 编码转换功能

// ConvertEncoding 编码转换，采集的CSV文件可能是GBK编码
func (dc *DataConverter) ConvertEncoding(data []byte, fromEncoding, toEncoding string) ([]byte, error) {
	switch strings.ToLower(fromEncoding) {
	case "gbk", "gb2312":
		// GBK/GB2312 到 UTF-8
		if strings.ToLower(toEncoding) == "utf-8" {
			decoder := simplifiedchinese.GBK.NewDecoder()
			result, _, err := transform.Bytes(decoder, data)
			return result, err
		}
	case "utf-8":
		// UTF-8 到 GBK/GB2312
		if strings.ToLower(toEncoding) == "gbk" || strings.ToLower(toEncoding) == "gb2312" {
			encoder := simplifiedchinese.GBK.NewEncoder()
			result, _, err := transform.Bytes(encoder, data)
			return result, err
		}
	}

	// 默认情况下，如果不需要转换或不支持的编码，返回原数据
	return data, nil
}

// 格式转换功能

// FormatJSON 格式化JSON
func (dc *DataConverter) FormatJSON(data interface{}) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData), nil
}

// ParseJSON 解析JSON
func (dc *DataConverter) ParseJSON(jsonStr string) (interface{}, error) {
	var result interface{}
	err := json.Unmarshal([]byte(jsonStr), &result)
	return result, err
}

// NormalizeString 标准化字符串
func (dc *DataConverter) NormalizeString(str string) string {
	// 去除首尾空格
	str = strings.TrimSpace(str)

	// 将多个连续空格替换为单个空格
	str = strings.Join(strings.Fields(str), " ")

	return str
}

// ParseTime 解析时间字符串
func (dc *DataConverter) ParseTime(timeStr string, layouts []string) (time.Time, error) {
	if timeStr == "" {
		return time.Time{}, fmt.Errorf("时间字符串为空")
	}

	// 默认时间格式
	defaultLayouts := []string{
		time.RFC3339,
		time.RFC3339Nano,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		"2006-01-02",
		"2006/01/02",
	}

	// 合并用户提供的格式和默认格式
	allLayouts := append(layouts, defaultLayouts...)

	for _, layout := range allLayouts {
		if t, err := time.Parse(layout, timeStr); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("无法解析时间字符串: %s", timeStr)
}
