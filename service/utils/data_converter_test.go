/*
 * @module service/utils/data_converter_test
 * @description 数据转换工具测试，覆盖类型转换、编码转换与字符串规整
 * @architecture 测试层
 * @documentReference ai_docs/dataset_management.md
 * @stateFlow 输入 -> 转换 -> 断言输出
 * @rules 表驱动测试覆盖正常值与边界值
 * @dependencies stretchr/testify
 * @refs data_converter.go
 */

package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToString(t *testing.T) {
	dc := NewDataConverter()

	tests := []struct {
		name     string
		input    interface{}
		expected string
	}{
		{"nil值", nil, ""},
		{"字符串", "Dr. Rao", "Dr. Rao"},
		{"字节切片", []byte("clinic"), "clinic"},
		{"整数", 42, "42"},
		{"浮点数", 4.5, "4.5"},
		{"布尔值", true, "true"},
		{"映射序列化为JSON", map[string]interface{}{"city": "bangalore"}, `{"city":"bangalore"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, dc.ToString(tt.input))
		})
	}
}

func TestToInt(t *testing.T) {
	dc := NewDataConverter()

	tests := []struct {
		name      string
		input     interface{}
		expected  int
		expectErr bool
	}{
		{"整数", 15, 15, false},
		{"浮点截断", 4.9, 4, false},
		{"带空格字符串", "  23 ", 23, false},
		{"非数字字符串", "fifteen", 0, true},
		{"布尔真", true, 1, false},
		{"nil值", nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := dc.ToInt(tt.input)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestToFloat(t *testing.T) {
	dc := NewDataConverter()

	result, err := dc.ToFloat(" 4.5 ")
	require.NoError(t, err)
	assert.InDelta(t, 4.5, result, 1e-9)

	result, err = dc.ToFloat(3)
	require.NoError(t, err)
	assert.InDelta(t, 3.0, result, 1e-9)

	_, err = dc.ToFloat("₹500")
	assert.Error(t, err)
}

func TestConvertEncodingGBKRoundTrip(t *testing.T) {
	dc := NewDataConverter()

	original := []byte("牙科诊所")
	gbk, err := dc.ConvertEncoding(original, "utf-8", "gbk")
	require.NoError(t, err)
	assert.NotEqual(t, original, gbk)

	utf8, err := dc.ConvertEncoding(gbk, "gbk", "utf-8")
	require.NoError(t, err)
	assert.Equal(t, original, utf8)
}

func TestConvertEncodingPassthrough(t *testing.T) {
	dc := NewDataConverter()

	// 不支持的编码组合原样返回
	data := []byte("plain ascii")
	result, err := dc.ConvertEncoding(data, "latin-1", "utf-8")
	require.NoError(t, err)
	assert.Equal(t, data, result)
}

func TestNormalizeString(t *testing.T) {
	dc := NewDataConverter()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"首尾空格", "  MG Road  ", "MG Road"},
		{"连续空格压缩", "Dr.   Rao   Clinic", "Dr. Rao Clinic"},
		{"换行与制表符", "Brigade\tRoad\nBangalore", "Brigade Road Bangalore"},
		{"空字符串", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, dc.NormalizeString(tt.input))
		})
	}
}

func TestParseTime(t *testing.T) {
	dc := NewDataConverter()

	result, err := dc.ParseTime("2026-03-15 10:30:00", nil)
	require.NoError(t, err)
	assert.Equal(t, 2026, result.Year())
	assert.Equal(t, time.March, result.Month())

	result, err = dc.ParseTime("15/03/2026", []string{"02/01/2006"})
	require.NoError(t, err)
	assert.Equal(t, 15, result.Day())

	_, err = dc.ParseTime("", nil)
	assert.Error(t, err)

	_, err = dc.ParseTime("not a date", nil)
	assert.Error(t, err)
}

func TestFormatAndParseJSON(t *testing.T) {
	dc := NewDataConverter()

	formatted, err := dc.FormatJSON(map[string]interface{}{"rating": 4.5})
	require.NoError(t, err)
	assert.Contains(t, formatted, "\"rating\"")

	parsed, err := dc.ParseJSON(formatted)
	require.NoError(t, err)
	assert.InDelta(t, 4.5, parsed.(map[string]interface{})["rating"].(float64), 1e-9)
}
