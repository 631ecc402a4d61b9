/*
 * @module service/quality/completeness_test
 * @description 完整性评估单元测试，覆盖完整率边界、阈值判定、空数据集与嵌套值语义
 * @architecture 测试层
 * @documentReference ai_docs/quality_engine_design.md
 * @stateFlow 构造内存数据集 -> 执行评估 -> 断言精确比率
 * @rules 断言使用精确期望值或 InDelta，不依赖执行顺序
 * @dependencies github.com/stretchr/testify/assert
 * @refs service/quality/completeness.go
 */
package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssessCompleteness(t *testing.T) {
	ds := Dataset{
		{"name": "张三诊所", "phone": "+86 138 0000 0001", "rating": 4.7},
		{"name": "李四门诊", "phone": "", "rating": nil},
		{"name": "王五医院", "rating": 3.9},
		{"name": "   ", "phone": "+86 138 0000 0002", "rating": 4.1},
	}

	result := AssessCompleteness(ds, []string{"name", "phone", "rating", "address"}, nil)

	assert.Equal(t, 4, result.TotalRecords)
	assert.Equal(t, DefaultThreshold, result.Threshold)
	assert.False(t, result.InsufficientData)

	// name: 4 条中 1 条为纯空白，空白串视为缺失
	name := result.Fields["name"]
	assert.InDelta(t, 0.75, name.CompletionRate, 0.0001)
	assert.Equal(t, 1, name.MissingCount)
	assert.Equal(t, StatusFail, name.Status)

	// phone: 空字符串与键缺失都算缺失
	phone := result.Fields["phone"]
	assert.InDelta(t, 0.5, phone.CompletionRate, 0.0001)
	assert.Equal(t, 2, phone.MissingCount)
	assert.Equal(t, StatusFail, phone.Status)

	// rating: nil 值算缺失
	rating := result.Fields["rating"]
	assert.InDelta(t, 0.75, rating.CompletionRate, 0.0001)
	assert.Equal(t, 1, rating.MissingCount)

	// address: 在任何记录中都不存在，完整率 0 且不报错
	address := result.Fields["address"]
	assert.Equal(t, 0.0, address.CompletionRate)
	assert.Equal(t, 4, address.MissingCount)
	assert.Equal(t, StatusFail, address.Status)
}

func TestAssessCompletenessThreshold(t *testing.T) {
	// 20 条记录 19 条有值，完整率恰好 0.95
	ds := make(Dataset, 0, 20)
	for i := 0; i < 19; i++ {
		ds = append(ds, Record{"name": "某机构"})
	}
	ds = append(ds, Record{"name": ""})

	testCases := []struct {
		name      string
		threshold float64
		expected  string
	}{
		{"完整率等于阈值判定FAIL", 0.95, StatusFail},
		{"完整率大于阈值判定PASS", 0.90, StatusPass},
		{"非正阈值回退默认值", 0, StatusFail},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result := AssessCompleteness(ds, []string{"name"}, &Options{Threshold: tc.threshold})
			field := result.Fields["name"]
			assert.InDelta(t, 0.95, field.CompletionRate, 0.0001)
			assert.Equal(t, tc.expected, field.Status)
		})
	}
}

func TestAssessCompletenessFullAndEmpty(t *testing.T) {
	t.Run("全部记录非空时完整率为1", func(t *testing.T) {
		ds := Dataset{
			{"name": "机构A", "clinics": []interface{}{map[string]interface{}{"address": "南京西路一号"}}},
			{"name": "机构B", "clinics": []interface{}{map[string]interface{}{"address": "淮海路二号"}}},
		}
		result := AssessCompleteness(ds, []string{"name", "clinics"}, nil)
		assert.Equal(t, 1.0, result.Fields["name"].CompletionRate)
		assert.Equal(t, StatusPass, result.Fields["name"].Status)
		assert.Equal(t, 1.0, result.Fields["clinics"].CompletionRate)
	})

	t.Run("空的子记录列表视为缺失", func(t *testing.T) {
		ds := Dataset{
			{"name": "机构A", "clinics": []interface{}{}},
		}
		result := AssessCompleteness(ds, []string{"clinics"}, nil)
		assert.Equal(t, 0.0, result.Fields["clinics"].CompletionRate)
		assert.Equal(t, 1, result.Fields["clinics"].MissingCount)
	})

	t.Run("空数据集不除零并置标记", func(t *testing.T) {
		result := AssessCompleteness(Dataset{}, []string{"name"}, nil)
		assert.True(t, result.InsufficientData)
		assert.Equal(t, 0, result.TotalRecords)
		assert.Equal(t, 0.0, result.Fields["name"].CompletionRate)
		assert.Equal(t, StatusFail, result.Fields["name"].Status)
	})
}

func TestAssessCompletenessRateBounds(t *testing.T) {
	// 完整率始终落在 [0,1]
	ds := Dataset{
		{"a": 1, "b": "x"},
		{"a": nil},
		{"b": ""},
	}
	result := AssessCompleteness(ds, []string{"a", "b", "c"}, nil)
	for field, fc := range result.Fields {
		assert.GreaterOrEqual(t, fc.CompletionRate, 0.0, "字段 %s 完整率越下界", field)
		assert.LessOrEqual(t, fc.CompletionRate, 1.0, "字段 %s 完整率越上界", field)
		assert.LessOrEqual(t, fc.MissingCount, result.TotalRecords)
	}
}

func BenchmarkAssessCompleteness(b *testing.B) {
	ds := make(Dataset, 0, 1000)
	for i := 0; i < 1000; i++ {
		ds = append(ds, Record{"name": "机构", "phone": "+86 138 0000 0000", "rating": 4.5})
	}
	fields := []string{"name", "phone", "rating"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		AssessCompleteness(ds, fields, nil)
	}
}
