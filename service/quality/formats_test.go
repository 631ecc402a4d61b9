package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAssessFormatsPattern(t *testing.T) {
	ds := Dataset{
		{"phone": "+8613800000001"},
		{"phone": "13800000002"},
		{"phone": "not-a-phone"},
		{"phone": ""},
		{"phone": nil},
		{"name": "没有电话字段"},
	}
	rules := map[string]FormatRule{
		"phone": PatternRule(`\+?\d{7,15}`),
	}

	result, err := AssessFormats(ds, rules, nil)
	assert.NoError(t, err)
	assert.Equal(t, 6, result.TotalRecords)

	phone := result.Fields["phone"]
	// nil 与键缺失不计入，空字符串属于存在值且不匹配
	assert.Equal(t, 4, phone.TotalCount)
	assert.Equal(t, 2, phone.ValidCount)
	assert.InDelta(t, 0.5, phone.ValidityRate, 0.0001)
	assert.False(t, phone.NoData)
}

func TestAssessFormatsPatternFullMatch(t *testing.T) {
	// 正则做整串匹配，局部命中不算有效
	ds := Dataset{
		{"code": "AB123"},
		{"code": "123"},
	}
	result, err := AssessFormats(ds, map[string]FormatRule{"code": PatternRule(`\d+`)}, nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Fields["code"].ValidCount)
	assert.Equal(t, 2, result.Fields["code"].TotalCount)
}

func TestAssessFormatsRange(t *testing.T) {
	ds := Dataset{
		{"rating": 0.0},
		{"rating": 5.0},
		{"rating": 4.7},
		{"rating": 6.0},
		{"rating": -0.5},
		{"rating": "4.2"},
		{"rating": "很好"},
	}
	result, err := AssessFormats(ds, map[string]FormatRule{"rating": RangeRule(0, 5)}, nil)
	assert.NoError(t, err)

	rating := result.Fields["rating"]
	assert.Equal(t, 7, rating.TotalCount)
	// 闭区间端点有效；数值字符串可转换后参与判断；不可转换的存在值计为不合法
	assert.Equal(t, 4, rating.ValidCount)
	assert.InDelta(t, 4.0/7.0, rating.ValidityRate, 0.0001)
}

func TestAssessFormatsNoData(t *testing.T) {
	testCases := []struct {
		name string
		ds   Dataset
	}{
		{"字段在所有记录中缺失", Dataset{{"name": "A"}, {"name": "B"}}},
		{"字段全部为nil", Dataset{{"rating": nil}, {"rating": nil}}},
		{"空数据集", Dataset{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := AssessFormats(tc.ds, map[string]FormatRule{"rating": RangeRule(0, 5)}, nil)
			assert.NoError(t, err)
			rating := result.Fields["rating"]
			assert.True(t, rating.NoData)
			assert.Equal(t, 0, rating.TotalCount)
			assert.Equal(t, 0.0, rating.ValidityRate)
		})
	}
}

func TestAssessFormatsConfigErrors(t *testing.T) {
	ds := Dataset{{"rating": 4.5}}

	testCases := []struct {
		name  string
		rules map[string]FormatRule
	}{
		{"正则无法编译", map[string]FormatRule{"rating": PatternRule(`[`)}},
		{"下界大于上界", map[string]FormatRule{"rating": RangeRule(5, 0)}},
		{"正则与范围同时声明", map[string]FormatRule{"rating": {Pattern: `\d`, Min: floatPtr(0)}}},
		{"空规则", map[string]FormatRule{"rating": {}}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			result, err := AssessFormats(ds, tc.rules, nil)
			assert.Error(t, err)
			assert.True(t, IsConfigError(err), "应为配置错误: %v", err)
			assert.Nil(t, result.Fields, "配置错误时不得产生部分结果")
		})
	}
}

func TestAssessFormatsRateBounds(t *testing.T) {
	ds := Dataset{
		{"url": "https://example.com/doctor/1"},
		{"url": "https://example.com/doctor/2"},
		{"url": "ftp://wrong"},
	}
	result, err := AssessFormats(ds, map[string]FormatRule{"url": PatternRule(`https://\S+`)}, nil)
	assert.NoError(t, err)
	url := result.Fields["url"]
	assert.GreaterOrEqual(t, url.ValidityRate, 0.0)
	assert.LessOrEqual(t, url.ValidityRate, 1.0)
	assert.InDelta(t, 2.0/3.0, url.ValidityRate, 0.0001)
}

func floatPtr(f float64) *float64 {
	return &f
}

func BenchmarkAssessFormats(b *testing.B) {
	ds := make(Dataset, 0, 1000)
	for i := 0; i < 1000; i++ {
		ds = append(ds, Record{"phone": "+8613800000000", "rating": 4.5})
	}
	rules := map[string]FormatRule{
		"phone":  PatternRule(`\+?\d{7,15}`),
		"rating": RangeRule(0, 5),
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := AssessFormats(ds, rules, nil); err != nil {
			b.Fatal(err)
		}
	}
}
