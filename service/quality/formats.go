package quality

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/spf13/cast"
)

// FormatRule 单字段格式规则：正则模式或闭区间数值范围，二者互斥。
// 正则对值的字符串表示做整串匹配；范围规则把值转换为浮点数后做闭区间判断，
// 无法转换的存在值计为不合法。
type FormatRule struct {
	Pattern string   `json:"pattern,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`
}

// PatternRule 构造正则格式规则
func PatternRule(expr string) FormatRule {
	return FormatRule{Pattern: expr}
}

// RangeRule 构造闭区间数值范围规则
func RangeRule(min, max float64) FormatRule {
	return FormatRule{Min: &min, Max: &max}
}

// compiledRule 编译后的格式规则
type compiledRule struct {
	re       *regexp.Regexp
	min, max *float64
}

// compile 校验并编译规则。正则与数值范围同时声明、二者均未声明、
// 正则无法编译或 min > max 均为配置错误。
func (fr FormatRule) compile(field string) (*compiledRule, error) {
	hasPattern := fr.Pattern != ""
	hasRange := fr.Min != nil || fr.Max != nil

	switch {
	case hasPattern && hasRange:
		return nil, newConfigError(field, "的格式规则同时声明了正则与数值范围")
	case !hasPattern && !hasRange:
		return nil, newConfigError(field, "的格式规则未声明正则或数值范围")
	}

	if hasPattern {
		re, err := regexp.Compile(`\A(?:` + fr.Pattern + `)\z`)
		if err != nil {
			return nil, newConfigError(field, fmt.Sprintf("的正则表达式无法编译: %v", err))
		}
		return &compiledRule{re: re}, nil
	}

	if fr.Min != nil && fr.Max != nil && *fr.Min > *fr.Max {
		return nil, newConfigError(field, fmt.Sprintf("的数值范围非法: 下界 %v 大于上界 %v", *fr.Min, *fr.Max))
	}
	return &compiledRule{min: fr.Min, max: fr.Max}, nil
}

// matches 判断一个存在的值是否满足规则
func (cr *compiledRule) matches(v interface{}) bool {
	if cr.re != nil {
		return cr.re.MatchString(renderValue(v))
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return false
	}
	if cr.min != nil && f < *cr.min {
		return false
	}
	if cr.max != nil && f > *cr.max {
		return false
	}
	return true
}

// compileRules 编译全部规则，任一规则非法即整体失败，按字段名顺序返回首个错误
func compileRules(rules map[string]FormatRule) (map[string]*compiledRule, error) {
	fields := make([]string, 0, len(rules))
	for field := range rules {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	compiled := make(map[string]*compiledRule, len(rules))
	for _, field := range fields {
		cr, err := rules[field].compile(field)
		if err != nil {
			return nil, err
		}
		compiled[field] = cr
	}
	return compiled, nil
}

// AssessFormats 对声明了格式规则的字段做格式校验。
// 有效率只在字段存在（键存在且值非 nil）的记录上计算，缺失值不计入；
// 字段在所有记录中均缺失时有效率记 0.0 并置 NoData 标记（"无数据"是确定的结果而非崩溃）。
// 规则本身非法时返回配置错误，且不产生任何部分结果。
func AssessFormats(ds Dataset, rules map[string]FormatRule, opts *Options) (FormatResult, error) {
	compiled, err := compileRules(rules)
	if err != nil {
		return FormatResult{}, err
	}

	result := FormatResult{
		TotalRecords: len(ds),
		Fields:       make(map[string]FieldFormat, len(rules)),
	}

	for field, cr := range compiled {
		presentCount := 0
		validCount := 0
		for _, r := range ds {
			v, ok := fieldValue(r, field)
			if !ok {
				continue
			}
			presentCount++
			if cr.matches(v) {
				validCount++
			}
		}

		ff := FieldFormat{ValidCount: validCount, TotalCount: presentCount}
		if presentCount == 0 {
			ff.NoData = true
		} else {
			ff.ValidityRate = float64(validCount) / float64(presentCount)
		}
		result.Fields[field] = ff
	}

	opts.progress().add("formats", "格式校验完成: %d 条记录, %d 条规则", len(ds), len(rules))
	return result, nil
}
