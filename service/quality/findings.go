package quality

import (
	"fmt"
	"sort"
	"strings"
)

// 问题类型
const (
	FindingMissingValue    = "missing_value"
	FindingInvalidFormat   = "invalid_format"
	FindingDuplicateRecord = "duplicate_record"
)

// Finding 单条记录上的一个质量问题。报告本身只含聚合指标，
// 问题落库与通知需要逐条定位，本类型即为这条通路的载体。
type Finding struct {
	RecordIndex int    `json:"record_index"` // 记录在数据集中的下标
	Field       string `json:"field"`        // 问题字段名，重复问题为空
	Kind        string `json:"kind"`         // missing_value / invalid_format / duplicate_record
	Value       string `json:"value"`        // 问题字段的渲染值，缺失为空
	Expected    string `json:"expected"`     // 期望的规则描述
	Detail      string `json:"detail"`       // 问题描述
}

// CollectFindings 按报告配置逐条收集质量问题。
// 配置校验与 GenerateReport 一致：任何配置错误在产生部分结果前返回。
// 输出顺序确定：按记录下标，记录内先必填缺失（按配置顺序）、
// 再格式问题（按字段名字典序）、最后重复成员问题。
func CollectFindings(ds Dataset, cfg ReportConfig) ([]Finding, error) {
	compiled, err := compileRules(cfg.FormatRules)
	if err != nil {
		return nil, err
	}
	if err := validateKeyFields(ds, cfg.KeyFields); err != nil {
		return nil, err
	}

	ruleFields := make([]string, 0, len(compiled))
	for field := range compiled {
		ruleFields = append(ruleFields, field)
	}
	sort.Strings(ruleFields)

	// 重复分组：键 -> 组大小，随后按记录归属展开
	groupSizes := make(map[string]int, len(ds))
	for _, r := range ds {
		groupSizes[buildGroupKey(r, cfg.KeyFields)]++
	}

	var findings []Finding
	for i, r := range ds {
		for _, field := range cfg.MandatoryFields {
			v, ok := fieldValue(r, field)
			if ok && valueNonEmpty(v) {
				continue
			}
			value := ""
			if ok {
				value = renderValue(v)
			}
			findings = append(findings, Finding{
				RecordIndex: i,
				Field:       field,
				Kind:        FindingMissingValue,
				Value:       value,
				Expected:    "非空值",
				Detail:      "必填字段缺失或为空",
			})
		}

		for _, field := range ruleFields {
			v, ok := fieldValue(r, field)
			if !ok {
				continue
			}
			cr := compiled[field]
			if cr.matches(v) {
				continue
			}
			findings = append(findings, Finding{
				RecordIndex: i,
				Field:       field,
				Kind:        FindingInvalidFormat,
				Value:       renderValue(v),
				Expected:    cr.describe(),
				Detail:      "字段值不符合格式规则",
			})
		}

		if size := groupSizes[buildGroupKey(r, cfg.KeyFields)]; size >= 2 {
			findings = append(findings, Finding{
				RecordIndex: i,
				Kind:        FindingDuplicateRecord,
				Value:       describeKey(r, cfg.KeyFields),
				Expected:    "识别键取值唯一",
				Detail:      fmt.Sprintf("存在 %d 条记录具有相同识别键", size),
			})
		}
	}
	return findings, nil
}

// describe 规则的人读描述，供问题记录的期望值字段使用
func (cr *compiledRule) describe() string {
	if cr.re != nil {
		return "匹配正则 " + cr.re.String()
	}
	switch {
	case cr.min != nil && cr.max != nil:
		return fmt.Sprintf("数值范围 [%v, %v]", *cr.min, *cr.max)
	case cr.min != nil:
		return fmt.Sprintf("数值下界 %v", *cr.min)
	default:
		return fmt.Sprintf("数值上界 %v", *cr.max)
	}
}

// describeKey 渲染记录的识别键取值
func describeKey(r Record, keyFields []string) string {
	parts := make([]string, 0, len(keyFields))
	for _, field := range keyFields {
		v, ok := fieldValue(r, field)
		if !ok {
			parts = append(parts, field+"=(缺失)")
			continue
		}
		parts = append(parts, field+"="+renderValue(v))
	}
	return strings.Join(parts, ", ")
}
