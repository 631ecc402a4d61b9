package quality

import "encoding/json"

// FieldCompleteness 单个必填字段的完整性评估结果
type FieldCompleteness struct {
	CompletionRate float64 `json:"completion_rate"` // 存在且非空的记录占比，[0,1]
	MissingCount   int     `json:"missing_count"`
	Status         string  `json:"status"` // PASS / FAIL
}

// CompletenessResult 完整性评估结果
type CompletenessResult struct {
	TotalRecords     int                          `json:"total_records"`
	Threshold        float64                      `json:"threshold"`
	Fields           map[string]FieldCompleteness `json:"fields"`
	InsufficientData bool                         `json:"insufficient_data,omitempty"` // 空数据集标记
}

// FieldFormat 单条格式规则的校验结果。
// TotalCount 仅统计字段存在（键存在且值非 nil）的记录数，缺失值不计入格式有效性。
type FieldFormat struct {
	ValidCount   int     `json:"valid_count"`
	TotalCount   int     `json:"total_count"`
	ValidityRate float64 `json:"validity_rate"`
	NoData       bool    `json:"no_data,omitempty"` // 字段在所有记录中均缺失
}

// FormatResult 格式校验结果
type FormatResult struct {
	TotalRecords int                    `json:"total_records"`
	Fields       map[string]FieldFormat `json:"fields"`
}

// DuplicateGroup 一个重复分组：按识别键字段顺序的取值与组内记录数。
// 取值中 nil 表示该键字段在组内记录里缺失（缺失哨兵，不等于空字符串）。
type DuplicateGroup struct {
	Values []interface{} `json:"values"`
	Size   int           `json:"size"`
}

// DuplicateResult 重复检测结果。
// DuplicateCount 为所有大小 ≥2 的分组的成员总数，组内每条记录（含首条）都计为重复；
// UniqueCount = 总记录数 − 重复记录数 + 大小 ≥2 的分组数，即识别键的去重后数量。
type DuplicateResult struct {
	TotalRecords     int              `json:"total_records"`
	DuplicateCount   int              `json:"duplicate_count"`
	DuplicationRate  float64          `json:"duplication_rate"`
	UniqueCount      int              `json:"unique_count"`
	DuplicateGroups  []DuplicateGroup `json:"duplicate_groups"`
	InsufficientData bool             `json:"insufficient_data,omitempty"`
}

// CategoryDistribution 单个分类字段的取值分布，仅统计存在且非空的值
type CategoryDistribution struct {
	DistinctCount int            `json:"distinct_count"`
	Values        map[string]int `json:"values"`
}

// DatasetSummary 数据集级聚合信息
type DatasetSummary struct {
	TotalRecords int                             `json:"total_records"`
	FieldNames   []string                        `json:"field_names"`
	Categorical  map[string]CategoryDistribution `json:"categorical,omitempty"`
}

// Report 一次校验运行的完整质量报告。
// 报告不含时间戳、随机标识等任何非输入派生内容，
// 同一数据集与配置生成的报告序列化后字节级一致；落库和打时间戳由调用方负责。
type Report struct {
	Summary      DatasetSummary     `json:"summary"`
	Completeness CompletenessResult `json:"completeness"`
	Formats      FormatResult       `json:"formats"`
	Duplicates   DuplicateResult    `json:"duplicates"`
}

// ReportConfig 报告生成配置
type ReportConfig struct {
	MandatoryFields   []string             `json:"mandatory_fields"`
	FormatRules       map[string]FormatRule `json:"format_rules"`
	KeyFields         []string             `json:"key_fields"`
	CategoricalFields []string             `json:"categorical_fields,omitempty"`
	Threshold         float64              `json:"threshold,omitempty"`
}

// Marshal 序列化报告。encoding/json 对 map 键按字典序输出，
// 结构体字段按声明顺序输出，这是报告字节级幂等的前提，此处以显式方法固定该约定。
func (r *Report) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// OverallScore 由报告派生的总体质量得分，[0,1]。
// 取完整率均值、格式有效率均值（无数据按 0 计）、1−重复率三项的算术平均，
// 缺少对应配置的项不参与平均；三项均缺失时得分为 0。
func (r *Report) OverallScore() float64 {
	var sum float64
	var parts int

	if len(r.Completeness.Fields) > 0 {
		var s float64
		for _, f := range r.Completeness.Fields {
			s += f.CompletionRate
		}
		sum += s / float64(len(r.Completeness.Fields))
		parts++
	}
	if len(r.Formats.Fields) > 0 {
		var s float64
		for _, f := range r.Formats.Fields {
			s += f.ValidityRate
		}
		sum += s / float64(len(r.Formats.Fields))
		parts++
	}
	if r.Duplicates.TotalRecords > 0 {
		sum += 1 - r.Duplicates.DuplicationRate
		parts++
	}

	if parts == 0 {
		return 0
	}
	return sum / float64(parts)
}
