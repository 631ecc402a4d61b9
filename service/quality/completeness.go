package quality

// AssessCompleteness 评估必填字段完整性。
// 对每个必填字段统计"存在且非空"的记录占比与缺失数，
// 完整率严格大于阈值判定 PASS，否则 FAIL。
// 本操作没有错误条件：在所有记录中都不存在的字段得到完整率 0.0、状态 FAIL；
// 空数据集返回全零结果并置 InsufficientData 标记，不会除零。
func AssessCompleteness(ds Dataset, mandatoryFields []string, opts *Options) CompletenessResult {
	threshold := opts.threshold()
	total := len(ds)

	result := CompletenessResult{
		TotalRecords: total,
		Threshold:    threshold,
		Fields:       make(map[string]FieldCompleteness, len(mandatoryFields)),
	}
	if total == 0 {
		result.InsufficientData = true
		for _, field := range mandatoryFields {
			result.Fields[field] = FieldCompleteness{Status: StatusFail}
		}
		opts.progress().add("completeness", "数据集为空，%d 个必填字段全部记为 FAIL", len(mandatoryFields))
		return result
	}

	for _, field := range mandatoryFields {
		presentNonEmpty := 0
		for _, r := range ds {
			if v, ok := fieldValue(r, field); ok && valueNonEmpty(v) {
				presentNonEmpty++
			}
		}

		rate := float64(presentNonEmpty) / float64(total)
		status := StatusFail
		if rate > threshold {
			status = StatusPass
		}
		result.Fields[field] = FieldCompleteness{
			CompletionRate: rate,
			MissingCount:   total - presentNonEmpty,
			Status:         status,
		}
	}

	opts.progress().add("completeness", "完整性评估完成: %d 条记录, %d 个必填字段", total, len(mandatoryFields))
	return result
}
