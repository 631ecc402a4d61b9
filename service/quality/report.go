package quality

// GenerateReport 生成完整质量报告：完整性评估、格式校验、重复检测的组合，
// 外加数据集级聚合（总记录数、字段全集、分类字段取值分布）。
// 纯函数：同一数据集与配置的多次调用产生字节级一致的输出；
// 报告落库、打时间戳、通知分发全部是调用方的职责。
//
// 全部配置在计算开始前一次性校验，任何配置错误（正则无法编译、数值范围非法、
// 识别键为空或引用不存在的字段）都会在产生部分结果前返回。
func GenerateReport(ds Dataset, cfg ReportConfig, opts *Options) (*Report, error) {
	// 先整体校验配置，避免产生在部分配置损坏下误导调用方的残缺报告
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if err := validateKeyFields(ds, cfg.KeyFields); err != nil {
		return nil, err
	}

	runOpts := &Options{Threshold: cfg.Threshold, Progress: opts.progress()}

	completeness := AssessCompleteness(ds, cfg.MandatoryFields, runOpts)
	formats, err := AssessFormats(ds, cfg.FormatRules, runOpts)
	if err != nil {
		return nil, err
	}
	duplicates, err := DetectDuplicates(ds, cfg.KeyFields, runOpts)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Summary:      summarize(ds, cfg.CategoricalFields),
		Completeness: completeness,
		Formats:      formats,
		Duplicates:   duplicates,
	}
	opts.progress().add("report", "质量报告生成完成: %d 条记录, 总体得分 %.4f", len(ds), report.OverallScore())
	return report, nil
}

// ValidateConfig 校验报告配置中与数据集无关的部分：格式规则可编译、识别键非空。
// 识别键是否引用了数据集中实际存在的字段只能在执行时结合数据集判断。
// 供任务创建等入口在执行前提前暴露配置错误。
func ValidateConfig(cfg ReportConfig) error {
	if _, err := compileRules(cfg.FormatRules); err != nil {
		return err
	}
	if len(cfg.KeyFields) == 0 {
		return newConfigError("", "识别键字段列表为空")
	}
	return nil
}

// validateKeyFields 在数据集上校验识别键：列表非空且每个键字段至少在一条记录中出现
func validateKeyFields(ds Dataset, keyFields []string) error {
	if len(keyFields) == 0 {
		return newConfigError("", "识别键字段列表为空")
	}
	for _, field := range keyFields {
		if len(ds) > 0 && !fieldExists(ds, field) {
			return newConfigError(field, "在数据集的任何记录中都不存在，无法作为识别键")
		}
	}
	return nil
}

// summarize 计算数据集级聚合。分类字段的分布只统计存在且非空的值，
// 引用了不存在字段的分类项得到空分布，这是质量发现而非错误。
func summarize(ds Dataset, categoricalFields []string) DatasetSummary {
	summary := DatasetSummary{
		TotalRecords: len(ds),
		FieldNames:   schemaFields(ds),
	}
	if len(categoricalFields) == 0 {
		return summary
	}

	summary.Categorical = make(map[string]CategoryDistribution, len(categoricalFields))
	for _, field := range categoricalFields {
		values := make(map[string]int)
		for _, r := range ds {
			v, ok := fieldValue(r, field)
			if !ok || !valueNonEmpty(v) {
				continue
			}
			values[renderValue(v)]++
		}
		summary.Categorical[field] = CategoryDistribution{
			DistinctCount: len(values),
			Values:        values,
		}
	}
	return summary
}

// Deduplicate 返回按识别键保留每组首条记录的新数据集，原数据集不被修改。
// 引擎的评估操作从不丢弃记录，本函数供导出侧按需生成去重数据集使用。
func Deduplicate(ds Dataset, keyFields []string) (Dataset, error) {
	if err := validateKeyFields(ds, keyFields); err != nil {
		return nil, err
	}
	if len(ds) == 0 {
		return Dataset{}, nil
	}

	seen := make(map[string]struct{}, len(ds))
	out := make(Dataset, 0, len(ds))
	for _, r := range ds {
		key := buildGroupKey(r, keyFields)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, r)
	}
	return out, nil
}
