package quality

import (
	"strconv"
	"strings"
)

// DetectDuplicates 按识别键字段做精确匹配的重复检测。
// 记录按 keyFields 顺序取值构成复合键分组，取值大小写敏感、按采集原样比较；
// 缺失值（键不存在或值为 nil）映射到一个独立哨兵，与包括空字符串在内的任何真实值都不相等，
// 两条记录在同一键字段上同为缺失时哨兵彼此相等。
// 大小 ≥2 的分组中的每一条记录（含首条）都计为重复。
//
// 空数据集返回全零结果并置 InsufficientData 标记，不会除零、不会报错。
// keyFields 为空，或任一键字段在非空数据集的所有记录中都不存在，返回配置错误。
func DetectDuplicates(ds Dataset, keyFields []string, opts *Options) (DuplicateResult, error) {
	if len(keyFields) == 0 {
		return DuplicateResult{}, newConfigError("", "识别键字段列表为空")
	}

	total := len(ds)
	if total == 0 {
		opts.progress().add("duplicates", "数据集为空，跳过重复检测")
		return DuplicateResult{
			DuplicationRate:  0.0,
			DuplicateGroups:  []DuplicateGroup{},
			InsufficientData: true,
		}, nil
	}

	for _, field := range keyFields {
		if !fieldExists(ds, field) {
			return DuplicateResult{}, newConfigError(field, "在数据集的任何记录中都不存在，无法作为识别键")
		}
	}

	type group struct {
		values []interface{} // 按键字段顺序的展示值，缺失为 nil
		size   int
	}
	groups := make(map[string]*group)
	order := make([]string, 0, total) // 键的首次出现顺序，保证输出确定性

	for _, r := range ds {
		key := buildGroupKey(r, keyFields)
		g, ok := groups[key]
		if !ok {
			values := make([]interface{}, len(keyFields))
			for i, field := range keyFields {
				if v, present := fieldValue(r, field); present {
					values[i] = renderValue(v)
				}
			}
			g = &group{values: values}
			groups[key] = g
			order = append(order, key)
		}
		g.size++
	}

	result := DuplicateResult{
		TotalRecords:    total,
		DuplicateGroups: []DuplicateGroup{},
	}
	duplicateGroupCount := 0
	for _, key := range order {
		g := groups[key]
		if g.size < 2 {
			continue
		}
		duplicateGroupCount++
		result.DuplicateCount += g.size
		result.DuplicateGroups = append(result.DuplicateGroups, DuplicateGroup{
			Values: g.values,
			Size:   g.size,
		})
	}

	result.DuplicationRate = float64(result.DuplicateCount) / float64(total)
	result.UniqueCount = total - result.DuplicateCount + duplicateGroupCount

	opts.progress().add("duplicates", "重复检测完成: %d 条记录, %d 个重复分组, %d 条重复记录",
		total, duplicateGroupCount, result.DuplicateCount)
	return result, nil
}

// buildGroupKey 构造无歧义的复合分组键。
// 每个分量采用长度前缀编码，杜绝取值中包含分隔符时的键碰撞；
// 缺失分量编码为独立哨兵 "M;"，存在分量编码为 "V<len>:<值>"。
func buildGroupKey(r Record, keyFields []string) string {
	var b strings.Builder
	for _, field := range keyFields {
		v, ok := fieldValue(r, field)
		if !ok {
			b.WriteString("M;")
			continue
		}
		s := renderValue(v)
		b.WriteString("V")
		b.WriteString(strconv.Itoa(len(s)))
		b.WriteString(":")
		b.WriteString(s)
	}
	return b.String()
}
