/*
 * @module service/dataset/exporter
 * @description 数据集导出器，将标准记录集写出为CSV或JSON，支持去重后导出
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/dataset_management.md
 * @stateFlow 记录集 -> 字段整理 -> 序列化输出
 * @rules 嵌套结构序列化为JSON文本，nil输出为空字符串，未指定列时按字段名字典序排列
 * @dependencies dataquality-service/service/quality, dataquality-service/service/utils
 * @refs importer.go
 */

package dataset

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"dataquality-service/service/quality"
	"dataquality-service/service/utils"
)

// Exporter 数据集导出器
type Exporter struct {
	converter *utils.DataConverter
}

// NewExporter 创建数据集导出器
func NewExporter() *Exporter {
	return &Exporter{converter: utils.NewDataConverter()}
}

// ExportCSV 将记录集写出为CSV，fields为空时取全体字段名并排序
func (ex *Exporter) ExportCSV(w io.Writer, ds quality.Dataset, fields []string) error {
	if len(fields) == 0 {
		fields = collectFields(ds)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(fields); err != nil {
		return fmt.Errorf("写入CSV表头失败: %w", err)
	}

	row := make([]string, len(fields))
	for _, record := range ds {
		for i, field := range fields {
			cell, err := ex.renderCell(record, field)
			if err != nil {
				return err
			}
			row[i] = cell
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("写入CSV行失败: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("写出CSV数据失败: %w", err)
	}
	return nil
}

// ExportJSON 将记录集写出为缩进JSON数组
func (ex *Exporter) ExportJSON(w io.Writer, ds quality.Dataset) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "    ")
	encoder.SetEscapeHTML(false)
	if ds == nil {
		ds = quality.Dataset{}
	}
	if err := encoder.Encode(ds); err != nil {
		return fmt.Errorf("写出JSON数据失败: %w", err)
	}
	return nil
}

// ExportDeduplicatedCSV 先按关键字段去重再导出CSV，保留每组首条
func (ex *Exporter) ExportDeduplicatedCSV(w io.Writer, ds quality.Dataset, keyFields, fields []string) error {
	deduped, err := quality.Deduplicate(ds, keyFields)
	if err != nil {
		return err
	}
	return ex.ExportCSV(w, deduped, fields)
}

// renderCell 渲染单元格，标量转字符串，嵌套值序列化为JSON
func (ex *Exporter) renderCell(record quality.Record, field string) (string, error) {
	value, exists := record[field]
	if !exists || value == nil {
		return "", nil
	}
	switch value.(type) {
	case map[string]interface{}, []interface{}, []string, []map[string]interface{}:
		data, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("序列化字段 %s 失败: %w", field, err)
		}
		return string(data), nil
	default:
		return ex.converter.ToString(value), nil
	}
}

// collectFields 汇总数据集中出现过的全部字段名并排序
func collectFields(ds quality.Dataset) []string {
	seen := make(map[string]bool)
	var fields []string
	for _, record := range ds {
		for field := range record {
			if !seen[field] {
				seen[field] = true
				fields = append(fields, field)
			}
		}
	}
	sort.Strings(fields)
	return fields
}
