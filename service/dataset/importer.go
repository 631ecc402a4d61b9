/*
 * @module service/dataset/importer
 * @description 数据集导入器，支持CSV与JSON格式的采集结果文件，可选GBK编码转换与医生记录规整
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/dataset_management.md
 * @stateFlow 读取文件 -> 编码转换 -> 解析 -> 可选规整 -> 标准记录集
 * @rules 空单元格保留为空字符串，缺失列不写入记录，由质量评估区分两种情况
 * @dependencies dataquality-service/service/quality, dataquality-service/service/utils
 * @refs mapper.go, exporter.go
 */

package dataset

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"dataquality-service/service/quality"
	"dataquality-service/service/utils"

	"github.com/spf13/cast"
)

// ImportOptions 导入选项
type ImportOptions struct {
	Encoding      string   `json:"encoding"`       // 源文件编码: utf-8(默认), gbk
	NumericFields []string `json:"numeric_fields"` // 需要转为数值的列，转换失败保留原始字符串
	RequiredField string   `json:"required_field"` // 该字段为空的行整行跳过
	MapDoctor     bool     `json:"map_doctor"`     // 按医生记录规整
}

// ImportResult 导入结果统计
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Fields   []string `json:"fields"`
}

// Importer 数据集导入器
type Importer struct {
	converter *utils.DataConverter
	mapper    *DoctorRecordMapper
}

// NewImporter 创建数据集导入器
func NewImporter() *Importer {
	return &Importer{
		converter: utils.NewDataConverter(),
		mapper:    NewDoctorRecordMapper(),
	}
}

// ImportCSV 从CSV文件导入记录，首行为字段名
func (im *Importer) ImportCSV(r io.Reader, opts ImportOptions) (quality.Dataset, *ImportResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("读取CSV数据失败: %w", err)
	}

	if opts.Encoding != "" && strings.ToLower(opts.Encoding) != "utf-8" {
		data, err = im.converter.ConvertEncoding(data, opts.Encoding, "utf-8")
		if err != nil {
			return nil, nil, fmt.Errorf("编码转换失败: %w", err)
		}
	}

	reader := csv.NewReader(bytes.NewReader(data))
	// 采集产出的CSV列数可能参差不齐
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return quality.Dataset{}, &ImportResult{Fields: []string{}}, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("读取CSV表头失败: %w", err)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	ds := quality.Dataset{}
	result := &ImportResult{Fields: header}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("解析CSV行失败: %w", err)
		}

		record := make(map[string]interface{}, len(header))
		for i, field := range header {
			if field == "" || i >= len(row) {
				continue
			}
			record[field] = row[i]
		}

		im.appendRecord(&ds, result, record, opts)
	}

	return ds, result, nil
}

// ImportJSON 从JSON文件导入记录，顶层为对象数组
func (im *Importer) ImportJSON(r io.Reader, opts ImportOptions) (quality.Dataset, *ImportResult, error) {
	var rawList []map[string]interface{}
	decoder := json.NewDecoder(r)
	if err := decoder.Decode(&rawList); err != nil {
		return nil, nil, fmt.Errorf("解析JSON数据失败: %w", err)
	}

	ds := quality.Dataset{}
	result := &ImportResult{}
	fieldSet := make(map[string]bool)

	for _, raw := range rawList {
		for field := range raw {
			if !fieldSet[field] {
				fieldSet[field] = true
				result.Fields = append(result.Fields, field)
			}
		}
		im.appendRecord(&ds, result, raw, opts)
	}

	return ds, result, nil
}

// appendRecord 应用导入选项后追加一条记录
func (im *Importer) appendRecord(ds *quality.Dataset, result *ImportResult, raw map[string]interface{}, opts ImportOptions) {
	if opts.RequiredField != "" {
		if strings.TrimSpace(cast.ToString(raw[opts.RequiredField])) == "" {
			result.Skipped++
			return
		}
	}

	if opts.MapDoctor {
		mapped, ok := im.mapper.MapRecord(raw)
		if !ok {
			result.Skipped++
			return
		}
		*ds = append(*ds, mapped)
		result.Imported++
		return
	}

	record := quality.Record(raw)
	for _, field := range opts.NumericFields {
		value, exists := record[field]
		if !exists || value == nil {
			continue
		}
		s := cast.ToString(value)
		if strings.TrimSpace(s) == "" {
			continue
		}
		if parsed, err := cast.ToFloat64E(value); err == nil {
			record[field] = parsed
		}
	}

	*ds = append(*ds, record)
	result.Imported++
}
