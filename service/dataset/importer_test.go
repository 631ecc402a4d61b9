/*
 * @module service/dataset/importer_test
 * @description 数据集导入导出测试，覆盖CSV解析、编码转换、数值规整与去重导出
 * @architecture 测试层
 * @documentReference ai_docs/dataset_management.md
 * @stateFlow 构造文件内容 -> 导入 -> 断言记录集 -> 导出 -> 回读断言
 * @rules 空单元格与缺失列的区别必须被保留
 * @dependencies stretchr/testify
 * @refs importer.go, exporter.go
 */

package dataset

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"dataquality-service/service/quality"
	"dataquality-service/service/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImportCSVHeaderMapping(t *testing.T) {
	importer := NewImporter()

	csvData := "name,specialty,rating\nDr. A,Dentist,4.5\nDr. B,,3.9\n"
	ds, result, err := importer.ImportCSV(strings.NewReader(csvData), ImportOptions{})
	require.NoError(t, err)

	assert.Equal(t, []string{"name", "specialty", "rating"}, result.Fields)
	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 0, result.Skipped)
	require.Len(t, ds, 2)

	assert.Equal(t, "Dr. A", ds[0]["name"])
	assert.Equal(t, "4.5", ds[0]["rating"])

	// 空单元格保留为空字符串，字段视为存在
	value, exists := ds[1]["specialty"]
	assert.True(t, exists)
	assert.Equal(t, "", value)
}

func TestImportCSVRaggedRow(t *testing.T) {
	importer := NewImporter()

	// 第二行缺少尾部两列
	csvData := "name,specialty,rating\nDr. A,Dentist,4.5\nDr. B\n"
	ds, _, err := importer.ImportCSV(strings.NewReader(csvData), ImportOptions{})
	require.NoError(t, err)
	require.Len(t, ds, 2)

	// 缺失列不写入记录
	_, exists := ds[1]["specialty"]
	assert.False(t, exists)
	_, exists = ds[1]["rating"]
	assert.False(t, exists)
	assert.Equal(t, "Dr. B", ds[1]["name"])
}

func TestImportCSVGBKEncoding(t *testing.T) {
	importer := NewImporter()
	converter := utils.NewDataConverter()

	utf8CSV := "name,city\n张伟,班加罗尔\n"
	gbkData, err := converter.ConvertEncoding([]byte(utf8CSV), "utf-8", "gbk")
	require.NoError(t, err)
	require.NotEqual(t, []byte(utf8CSV), gbkData)

	ds, _, err := importer.ImportCSV(bytes.NewReader(gbkData), ImportOptions{Encoding: "gbk"})
	require.NoError(t, err)
	require.Len(t, ds, 1)
	assert.Equal(t, "张伟", ds[0]["name"])
	assert.Equal(t, "班加罗尔", ds[0]["city"])
}

func TestImportCSVNumericCoercion(t *testing.T) {
	importer := NewImporter()

	csvData := "name,rating,reviews\nDr. A,4.5,120\nDr. B,unknown,\n"
	ds, _, err := importer.ImportCSV(strings.NewReader(csvData), ImportOptions{
		NumericFields: []string{"rating", "reviews"},
	})
	require.NoError(t, err)
	require.Len(t, ds, 2)

	assert.Equal(t, 4.5, ds[0]["rating"])
	assert.Equal(t, 120.0, ds[0]["reviews"])

	// 无法解析的数值保留原始字符串，空单元格保持为空
	assert.Equal(t, "unknown", ds[1]["rating"])
	assert.Equal(t, "", ds[1]["reviews"])
}

func TestImportCSVRequiredFieldSkips(t *testing.T) {
	importer := NewImporter()

	csvData := "name,specialty\nDr. A,Dentist\n,Cardiologist\n   ,Dermatologist\nDr. D,ENT\n"
	ds, result, err := importer.ImportCSV(strings.NewReader(csvData), ImportOptions{RequiredField: "name"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 2, result.Skipped)
	require.Len(t, ds, 2)
	assert.Equal(t, "Dr. A", ds[0]["name"])
	assert.Equal(t, "Dr. D", ds[1]["name"])
}

func TestImportCSVEmptyFile(t *testing.T) {
	importer := NewImporter()

	ds, result, err := importer.ImportCSV(strings.NewReader(""), ImportOptions{})
	require.NoError(t, err)
	assert.Empty(t, ds)
	assert.Equal(t, 0, result.Imported)
	assert.Empty(t, result.Fields)
}

func TestImportJSON(t *testing.T) {
	importer := NewImporter()

	jsonData := `[
        {"name": "Dr. A", "rating": 4.5, "clinics": [{"name": "Smile Studio"}]},
        {"name": "", "rating": 3.0},
        {"name": "Dr. B"}
    ]`

	ds, result, err := importer.ImportJSON(strings.NewReader(jsonData), ImportOptions{RequiredField: "name"})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, ds, 2)

	// JSON数字保持为float64，嵌套结构原样保留
	assert.Equal(t, 4.5, ds[0]["rating"])
	clinics, ok := ds[0]["clinics"].([]interface{})
	require.True(t, ok)
	assert.Len(t, clinics, 1)
}

func TestImportCSVWithDoctorMapping(t *testing.T) {
	importer := NewImporter()

	csvData := "name,experience,fees,rating\nDr. A,12,500,4.7\n,3,300,4.0\n"
	ds, result, err := importer.ImportCSV(strings.NewReader(csvData), ImportOptions{MapDoctor: true})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Imported)
	assert.Equal(t, 1, result.Skipped)
	require.Len(t, ds, 1)

	assert.Equal(t, "12 years", ds[0]["experience"])
	assert.Equal(t, "₹500", ds[0]["fees"])
	assert.Equal(t, 4.7, ds[0]["rating"])
}

func TestExportCSVRoundTrip(t *testing.T) {
	exporter := NewExporter()
	importer := NewImporter()

	ds := quality.Dataset{
		{"name": "Dr. A", "rating": 4.5, "clinics": []interface{}{map[string]interface{}{"name": "Smile Studio"}}},
		{"name": "Dr. B", "rating": nil},
	}

	var buf bytes.Buffer
	err := exporter.ExportCSV(&buf, ds, nil)
	require.NoError(t, err)

	// 未指定列时按字段名字典序
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.NotEmpty(t, lines)
	assert.Equal(t, "clinics,name,rating", lines[0])

	reimported, _, err := importer.ImportCSV(strings.NewReader(buf.String()), ImportOptions{})
	require.NoError(t, err)
	require.Len(t, reimported, 2)
	assert.Equal(t, "Dr. A", reimported[0]["name"])
	assert.Equal(t, "4.5", reimported[0]["rating"])
	assert.Equal(t, "", reimported[1]["rating"])

	// 嵌套结构导出为JSON文本
	var clinics []map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(reimported[0]["clinics"].(string)), &clinics))
	assert.Equal(t, "Smile Studio", clinics[0]["name"])
}

func TestExportJSONIndented(t *testing.T) {
	exporter := NewExporter()

	ds := quality.Dataset{{"name": "Dr. A", "fees": "₹500"}}

	var buf bytes.Buffer
	require.NoError(t, exporter.ExportJSON(&buf, ds))

	output := buf.String()
	assert.Contains(t, output, "    \"name\": \"Dr. A\"")
	// 非ASCII字符不转义
	assert.Contains(t, output, "₹500")

	var decoded []map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Len(t, decoded, 1)
}

func TestExportDeduplicatedCSV(t *testing.T) {
	exporter := NewExporter()
	importer := NewImporter()

	ds := quality.Dataset{
		{"name": "Dr. A", "address": "12 MG Road", "rating": 4.5},
		{"name": "Dr. A", "address": "12 MG Road", "rating": 3.0},
		{"name": "Dr. B", "address": "5 Residency Road", "rating": 4.8},
	}

	var buf bytes.Buffer
	err := exporter.ExportDeduplicatedCSV(&buf, ds, []string{"name", "address"}, []string{"name", "address", "rating"})
	require.NoError(t, err)

	reimported, _, err := importer.ImportCSV(strings.NewReader(buf.String()), ImportOptions{})
	require.NoError(t, err)
	require.Len(t, reimported, 2)

	// 去重保留每组首条
	assert.Equal(t, "Dr. A", reimported[0]["name"])
	assert.Equal(t, "4.5", reimported[0]["rating"])
	assert.Equal(t, "Dr. B", reimported[1]["name"])
}

func TestExportDeduplicatedCSVInvalidKeys(t *testing.T) {
	exporter := NewExporter()

	ds := quality.Dataset{{"name": "Dr. A"}}

	var buf bytes.Buffer
	err := exporter.ExportDeduplicatedCSV(&buf, ds, nil, nil)
	require.Error(t, err)
	assert.True(t, quality.IsConfigError(err))
	assert.Zero(t, buf.Len())
}
