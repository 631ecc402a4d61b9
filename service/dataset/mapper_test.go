/*
 * @module service/dataset/mapper_test
 * @description 医生记录规整器测试，覆盖字段规整、回退策略与无效记录丢弃
 * @architecture 测试层
 * @documentReference ai_docs/dataset_management.md
 * @stateFlow 构造原始载荷 -> 规整 -> 断言标准记录
 * @rules 覆盖采集端各种字段形态
 * @dependencies stretchr/testify
 * @refs mapper.go
 */

package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapRecordComplete(t *testing.T) {
	mapper := NewDoctorRecordMapper()

	raw := map[string]interface{}{
		"name":           "  Dr.   Rajeev   Kumar ",
		"specialization": "Dentist",
		"experience":     12,
		"qualifications": []interface{}{"BDS", "MDS - Oral Surgery"},
		"clinics":        `[{"name":"Smile Studio","address":"12 MG Road, Bangalore","google_maps_link":"https://maps.example.com/smile"}]`,
		"fees":           500,
		"rating":         "4.7",
		"reviews_count":  "132",
		"services":       `["Root Canal","Dental Implants"]`,
		"phone":          "+919876543210",
		"availability":   map[string]interface{}{"monday": []interface{}{"10:00-13:00", "17:00-20:00"}},
		"profile_url":    "https://www.practo.com/bangalore/doctor/rajeev-kumar-dentist",
		"image_url":      "https://images.example.com/rajeev.jpg",
	}

	record, ok := mapper.MapRecord(raw)
	require.True(t, ok)

	// 姓名做空白规整
	assert.Equal(t, "Dr. Rajeev Kumar", record["name"])
	assert.Equal(t, "Dentist", record["specialization"])
	assert.Equal(t, "12 years", record["experience"])
	assert.Equal(t, "BDS, MDS - Oral Surgery", record["qualifications"])
	assert.Equal(t, "₹500", record["fees"])
	assert.Equal(t, 4.7, record["rating"])
	assert.Equal(t, 132, record["reviews_count"])
	assert.Equal(t, "+919876543210", record["phone"])

	clinics, ok := record["clinics"].([]interface{})
	require.True(t, ok)
	require.Len(t, clinics, 1)
	clinic := clinics[0].(map[string]interface{})
	assert.Equal(t, "Smile Studio", clinic["name"])
	assert.Equal(t, "12 MG Road, Bangalore", clinic["address"])

	// 主要联系信息取第一家诊所
	assert.Equal(t, "12 MG Road, Bangalore", record["address"])
	assert.Equal(t, "https://maps.example.com/smile", record["google_maps_link"])

	services, ok := record["services"].([]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"Root Canal", "Dental Implants"}, services)

	availability, ok := record["availability"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []interface{}{"10:00-13:00", "17:00-20:00"}, availability["monday"])
}

func TestMapRecordEmptyNameInvalid(t *testing.T) {
	mapper := NewDoctorRecordMapper()

	for _, raw := range []map[string]interface{}{
		{"specialization": "Dentist"},
		{"name": "", "specialization": "Dentist"},
		{"name": "   ", "specialization": "Dentist"},
		{"name": nil, "specialization": "Dentist"},
	} {
		record, ok := mapper.MapRecord(raw)
		assert.False(t, ok)
		assert.Nil(t, record)
	}
}

func TestMapRecordFallbacks(t *testing.T) {
	mapper := NewDoctorRecordMapper()

	raw := map[string]interface{}{
		"name":          "Dr. Meera Nair",
		"rating":        "not-a-number",
		"reviews_count": "many",
		"clinics":       "{invalid json",
		"services":      "General Consultation",
		"fees":          "On request",
	}

	record, ok := mapper.MapRecord(raw)
	require.True(t, ok)

	// 无法解析的评分与评论数回退为0，由质量评估暴露
	assert.Equal(t, 0.0, record["rating"])
	assert.Equal(t, 0, record["reviews_count"])
	assert.Equal(t, []interface{}{}, record["clinics"])
	assert.Equal(t, "", record["address"])
	assert.Equal(t, "On request", record["fees"])
	assert.Equal(t, []interface{}{"General Consultation"}, record["services"])
}

func TestFormatExperienceVariants(t *testing.T) {
	mapper := NewDoctorRecordMapper()

	assert.Equal(t, "", mapper.formatExperience(nil))
	assert.Equal(t, "15 years experience", mapper.formatExperience("15 years experience"))
	// CSV单元格里的纯数字按年数规整
	assert.Equal(t, "12 years", mapper.formatExperience("12"))
	assert.Equal(t, "1 year", mapper.formatExperience(" 1 "))
	assert.Equal(t, "1 year", mapper.formatExperience(1))
	assert.Equal(t, "8 years", mapper.formatExperience(8))
	assert.Equal(t, "20 years", mapper.formatExperience(map[string]interface{}{"years": 20}))
	assert.Equal(t, "1 year", mapper.formatExperience(map[string]interface{}{"years": 1}))
}

func TestFormatFeesVariants(t *testing.T) {
	mapper := NewDoctorRecordMapper()

	assert.Equal(t, "", mapper.formatFees(nil))
	assert.Equal(t, "₹500", mapper.formatFees(500))
	assert.Equal(t, "₹350.5", mapper.formatFees(350.5))
	assert.Equal(t, "₹600", mapper.formatFees(map[string]interface{}{"consultation": 600}))
	assert.Equal(t, "₹450", mapper.formatFees(map[string]interface{}{"amount": 450}))
	assert.Equal(t, "₹300", mapper.formatFees("₹300"))
	// CSV单元格里的纯数字补上卢比符号
	assert.Equal(t, "₹500", mapper.formatFees("500"))
	assert.Equal(t, "₹350.5", mapper.formatFees("350.5"))
}

func TestFormatClinicsSingleDict(t *testing.T) {
	mapper := NewDoctorRecordMapper()

	// 采集端偶尔给单个对象而不是数组
	clinics := mapper.formatClinics(map[string]interface{}{
		"name":    "City Care",
		"address": "5 Residency Road",
	})
	require.Len(t, clinics, 1)
	clinic := clinics[0].(map[string]interface{})
	assert.Equal(t, "City Care", clinic["name"])
	assert.Equal(t, "5 Residency Road", clinic["address"])
	assert.Equal(t, "", clinic["google_maps_link"])
}

func TestMapBatchDropsInvalid(t *testing.T) {
	mapper := NewDoctorRecordMapper()

	rawList := []map[string]interface{}{
		{"name": "Dr. A", "rating": 4.2},
		{"name": "", "rating": 3.0},
		{"name": "Dr. B", "rating": 4.8},
	}

	ds := mapper.MapBatch(rawList)
	require.Len(t, ds, 2)
	assert.Equal(t, "Dr. A", ds[0]["name"])
	assert.Equal(t, "Dr. B", ds[1]["name"])
}
