/*
 * @module service/dataset/mapper
 * @description 采集记录规整器，将采集端的原始医生数据规整为标准记录结构
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/dataset_management.md
 * @stateFlow 原始载荷 -> 字段规整 -> 标准记录
 * @rules 姓名为空的记录视为无效记录，规整失败的字段回退为零值而不丢弃整条记录
 * @dependencies dataquality-service/service/quality, dataquality-service/service/utils
 * @refs importer.go, dataset_service.go
 */

package dataset

import (
	"encoding/json"
	"fmt"

	"dataquality-service/service/quality"
	"dataquality-service/service/utils"

	"github.com/spf13/cast"
)

// DoctorRecordMapper 医生记录规整器
type DoctorRecordMapper struct {
	converter *utils.DataConverter
}

// NewDoctorRecordMapper 创建医生记录规整器
func NewDoctorRecordMapper() *DoctorRecordMapper {
	return &DoctorRecordMapper{
		converter: utils.NewDataConverter(),
	}
}

// MapRecord 规整单条原始记录，第二个返回值为false表示记录无效（姓名为空）
func (m *DoctorRecordMapper) MapRecord(raw map[string]interface{}) (quality.Record, bool) {
	name := m.converter.NormalizeString(cast.ToString(raw["name"]))
	if name == "" {
		return nil, false
	}

	clinics := m.formatClinics(raw["clinics"])

	// 评分与评论数：缺失或无法解析时回退为0，留给质量评估暴露
	rating := 0.0
	if v, err := cast.ToFloat64E(raw["rating"]); err == nil {
		rating = v
	}
	reviews := 0
	if v, err := cast.ToIntE(raw["reviews_count"]); err == nil {
		reviews = v
	}

	record := quality.Record{
		"name":             name,
		"specialization":   cast.ToString(raw["specialization"]),
		"experience":       m.formatExperience(raw["experience"]),
		"qualifications":   m.formatQualifications(raw["qualifications"]),
		"clinics":          clinics,
		"fees":             m.formatFees(raw["fees"]),
		"rating":           rating,
		"reviews_count":    reviews,
		"services":         m.formatServices(raw["services"]),
		"address":          m.primaryClinicField(clinics, "address"),
		"google_maps_link": m.primaryClinicField(clinics, "google_maps_link"),
		"phone":            cast.ToString(raw["phone"]),
		"availability":     m.formatAvailability(raw["availability"]),
		"profile_url":      cast.ToString(raw["profile_url"]),
		"image_url":        cast.ToString(raw["image_url"]),
	}

	return record, true
}

// MapBatch 批量规整原始记录，丢弃无效记录
func (m *DoctorRecordMapper) MapBatch(rawList []map[string]interface{}) quality.Dataset {
	mapped := make(quality.Dataset, 0, len(rawList))
	for _, raw := range rawList {
		if record, ok := m.MapRecord(raw); ok {
			mapped = append(mapped, record)
		}
	}
	return mapped
}

// formatExperience 规整从业年限描述
func (m *DoctorRecordMapper) formatExperience(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		// CSV的单元格是字符串，纯数字按年数规整，其余文本原样保留
		if years, err := m.converter.ToInt(v); err == nil {
			return pluralYears(years)
		}
		return v
	case map[string]interface{}:
		years := cast.ToInt(v["years"])
		return pluralYears(years)
	default:
		if years, err := cast.ToIntE(value); err == nil {
			return pluralYears(years)
		}
	}
	return ""
}

func pluralYears(years int) string {
	if years == 1 {
		return "1 year"
	}
	return fmt.Sprintf("%d years", years)
}

// formatQualifications 规整资质描述，列表合并为逗号分隔
func (m *DoctorRecordMapper) formatQualifications(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case []interface{}:
		result := ""
		for _, item := range v {
			s := cast.ToString(item)
			if s == "" {
				continue
			}
			if result != "" {
				result += ", "
			}
			result += s
		}
		return result
	}
	return ""
}

// formatClinics 规整诊所列表，每个诊所保留名称、地址与地图链接
func (m *DoctorRecordMapper) formatClinics(value interface{}) []interface{} {
	if value == nil {
		return []interface{}{}
	}

	// 采集端可能把诊所列表序列化成字符串
	if s, ok := value.(string); ok {
		var decoded interface{}
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return []interface{}{}
		}
		value = decoded
	}

	var items []interface{}
	switch v := value.(type) {
	case []interface{}:
		items = v
	case map[string]interface{}:
		items = []interface{}{v}
	default:
		return []interface{}{}
	}

	clinics := make([]interface{}, 0, len(items))
	for _, item := range items {
		clinic, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		clinics = append(clinics, map[string]interface{}{
			"name":             cast.ToString(clinic["name"]),
			"address":          cast.ToString(clinic["address"]),
			"google_maps_link": cast.ToString(clinic["google_maps_link"]),
		})
	}
	return clinics
}

// formatFees 规整费用描述，数值统一带卢比符号
func (m *DoctorRecordMapper) formatFees(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		if fee, err := m.converter.ToFloat(v); err == nil {
			return "₹" + m.converter.ToString(fee)
		}
		return v
	case map[string]interface{}:
		fee, ok := v["consultation"]
		if !ok {
			fee = v["amount"]
		}
		return "₹" + m.converter.ToString(cast.ToFloat64(fee))
	default:
		if fee, err := cast.ToFloat64E(value); err == nil {
			return "₹" + m.converter.ToString(fee)
		}
	}
	return ""
}

// formatServices 规整服务列表
func (m *DoctorRecordMapper) formatServices(value interface{}) []interface{} {
	switch v := value.(type) {
	case []interface{}:
		return v
	case string:
		if v == "" {
			return []interface{}{}
		}
		var decoded []interface{}
		if err := json.Unmarshal([]byte(v), &decoded); err == nil {
			return decoded
		}
		return []interface{}{v}
	}
	return []interface{}{}
}

// formatAvailability 规整出诊时间表，星期 -> 时间段列表
func (m *DoctorRecordMapper) formatAvailability(value interface{}) map[string]interface{} {
	if s, ok := value.(string); ok {
		var decoded map[string]interface{}
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return map[string]interface{}{}
		}
		value = decoded
	}

	raw, ok := value.(map[string]interface{})
	if !ok {
		return map[string]interface{}{}
	}

	availability := make(map[string]interface{}, len(raw))
	for day, times := range raw {
		switch t := times.(type) {
		case []interface{}:
			slots := make([]interface{}, 0, len(t))
			for _, slot := range t {
				if s := cast.ToString(slot); s != "" {
					slots = append(slots, s)
				}
			}
			availability[day] = slots
		case string:
			if t != "" {
				availability[day] = []interface{}{t}
			} else {
				availability[day] = []interface{}{}
			}
		}
	}
	return availability
}

// primaryClinicField 取第一家诊所的指定字段作为主要联系信息
func (m *DoctorRecordMapper) primaryClinicField(clinics []interface{}, field string) string {
	if len(clinics) == 0 {
		return ""
	}
	first, ok := clinics[0].(map[string]interface{})
	if !ok {
		return ""
	}
	return cast.ToString(first[field])
}
