/*
 * @module service/quality_task/template_service
 * @description 质量规则模板服务，管理内置与自定义规则模板并支持应用到检测任务
 * @architecture 分层架构 - 业务服务层
 * @documentReference ai_docs/quality_engine.md
 * @stateFlow 服务构造时播种内置模板 -> 模板管理 -> 应用到任务配置
 * @rules 内置模板按名称幂等播种，用户可停用但内置定义随版本更新
 * @dependencies dataquality-service/service/models, gorm.io/gorm, github.com/lib/pq
 * @refs task_service.go
 */

package quality_task

import (
	"errors"
	"fmt"

	"dataquality-service/service/datasource"
	"dataquality-service/service/models"

	"github.com/lib/pq"
	"github.com/spf13/cast"
	"gorm.io/gorm"
)

// TemplateService 质量规则模板服务
type TemplateService struct {
	db              *gorm.DB
	scriptValidator datasource.ScriptExecutor
}

// NewTemplateService 创建质量规则模板服务实例
func NewTemplateService(db *gorm.DB) *TemplateService {
	service := &TemplateService{
		db:              db,
		scriptValidator: datasource.NewYaegiScriptExecutor(),
	}
	// 初始化内置规则模板
	service.initializeBuiltinTemplates()
	return service
}

// ValidateScript 校验脚本模板的脚本内容可编译
func (s *TemplateService) ValidateScript(script string) error {
	if script == "" {
		return errors.New("脚本内容不能为空")
	}
	return s.scriptValidator.Validate(script)
}

// === 规则模板管理 ===

// CreateQualityRuleTemplate 创建质量规则模板
func (s *TemplateService) CreateQualityRuleTemplate(template *models.QualityRuleTemplate) error {
	// 验证规则类型
	validTypes := []string{"completeness", "format", "uniqueness", "script"}
	isValidType := false
	for _, validType := range validTypes {
		if template.Type == validType {
			isValidType = true
			break
		}
	}
	if !isValidType {
		return errors.New("无效的质量规则类型")
	}

	// 验证分类
	validCategories := []string{"basic_quality", "data_validation"}
	isValidCategory := false
	for _, validCategory := range validCategories {
		if template.Category == validCategory {
			isValidCategory = true
			break
		}
	}
	if !isValidCategory {
		return errors.New("无效的规则模板分类")
	}

	// 脚本模板在落库前校验脚本可编译
	if template.Type == "script" {
		if err := s.ValidateScript(cast.ToString(template.RuleConfig["source"])); err != nil {
			return fmt.Errorf("脚本模板校验失败: %w", err)
		}
	}

	return s.db.Create(template).Error
}

// GetQualityRuleTemplates 获取质量规则模板列表
func (s *TemplateService) GetQualityRuleTemplates(page, pageSize int, ruleType, category string, isBuiltIn *bool) ([]models.QualityRuleTemplate, int64, error) {
	var templates []models.QualityRuleTemplate
	var total int64

	query := s.db.Model(&models.QualityRuleTemplate{})

	if ruleType != "" {
		query = query.Where("type = ?", ruleType)
	}
	if category != "" {
		query = query.Where("category = ?", category)
	}
	if isBuiltIn != nil {
		query = query.Where("is_built_in = ?", *isBuiltIn)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * pageSize
	if err := query.Offset(offset).Limit(pageSize).Order("is_built_in DESC, created_at DESC").Find(&templates).Error; err != nil {
		return nil, 0, err
	}

	return templates, total, nil
}

// GetQualityRuleTemplateByID 根据ID获取质量规则模板
func (s *TemplateService) GetQualityRuleTemplateByID(id string) (*models.QualityRuleTemplate, error) {
	var template models.QualityRuleTemplate
	if err := s.db.First(&template, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &template, nil
}

// UpdateQualityRuleTemplate 更新质量规则模板
func (s *TemplateService) UpdateQualityRuleTemplate(id string, updates map[string]interface{}) error {
	return s.db.Model(&models.QualityRuleTemplate{}).Where("id = ?", id).Updates(updates).Error
}

// DeleteQualityRuleTemplate 删除质量规则模板，内置模板不可删除
func (s *TemplateService) DeleteQualityRuleTemplate(id string) error {
	var template models.QualityRuleTemplate
	if err := s.db.First(&template, "id = ?", id).Error; err != nil {
		return err
	}
	if template.IsBuiltIn {
		return errors.New("内置模板不可删除，可通过停用隐藏")
	}
	return s.db.Delete(&models.QualityRuleTemplate{}, "id = ?", id).Error
}

// === 模板应用 ===

// ApplyTemplateToTask 将规则模板的默认配置合并到任务的评估配置中。
// completeness 模板追加必填字段，format 模板为默认字段写入格式规则，
// uniqueness 模板在任务未配置识别键时填入默认识别键，
// script 模板将脚本内容写入任务的自定义脚本。
func (s *TemplateService) ApplyTemplateToTask(templateID string, task *models.QualityTask) error {
	template, err := s.GetQualityRuleTemplateByID(templateID)
	if err != nil {
		return fmt.Errorf("获取规则模板失败: %w", err)
	}
	if !template.IsEnabled {
		return errors.New("规则模板已停用")
	}
	// 脚本模板作用于整条记录，无需声明作用字段
	if template.Type != "script" && len(template.DefaultFields) == 0 {
		return errors.New("规则模板未声明默认作用字段")
	}

	switch template.Type {
	case "completeness":
		existing := make(map[string]bool, len(task.MandatoryFields))
		for _, field := range task.MandatoryFields {
			existing[field] = true
		}
		for _, field := range template.DefaultFields {
			if !existing[field] {
				task.MandatoryFields = append(task.MandatoryFields, field)
				existing[field] = true
			}
		}
		if threshold, ok := template.RuleConfig["threshold"]; ok && task.Threshold == 0 {
			task.Threshold = cast.ToFloat64(threshold)
		}

	case "format":
		rule := make(map[string]interface{})
		if pattern, ok := template.RuleConfig["pattern"]; ok && pattern != nil {
			rule["pattern"] = cast.ToString(pattern)
		}
		if min, ok := template.RuleConfig["min"]; ok && min != nil {
			rule["min"] = cast.ToFloat64(min)
		}
		if max, ok := template.RuleConfig["max"]; ok && max != nil {
			rule["max"] = cast.ToFloat64(max)
		}
		if len(rule) == 0 {
			return errors.New("格式模板未声明正则或数值范围")
		}
		if task.FormatRules == nil {
			task.FormatRules = models.JSONB{}
		}
		for _, field := range template.DefaultFields {
			task.FormatRules[field] = rule
		}

	case "uniqueness":
		if len(task.KeyFields) == 0 {
			task.KeyFields = models.JSONBStringArray(template.DefaultFields)
		}

	case "script":
		source := cast.ToString(template.RuleConfig["source"])
		if source == "" {
			return errors.New("脚本模板未声明脚本内容")
		}
		task.CustomScript = source

	default:
		return fmt.Errorf("不支持的规则模板类型: %s", template.Type)
	}

	return nil
}

// === 内置模板 ===

// initializeBuiltinTemplates 初始化内置规则模板，按名称幂等播种
func (s *TemplateService) initializeBuiltinTemplates() {
	builtinTemplates := []models.QualityRuleTemplate{
		{
			Name:            "核心字段完整性检查",
			Type:            "completeness",
			Category:        "basic_quality",
			Description:     "检查医疗服务提供方记录的核心字段是否存在且非空",
			RuleConfig:      models.JSONB{"threshold": 0.95},
			DefaultFields:   models.JSONBStringArray{"name", "specialization", "address"},
			ApplicableTypes: pq.StringArray{"string"},
			IsBuiltIn:       true,
			IsEnabled:       true,
			Version:         "1.0",
		},
		{
			Name:            "联系电话格式检查",
			Type:            "format",
			Category:        "data_validation",
			Description:     "验证联系电话为可拨打的号码格式，允许国际区号前缀",
			RuleConfig:      models.JSONB{"pattern": `\+?[0-9][0-9 -]{5,17}[0-9]`},
			DefaultFields:   models.JSONBStringArray{"phone"},
			ApplicableTypes: pq.StringArray{"string"},
			IsBuiltIn:       true,
			IsEnabled:       true,
			Version:         "1.0",
		},
		{
			Name:            "评分取值范围检查",
			Type:            "format",
			Category:        "data_validation",
			Description:     "验证评分处于0到5的闭区间内",
			RuleConfig:      models.JSONB{"min": 0.0, "max": 5.0},
			DefaultFields:   models.JSONBStringArray{"rating"},
			ApplicableTypes: pq.StringArray{"number"},
			IsBuiltIn:       true,
			IsEnabled:       true,
			Version:         "1.0",
		},
		{
			Name:            "链接格式检查",
			Type:            "format",
			Category:        "data_validation",
			Description:     "验证主页、地图与头像链接为HTTP(S)地址",
			RuleConfig:      models.JSONB{"pattern": `https?://\S+`},
			DefaultFields:   models.JSONBStringArray{"profile_url", "google_maps_link", "image_url"},
			ApplicableTypes: pq.StringArray{"string"},
			IsBuiltIn:       true,
			IsEnabled:       true,
			Version:         "1.0",
		},
		{
			Name:            "咨询费用格式检查",
			Type:            "format",
			Category:        "data_validation",
			Description:     "验证咨询费用为带卢比符号的金额",
			RuleConfig:      models.JSONB{"pattern": `₹\d+(\.\d+)?`},
			DefaultFields:   models.JSONBStringArray{"fees"},
			ApplicableTypes: pq.StringArray{"string"},
			IsBuiltIn:       true,
			IsEnabled:       true,
			Version:         "1.0",
		},
		{
			Name:            "重复记录识别键检查",
			Type:            "uniqueness",
			Category:        "basic_quality",
			Description:     "以姓名与执业地址的组合作为识别键检测重复采集的记录",
			RuleConfig:      models.JSONB{"case_sensitive": true},
			DefaultFields:   models.JSONBStringArray{"name", "address"},
			ApplicableTypes: pq.StringArray{"string"},
			IsBuiltIn:       true,
			IsEnabled:       true,
			Version:         "1.0",
		},
		{
			Name:        "评分与评价数一致性检查",
			Type:        "script",
			Category:    "data_validation",
			Description: "存在患者评价但评分为0的记录视为解析异常",
			RuleConfig: models.JSONB{"source": `
rating, _ := record["rating"].(float64)
count, _ := record["rating_count"].(float64)
if count > 0 && rating == 0 {
	return map[string]interface{}{"pass": false, "message": "存在患者评价但评分为0，疑似解析缺失"}, nil
}
return true, nil
`},
			DefaultFields:   models.JSONBStringArray{"rating", "rating_count"},
			ApplicableTypes: pq.StringArray{"number"},
			IsBuiltIn:       true,
			IsEnabled:       true,
			Version:         "1.0",
		},
	}

	for _, template := range builtinTemplates {
		var existing models.QualityRuleTemplate
		result := s.db.Where("name = ? AND is_built_in = ?", template.Name, true).First(&existing)

		if result.Error != nil {
			// 模板不存在，创建新模板（让BeforeCreate钩子生成UUID）
			if err := s.db.Create(&template).Error; err != nil {
				fmt.Printf("创建内置质量规则模板失败: %s, 错误: %v\n", template.Name, err)
			}
		} else {
			// 模板已存在，更新定义字段但保留用户的启用状态
			updates := map[string]interface{}{
				"description":      template.Description,
				"rule_config":      template.RuleConfig,
				"default_fields":   template.DefaultFields,
				"applicable_types": template.ApplicableTypes,
				"version":          template.Version,
			}
			if err := s.db.Model(&existing).Updates(updates).Error; err != nil {
				fmt.Printf("更新内置质量规则模板失败: %s, 错误: %v\n", template.Name, err)
			}
		}
	}
}
