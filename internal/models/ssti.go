package models

import "fmt"

// TemplateEngine is the template engine a payload targets
type TemplateEngine string

const (
	EngineJinja2     TemplateEngine = "Jinja2"
	EngineMako       TemplateEngine = "Mako"
	EngineTwig       TemplateEngine = "Twig"
	EngineSmarty     TemplateEngine = "Smarty"
	EngineFreemarker TemplateEngine = "Freemarker"
	EngineVelocity   TemplateEngine = "Velocity"
	EnginePug        TemplateEngine = "Pug"
	EngineEJS        TemplateEngine = "EJS"
	EngineERB        TemplateEngine = "ERB"
	EngineTornado    TemplateEngine = "Tornado"
)

var templateEngines = []TemplateEngine{
	EngineJinja2, EngineMako, EngineTwig, EngineSmarty, EngineFreemarker,
	EngineVelocity, EnginePug, EngineEJS, EngineERB, EngineTornado,
}

// TemplateEngines returns the supported engines in display order
func TemplateEngines() []TemplateEngine {
	out := make([]TemplateEngine, len(templateEngines))
	copy(out, templateEngines)
	return out
}

// ParseTemplateEngine validates an engine name coming from the UI
func ParseTemplateEngine(name string) (TemplateEngine, error) {
	for _, e := range templateEngines {
		if string(e) == name {
			return e, nil
		}
	}
	return "", fmt.Errorf("unknown template engine %q", name)
}

// WafRestriction is one preset WAF rule the user can toggle
type WafRestriction struct {
	ID             string `json:"id"`
	Label          string `json:"label"`
	Description    string `json:"description"`
	BlockedPattern string `json:"blockedPattern"`
}

var commonRestrictions = []WafRestriction{
	{ID: "dots", Label: "禁止点号 (.)", Description: "限制通过点号访问对象属性", BlockedPattern: "."},
	{ID: "underscores", Label: "禁止下划线 (_)", Description: "限制访问 __init__ 等魔术方法", BlockedPattern: "_"},
	{ID: "brackets", Label: "禁止中括号 ([])", Description: "限制通过索引访问数组或字典", BlockedPattern: "[]"},
	{ID: "quotes", Label: `禁止引号 (', ")`, Description: "限制字符串字面量", BlockedPattern: `'"`},
	{ID: "filters", Label: "禁止过滤器 (|)", Description: "限制管道符过滤操作", BlockedPattern: "|"},
	{ID: "request", Label: `禁止 "request"`, Description: "限制访问全局 request 对象", BlockedPattern: "request"},
	{ID: "attr", Label: `禁止 "attr"`, Description: "限制使用 .attr() 过滤器", BlockedPattern: "attr"},
}

// CommonRestrictions returns the preset restriction catalog
func CommonRestrictions() []WafRestriction {
	out := make([]WafRestriction, len(commonRestrictions))
	copy(out, commonRestrictions)
	return out
}

// PayloadRequest describes one payload generation scenario.
// Optional fields are nil when the user left them blank.
type PayloadRequest struct {
	Engine          TemplateEngine `json:"engine"`
	Goal            string         `json:"goal"`
	SpecificCommand *string        `json:"specificCommand,omitempty"`
	Restrictions    []string       `json:"restrictions"`
	CustomWafRules  string         `json:"customWafRules"`
	BlockedPatterns *string        `json:"blockedPatterns,omitempty"`
}

// GeneratedPayload is the model answer for a PayloadRequest
type GeneratedPayload struct {
	Engine          TemplateEngine `json:"engine" jsonschema:"description=Template engine the payload targets"`
	Payload         string         `json:"payload" jsonschema:"description=Working payload string with the specific command integrated"`
	Explanation     string         `json:"explanation" jsonschema:"description=Technical explanation of why the chain works and evades the blocks (Chinese)"`
	BypassTechnique string         `json:"bypassTechnique" jsonschema:"description=Method used to evade the WAF (Chinese)"`
	PollutionChain  []string       `json:"pollutionChain" jsonschema:"description=The introspection sequence from the starting object to the execution sink."`
}

// CodeAnalysisRequest asks for an SSTI audit of a source snippet
type CodeAnalysisRequest struct {
	SourceCode string          `json:"sourceCode"`
	Engine     *TemplateEngine `json:"engine,omitempty"`
}

// CodeAnalysisResponse is the model answer for a CodeAnalysisRequest
type CodeAnalysisResponse struct {
	VulnerabilityFound bool     `json:"vulnerabilityFound" jsonschema:"description=Whether an SSTI vulnerability was found"`
	EngineDetected     string   `json:"engineDetected" jsonschema:"description=Template engine detected in the code"`
	SinkPoint          string   `json:"sinkPoint" jsonschema:"description=发生漏洞的精确代码行或函数调用位置。"`
	PollutionChain     []string `json:"pollutionChain" jsonschema:"description=从输入源到汇聚点的完整数据流路径，包含所有的中间赋值。格式：[Source] -> [Var A] -> [Var B] -> [Sink]"`
	SuggestedPayloads  []string `json:"suggestedPayloads" jsonschema:"description=针对此漏洞的测试 Payload。"`
	Remediation        string   `json:"remediation" jsonschema:"description=修复建议（中文）。"`
	Description        string   `json:"description" jsonschema:"description=漏洞的深度技术分析（中文）。"`
}
