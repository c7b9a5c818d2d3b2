package llm

import (
	"context"
	"fmt"

	"github.com/BetterCallFirewall/ssti-master/internal/config"
	"github.com/BetterCallFirewall/ssti-master/internal/logger"
	"github.com/BetterCallFirewall/ssti-master/internal/models"
	genai "google.golang.org/genai"
)

// GenaiCompleter talks to the Gemini API directly and declares the
// output schema explicitly on every call.
type GenaiCompleter struct {
	cli            *genai.Client
	model          string
	thinkingBudget int32
	log            logger.Logger
}

var _ Completer = (*GenaiCompleter)(nil)

func NewGenaiCompleter(ctx context.Context, cfg config.LLMConfig, log logger.Logger) (*GenaiCompleter, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.ApiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	cli, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GenaiCompleter{
		cli:            cli,
		model:          cfg.Model,
		thinkingBudget: cfg.ThinkingBudget,
		log:            log,
	}, nil
}

func (c *GenaiCompleter) GeneratePayload(ctx context.Context, req *models.PayloadRequest) (*models.GeneratedPayload, error) {
	text, err := c.generate(ctx, BuildPayloadPrompt(req), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   PayloadSchema(),
	})
	if err != nil {
		return nil, failed("payload", err)
	}
	return DecodePayload(text)
}

func (c *GenaiCompleter) AnalyzeSource(ctx context.Context, req *models.CodeAnalysisRequest) (*models.CodeAnalysisResponse, error) {
	cfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   AuditSchema(),
	}
	if c.thinkingBudget > 0 {
		cfg.ThinkingConfig = &genai.ThinkingConfig{ThinkingBudget: genai.Ptr(c.thinkingBudget)}
	}

	text, err := c.generate(ctx, BuildAuditPrompt(req), cfg)
	if err != nil {
		return nil, failed("audit", err)
	}
	return DecodeAudit(text)
}

func (c *GenaiCompleter) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := c.cli.Models.GenerateContent(ctx, c.model, genai.Text(prompt), cfg)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func stringField(description string) *genai.Schema {
	return &genai.Schema{Type: genai.TypeString, Description: description}
}

func stringList(description string) *genai.Schema {
	return &genai.Schema{
		Type:        genai.TypeArray,
		Items:       &genai.Schema{Type: genai.TypeString},
		Description: description,
	}
}

// PayloadSchema is the response schema of the generation call
func PayloadSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"engine":          {Type: genai.TypeString},
			"payload":         {Type: genai.TypeString},
			"explanation":     {Type: genai.TypeString},
			"bypassTechnique": {Type: genai.TypeString},
			"pollutionChain":  stringList("The introspection sequence from the starting object to the execution sink."),
		},
		Required: []string{"engine", "payload", "explanation", "bypassTechnique", "pollutionChain"},
	}
}

// AuditSchema is the response schema of the audit call
func AuditSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"vulnerabilityFound": {Type: genai.TypeBoolean},
			"engineDetected":     {Type: genai.TypeString},
			"sinkPoint":          stringField("发生漏洞的精确代码行或函数调用位置。"),
			"pollutionChain":     stringList("从输入源到汇聚点的完整数据流路径，包含所有的中间赋值。格式：[Source] -> [Var A] -> [Var B] -> [Sink]"),
			"suggestedPayloads":  stringList("针对此漏洞的测试 Payload。"),
			"remediation":        stringField("修复建议（中文）。"),
			"description":        stringField("漏洞的深度技术分析（中文）。"),
		},
		Required: []string{"vulnerabilityFound", "engineDetected", "sinkPoint", "pollutionChain", "suggestedPayloads", "remediation", "description"},
	}
}
