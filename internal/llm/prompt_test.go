package llm

import (
	"strings"
	"testing"

	"github.com/BetterCallFirewall/ssti-master/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestBuildPayloadPrompt_RequiredFields(t *testing.T) {
	req := &models.PayloadRequest{
		Engine:         models.EngineJinja2,
		Goal:           "RCE",
		Restrictions:   []string{"禁止点号 (.)", "禁止下划线 (_)"},
		CustomWafRules: "blocks os module",
	}

	prompt := BuildPayloadPrompt(req)

	assert.Contains(t, prompt, "- Template Engine: Jinja2")
	assert.Contains(t, prompt, "- Primary Goal: RCE")
	assert.Contains(t, prompt, "- Active WAF Restrictions: 禁止点号 (.), 禁止下划线 (_)")
	assert.Contains(t, prompt, "- Additional WAF Behavior: blocks os module")
	assert.NotContains(t, prompt, "Specific Command to Execute")
	assert.NotContains(t, prompt, "STRICTLY FORBIDDEN PATTERNS:")
}

func TestBuildPayloadPrompt_OptionalLines(t *testing.T) {
	cmd := "cat /flag"
	blocked := "__class__, os"
	req := &models.PayloadRequest{
		Engine:          models.EngineTwig,
		Goal:            "read flag",
		SpecificCommand: &cmd,
		Restrictions:    []string{},
		BlockedPatterns: &blocked,
	}

	prompt := BuildPayloadPrompt(req)

	assert.Contains(t, prompt, "- Specific Command to Execute: cat /flag")
	assert.Contains(t, prompt, "- STRICTLY FORBIDDEN PATTERNS: __class__, os")
}

func TestBuildPayloadPrompt_NoEscaping(t *testing.T) {
	goal := `{{ config.__class__ }} %s %d "quoted" <script>`
	req := &models.PayloadRequest{Engine: models.EngineJinja2, Goal: goal}

	prompt := BuildPayloadPrompt(req)

	assert.Contains(t, prompt, goal, "free text is interpolated literally")
}

func TestBuildAuditPrompt(t *testing.T) {
	source := "@app.route('/')\ndef index():\n    name = request.args.get('n')\n    return render_template_string('Hi ' + name)\n"
	req := &models.CodeAnalysisRequest{SourceCode: source}

	prompt := BuildAuditPrompt(req)

	assert.Contains(t, prompt, source)
	assert.Contains(t, prompt, "追踪链式赋值")
	assert.Contains(t, prompt, "处理间接函数调用")
	assert.NotContains(t, prompt, "用户提示的模板引擎")

	engine := models.EngineMako
	req.Engine = &engine
	prompt = BuildAuditPrompt(req)
	assert.Contains(t, prompt, "用户提示的模板引擎")
	assert.True(t, strings.Contains(prompt, "Mako"))
}
