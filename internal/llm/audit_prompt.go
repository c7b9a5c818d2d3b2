package llm

import (
	"fmt"

	"github.com/BetterCallFirewall/ssti-master/internal/models"
)

// BuildAuditPrompt renders the source audit prompt. The source is embedded verbatim.
func BuildAuditPrompt(req *models.CodeAnalysisRequest) string {
	engineHint := ""
	if req.Engine != nil {
		engineHint = fmt.Sprintf("\n[用户提示的模板引擎]\n%s\n", *req.Engine)
	}

	return fmt.Sprintf(
		`
你是一名顶级安全审计专家和静态代码分析（SAST）系统架构师。你的任务是从给定的源代码中精确识别 SSTI 漏洞。

[深度追踪准则]
1. **识别隐藏污染源**: 检查不仅限于 request.args，还包括 Headers、Cookies、JSON Body、甚至是数据库查询结果或本地配置文件中被二次渲染的变量。
2. **追踪链式赋值（Chained Assignments）**: 必须追踪变量重命名过程。例如：x = req.arg -> y = x -> z = f"{y}" -> render(z)。即便经过多次转换，也要识别出原始污点。
3. **处理间接函数调用（Indirect Calls）**: 识别包装函数。如果代码调用了 render_custom(content)，而 render_custom 内部使用了 render_template_string(content)，必须穿透该函数。
4. **上下文感知渲染**: 识别数据是否在模板的危险上下文中渲染（例如：在 HTML 属性中、在 script 标签内、或直接作为模板字符串解析）。

[分析逻辑]
- 输入源 (Sources) -> 变量流转 (Flows) -> 数据清洗 (Sanitizers, 检查是否有转义) -> 最终汇聚点 (Sinks)。
%s
[待审计源码]
%s

[输出要求]
- 以 JSON 格式返回结果。
- remediation, description 字段必须使用中文，且要体现对链式逻辑的深度理解。
- pollutionChain 必须详细列出变量转换的每一步。
- suggestedPayloads 必须是针对代码中特定绕过逻辑（如 WAF 或特定过滤器）的有效 PoC。
`,
		engineHint,
		req.SourceCode,
	)
}
