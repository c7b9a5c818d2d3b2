package llm

import (
	"fmt"
	"strings"

	"github.com/BetterCallFirewall/ssti-master/internal/models"
)

// BuildPayloadPrompt renders the generation prompt. User text is inserted as is.
func BuildPayloadPrompt(req *models.PayloadRequest) string {
	commandLine := ""
	if req.SpecificCommand != nil {
		commandLine = fmt.Sprintf("- Specific Command to Execute: %s", *req.SpecificCommand)
	}

	forbiddenLine := ""
	if req.BlockedPatterns != nil {
		forbiddenLine = fmt.Sprintf("- STRICTLY FORBIDDEN PATTERNS: %s", *req.BlockedPatterns)
	}

	return fmt.Sprintf(
		`
As a world-class cybersecurity researcher specializing in Template Injection, generate a highly optimized SSTI payload for the following scenario:

[SCENARIO]
- Template Engine: %s
- Primary Goal: %s
%s
- Active WAF Restrictions: %s
- Additional WAF Behavior: %s
%s

[REQUIREMENTS]
1. PAYLOAD: Provide a working payload string. If a specific command was provided, it MUST be integrated.
   CRITICAL: The payload MUST NOT contain any of the "STRICTLY FORBIDDEN PATTERNS". Use bypass techniques like string concatenation, base64, hex encoding, or attribute retrieval (e.g., attr(), getitem) to avoid them.
2. BYPASS TECHNIQUE: Identify the specific method used to evade the WAF. (Must respond in Chinese)
3. POLLUTION CHAIN: Provide a step-by-step array of the object hierarchy or "pollution chain" used to reach the target function.
4. EXPLANATION: Deep technical explanation of why this specific chain works and how it evades the defined blocks. (Must respond in Chinese)

Ensure the payload is sophisticated. If 'dots' are blocked, use bracket notation. If 'underscores' are blocked, use hex/unicode encoding.

Return the result in JSON format.
`,
		req.Engine,
		req.Goal,
		commandLine,
		strings.Join(req.Restrictions, ", "),
		req.CustomWafRules,
		forbiddenLine,
	)
}
