package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/BetterCallFirewall/ssti-master/internal/config"
	"github.com/BetterCallFirewall/ssti-master/internal/logger"
	"github.com/BetterCallFirewall/ssti-master/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeGemini answers generateContent calls with a fixed model text
type fakeGemini struct {
	mu     sync.Mutex
	status int
	text   string
	bodies []string
	paths  []string
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.bodies = append(f.bodies, string(body))
	f.paths = append(f.paths, r.URL.Path)
	status, text := f.status, f.text
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if status != 0 && status != http.StatusOK {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`))
		return
	}

	reply := map[string]any{
		"candidates": []map[string]any{{
			"content": map[string]any{
				"role":  "model",
				"parts": []map[string]any{{"text": text}},
			},
		}},
	}
	_ = json.NewEncoder(w).Encode(reply)
}

func newTestCompleter(t *testing.T, f *fakeGemini) *GenaiCompleter {
	t.Helper()
	ts := httptest.NewServer(f)
	t.Cleanup(ts.Close)

	c, err := NewGenaiCompleter(context.Background(), config.LLMConfig{
		Provider:       config.ProviderGenai,
		Model:          "gemini-test",
		ApiKey:         "test-key",
		BaseURL:        ts.URL,
		ThinkingBudget: 12000,
	}, logger.Nop())
	require.NoError(t, err)
	return c
}

func TestGenaiCompleter_GeneratePayload(t *testing.T) {
	f := &fakeGemini{text: `{"engine":"Jinja2","payload":"{{ lipsum['__globals__'] }}","explanation":"说明","bypassTechnique":"方括号取属性","pollutionChain":["lipsum","__globals__"]}`}
	c := newTestCompleter(t, f)

	out, err := c.GeneratePayload(context.Background(), &models.PayloadRequest{
		Engine:       models.EngineJinja2,
		Goal:         "远程代码执行 (RCE)",
		Restrictions: []string{"禁止点号 (.)"},
	})
	require.NoError(t, err)
	assert.Equal(t, "方括号取属性", out.BypassTechnique)
	assert.Equal(t, []string{"lipsum", "__globals__"}, out.PollutionChain)

	require.Len(t, f.bodies, 1, "single attempt")
	assert.True(t, strings.HasSuffix(f.paths[0], "gemini-test:generateContent"))
	assert.Contains(t, f.bodies[0], "responseSchema")
	assert.Contains(t, f.bodies[0], "禁止点号 (.)")
	assert.NotContains(t, f.bodies[0], "thinkingBudget", "generation runs without a thinking budget")
}

func TestGenaiCompleter_AnalyzeSourceUsesThinkingBudget(t *testing.T) {
	f := &fakeGemini{text: `{"vulnerabilityFound":false,"engineDetected":"Unknown","sinkPoint":"","pollutionChain":[],"suggestedPayloads":[],"remediation":"无","description":"未发现"}`}
	c := newTestCompleter(t, f)

	out, err := c.AnalyzeSource(context.Background(), &models.CodeAnalysisRequest{SourceCode: "print('hi')"})
	require.NoError(t, err)
	assert.False(t, out.VulnerabilityFound)

	require.Len(t, f.bodies, 1)
	assert.Contains(t, f.bodies[0], "thinkingBudget")
	assert.Contains(t, f.bodies[0], "12000")
}

func TestGenaiCompleter_ServiceError(t *testing.T) {
	f := &fakeGemini{status: http.StatusInternalServerError}
	c := newTestCompleter(t, f)

	out, err := c.GeneratePayload(context.Background(), &models.PayloadRequest{Engine: models.EngineTwig, Goal: "RCE"})
	assert.Nil(t, out)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCompletionFailed))

	var perr *ParseError
	assert.False(t, errors.As(err, &perr), "transport failures are not parse errors")
	assert.Len(t, f.bodies, 1, "no retry")
}

func TestGenaiCompleter_UnparseableReply(t *testing.T) {
	f := &fakeGemini{text: "I cannot produce that payload."}
	c := newTestCompleter(t, f)

	out, err := c.AnalyzeSource(context.Background(), &models.CodeAnalysisRequest{SourceCode: "x"})
	assert.Nil(t, out)
	require.Error(t, err)

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "audit", perr.Operation)
	assert.True(t, errors.Is(err, ErrCompletionFailed))
}

func TestSchemas_RequireAllFields(t *testing.T) {
	p := PayloadSchema()
	assert.ElementsMatch(t, []string{"engine", "payload", "explanation", "bypassTechnique", "pollutionChain"}, p.Required)
	for _, name := range p.Required {
		assert.Contains(t, p.Properties, name)
	}

	a := AuditSchema()
	assert.Len(t, a.Required, 7)
	for _, name := range a.Required {
		assert.Contains(t, a.Properties, name)
	}
}

func TestNewCompleter_UnknownProvider(t *testing.T) {
	_, err := NewCompleter(context.Background(), config.LLMConfig{Provider: "openai"}, logger.Nop())
	assert.Error(t, err)
}
