package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHistoryItem_GeneratorJSONShape(t *testing.T) {
	item := NewGeneratorItem(
		PayloadRequest{
			Engine:       EngineJinja2,
			Goal:         "RCE",
			Restrictions: []string{"禁止点号 (.)"},
		},
		GeneratedPayload{Engine: EngineJinja2, Payload: "{{7*7}}", PollutionChain: []string{"a", "b"}},
	)
	item.Timestamp = time.UnixMilli(1700000000123)

	data, err := json.Marshal(item)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "generator", raw["type"])
	assert.Equal(t, float64(1700000000123), raw["timestamp"])

	req := raw["request"].(map[string]any)
	assert.NotContains(t, req, "specificCommand", "empty optional field must be absent")
	assert.NotContains(t, req, "blockedPatterns", "empty optional field must be absent")
	assert.Equal(t, "Jinja2", req["engine"])

	var back HistoryItem
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, item.ID, back.ID)
	assert.Equal(t, ModeGenerator, back.Type)
	require.NotNil(t, back.Generator)
	assert.Nil(t, back.Auditor)
	assert.Equal(t, "{{7*7}}", back.Generator.Response.Payload)
	assert.True(t, item.Timestamp.Equal(back.Timestamp))
}

func TestHistoryItem_AuditorKeepsOptionalEngine(t *testing.T) {
	engine := EngineTwig
	item := NewAuditorItem(
		CodeAnalysisRequest{SourceCode: "render(x)", Engine: &engine},
		CodeAnalysisResponse{VulnerabilityFound: true, SinkPoint: "render"},
	)

	data, err := json.Marshal(item)
	require.NoError(t, err)

	var back HistoryItem
	require.NoError(t, json.Unmarshal(data, &back))
	require.NotNil(t, back.Auditor)
	require.NotNil(t, back.Auditor.Request.Engine)
	assert.Equal(t, EngineTwig, *back.Auditor.Request.Engine)
	assert.True(t, back.Auditor.Response.VulnerabilityFound)
}

func TestHistoryItem_RejectsUnknownType(t *testing.T) {
	data := []byte(`{"id":"x1","timestamp":1,"type":"scanner","request":{},"response":{}}`)

	var item HistoryItem
	err := json.Unmarshal(data, &item)
	assert.Error(t, err)
}

func TestHistoryItem_RejectsMissingPayload(t *testing.T) {
	data := []byte(`{"id":"x1","timestamp":1,"type":"auditor"}`)

	var item HistoryItem
	assert.Error(t, json.Unmarshal(data, &item))
}

func TestHistoryItem_MarshalRejectsMismatch(t *testing.T) {
	item := HistoryItem{
		ID:      "abc",
		Type:    ModeGenerator,
		Auditor: &AuditorRecord{},
	}

	_, err := json.Marshal(item)
	assert.Error(t, err)
}

func TestNewItems_HaveDistinctIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		item := NewGeneratorItem(PayloadRequest{}, GeneratedPayload{})
		assert.Len(t, item.ID, 8)
		assert.False(t, seen[item.ID], "duplicate id %s", item.ID)
		seen[item.ID] = true
	}
}

func TestParseTemplateEngine(t *testing.T) {
	e, err := ParseTemplateEngine("Freemarker")
	require.NoError(t, err)
	assert.Equal(t, EngineFreemarker, e)

	_, err = ParseTemplateEngine("jinja2")
	assert.Error(t, err, "engine names are case sensitive")

	assert.Len(t, TemplateEngines(), 10)
	assert.Equal(t, EngineJinja2, TemplateEngines()[0])
}

func TestCommonRestrictions_Catalog(t *testing.T) {
	restrictions := CommonRestrictions()
	require.Len(t, restrictions, 7)
	assert.Equal(t, "dots", restrictions[0].ID)
	assert.Equal(t, "禁止点号 (.)", restrictions[0].Label)

	restrictions[0].Label = "changed"
	assert.Equal(t, "禁止点号 (.)", CommonRestrictions()[0].Label, "catalog must not be mutable through the copy")
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("auditor")
	require.NoError(t, err)
	assert.Equal(t, ModeAuditor, m)

	_, err = ParseMode("")
	assert.Error(t, err)
}
