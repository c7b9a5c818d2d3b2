// Package forms holds the editable state of both workbench panels and
// turns it into request objects for the completion client.
package forms

import (
	"slices"
	"strings"

	"github.com/BetterCallFirewall/ssti-master/internal/models"
)

// DefaultGoal is the goal pre-filled in a fresh generator form
const DefaultGoal = "远程代码执行 (RCE)"

// GeneratorForm is the payload generator panel
type GeneratorForm struct {
	Engine          models.TemplateEngine `json:"engine"`
	Goal            string                `json:"goal"`
	SpecificCommand string                `json:"specificCommand"`
	Restrictions    []string              `json:"restrictions"`
	CustomRules     string                `json:"customRules"`
	BlockedPatterns string                `json:"blockedPatterns"`
}

// NewGeneratorForm returns the form as a fresh session shows it
func NewGeneratorForm() GeneratorForm {
	return GeneratorForm{
		Engine:       models.EngineJinja2,
		Goal:         DefaultGoal,
		Restrictions: []string{},
	}
}

// Build creates the request for the current field values.
// Blank optional fields are left out of the request.
func (f GeneratorForm) Build() models.PayloadRequest {
	return models.PayloadRequest{
		Engine:          f.Engine,
		Goal:            f.Goal,
		SpecificCommand: optional(f.SpecificCommand),
		Restrictions:    slices.Clone(nonNil(f.Restrictions)),
		CustomWafRules:  f.CustomRules,
		BlockedPatterns: optional(f.BlockedPatterns),
	}
}

// ToggleRestriction removes label if selected, otherwise appends it
func (f *GeneratorForm) ToggleRestriction(label string) {
	if i := slices.Index(f.Restrictions, label); i >= 0 {
		f.Restrictions = slices.Delete(slices.Clone(f.Restrictions), i, i+1)
		return
	}
	f.Restrictions = append(slices.Clone(f.Restrictions), label)
}

// HasRestriction reports whether label is currently selected
func (f GeneratorForm) HasRestriction(label string) bool {
	return slices.Contains(f.Restrictions, label)
}

// Restore overwrites every field from a stored request
func (f *GeneratorForm) Restore(req models.PayloadRequest) {
	*f = GeneratorForm{
		Engine:          req.Engine,
		Goal:            req.Goal,
		SpecificCommand: deref(req.SpecificCommand),
		Restrictions:    slices.Clone(nonNil(req.Restrictions)),
		CustomRules:     req.CustomWafRules,
		BlockedPatterns: deref(req.BlockedPatterns),
	}
}

// AuditorForm is the source audit panel
type AuditorForm struct {
	SourceCode string                 `json:"sourceCode"`
	Engine     *models.TemplateEngine `json:"engine,omitempty"`
}

// Ready reports whether there is any source to audit
func (f AuditorForm) Ready() bool {
	return strings.TrimSpace(f.SourceCode) != ""
}

// Build creates the audit request. Source is sent verbatim.
func (f AuditorForm) Build() models.CodeAnalysisRequest {
	req := models.CodeAnalysisRequest{SourceCode: f.SourceCode}
	if f.Engine != nil {
		engine := *f.Engine
		req.Engine = &engine
	}
	return req
}

// Restore overwrites the form from a stored request
func (f *AuditorForm) Restore(req models.CodeAnalysisRequest) {
	*f = AuditorForm{SourceCode: req.SourceCode}
	if req.Engine != nil {
		engine := *req.Engine
		f.Engine = &engine
	}
}

func optional(s string) *string {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
