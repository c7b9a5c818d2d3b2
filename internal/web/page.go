package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/BetterCallFirewall/ssti-master/internal/forms"
	"github.com/BetterCallFirewall/ssti-master/internal/models"
	"github.com/BetterCallFirewall/ssti-master/internal/workbench"
	"github.com/Masterminds/sprig/v3"
)

//go:embed templates/*.html.tmpl
var templateFS embed.FS

// pageData is what index.html.tmpl renders
type pageData struct {
	Title        string
	State        workbench.Snapshot
	Engines      []models.TemplateEngine
	Restrictions []models.WafRestriction
}

func parsePage() (*template.Template, error) {
	funcMap := sprig.FuncMap()
	funcMap["hasRestriction"] = func(f forms.GeneratorForm, label string) bool {
		return f.HasRestriction(label)
	}
	funcMap["engineName"] = func(e *models.TemplateEngine) string {
		if e == nil {
			return ""
		}
		return string(*e)
	}

	tmpl, err := template.New("index.html.tmpl").Funcs(funcMap).ParseFS(templateFS, "templates/index.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	return tmpl, nil
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	data := pageData{
		Title:        "SSTI Master",
		State:        s.wb.Snapshot(),
		Engines:      models.TemplateEngines(),
		Restrictions: models.CommonRestrictions(),
	}

	var buf bytes.Buffer
	if err := s.page.Execute(&buf, data); err != nil {
		s.log.Err(err, "❌ Page render failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
