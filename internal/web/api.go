package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/BetterCallFirewall/ssti-master/internal/forms"
	"github.com/BetterCallFirewall/ssti-master/internal/models"
	"github.com/BetterCallFirewall/ssti-master/internal/workbench"
)

// Error codes of the API envelope
const (
	CodeInvalidRequest = "invalid_request"
	CodeBusy           = "busy"
	CodeNotFound       = "not_found"
	CodeFailed         = "operation_failed"
	CodeInternal       = "internal"
)

const maxBodyBytes = 1 << 20

// Response is the envelope of every API answer
type Response[T any] struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Data    T      `json:"data,omitempty"`
}

// Catalog lists the choices the forms offer
type Catalog struct {
	Engines      []models.TemplateEngine `json:"engines"`
	Restrictions []models.WafRestriction `json:"restrictions"`
	DefaultGoal  string                  `json:"defaultGoal"`
}

type modeRequest struct {
	Mode string `json:"mode"`
}

type restrictionRequest struct {
	Label string `json:"label"`
}

type installRequest struct {
	Outcome string `json:"outcome"`
}

func writeJSON[T any](w http.ResponseWriter, status int, resp Response[T]) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(resp)
}

func respondOK[T any](w http.ResponseWriter, data T) {
	writeJSON(w, http.StatusOK, Response[T]{Success: true, Data: data})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Response[any]{Code: code, Message: message})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondOK(w, map[string]string{"status": "ok"})
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	respondOK(w, s.wb.Snapshot())
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	respondOK(w, Catalog{
		Engines:      models.TemplateEngines(),
		Restrictions: models.CommonRestrictions(),
		DefaultGoal:  forms.DefaultGoal,
	})
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req modeRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	mode, err := models.ParseMode(req.Mode)
	if err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}

	s.wb.SetMode(mode)
	respondOK(w, s.wb.Snapshot())
}

func (s *Server) handleUpdateGenerator(w http.ResponseWriter, r *http.Request) {
	var form forms.GeneratorForm
	if err := decodeBody(w, r, &form); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	if _, err := models.ParseTemplateEngine(string(form.Engine)); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}

	s.wb.UpdateGenerator(form)
	respondOK(w, s.wb.Snapshot())
}

func (s *Server) handleToggleRestriction(w http.ResponseWriter, r *http.Request) {
	var req restrictionRequest
	if err := decodeBody(w, r, &req); err != nil || req.Label == "" {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, "label is required")
		return
	}

	s.wb.ToggleRestriction(req.Label)
	respondOK(w, s.wb.Snapshot())
}

func (s *Server) handleUpdateAuditor(w http.ResponseWriter, r *http.Request) {
	var form forms.AuditorForm
	if err := decodeBody(w, r, &form); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	if form.Engine != nil {
		if _, err := models.ParseTemplateEngine(string(*form.Engine)); err != nil {
			respondError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
			return
		}
	}

	s.wb.UpdateAuditor(form)
	respondOK(w, s.wb.Snapshot())
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	s.respondSubmit(w, s.wb.SubmitGenerate(r.Context()))
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	s.respondSubmit(w, s.wb.SubmitAudit(r.Context()))
}

func (s *Server) respondSubmit(w http.ResponseWriter, err error) {
	snap := s.wb.Snapshot()

	switch {
	case err == nil:
		respondOK(w, snap)
	case errors.Is(err, workbench.ErrBusy):
		respondError(w, http.StatusConflict, CodeBusy, err.Error())
	case errors.Is(err, workbench.ErrEmptySource):
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
	case errors.Is(err, workbench.ErrOperationFailed):
		// the cause is logged by the workbench, the user gets the localized message
		writeJSON(w, http.StatusBadGateway, Response[workbench.Snapshot]{
			Code:    CodeFailed,
			Message: snap.Error,
			Data:    snap,
		})
	default:
		s.log.Err(err, "❌ Submit failed")
		respondError(w, http.StatusInternalServerError, CodeInternal, "internal error")
	}
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	respondOK(w, s.wb.History())
}

func (s *Server) handleLoadHistory(w http.ResponseWriter, r *http.Request) {
	err := s.wb.LoadFromHistory(r.PathValue("id"))
	if errors.Is(err, workbench.ErrHistoryItemNotFound) {
		respondError(w, http.StatusNotFound, CodeNotFound, err.Error())
		return
	}
	if err != nil {
		s.log.Err(err, "❌ History load failed")
		respondError(w, http.StatusInternalServerError, CodeInternal, "internal error")
		return
	}
	respondOK(w, s.wb.Snapshot())
}

func (s *Server) handleDeleteHistory(w http.ResponseWriter, r *http.Request) {
	if err := s.wb.DeleteHistory(r.Context(), r.PathValue("id")); err != nil {
		s.log.Err(err, "❌ History delete failed")
		respondError(w, http.StatusInternalServerError, CodeInternal, "internal error")
		return
	}
	respondOK(w, s.wb.History())
}

func (s *Server) handleInstallOffer(w http.ResponseWriter, r *http.Request) {
	s.wb.OfferInstall()
	respondOK(w, map[string]bool{"installable": s.wb.Installable()})
}

func (s *Server) handleInstallResolve(w http.ResponseWriter, r *http.Request) {
	var req installRequest
	if err := decodeBody(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, err.Error())
		return
	}
	outcome, valid := workbench.ParseInstallOutcome(req.Outcome)
	if !valid {
		respondError(w, http.StatusBadRequest, CodeInvalidRequest, fmt.Sprintf("unknown outcome %q", req.Outcome))
		return
	}

	s.wb.ResolveInstall(outcome)
	respondOK(w, map[string]bool{"installable": s.wb.Installable()})
}
