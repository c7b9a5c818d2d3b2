package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Mode selects which workbench panel is active and tags history items
type Mode string

const (
	ModeGenerator Mode = "generator"
	ModeAuditor   Mode = "auditor"
)

// ParseMode validates a mode name
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeGenerator, ModeAuditor:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown mode %q", s)
}

// GeneratorRecord is the request/response pair of a generator run
type GeneratorRecord struct {
	Request  PayloadRequest
	Response GeneratedPayload
}

// AuditorRecord is the request/response pair of an auditor run
type AuditorRecord struct {
	Request  CodeAnalysisRequest
	Response CodeAnalysisResponse
}

// HistoryItem is one completed operation. Exactly one of Generator and
// Auditor is set and it always matches Type.
type HistoryItem struct {
	ID        string
	Timestamp time.Time
	Type      Mode
	Generator *GeneratorRecord
	Auditor   *AuditorRecord
}

// NewGeneratorItem wraps a successful generation
func NewGeneratorItem(req PayloadRequest, resp GeneratedPayload) HistoryItem {
	return HistoryItem{
		ID:        newHistoryID(),
		Timestamp: time.Now(),
		Type:      ModeGenerator,
		Generator: &GeneratorRecord{Request: req, Response: resp},
	}
}

// NewAuditorItem wraps a successful audit
func NewAuditorItem(req CodeAnalysisRequest, resp CodeAnalysisResponse) HistoryItem {
	return HistoryItem{
		ID:        newHistoryID(),
		Timestamp: time.Now(),
		Type:      ModeAuditor,
		Auditor:   &AuditorRecord{Request: req, Response: resp},
	}
}

func newHistoryID() string {
	return uuid.New().String()[:8]
}

var errMismatchedItem = errors.New("history item payload does not match its type")

// Validate checks the tag/payload invariant
func (h HistoryItem) Validate() error {
	if h.ID == "" {
		return errors.New("history item has no id")
	}
	switch h.Type {
	case ModeGenerator:
		if h.Generator == nil || h.Auditor != nil {
			return errMismatchedItem
		}
	case ModeAuditor:
		if h.Auditor == nil || h.Generator != nil {
			return errMismatchedItem
		}
	default:
		return fmt.Errorf("unknown history item type %q", h.Type)
	}
	return nil
}

// historyItemJSON is the persisted shape: {id, timestamp, type, request, response}
type historyItemJSON struct {
	ID        string          `json:"id"`
	Timestamp int64           `json:"timestamp"`
	Type      Mode            `json:"type"`
	Request   json.RawMessage `json:"request"`
	Response  json.RawMessage `json:"response"`
}

func (h HistoryItem) MarshalJSON() ([]byte, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}

	var req, resp any
	switch h.Type {
	case ModeGenerator:
		req, resp = h.Generator.Request, h.Generator.Response
	case ModeAuditor:
		req, resp = h.Auditor.Request, h.Auditor.Response
	}

	reqJSON, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	respJSON, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}

	return json.Marshal(historyItemJSON{
		ID:        h.ID,
		Timestamp: h.Timestamp.UnixMilli(),
		Type:      h.Type,
		Request:   reqJSON,
		Response:  respJSON,
	})
}

func (h *HistoryItem) UnmarshalJSON(data []byte) error {
	var raw historyItemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw.Request) == 0 || len(raw.Response) == 0 {
		return errors.New("history item is missing request or response")
	}

	item := HistoryItem{
		ID:        raw.ID,
		Timestamp: time.UnixMilli(raw.Timestamp),
		Type:      raw.Type,
	}

	switch raw.Type {
	case ModeGenerator:
		rec := &GeneratorRecord{}
		if err := json.Unmarshal(raw.Request, &rec.Request); err != nil {
			return fmt.Errorf("generator request: %w", err)
		}
		if err := json.Unmarshal(raw.Response, &rec.Response); err != nil {
			return fmt.Errorf("generator response: %w", err)
		}
		item.Generator = rec
	case ModeAuditor:
		rec := &AuditorRecord{}
		if err := json.Unmarshal(raw.Request, &rec.Request); err != nil {
			return fmt.Errorf("auditor request: %w", err)
		}
		if err := json.Unmarshal(raw.Response, &rec.Response); err != nil {
			return fmt.Errorf("auditor response: %w", err)
		}
		item.Auditor = rec
	default:
		return fmt.Errorf("unknown history item type %q", raw.Type)
	}

	if err := item.Validate(); err != nil {
		return err
	}
	*h = item
	return nil
}
