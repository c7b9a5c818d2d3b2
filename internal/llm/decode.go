package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/BetterCallFirewall/ssti-master/internal/models"
	"github.com/tidwall/gjson"
)

// ErrCompletionFailed wraps every failure of a completion call
var ErrCompletionFailed = errors.New("completion failed")

// ParseError means the service answered but the text was not the expected JSON object
type ParseError struct {
	Operation string
	TextLen   int
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: unparseable reply (%d bytes): %v", e.Operation, e.TextLen, e.Err)
}

func (e *ParseError) Unwrap() []error { return []error{ErrCompletionFailed, e.Err} }

var (
	errEmptyReply = errors.New("empty reply")
	errNotObject  = errors.New("reply is not a JSON object")
)

// DecodePayload parses the generation reply
func DecodePayload(text string) (*models.GeneratedPayload, error) {
	var out models.GeneratedPayload
	if err := decodeObject("payload", text, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// DecodeAudit parses the audit reply
func DecodeAudit(text string) (*models.CodeAnalysisResponse, error) {
	var out models.CodeAnalysisResponse
	if err := decodeObject("audit", text, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func decodeObject(operation, text string, v any) error {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return &ParseError{Operation: operation, Err: errEmptyReply}
	}
	if !gjson.Valid(trimmed) {
		return &ParseError{Operation: operation, TextLen: len(text), Err: errors.New("invalid JSON")}
	}
	if !gjson.Parse(trimmed).IsObject() {
		return &ParseError{Operation: operation, TextLen: len(text), Err: errNotObject}
	}
	if err := json.Unmarshal([]byte(trimmed), v); err != nil {
		return &ParseError{Operation: operation, TextLen: len(text), Err: err}
	}
	return nil
}

// failed tags a transport/service error so callers can treat all failures alike
func failed(operation string, err error) error {
	return fmt.Errorf("%s: %w: %w", operation, ErrCompletionFailed, err)
}
