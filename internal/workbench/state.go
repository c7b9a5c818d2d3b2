package workbench

import (
	"github.com/BetterCallFirewall/ssti-master/internal/forms"
	"github.com/BetterCallFirewall/ssti-master/internal/models"
)

// Status is the lifecycle of the most recent completion call
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// InstallOutcome is the user's answer to the install prompt
type InstallOutcome string

const (
	InstallAccepted  InstallOutcome = "accepted"
	InstallDismissed InstallOutcome = "dismissed"
)

// ParseInstallOutcome validates an outcome sent by the page
func ParseInstallOutcome(s string) (InstallOutcome, bool) {
	switch InstallOutcome(s) {
	case InstallAccepted, InstallDismissed:
		return InstallOutcome(s), true
	}
	return "", false
}

// Snapshot is a copy of everything the page renders
type Snapshot struct {
	Mode        models.Mode                  `json:"mode"`
	Generator   forms.GeneratorForm          `json:"generator"`
	Auditor     forms.AuditorForm            `json:"auditor"`
	GenResult   *models.GeneratedPayload     `json:"genResult"`
	AuditResult *models.CodeAnalysisResponse `json:"auditResult"`
	Status      Status                       `json:"status"`
	Loading     bool                         `json:"loading"`
	Error       string                       `json:"error,omitempty"`
	History     []models.HistoryItem         `json:"history"`
	Installable bool                         `json:"installable"`
}

// Publisher receives a snapshot after every state change
type Publisher interface {
	Publish(Snapshot)
}

// Observer collects operational measurements
type Observer interface {
	CompletionFinished(op models.Mode, ok bool, seconds float64)
	SubmitRejected(op models.Mode)
	HistorySize(n int)
}

type nopPublisher struct{}

func (nopPublisher) Publish(Snapshot) {}

type nopObserver struct{}

func (nopObserver) CompletionFinished(models.Mode, bool, float64) {}
func (nopObserver) SubmitRejected(models.Mode) {}
func (nopObserver) HistorySize(int) {}
