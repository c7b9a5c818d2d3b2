// Package workbench is the state controller behind the page: active mode,
// both forms, the last result of each mode, the shared loading/error slots
// and the history.
package workbench

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/BetterCallFirewall/ssti-master/internal/forms"
	"github.com/BetterCallFirewall/ssti-master/internal/llm"
	"github.com/BetterCallFirewall/ssti-master/internal/logger"
	"github.com/BetterCallFirewall/ssti-master/internal/models"
	"github.com/BetterCallFirewall/ssti-master/internal/storage"
	"golang.org/x/sync/semaphore"
)

// Messages shown when a completion call fails, whatever the cause
const (
	GenerateFailedMessage = "Payload 生成失败。模型可能无法针对此 WAF 规则找到有效的绕过方案。"
	AuditFailedMessage    = "源代码审计失败。模型在深度追踪污染链时遇到阻碍，请确保代码逻辑的可读性。"
)

var (
	// ErrBusy is returned when a completion call is already in flight
	ErrBusy = errors.New("a request is already in progress")
	// ErrOperationFailed wraps completion failures surfaced to the user
	ErrOperationFailed = errors.New("operation failed")
	// ErrEmptySource means there is nothing to audit
	ErrEmptySource = errors.New("source code is empty")

	ErrHistoryItemNotFound = errors.New("history item not found")
)

// Options are the optional collaborators of a Workbench
type Options struct {
	Publisher Publisher
	Observer  Observer
}

type Workbench struct {
	completer llm.Completer
	history   *storage.HistoryStore
	publisher Publisher
	observer  Observer
	log       logger.Logger

	// one completion at a time across both modes
	gate *semaphore.Weighted

	mu          sync.RWMutex
	mode        models.Mode
	generator   forms.GeneratorForm
	auditor     forms.AuditorForm
	genResult   *models.GeneratedPayload
	auditResult *models.CodeAnalysisResponse
	status      Status
	errMsg      string
	installable bool
}

// New creates a workbench over an already loaded history store
func New(completer llm.Completer, history *storage.HistoryStore, log logger.Logger, opts Options) *Workbench {
	if opts.Publisher == nil {
		opts.Publisher = nopPublisher{}
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}

	w := &Workbench{
		completer: completer,
		history:   history,
		publisher: opts.Publisher,
		observer:  opts.Observer,
		log:       log,
		gate:      semaphore.NewWeighted(1),
		mode:      models.ModeGenerator,
		generator: forms.NewGeneratorForm(),
		status:    StatusIdle,
	}
	w.observer.HistorySize(history.Len())
	return w
}

// SubmitGenerate runs the payload generation for the current generator form
func (w *Workbench) SubmitGenerate(ctx context.Context) error {
	if !w.gate.TryAcquire(1) {
		w.observer.SubmitRejected(models.ModeGenerator)
		return ErrBusy
	}
	defer w.gate.Release(1)

	w.mu.Lock()
	req := w.generator.Build()
	w.startLocked()
	w.mu.Unlock()
	w.publish()

	w.log.Info("🧪 Generating payload", "engine", req.Engine, "restrictions", len(req.Restrictions))

	start := time.Now()
	// the call is not cancellable once dispatched
	result, err := w.completer.GeneratePayload(context.WithoutCancel(ctx), &req)
	w.observer.CompletionFinished(models.ModeGenerator, err == nil, time.Since(start).Seconds())

	if err != nil {
		w.log.Err(err, "❌ Payload generation failed", "engine", req.Engine)
		w.fail(GenerateFailedMessage)
		return fmt.Errorf("%w: %w", ErrOperationFailed, err)
	}

	w.mu.Lock()
	w.genResult = result
	w.mu.Unlock()

	w.remember(ctx, models.NewGeneratorItem(req, *result))
	w.finish()

	w.log.Info("✅ Payload generated", "engine", result.Engine, "chain_steps", len(result.PollutionChain))
	return nil
}

// SubmitAudit runs the source audit for the current auditor form.
// An empty source is rejected before any state changes.
func (w *Workbench) SubmitAudit(ctx context.Context) error {
	w.mu.RLock()
	ready := w.auditor.Ready()
	w.mu.RUnlock()
	if !ready {
		return ErrEmptySource
	}

	if !w.gate.TryAcquire(1) {
		w.observer.SubmitRejected(models.ModeAuditor)
		return ErrBusy
	}
	defer w.gate.Release(1)

	w.mu.Lock()
	req := w.auditor.Build()
	w.startLocked()
	w.mu.Unlock()
	w.publish()

	w.log.Info("🔍 Auditing source", "bytes", len(req.SourceCode))

	start := time.Now()
	result, err := w.completer.AnalyzeSource(context.WithoutCancel(ctx), &req)
	w.observer.CompletionFinished(models.ModeAuditor, err == nil, time.Since(start).Seconds())

	if err != nil {
		w.log.Err(err, "❌ Source audit failed", "bytes", len(req.SourceCode))
		w.fail(AuditFailedMessage)
		return fmt.Errorf("%w: %w", ErrOperationFailed, err)
	}

	w.mu.Lock()
	w.auditResult = result
	w.mu.Unlock()

	w.remember(ctx, models.NewAuditorItem(req, *result))
	w.finish()

	w.log.Info("✅ Audit complete", "vulnerable", result.VulnerabilityFound, "chain_steps", len(result.PollutionChain))
	return nil
}

// LoadFromHistory switches to the item's mode and overwrites that mode's
// form and result with the stored request and response.
func (w *Workbench) LoadFromHistory(id string) error {
	item, ok := w.history.Get(id)
	if !ok {
		return ErrHistoryItemNotFound
	}

	w.mu.Lock()
	w.mode = item.Type
	switch item.Type {
	case models.ModeGenerator:
		w.generator.Restore(item.Generator.Request)
		resp := item.Generator.Response
		w.genResult = &resp
	case models.ModeAuditor:
		w.auditor.Restore(item.Auditor.Request)
		resp := item.Auditor.Response
		w.auditResult = &resp
	}
	w.errMsg = ""
	if w.status != StatusLoading {
		w.status = StatusIdle
	}
	w.mu.Unlock()

	w.publish()
	return nil
}

// DeleteHistory removes one history entry. Unknown ids are ignored.
func (w *Workbench) DeleteHistory(ctx context.Context, id string) error {
	if err := w.history.Remove(ctx, id); err != nil {
		return err
	}
	w.observer.HistorySize(w.history.Len())
	w.publish()
	return nil
}

func (w *Workbench) History() []models.HistoryItem {
	return w.history.All()
}

func (w *Workbench) SetMode(mode models.Mode) {
	w.mu.Lock()
	w.mode = mode
	w.mu.Unlock()
	w.publish()
}

// UpdateGenerator replaces the generator form fields. A nil Restrictions
// keeps the current selection and its toggle order.
func (w *Workbench) UpdateGenerator(form forms.GeneratorForm) {
	w.mu.Lock()
	if form.Restrictions == nil {
		form.Restrictions = w.generator.Restrictions
	}
	form.Restrictions = append([]string{}, form.Restrictions...)
	w.generator = form
	w.mu.Unlock()
	w.publish()
}

// UpdateAuditor replaces the auditor form fields
func (w *Workbench) UpdateAuditor(form forms.AuditorForm) {
	w.mu.Lock()
	w.auditor.Restore(form.Build())
	w.mu.Unlock()
	w.publish()
}

// ToggleRestriction flips one restriction label in the generator form
func (w *Workbench) ToggleRestriction(label string) {
	w.mu.Lock()
	w.generator.ToggleRestriction(label)
	w.mu.Unlock()
	w.publish()
}

// OfferInstall records that the page can be installed
func (w *Workbench) OfferInstall() {
	w.mu.Lock()
	w.installable = true
	w.mu.Unlock()
	w.publish()
}

func (w *Workbench) Installable() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.installable
}

// ResolveInstall consumes the install offer when the user accepted it
func (w *Workbench) ResolveInstall(outcome InstallOutcome) {
	if outcome != InstallAccepted {
		return
	}
	w.mu.Lock()
	w.installable = false
	w.mu.Unlock()
	w.publish()
}

// Snapshot returns a copy of the current state
func (w *Workbench) Snapshot() Snapshot {
	history := w.history.All()

	w.mu.RLock()
	defer w.mu.RUnlock()

	generator := w.generator
	generator.Restrictions = slices.Clone(w.generator.Restrictions)
	var auditor forms.AuditorForm
	auditor.Restore(w.auditor.Build())

	return Snapshot{
		Mode:        w.mode,
		Generator:   generator,
		Auditor:     auditor,
		GenResult:   w.genResult,
		AuditResult: w.auditResult,
		Status:      w.status,
		Loading:     w.status == StatusLoading,
		Error:       w.errMsg,
		History:     history,
		Installable: w.installable,
	}
}

// startLocked clears the error slot and enters loading; caller holds mu
func (w *Workbench) startLocked() {
	w.errMsg = ""
	w.status = StatusLoading
}

func (w *Workbench) fail(message string) {
	w.mu.Lock()
	w.errMsg = message
	w.status = StatusFailed
	w.mu.Unlock()
	w.publish()
}

func (w *Workbench) finish() {
	w.mu.Lock()
	w.status = StatusSucceeded
	w.mu.Unlock()
	w.publish()
}

// remember appends to the history. A persistence failure keeps the
// in-memory entry and does not fail the operation.
func (w *Workbench) remember(ctx context.Context, item models.HistoryItem) {
	if err := w.history.Append(context.WithoutCancel(ctx), item); err != nil {
		w.log.Warn("⚠️ History entry not persisted", "id", item.ID, "error", err.Error())
	}
	w.observer.HistorySize(w.history.Len())
}

func (w *Workbench) publish() {
	w.publisher.Publish(w.Snapshot())
}
