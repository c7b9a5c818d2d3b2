package llm

import (
	"context"
	"fmt"

	"github.com/BetterCallFirewall/ssti-master/internal/config"
	"github.com/BetterCallFirewall/ssti-master/internal/logger"
	"github.com/BetterCallFirewall/ssti-master/internal/models"
)

// Completer is the remote completion service seen by the workbench.
// Calls are single-shot: one attempt, no retry.
type Completer interface {
	GeneratePayload(ctx context.Context, req *models.PayloadRequest) (*models.GeneratedPayload, error)
	AnalyzeSource(ctx context.Context, req *models.CodeAnalysisRequest) (*models.CodeAnalysisResponse, error)
}

// NewCompleter builds the backend selected by LLM_PROVIDER
func NewCompleter(ctx context.Context, cfg config.LLMConfig, log logger.Logger) (Completer, error) {
	switch cfg.Provider {
	case config.ProviderGenkit:
		return NewGenkitCompleter(ctx, cfg, log), nil
	case config.ProviderGenai:
		return NewGenaiCompleter(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("unsupported LLM provider %q", cfg.Provider)
	}
}
