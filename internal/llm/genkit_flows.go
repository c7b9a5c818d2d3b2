package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/BetterCallFirewall/ssti-master/internal/config"
	"github.com/BetterCallFirewall/ssti-master/internal/logger"
	"github.com/BetterCallFirewall/ssti-master/internal/models"
	"github.com/firebase/genkit/go/ai"
	genkitcore "github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
)

// DefinePayloadFlow creates the payload generation Genkit flow
func DefinePayloadFlow(
	g *genkit.Genkit,
	modelName string,
	log logger.Logger,
) *genkitcore.Flow[*models.PayloadRequest, *models.GeneratedPayload, struct{}] {
	return genkit.DefineFlow(
		g,
		"payloadFlow",
		func(ctx context.Context, req *models.PayloadRequest) (*models.GeneratedPayload, error) {
			log.Debug("🧪 Generating payload", "engine", req.Engine, "restrictions", len(req.Restrictions))

			prompt := BuildPayloadPrompt(req)

			// raw user text: sent as a message, never as a format string
			resp, err := genkit.Generate(
				ctx,
				g,
				ai.WithModelName(modelName),
				ai.WithMessages(ai.NewUserTextMessage(prompt)),
				ai.WithOutputType(models.GeneratedPayload{}),
			)
			if err != nil {
				return nil, generateFailed("payload", err)
			}

			result, err := DecodePayload(resp.Text())
			if err != nil {
				return nil, err
			}

			log.Debug("✅ Payload generated", "chain_steps", len(result.PollutionChain))
			return result, nil
		},
	)
}

// DefineAuditFlow creates the source audit Genkit flow
func DefineAuditFlow(
	g *genkit.Genkit,
	modelName string,
	log logger.Logger,
) *genkitcore.Flow[*models.CodeAnalysisRequest, *models.CodeAnalysisResponse, struct{}] {
	return genkit.DefineFlow(
		g,
		"auditFlow",
		func(ctx context.Context, req *models.CodeAnalysisRequest) (*models.CodeAnalysisResponse, error) {
			log.Debug("🔍 Auditing source", "bytes", len(req.SourceCode))

			prompt := BuildAuditPrompt(req)

			resp, err := genkit.Generate(
				ctx,
				g,
				ai.WithModelName(modelName),
				ai.WithMessages(ai.NewUserTextMessage(prompt)),
				ai.WithOutputType(models.CodeAnalysisResponse{}),
			)
			if err != nil {
				return nil, generateFailed("audit", err)
			}

			result, err := DecodeAudit(resp.Text())
			if err != nil {
				return nil, err
			}

			log.Debug("✅ Audit complete", "vulnerable", result.VulnerabilityFound, "chain_steps", len(result.PollutionChain))
			return result, nil
		},
	)
}

// GenkitCompleter runs both operations as Genkit flows
type GenkitCompleter struct {
	payloadFlow *genkitcore.Flow[*models.PayloadRequest, *models.GeneratedPayload, struct{}]
	auditFlow   *genkitcore.Flow[*models.CodeAnalysisRequest, *models.CodeAnalysisResponse, struct{}]
}

var _ Completer = (*GenkitCompleter)(nil)

// NewGenkitCompleter initializes Genkit with the Google AI plugin
func NewGenkitCompleter(ctx context.Context, cfg config.LLMConfig, log logger.Logger) *GenkitCompleter {
	genkitApp := genkit.Init(
		ctx,
		genkit.WithPlugins(
			&googlegenai.GoogleAI{
				APIKey: cfg.ApiKey,
			},
		),
		genkit.WithDefaultModel("googleai/"+cfg.Model),
	)
	log.Info("✅ Genkit initialized", "model", cfg.Model)

	return NewGenkitCompleterWithApp(genkitApp, "googleai/"+cfg.Model, log)
}

// NewGenkitCompleterWithApp defines the flows on an existing Genkit instance
func NewGenkitCompleterWithApp(g *genkit.Genkit, modelName string, log logger.Logger) *GenkitCompleter {
	return &GenkitCompleter{
		payloadFlow: DefinePayloadFlow(g, modelName, log),
		auditFlow:   DefineAuditFlow(g, modelName, log),
	}
}

func (c *GenkitCompleter) GeneratePayload(ctx context.Context, req *models.PayloadRequest) (*models.GeneratedPayload, error) {
	// the flow input schema wants an array, never null
	if req.Restrictions == nil {
		clone := *req
		clone.Restrictions = []string{}
		req = &clone
	}

	out, err := c.payloadFlow.Run(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("payload flow: %w", err)
	}
	return out, nil
}

func (c *GenkitCompleter) AnalyzeSource(ctx context.Context, req *models.CodeAnalysisRequest) (*models.CodeAnalysisResponse, error) {
	out, err := c.auditFlow.Run(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("audit flow: %w", err)
	}
	return out, nil
}

// schemaMismatch is how genkit reports a reply its output formatter rejected
const schemaMismatch = "failed to generate output matching expected schema"

// generateFailed maps a reply rejected by genkit's JSON formatter to a
// ParseError, like DecodePayload does on the genai path
func generateFailed(operation string, err error) error {
	var gerr *genkitcore.GenkitError
	if errors.As(err, &gerr) && strings.Contains(gerr.Message, schemaMismatch) {
		return &ParseError{Operation: operation, Err: err}
	}
	return failed(operation, err)
}
