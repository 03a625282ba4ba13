package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/firebase/genkit/go/ai"
	genkitcore "github.com/firebase/genkit/go/core"
	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/rs/zerolog/log"
)

// Reasoner - внешний текстовый completion. Ответ недоверенный, разбирать через ParseJSONResponse.
type Reasoner interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ReasonerFunc позволяет использовать функцию как Reasoner
type ReasonerFunc func(ctx context.Context, prompt string) (string, error)

func (f ReasonerFunc) Complete(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// ErrReasonerUnavailable возвращается, когда LLM не сконфигурирован
var ErrReasonerUnavailable = errors.New("reasoner unavailable")

// Unavailable - Reasoner, который всегда падает. Используется без API ключа:
// все стадии тогда идут по детерминированным fallback путям.
type Unavailable struct{}

func (Unavailable) Complete(context.Context, string) (string, error) {
	return "", ErrReasonerUnavailable
}

// CompletionRequest - input for the completion flow
type CompletionRequest struct {
	Prompt string `json:"prompt"`
}

// CompletionResponse - output from the completion flow
type CompletionResponse struct {
	Text string `json:"text"`
}

// GenkitReasoner implements Reasoner on top of a single Genkit flow
type GenkitReasoner struct {
	flow      *genkitcore.Flow[*CompletionRequest, *CompletionResponse, struct{}]
	modelName string
}

// NewGenkitReasoner initializes Genkit with the Google AI plugin and defines the completion flow
func NewGenkitReasoner(ctx context.Context, apiKey, modelName string) *GenkitReasoner {
	g := genkit.Init(
		ctx,
		genkit.WithPlugins(
			&googlegenai.GoogleAI{
				APIKey: apiKey,
			},
		),
		genkit.WithDefaultModel(modelName),
	)

	return &GenkitReasoner{
		flow:      DefineCompletionFlow(g, modelName),
		modelName: modelName,
	}
}

// DefineCompletionFlow creates the completion Genkit flow
func DefineCompletionFlow(
	g *genkit.Genkit,
	modelName string,
) *genkitcore.Flow[*CompletionRequest, *CompletionResponse, struct{}] {
	return genkit.DefineFlow(
		g,
		"completionFlow",
		func(ctx context.Context, req *CompletionRequest) (*CompletionResponse, error) {
			// Check context early
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("context cancelled before completion: %w", err)
			}

			resp, err := genkit.Generate(
				ctx,
				g,
				ai.WithModelName(modelName),
				ai.WithPrompt(req.Prompt),
			)
			if err != nil {
				return nil, fmt.Errorf("completion LLM failed: %w", err)
			}

			return &CompletionResponse{Text: resp.Text()}, nil
		},
	)
}

// Complete runs the completion flow once. No retries.
func (r *GenkitReasoner) Complete(ctx context.Context, prompt string) (string, error) {
	log.Debug().Str("model", r.modelName).Int("prompt_chars", len(prompt)).Msg("🧠 Sending completion")

	out, err := r.flow.Run(ctx, &CompletionRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}
	return out.Text, nil
}

// ModelName returns the configured model identifier.
func (r *GenkitReasoner) ModelName() string {
	return r.modelName
}
