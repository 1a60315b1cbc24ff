package slr

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Gateway sends one work unit to the model with bounded exponential backoff
// on rate-limit signals. It holds no per-run state.
type Gateway struct {
	invoker     Invoker
	prompts     PromptProvider
	clock       Clock
	log         *slog.Logger
	model       string
	temperature float32
	maxAttempts int
	baseDelay   time.Duration
}

// NewGateway builds a gateway from resolved options.
func NewGateway(inv Invoker, opts Options) *Gateway {
	g := &Gateway{
		invoker:     inv,
		prompts:     opts.Prompts,
		clock:       opts.Clock,
		log:         opts.Logger,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxAttempts: opts.MaxAttempts,
		baseDelay:   opts.RetryBaseDelay,
	}
	if g.prompts == nil {
		g.prompts = DefaultPrompts()
	}
	if g.clock == nil {
		g.clock = realClock{}
	}
	if g.log == nil {
		g.log = slog.Default()
	}
	if g.maxAttempts < 1 {
		g.maxAttempts = DefaultMaxAttempts
	}
	return g
}

// BuildRequest renders the payload for unit. Text batches become a single
// text part; files become the blob plus an instruction wrapper naming the file.
func (g *Gateway) BuildRequest(unit WorkUnit, instruction string) (Request, error) {
	req := Request{
		Model:             g.model,
		SystemInstruction: instruction,
		Temperature:       g.temperature,
	}

	switch unit.Kind {
	case ModeText:
		prompt, err := g.prompts.Render(PromptTextBatch, map[string]any{
			"batch":   unit.Content(),
			"records": len(unit.Records),
		})
		if err != nil {
			return Request{}, err
		}
		req.Parts = []*Part{NewTextPart(prompt)}
	case ModeFile:
		prompt, err := g.prompts.Render(PromptFileUnit, map[string]any{
			"name": unit.Name,
		})
		if err != nil {
			return Request{}, err
		}
		req.Parts = []*Part{NewBlobPart(unit.Payload, unit.MimeType), NewTextPart(prompt)}
	default:
		return Request{}, fmt.Errorf("unit %s: unknown kind %q", unit.ID, unit.Kind)
	}
	return req, nil
}

// Invoke returns the raw model output for unit. Rate-limited attempts are
// retried after 2^attempt * base delay; any other failure is returned at once.
// Every failure is a *ModelError wrapping the last error seen.
func (g *Gateway) Invoke(ctx context.Context, unit WorkUnit, instruction string) (string, error) {
	req, err := g.BuildRequest(unit, instruction)
	if err != nil {
		return "", &ModelError{Unit: unit.Label(), Attempts: 0, Err: fmt.Errorf("build request: %w", err)}
	}

	var lastErr error
	for attempt := 0; attempt < g.maxAttempts; attempt++ {
		out, err := g.invoker.Generate(ctx, req)
		if err == nil {
			if attempt > 0 {
				g.log.Debug("Attempt succeeded", "unit", unit.Label(), "attempt", attempt+1)
			}
			return out, nil
		}

		if !IsRateLimit(err) {
			g.log.Debug("Non-retryable model failure", "unit", unit.Label(), "attempt", attempt+1, "error", err)
			return "", &ModelError{Unit: unit.Label(), Attempts: attempt + 1, Err: err}
		}

		lastErr = err
		delay := backoff(g.baseDelay, attempt)
		g.log.Warn("Rate limited, backing off", "unit", unit.Label(), "attempt", attempt+1, "delay", delay)
		if serr := g.clock.Sleep(ctx, delay); serr != nil {
			return "", &ModelError{Unit: unit.Label(), Attempts: attempt + 1, Err: serr}
		}
	}

	if lastErr == nil {
		lastErr = ErrRetriesExhausted
	}
	g.log.Debug("Retries exhausted", "unit", unit.Label(), "attempts", g.maxAttempts, "error", lastErr)
	return "", &ModelError{Unit: unit.Label(), Attempts: g.maxAttempts, Err: lastErr}
}

// maxBackoff caps a single retry wait.
const maxBackoff = 10 * time.Minute

// backoff returns 2^attempt * base, capped at maxBackoff.
func backoff(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	if attempt > 62 {
		return maxBackoff
	}
	d := base << attempt
	if d <= 0 || d>>attempt != base || d > maxBackoff {
		return maxBackoff
	}
	return d
}
