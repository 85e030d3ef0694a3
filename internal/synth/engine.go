// Package synth contains the per-facet report synthesizers. Each builds a
// prompt from typed inputs, runs it through the structured extraction client,
// and maps the result into the facet's report shape. On extraction failure a
// synthesizer returns a deterministic degraded report instead of an error, so
// no facet stage ever hard-fails once its inputs exist.
package synth

import (
	"context"
	"encoding/json"

	"importscout/internal/ai"
	"importscout/internal/logger"
	"importscout/internal/store/redisstore"
)

// Completer is the extraction-client surface the synthesizers use. Satisfied
// by *ai.Client; tests substitute fakes.
type Completer interface {
	Complete(ctx context.Context, req ai.Request) (json.RawMessage, error)
}

type Engine struct {
	ai    Completer
	cache *redisstore.Store
	log   *logger.Logger
}

// NewEngine builds the synthesizer set. cache may be nil; cached lookups
// then always go to the model.
func NewEngine(completer Completer, cache *redisstore.Store, log *logger.Logger) *Engine {
	return &Engine{
		ai:    completer,
		cache: cache,
		log:   log.With("service", "Synth"),
	}
}

// complete runs one extraction call and decodes the result into out.
func (e *Engine) complete(ctx context.Context, req ai.Request, out any) error {
	raw, err := e.ai.Complete(ctx, req)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
