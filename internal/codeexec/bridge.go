// Package codeexec bridges coding questions to the external execution
// sandbox and normalizes results into transient session output.
package codeexec

import (
	"context"
	"strings"

	"github.com/hirewise/assessment-backend/internal/model"
	"github.com/hirewise/assessment-backend/internal/session"
	"github.com/rs/zerolog"
)

// DefaultLanguage is assumed when the client does not name one.
const DefaultLanguage = "python"

// Sandbox executes candidate code remotely. Implementations return a
// TransportError when the service is unreachable.
type Sandbox interface {
	Execute(ctx context.Context, code, language string) (model.ExecutionResult, error)
}

// Bridge submits the current code draft to the sandbox. It never mutates
// the stored Answer; results land only in the machine's transient output,
// and only when the candidate has not navigated away in the meantime.
type Bridge struct {
	sandbox Sandbox
	log     zerolog.Logger
}

// NewBridge creates a Bridge.
func NewBridge(sandbox Sandbox, log zerolog.Logger) *Bridge {
	return &Bridge{
		sandbox: sandbox,
		log:     log.With().Str("component", "code_bridge").Logger(),
	}
}

// Run executes the machine's current code draft. An empty or missing
// draft fails with a ValidationError before the sandbox is contacted.
// Sandbox unavailability degrades to a simulated result marked as such,
// never a raw transport error. The applied return reports whether the
// result was stored as transient output or discarded as stale.
func (b *Bridge) Run(ctx context.Context, m *session.Machine, language string) (result model.ExecutionResult, applied bool, err error) {
	code, epoch, err := m.CurrentCodeDraft()
	if err != nil {
		return model.ExecutionResult{}, false, err
	}
	if language == "" {
		language = DefaultLanguage
	}

	result, execErr := b.sandbox.Execute(ctx, code, language)
	if execErr != nil {
		b.log.Warn().Err(execErr).Msg("Sandbox unavailable, returning simulated result")
		result = simulate(code)
	}

	applied = m.ApplyExecution(epoch, result)
	if !applied {
		b.log.Debug().Uint64("epoch", epoch).Msg("Execution result arrived after navigation, discarded")
	}
	return result, applied, nil
}

// simulate produces the offline fallback result. Simulated is set so the
// UI and audit trail can tell it apart from a genuine sandbox run.
func simulate(code string) model.ExecutionResult {
	output := "Code executed successfully (offline mode - no actual execution)"
	if strings.Contains(code, "print") {
		output = "Hello, World! (simulated output)"
	}
	return model.ExecutionResult{
		Succeeded: true,
		Output:    output,
		Simulated: true,
	}
}
