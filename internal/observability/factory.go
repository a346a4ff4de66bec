package observability

import (
	"strings"

	"github.com/JeremyAll/ai-code-generator-v2-sub002/internal/utils"
)

const (
	ProviderConsole = "console"
	ProviderNoop    = "noop"
)

// GetTracerWithLogger returns a Tracer implementation for the provider
// string. Unknown providers fall back to noop.
func GetTracerWithLogger(provider string, logger utils.ExtendedLogger) Tracer {
	switch strings.ToLower(provider) {
	case ProviderConsole:
		return NewConsoleTracer(logger)
	case ProviderNoop:
		return NoopTracer{}
	default:
		return NoopTracer{}
	}
}
