package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/ragify/internal/core/domain"
	"github.com/custodia-labs/ragify/internal/core/ports/driven"
)

// Ensure ConfigValidator implements the interface.
var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// DefaultPingTimeout bounds each provider check.
const DefaultPingTimeout = 5 * time.Second

// ConfigValidator checks provider settings by building the service and pinging it.
type ConfigValidator struct {
	timeout time.Duration
}

// NewConfigValidator creates a validator. A non-positive timeout selects
// DefaultPingTimeout.
func NewConfigValidator(timeout ...time.Duration) *ConfigValidator {
	v := &ConfigValidator{timeout: DefaultPingTimeout}
	if len(timeout) > 0 && timeout[0] > 0 {
		v.timeout = timeout[0]
	}
	return v
}

// ValidateEmbedding fails for an unconfigured provider, an unknown model or
// an unreachable service.
func (v *ConfigValidator) ValidateEmbedding(config *domain.EmbeddingSettings) error {
	if config == nil || !config.IsConfigured() {
		return fmt.Errorf("%w: embedding provider is not configured", domain.ErrInvalidInput)
	}

	svc, err := CreateEmbeddingService(config)
	if err != nil {
		return err
	}
	defer svc.Close()
	return v.ping(svc.Ping)
}

// ValidateLLM pings the configured model. No model is not an error:
// knowledge can be built without one.
func (v *ConfigValidator) ValidateLLM(config *domain.LLMSettings) error {
	if config == nil || !config.IsConfigured() {
		return nil
	}

	svc, err := CreateLLMService(config)
	if err != nil {
		return err
	}
	defer svc.Close()
	return v.ping(svc.Ping)
}

func (v *ConfigValidator) ping(fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), v.timeout)
	defer cancel()
	return fn(ctx)
}
