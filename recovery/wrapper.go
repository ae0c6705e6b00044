package recovery

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/docforge/docforge/clock"
	"github.com/docforge/docforge/logger"
)

// Operation is a wrapped unit of work returning a value of type T.
type Operation[T any] func(ctx context.Context) (T, error)

// Result carries a wrapped operation's value plus how it was obtained.
// Degraded is set when the value came from a fallback, so callers can
// distinguish degraded responses from normal ones.
type Result[T any] struct {
	Value    T
	Degraded bool
	Recovery *RecoveryResult
}

// Wrapper decorates a service's operations with the recovery pipeline.
// On failure it consults the Handler and performs at most one additional
// attempt; a successful FALLBACK decision invokes the caller-supplied
// fallback instead.
type Wrapper struct {
	service string
	handler *Handler
	clk     clock.Clock
	log     logger.Logger
	custom  CustomRecovery
}

// NewWrapper creates a wrapper for one named service. The service name
// feeds classification, so wrappers for the parsing stage should carry
// names the classifier's service rules recognize ("go-parser",
// "cache-manager", ...).
func NewWrapper(service string, handler *Handler, clk clock.Clock, log logger.Logger) *Wrapper {
	if log == nil {
		log = logger.NewNop()
	}
	return &Wrapper{
		service: service,
		handler: handler,
		clk:     clk,
		log:     log,
	}
}

// WithCustomRecovery sets a recovery function tried before the decision
// table for every operation this wrapper executes.
func (w *Wrapper) WithCustomRecovery(fn CustomRecovery) *Wrapper {
	w.custom = fn
	return w
}

// Service returns the wrapped service's name.
func (w *Wrapper) Service() string {
	return w.service
}

// Handler exposes the underlying recovery handler, mainly so callers can
// inspect analytics or register alert sinks for a shared handler.
func (w *Wrapper) Handler() *Handler {
	return w.handler
}

// newContext builds a fresh ErrorContext for one call.
func (w *Wrapper) newContext(operation string, params map[string]any) ErrorContext {
	return ErrorContext{
		Service:   w.service,
		Operation: operation,
		Params:    params,
		RequestID: uuid.NewString(),
		StartTime: w.clk.Now(),
	}
}

// Execute runs fn under the wrapper's recovery policy.
//
// Semantics, in order:
//  1. fn succeeds on the first call: the result is returned directly with
//     no classifier or cache involvement.
//  2. fn fails and the handler advises a successful RETRY: fn is invoked
//     exactly once more. Two invocations is the ceiling regardless of the
//     strategist's retry budget. If the retry also fails, a new error
//     carrying only the retry failure's message is returned.
//  3. Otherwise, a successful recovery with a fallback present invokes
//     the fallback and tags the result degraded.
//  4. Otherwise the original error is returned unchanged.
func Execute[T any](ctx context.Context, w *Wrapper, operation string, params map[string]any, fn Operation[T], fallback Operation[T]) (Result[T], error) {
	var zero Result[T]

	errCtx := w.newContext(operation, params)

	value, err := fn(ctx)
	if err == nil {
		return Result[T]{Value: value}, nil
	}

	recovery := w.handler.Handle(ctx, err, errCtx, w.custom)

	if recovery.Success && recovery.Action == ActionRetry {
		retried, retryErr := fn(ctx)
		if retryErr == nil {
			w.handler.ResetRetries(errCtx)
			return Result[T]{Value: retried, Recovery: &recovery}, nil
		}
		// The original error is not carried past this point; only the
		// retry failure's message survives.
		return zero, fmt.Errorf("%s.%s failed after retry: %s", w.service, operation, retryErr.Error())
	}

	if recovery.Success && fallback != nil {
		fbValue, fbErr := fallback(ctx)
		if fbErr != nil {
			w.log.Warn().
				Err(fbErr).
				Str("service", w.service).
				Str("operation", operation).
				Msg("fallback failed")
			return zero, fbErr
		}
		return Result[T]{Value: fbValue, Degraded: true, Recovery: &recovery}, nil
	}

	return zero, err
}
