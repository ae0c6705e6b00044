package recovery

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/docforge/docforge/cache"
	"github.com/docforge/docforge/clock"
	"github.com/docforge/docforge/logger"
)

// StrategyRule maps message substrings to a recovery action, evaluated in
// order, first match wins.
type StrategyRule struct {
	Substrings []string
	Action     Action
}

// DefaultStrategyRules returns the built-in decision table. Rule order
// matters: "Rate limit exceeded: too many requests" must choose RETRY via
// the rate-limit rule even though "service"-adjacent wording would also
// satisfy the fallback rule further down.
func DefaultStrategyRules() []StrategyRule {
	return []StrategyRule{
		{Substrings: []string{"timeout", "connection", "network"}, Action: ActionRetry},
		{Substrings: []string{"rate limit", "too many requests"}, Action: ActionRetry},
		{Substrings: []string{"cache"}, Action: ActionClearCache},
		{Substrings: []string{"unavailable", "service", "503"}, Action: ActionFallback},
		{Substrings: []string{"out of memory", "fatal"}, Action: ActionRestart},
	}
}

// StrategistConfig bounds retry behavior.
type StrategistConfig struct {
	// MaxRetries caps the per-key retry counter. Note that the service
	// wrapper performs at most one inline retry regardless; this ceiling
	// only bounds how long the strategist keeps advising retries for a
	// given service:operation key.
	MaxRetries int

	// RetryDelay is the base backoff; attempt n sleeps RetryDelay * 2^n.
	RetryDelay time.Duration
}

// DefaultStrategistConfig returns the built-in retry bounds.
func DefaultStrategistConfig() StrategistConfig {
	return StrategistConfig{
		MaxRetries: 3,
		RetryDelay: 100 * time.Millisecond,
	}
}

// Strategist chooses a recovery action for a classified error and executes
// its side effects: backoff sleeps and counter bookkeeping for retries,
// wholesale invalidation for cache errors. Choosing and executing are
// separate so the decision table stays testable without side effects.
type Strategist struct {
	cfg   StrategistConfig
	rules []StrategyRule
	clk   clock.Clock
	log   logger.Logger
	cache *cache.Manager // optional; nil disables CLEAR_CACHE execution

	mu       sync.Mutex
	counters map[string]int
}

// NewStrategist creates a strategist with the default decision table.
// cacheManager may be nil when no cache is wired in.
func NewStrategist(cfg StrategistConfig, clk clock.Clock, log logger.Logger, cacheManager *cache.Manager) *Strategist {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultStrategistConfig().MaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultStrategistConfig().RetryDelay
	}
	if log == nil {
		log = logger.NewNop()
	}

	return &Strategist{
		cfg:      cfg,
		rules:    DefaultStrategyRules(),
		clk:      clk,
		log:      log,
		cache:    cacheManager,
		counters: make(map[string]int),
	}
}

// Choose selects the recovery action for an error. A *FatalError always
// maps to restart; a failure inside the cache manager itself always maps
// to clear-cache, whatever its message says.
func (s *Strategist) Choose(err error, errCtx ErrorContext) Action {
	message := ""
	if err != nil {
		message = strings.ToLower(err.Error())
	}

	var fatal *FatalError
	isFatalType := errors.As(err, &fatal)
	isCacheService := strings.Contains(strings.ToLower(errCtx.Service), "cache-manager")

	for _, rule := range s.rules {
		for _, sub := range rule.Substrings {
			if !strings.Contains(message, sub) {
				continue
			}
			return rule.Action
		}
		// Context escapes message matching for two rules: the cache rule
		// also fires on the failing service, the restart rule on the
		// error's type.
		if rule.Action == ActionClearCache && isCacheService {
			return ActionClearCache
		}
		if rule.Action == ActionRestart && isFatalType {
			return ActionRestart
		}
	}
	return ActionManualIntervention
}

// Execute performs the chosen action's side effects and reports whether
// the caller should proceed with it. A successful RETRY result means a
// retry is worth attempting; the strategist never re-invokes the failed
// operation itself.
func (s *Strategist) Execute(ctx context.Context, action Action, err error, errCtx ErrorContext) RecoveryResult {
	switch action {
	case ActionRetry:
		return s.executeRetry(ctx, errCtx)
	case ActionFallback:
		return RecoveryResult{
			Success: true,
			Action:  ActionFallback,
			Message: fmt.Sprintf("service %s degraded, fallback advised for %s", errCtx.Service, errCtx.Operation),
		}
	case ActionClearCache:
		return s.executeClearCache(ctx, err)
	case ActionRestart:
		s.log.Warn().
			Str("service", errCtx.Service).
			Str("operation", errCtx.Operation).
			Msg("restart signal recorded")
		return RecoveryResult{
			Success: true,
			Action:  ActionRestart,
			Message: "restart signal recorded",
		}
	default:
		return RecoveryResult{
			Success: false,
			Action:  ActionManualIntervention,
			Message: "no automatic recovery available",
		}
	}
}

// executeRetry applies exponential backoff and counter bookkeeping.
// The counter is created on first failure for a key and deleted once the
// ceiling is reached (or by ResetRetries on success).
func (s *Strategist) executeRetry(ctx context.Context, errCtx ErrorContext) RecoveryResult {
	key := errCtx.RetryKey()

	s.mu.Lock()
	attempts := s.counters[key]
	if attempts >= s.cfg.MaxRetries {
		delete(s.counters, key)
		s.mu.Unlock()
		return RecoveryResult{
			Success:       false,
			Action:        ActionRetry,
			Message:       fmt.Sprintf("retry limit reached for %s", key),
			RetryAttempts: attempts,
		}
	}
	s.counters[key] = attempts + 1
	s.mu.Unlock()

	delay := s.cfg.RetryDelay * (1 << attempts)
	if err := s.clk.Sleep(ctx, delay); err != nil {
		s.log.Debug().Err(err).Str("key", key).Msg("retry backoff interrupted")
	}

	return RecoveryResult{
		Success:       true,
		Action:        ActionRetry,
		Message:       fmt.Sprintf("retry advised after %s backoff", delay),
		RetryAttempts: attempts + 1,
		TimeToRecover: delay,
	}
}

// executeClearCache wipes every cached entry. Success reflects whether the
// invalidation call itself failed, not whether anything was removed.
func (s *Strategist) executeClearCache(ctx context.Context, cause error) RecoveryResult {
	if s.cache == nil {
		return RecoveryResult{
			Success: false,
			Action:  ActionClearCache,
			Message: "no cache manager wired in",
		}
	}

	reason := "error recovery"
	if cause != nil {
		reason = "error recovery: " + cause.Error()
	}

	removed, err := s.cache.InvalidateByPattern(ctx, "*", reason)
	if err != nil {
		return RecoveryResult{
			Success: false,
			Action:  ActionClearCache,
			Message: "cache invalidation failed: " + err.Error(),
		}
	}
	return RecoveryResult{
		Success: true,
		Action:  ActionClearCache,
		Message: fmt.Sprintf("cleared %d cached entries", removed),
	}
}

// Attempts returns the current retry count for a key. Zero when no
// counter exists.
func (s *Strategist) Attempts(key string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key]
}

// ResetRetries deletes the retry counter for a context. Called by the
// wrapper when a retried operation succeeds.
func (s *Strategist) ResetRetries(errCtx ErrorContext) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counters, errCtx.RetryKey())
}
