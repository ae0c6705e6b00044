package docs

import (
	"context"
	"fmt"
	"strings"

	"github.com/docforge/docforge/cache"
	"github.com/docforge/docforge/logger"
)

// StaticEnhancer fills the summary stage deterministically from the
// parsed doc. It stands where a model-backed enhancer would plug in; the
// Enhancer interface is the seam. Summaries are cached under the ai
// category keyed by content hash.
type StaticEnhancer struct {
	cache *cache.Manager // optional
	log   logger.Logger
}

// NewStaticEnhancer creates an enhancer. cacheManager may be nil.
func NewStaticEnhancer(cacheManager *cache.Manager, log logger.Logger) *StaticEnhancer {
	if log == nil {
		log = logger.NewNop()
	}
	return &StaticEnhancer{cache: cacheManager, log: log}
}

// Enhance sets Summary and marks the doc enhanced. The input is not
// mutated.
func (e *StaticEnhancer) Enhance(ctx context.Context, pkgDoc *PackageDoc) (*PackageDoc, error) {
	if pkgDoc == nil {
		return nil, fmt.Errorf("nil package doc")
	}

	out := *pkgDoc

	if summary, ok := e.fromCache(ctx, pkgDoc.ContentHash); ok {
		out.Summary = summary
		out.Enhanced = true
		return &out, nil
	}

	out.Summary = summarize(pkgDoc)
	out.Enhanced = true

	e.toCache(ctx, pkgDoc.ContentHash, out.Summary)
	return &out, nil
}

// summarize prefers the doc comment's first sentence and falls back to a
// synthesized inventory line.
func summarize(pkgDoc *PackageDoc) string {
	if pkgDoc.Doc != "" {
		if sentence := firstSentence(pkgDoc.Doc); sentence != "" {
			return sentence
		}
	}
	return fmt.Sprintf("Package %s exposes %d types and %d functions.",
		pkgDoc.Name, len(pkgDoc.Types), len(pkgDoc.Funcs))
}

func firstSentence(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if idx := strings.Index(text, ". "); idx >= 0 {
		return text[:idx+1]
	}
	return text
}

func (e *StaticEnhancer) fromCache(ctx context.Context, hash string) (string, bool) {
	if e.cache == nil || hash == "" {
		return "", false
	}
	data, found, err := e.cache.GetAIResult(ctx, hash)
	if err != nil || !found {
		return "", false
	}
	summary, err := cache.Unmarshal[string](data)
	if err != nil {
		return "", false
	}
	return summary, true
}

func (e *StaticEnhancer) toCache(ctx context.Context, hash, summary string) {
	if e.cache == nil || hash == "" {
		return
	}
	data, err := cache.Marshal(summary)
	if err != nil {
		return
	}
	if err := e.cache.SetAIResult(ctx, hash, data); err != nil {
		e.log.Warn().Err(err).Str("hash", hash).Msg("failed to cache summary")
	}
}
