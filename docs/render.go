package docs

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/docforge/docforge/cache"
	"github.com/docforge/docforge/logger"
)

// MarkupRenderer renders package docs as Markdown, JSON, or YAML.
// Rendered output is cached under the generation category keyed by
// content hash and format.
type MarkupRenderer struct {
	cache *cache.Manager // optional
	log   logger.Logger
}

// NewMarkupRenderer creates a renderer. cacheManager may be nil.
func NewMarkupRenderer(cacheManager *cache.Manager, log logger.Logger) *MarkupRenderer {
	if log == nil {
		log = logger.NewNop()
	}
	return &MarkupRenderer{cache: cacheManager, log: log}
}

// Render serializes the doc in the requested format.
func (r *MarkupRenderer) Render(ctx context.Context, pkgDoc *PackageDoc, format Format) ([]byte, error) {
	if pkgDoc == nil {
		return nil, fmt.Errorf("nil package doc")
	}
	if !format.Valid() {
		return nil, fmt.Errorf("unknown format %q", format)
	}

	key := renderKey(pkgDoc, format)
	if key != "" && r.cache != nil {
		if data, found, err := r.cache.GetGenerated(ctx, key); err == nil && found {
			return data, nil
		}
	}

	var (
		data []byte
		err  error
	)
	switch format {
	case FormatJSON:
		data, err = json.MarshalIndent(pkgDoc, "", "  ")
	case FormatYAML:
		data, err = yaml.Marshal(pkgDoc)
	default:
		data = renderMarkdown(pkgDoc)
	}
	if err != nil {
		return nil, fmt.Errorf("rendering %s as %s: %w", pkgDoc.Name, format, err)
	}

	if key != "" && r.cache != nil {
		if cerr := r.cache.SetGenerated(ctx, key, data); cerr != nil {
			r.log.Warn().Err(cerr).Str("key", key).Msg("failed to cache rendered output")
		}
	}
	return data, nil
}

// renderKey is empty when the doc has no content hash, which disables
// caching rather than colliding on an empty key.
func renderKey(pkgDoc *PackageDoc, format Format) string {
	if pkgDoc.ContentHash == "" {
		return ""
	}
	return pkgDoc.ContentHash + ":" + string(format)
}

func renderMarkdown(pkgDoc *PackageDoc) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# Package %s\n\n", pkgDoc.Name)
	if pkgDoc.Summary != "" {
		fmt.Fprintf(&b, "> %s\n\n", pkgDoc.Summary)
	}
	if pkgDoc.Doc != "" {
		b.WriteString(pkgDoc.Doc)
		b.WriteString("\n\n")
	}

	if len(pkgDoc.Types) > 0 {
		b.WriteString("## Types\n\n")
		for _, t := range pkgDoc.Types {
			fmt.Fprintf(&b, "### %s\n\n", t.Name)
			if t.Doc != "" {
				b.WriteString(t.Doc)
				b.WriteString("\n\n")
			}
			for _, method := range t.Methods {
				writeFunc(&b, method, "#### ")
			}
		}
	}

	if len(pkgDoc.Funcs) > 0 {
		b.WriteString("## Functions\n\n")
		for _, fn := range pkgDoc.Funcs {
			writeFunc(&b, fn, "### ")
		}
	}

	return []byte(b.String())
}

func writeFunc(b *strings.Builder, fn FuncDoc, heading string) {
	fmt.Fprintf(b, "%s%s\n\n", heading, fn.Name)
	if fn.Signature != "" {
		// Signature reads "func(args) results"; splice the name in.
		fmt.Fprintf(b, "```go\nfunc %s%s\n```\n\n", fn.Name, strings.TrimPrefix(fn.Signature, "func"))
	}
	if fn.Doc != "" {
		b.WriteString(fn.Doc)
		b.WriteString("\n\n")
	}
}
