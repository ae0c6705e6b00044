package docs

import (
	"context"

	"github.com/docforge/docforge/recovery"
)

// Service names for wrapped stages. The classifier's service rules key
// off these, so a parse failure lands in the PARSING category and so on.
const (
	ServiceParser   = "go-parser"
	ServiceEnhancer = "ai-enhancer"
	ServiceRenderer = "site-generator"
)

// WrappedParser runs a Parser under a recovery wrapper.
type WrappedParser struct {
	inner Parser
	w     *recovery.Wrapper
}

// NewWrappedParser wraps a parser with the recovery pipeline.
func NewWrappedParser(inner Parser, w *recovery.Wrapper) *WrappedParser {
	return &WrappedParser{inner: inner, w: w}
}

// Parse delegates to the inner parser; transient failures earn one
// retry per the wrapper's policy. There is no degraded parse, so no
// fallback is supplied.
func (p *WrappedParser) Parse(ctx context.Context, req PackageRequest) (*PackageDoc, error) {
	res, err := recovery.Execute(ctx, p.w, "Parse",
		map[string]any{"dir": req.Dir},
		func(ctx context.Context) (*PackageDoc, error) {
			return p.inner.Parse(ctx, req)
		}, nil)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// WrappedEnhancer runs an Enhancer under a recovery wrapper. Its
// fallback returns the doc unenhanced, so a failing enhancement stage
// degrades output instead of failing the pipeline.
type WrappedEnhancer struct {
	inner Enhancer
	w     *recovery.Wrapper
}

// NewWrappedEnhancer wraps an enhancer with the recovery pipeline.
func NewWrappedEnhancer(inner Enhancer, w *recovery.Wrapper) *WrappedEnhancer {
	return &WrappedEnhancer{inner: inner, w: w}
}

// Enhance delegates to the inner enhancer, falling back to the
// unenhanced doc when recovery advises it.
func (e *WrappedEnhancer) Enhance(ctx context.Context, pkgDoc *PackageDoc) (*PackageDoc, error) {
	res, err := recovery.Execute(ctx, e.w, "Enhance",
		map[string]any{"package": pkgDoc.Name},
		func(ctx context.Context) (*PackageDoc, error) {
			return e.inner.Enhance(ctx, pkgDoc)
		},
		func(context.Context) (*PackageDoc, error) {
			unenhanced := *pkgDoc
			return &unenhanced, nil
		})
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}

// WrappedRenderer runs a Renderer under a recovery wrapper.
type WrappedRenderer struct {
	inner Renderer
	w     *recovery.Wrapper
}

// NewWrappedRenderer wraps a renderer with the recovery pipeline.
func NewWrappedRenderer(inner Renderer, w *recovery.Wrapper) *WrappedRenderer {
	return &WrappedRenderer{inner: inner, w: w}
}

// Render delegates to the inner renderer.
func (r *WrappedRenderer) Render(ctx context.Context, pkgDoc *PackageDoc, format Format) ([]byte, error) {
	res, err := recovery.Execute(ctx, r.w, "Render",
		map[string]any{"package": pkgDoc.Name, "format": string(format)},
		func(ctx context.Context) ([]byte, error) {
			return r.inner.Render(ctx, pkgDoc, format)
		}, nil)
	if err != nil {
		return nil, err
	}
	return res.Value, nil
}
