package docs_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docforge/docforge/clock"
	"github.com/docforge/docforge/docs"
	"github.com/docforge/docforge/logger"
	"github.com/docforge/docforge/recovery"
)

func writeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	require.NoError(t, os.WriteFile(filepath.Join(root, "greeter.go"), []byte(greeterSource), 0o600))

	sub := filepath.Join(root, "farewell")
	require.NoError(t, os.MkdirAll(sub, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "farewell.go"),
		[]byte("// Package farewell says goodbye.\npackage farewell\n\n// Bye waves.\nfunc Bye() {}\n"), 0o600))

	// Ignored directories never produce packages.
	vendored := filepath.Join(root, "vendor", "dep")
	require.NoError(t, os.MkdirAll(vendored, 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(vendored, "dep.go"),
		[]byte("package dep\n"), 0o600))

	return root
}

func newPipeline(t *testing.T, opts docs.PipelineOptions) *docs.Pipeline {
	t.Helper()
	log := logger.NewNop()
	return docs.NewPipeline(
		docs.NewGoParser(nil, log),
		docs.NewStaticEnhancer(nil, log),
		docs.NewMarkupRenderer(nil, log),
		opts,
		clock.NewManual(time.Now()),
		log,
	)
}

func TestPipelineRecursiveRun(t *testing.T) {
	root := writeTree(t)
	out := t.TempDir()
	p := newPipeline(t, docs.PipelineOptions{
		Recursive: true,
		Exclude:   []string{"*_test.go"},
		Output:    out,
		Format:    docs.FormatMarkdown,
	})

	result, err := p.Run(context.Background(), docs.Command{Name: "parse", Target: root})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Packages)
	assert.False(t, result.Degraded)
	require.Len(t, result.Outputs, 2)

	data, err := os.ReadFile(filepath.Join(out, "greeter.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Package greeter")

	_, err = os.Stat(filepath.Join(out, "farewell.md"))
	assert.NoError(t, err)

	// Vendored code was skipped.
	_, err = os.Stat(filepath.Join(out, "dep.md"))
	assert.True(t, os.IsNotExist(err))
}

func TestPipelineNonRecursiveRun(t *testing.T) {
	root := writeTree(t)
	out := t.TempDir()
	p := newPipeline(t, docs.PipelineOptions{Output: out, Format: docs.FormatJSON})

	result, err := p.Run(context.Background(), docs.Command{Name: "parse", Target: root})
	require.NoError(t, err)

	assert.Equal(t, 1, result.Packages)
	assert.Equal(t, []string{filepath.Join(out, "greeter.json")}, result.Outputs)
}

func TestPipelineCommandFormatOverride(t *testing.T) {
	root := writeTree(t)
	out := t.TempDir()
	p := newPipeline(t, docs.PipelineOptions{Output: out, Format: docs.FormatMarkdown})

	result, err := p.Run(context.Background(), docs.Command{
		Name:   "parse",
		Target: root,
		Format: docs.FormatYAML,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(out, "greeter.yaml")}, result.Outputs)
}

func TestPipelineRejectsUnknownCommand(t *testing.T) {
	p := newPipeline(t, docs.PipelineOptions{Output: t.TempDir()})
	_, err := p.Run(context.Background(), docs.Command{Name: "deploy", Target: "."})
	assert.Error(t, err)
}

func TestPipelineFailsWhenNothingDocumented(t *testing.T) {
	p := newPipeline(t, docs.PipelineOptions{Output: t.TempDir()})
	_, err := p.Run(context.Background(), docs.Command{Name: "parse", Target: t.TempDir()})
	assert.Error(t, err)
}

// flakyEnhancer fails a fixed number of times before succeeding.
type flakyEnhancer struct {
	inner     docs.Enhancer
	failures  int
	callCount int
}

func (f *flakyEnhancer) Enhance(ctx context.Context, pkgDoc *docs.PackageDoc) (*docs.PackageDoc, error) {
	f.callCount++
	if f.callCount <= f.failures {
		return nil, errors.New("enhancement backend unavailable")
	}
	return f.inner.Enhance(ctx, pkgDoc)
}

// A permanently failing enhancement stage degrades the run instead of
// failing it: the wrapped enhancer falls back to the unenhanced doc.
func TestPipelineDegradesWhenEnhancerFallsBack(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "greeter.go"), []byte(greeterSource), 0o600))
	out := t.TempDir()

	clk := clock.NewManual(time.Now())
	log := logger.NewNop()
	cfg := recovery.DefaultHandlerConfig()
	cfg.CacheResults = false
	handler := recovery.NewHandler(cfg, clk, log, nil)

	broken := &flakyEnhancer{inner: docs.NewStaticEnhancer(nil, log), failures: 1 << 30}
	wrapped := docs.NewWrappedEnhancer(broken, recovery.NewWrapper(docs.ServiceEnhancer, handler, clk, log))

	p := docs.NewPipeline(
		docs.NewGoParser(nil, log),
		wrapped,
		docs.NewMarkupRenderer(nil, log),
		docs.PipelineOptions{Output: out, Format: docs.FormatMarkdown},
		clk,
		log,
	)

	result, err := p.Run(context.Background(), docs.Command{Name: "parse", Target: root})
	require.NoError(t, err)
	assert.True(t, result.Degraded)

	data, err := os.ReadFile(filepath.Join(out, "greeter.md"))
	require.NoError(t, err)
	assert.NotContains(t, string(data), ">")
}

// A transiently failing parser recovers through the wrapper's single
// retry and the run completes normally.
func TestPipelineWrappedParserRetries(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "greeter.go"), []byte(greeterSource), 0o600))
	out := t.TempDir()

	clk := clock.NewManual(time.Now())
	log := logger.NewNop()
	cfg := recovery.DefaultHandlerConfig()
	cfg.CacheResults = false
	handler := recovery.NewHandler(cfg, clk, log, nil)

	flaky := &flakyParser{inner: docs.NewGoParser(nil, log), failures: 1}
	wrapped := docs.NewWrappedParser(flaky, recovery.NewWrapper(docs.ServiceParser, handler, clk, log))

	p := docs.NewPipeline(
		wrapped,
		docs.NewStaticEnhancer(nil, log),
		docs.NewMarkupRenderer(nil, log),
		docs.PipelineOptions{Output: out, Format: docs.FormatMarkdown},
		clk,
		log,
	)

	result, err := p.Run(context.Background(), docs.Command{Name: "parse", Target: root})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Packages)
	assert.False(t, result.Degraded)
	assert.Equal(t, 2, flaky.callCount)
}

type flakyParser struct {
	inner     docs.Parser
	failures  int
	callCount int
}

func (f *flakyParser) Parse(ctx context.Context, req docs.PackageRequest) (*docs.PackageDoc, error) {
	f.callCount++
	if f.callCount <= f.failures {
		return nil, errors.New("transient read timeout")
	}
	return f.inner.Parse(ctx, req)
}
