package docs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/docforge/docforge/clock"
	"github.com/docforge/docforge/logger"
)

// PipelineOptions configures a documentation run.
type PipelineOptions struct {
	// Recursive walks the target tree; otherwise only the target
	// directory itself is documented.
	Recursive bool

	// Include and Exclude are glob patterns on source base names.
	Include []string
	Exclude []string

	// Output is the directory rendered files are written to.
	Output string

	// Format is the default output format; Command.Format overrides it.
	Format Format
}

// Pipeline chains parse, enhance, and render over a source tree. It is
// the Runner implementation behind the parse command.
type Pipeline struct {
	parser   Parser
	enhancer Enhancer
	renderer Renderer
	opts     PipelineOptions
	clk      clock.Clock
	log      logger.Logger
}

// NewPipeline assembles a pipeline from the three stage capabilities.
// The stages are interfaces, so callers choose wrapped or bare variants.
func NewPipeline(parser Parser, enhancer Enhancer, renderer Renderer, opts PipelineOptions, clk clock.Clock, log logger.Logger) *Pipeline {
	if opts.Format == "" {
		opts.Format = FormatMarkdown
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Pipeline{
		parser:   parser,
		enhancer: enhancer,
		renderer: renderer,
		opts:     opts,
		clk:      clk,
		log:      log,
	}
}

// Run executes one command. Per-package failures are logged and skipped;
// the run fails only when no package could be documented.
func (p *Pipeline) Run(ctx context.Context, cmd Command) (*CommandResult, error) {
	if cmd.Name != "parse" {
		return nil, fmt.Errorf("unknown command %q", cmd.Name)
	}
	if cmd.Target == "" {
		return nil, fmt.Errorf("no target directory given")
	}

	format := p.opts.Format
	if cmd.Format != "" {
		if !cmd.Format.Valid() {
			return nil, fmt.Errorf("unknown format %q", cmd.Format)
		}
		format = cmd.Format
	}

	start := p.clk.Now()

	dirs, err := p.discover(cmd.Target)
	if err != nil {
		return nil, err
	}

	result := &CommandResult{Command: cmd.Name}
	var firstErr error
	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		output, degraded, err := p.document(ctx, dir, format)
		if err != nil {
			p.log.Warn().Err(err).Str("dir", dir).Msg("skipping package")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		result.Packages++
		result.Outputs = append(result.Outputs, output)
		result.Degraded = result.Degraded || degraded
	}

	result.Duration = p.clk.Now().Sub(start)

	if result.Packages == 0 {
		if firstErr != nil {
			return nil, fmt.Errorf("no packages documented under %s: %w", cmd.Target, firstErr)
		}
		return nil, fmt.Errorf("no packages documented under %s", cmd.Target)
	}

	p.log.Info().
		Str("target", cmd.Target).
		Int("packages", result.Packages).
		Bool("degraded", result.Degraded).
		Dur("duration", result.Duration).
		Msg("documentation run complete")
	return result, nil
}

// discover lists directories containing Go files, honoring Recursive.
func (p *Pipeline) discover(target string) ([]string, error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, fmt.Errorf("target %s: %w", target, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("target %s is not a directory", target)
	}

	if !p.opts.Recursive {
		return []string{target}, nil
	}

	seen := make(map[string]bool)
	var dirs []string
	err = filepath.WalkDir(target, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != target && (strings.HasPrefix(name, ".") || name == "vendor" || name == "testdata") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".go") {
			dir := filepath.Dir(path)
			if !seen[dir] {
				seen[dir] = true
				dirs = append(dirs, dir)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dirs, nil
}

// document runs the three stages for one package directory and writes
// the rendered file. Degraded means the enhancement stage fell back.
func (p *Pipeline) document(ctx context.Context, dir string, format Format) (string, bool, error) {
	pkgDoc, err := p.parser.Parse(ctx, PackageRequest{
		Dir:     dir,
		Include: p.opts.Include,
		Exclude: p.opts.Exclude,
	})
	if err != nil {
		return "", false, err
	}

	enhanced, err := p.enhancer.Enhance(ctx, pkgDoc)
	if err != nil {
		return "", false, err
	}
	degraded := !enhanced.Enhanced

	rendered, err := p.renderer.Render(ctx, enhanced, format)
	if err != nil {
		return "", false, err
	}

	if err := os.MkdirAll(p.opts.Output, 0o750); err != nil {
		return "", false, err
	}
	output := filepath.Join(p.opts.Output, enhanced.Name+format.Extension())
	if err := os.WriteFile(output, rendered, 0o600); err != nil {
		return "", false, err
	}

	return output, degraded, nil
}
