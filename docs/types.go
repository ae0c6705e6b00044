// Package docs turns Go source trees into rendered package documentation.
// Parsing, enhancement, and rendering are separate capabilities so each
// stage can be cached and wrapped with recovery independently.
package docs

import (
	"context"
	"time"
)

// Format selects the rendered output format.
type Format string

const (
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatYAML     Format = "yaml"
)

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	switch f {
	case FormatMarkdown, FormatJSON, FormatYAML:
		return true
	}
	return false
}

// Extension returns the file extension for the format, dot included.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	default:
		return ".md"
	}
}

// PackageRequest describes one directory to document.
type PackageRequest struct {
	// Dir is the directory holding the package's source files. The
	// pipeline expands directory trees before issuing per-package
	// requests, so Dir is always a single package directory here.
	Dir string

	// Include and Exclude are glob patterns matched against base names.
	// An empty Include list admits every .go file.
	Include []string
	Exclude []string
}

// FuncDoc documents one function or method.
type FuncDoc struct {
	Name      string `json:"name" yaml:"name"`
	Doc       string `json:"doc,omitempty" yaml:"doc,omitempty"`
	Signature string `json:"signature" yaml:"signature"`
	Receiver  string `json:"receiver,omitempty" yaml:"receiver,omitempty"`
}

// TypeDoc documents one exported type with its methods.
type TypeDoc struct {
	Name    string    `json:"name" yaml:"name"`
	Doc     string    `json:"doc,omitempty" yaml:"doc,omitempty"`
	Methods []FuncDoc `json:"methods,omitempty" yaml:"methods,omitempty"`
}

// PackageDoc is the parsed documentation for one package.
type PackageDoc struct {
	Name  string `json:"name" yaml:"name"`
	Dir   string `json:"dir" yaml:"dir"`
	Doc   string `json:"doc,omitempty" yaml:"doc,omitempty"`
	Files []string `json:"files" yaml:"files"`

	Types []TypeDoc `json:"types,omitempty" yaml:"types,omitempty"`
	Funcs []FuncDoc `json:"funcs,omitempty" yaml:"funcs,omitempty"`

	// ContentHash fingerprints the source files the doc was built from.
	ContentHash string `json:"content_hash" yaml:"content_hash"`

	// Summary and Enhanced are filled by the enhancement stage.
	Summary  string `json:"summary,omitempty" yaml:"summary,omitempty"`
	Enhanced bool   `json:"enhanced,omitempty" yaml:"enhanced,omitempty"`
}

// Command is one pipeline invocation.
type Command struct {
	// Name selects the command; "parse" is the only built-in.
	Name string

	// Target is the root directory to document.
	Target string

	// Format overrides the configured output format when set.
	Format Format
}

// CommandResult summarizes one pipeline run.
type CommandResult struct {
	Command  string        `json:"command"`
	Packages int           `json:"packages"`
	Outputs  []string      `json:"outputs"`
	Degraded bool          `json:"degraded"`
	Duration time.Duration `json:"duration"`
}

// Parser extracts documentation from a package directory.
type Parser interface {
	Parse(ctx context.Context, req PackageRequest) (*PackageDoc, error)
}

// Enhancer augments a parsed package doc, typically with a summary.
type Enhancer interface {
	Enhance(ctx context.Context, doc *PackageDoc) (*PackageDoc, error)
}

// Renderer serializes a package doc into one output format.
type Renderer interface {
	Render(ctx context.Context, doc *PackageDoc, format Format) ([]byte, error)
}

// Runner executes a pipeline command end to end.
type Runner interface {
	Run(ctx context.Context, cmd Command) (*CommandResult, error)
}
