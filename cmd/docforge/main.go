// Command docforge generates package documentation from Go source trees,
// with cached parsing and error recovery around every pipeline stage.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docforge/docforge/app"
	"github.com/docforge/docforge/config"
	"github.com/docforge/docforge/docs"
	"github.com/docforge/docforge/logger"
)

var configPath string

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "docforge",
		Short: "Documentation generator for Go source trees",
		Long: `docforge parses Go source files and renders package documentation
as Markdown, JSON, or YAML. Parse results are cached by content hash and
every pipeline stage runs under an error recovery layer.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "Path to configuration file")

	root.AddCommand(parseCmd(), cacheCmd(), errorsCmd())
	return root
}

// buildApp loads configuration and assembles the object graph.
func buildApp() (*app.App, *config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	a, err := app.New(cfg, log)
	if err != nil {
		return nil, nil, err
	}
	return a, cfg, nil
}

func parseCmd() *cobra.Command {
	var (
		recursive bool
		include   []string
		exclude   []string
		output    string
		format    string
	)

	cmd := &cobra.Command{
		Use:   "parse [path]",
		Short: "Parse Go source files and generate documentation",
		Long: `Parse Go source files in the given path and render package
documentation. Flags override the corresponding configuration keys.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, cfg, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Shutdown(cmd.Context())

			// Flag overrides apply after config load, so only flags the
			// user actually set take effect.
			if cmd.Flags().Changed("recursive") {
				cfg.Docs.Recursive = recursive
			}
			if cmd.Flags().Changed("include") {
				cfg.Docs.Include = include
			}
			if cmd.Flags().Changed("exclude") {
				cfg.Docs.Exclude = exclude
			}
			if cmd.Flags().Changed("output") {
				cfg.Docs.Output = output
			}
			if cmd.Flags().Changed("format") {
				cfg.Docs.Format = format
			}

			result, err := a.Runner().Run(cmd.Context(), docs.Command{
				Name:   "parse",
				Target: args[0],
				Format: docs.Format(cfg.Docs.Format),
			})
			if err != nil {
				return err
			}

			fmt.Printf("Documented %d packages in %s", result.Packages, result.Duration)
			if result.Degraded {
				fmt.Print(" (degraded)")
			}
			fmt.Println()
			for _, path := range result.Outputs {
				fmt.Println("  " + path)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", true, "Parse directories recursively")
	cmd.Flags().StringSliceVarP(&include, "include", "i", nil, "Include patterns for files")
	cmd.Flags().StringSliceVarP(&exclude, "exclude", "e", nil, "Exclude patterns for files")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output directory for documentation")
	cmd.Flags().StringVarP(&format, "format", "f", "", "Output format (markdown, json, yaml)")
	return cmd
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect the result cache",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Print cache statistics and health",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Shutdown(cmd.Context())

			out := struct {
				Stats  any `json:"stats"`
				Health any `json:"health"`
			}{a.Cache().Stats(), a.Cache().HealthStatus()}
			return printJSON(out)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "clear [pattern]",
		Short: "Invalidate cached entries matching a pattern (default: everything)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, _, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Shutdown(cmd.Context())

			pattern := "*"
			if len(args) == 1 {
				pattern = args[0]
			}
			removed, err := a.Cache().InvalidateByPattern(cmd.Context(), pattern, "cli clear")
			if err != nil {
				return err
			}
			fmt.Printf("Invalidated %d entries\n", removed)
			return nil
		},
	})

	return cmd
}

func errorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "errors",
		Short: "Inspect error recovery statistics",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Export recovery analytics and the error log as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, _, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Shutdown(cmd.Context())

			data, err := a.Recovery().ExportStatistics()
			if err != nil {
				return err
			}
			fmt.Println(string(data))
			return nil
		},
	})

	return cmd
}

func printJSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}
