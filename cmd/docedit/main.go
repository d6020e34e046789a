package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"docedit/internal/config"
	"docedit/internal/engine"
	"docedit/internal/intent"
	"docedit/internal/section"
	"docedit/internal/storage"
	"docedit/internal/toc"

	"github.com/spf13/cobra"
)

var (
	rootCmd = &cobra.Command{
		Use:   "docedit",
		Short: "Semantic document edit engine",
	}
	dbPath     string
	docPath    string
	tocPath    string
	reportPath string
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "Path to the document store database (SQLite)")

	applyCmd.Flags().StringVar(&docPath, "doc", "", "Markdown file to seed the store with before applying")
	applyCmd.Flags().StringVar(&tocPath, "toc", "", "TOC JSON file (derived from the document when omitted)")
	applyCmd.Flags().StringVar(&reportPath, "report", "", "Write the execution report to this path")
	validateCmd.Flags().StringVar(&docPath, "doc", "", "Markdown file to validate against (overrides the store)")
	validateCmd.Flags().StringVar(&tocPath, "toc", "", "TOC JSON file (derived from the document when omitted)")

	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(tocCmd)
}

func initStore(cfg *config.Config) (*storage.SQLiteStore, error) {
	path := dbPath
	if path == "" {
		path = cfg.Store.Path
	}
	return storage.NewSQLiteStore(path)
}

func engineOptions(cfg *config.Config) engine.Options {
	return engine.Options{
		EstimateCharsPerLine: cfg.Engine.EstimateCharsPerLine,
		Locator: section.LocatorOptions{
			MaxSuggestions:      cfg.Engine.MaxSuggestions,
			SimilarityThreshold: cfg.Engine.SimilarityThreshold,
			PreviewLines:        cfg.Engine.PreviewLines,
		},
	}
}

// resolveTOC loads the TOC file when given, otherwise derives one from the
// document's markdown headings.
func resolveTOC(text string) ([]*toc.Node, error) {
	if tocPath != "" {
		roots, err := toc.Load(tocPath)
		if err != nil {
			return nil, err
		}
		if err := toc.Validate(roots); err != nil {
			return nil, fmt.Errorf("invalid TOC: %w", err)
		}
		return roots, nil
	}
	return toc.BuildFromMarkdown(text), nil
}

var applyCmd = &cobra.Command{
	Use:   "apply [batch.json]",
	Short: "Apply an edit batch to a stored document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cfg, err := config.LoadConfig("config.yaml")
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		batch, err := intent.LoadBatch(args[0])
		if err != nil {
			log.Fatalf("Failed to load batch: %v", err)
		}

		store, err := initStore(cfg)
		if err != nil {
			log.Fatalf("Failed to open document store: %v", err)
		}
		defer store.Close()

		if docPath != "" {
			body, err := os.ReadFile(docPath)
			if err != nil {
				log.Fatalf("Failed to read document file: %v", err)
			}
			if err := store.Put(ctx, batch.Document, string(body)); err != nil {
				log.Fatalf("Failed to seed document store: %v", err)
			}
			fmt.Printf("📥 Seeded %s from %s\n", batch.Document, docPath)
		}

		text, err := store.Read(ctx, batch.Document)
		if err != nil {
			log.Fatalf("Failed to read document: %v", err)
		}
		roots, err := resolveTOC(text)
		if err != nil {
			log.Fatalf("Failed to resolve TOC: %v", err)
		}

		fmt.Printf("🚀 Applying %d intents to %s...\n", len(batch.Intents), batch.Document)
		eng := engine.New(store, engineOptions(cfg))
		report, err := eng.Execute(ctx, batch.Document, roots, batch.Intents)
		if err != nil {
			if report != nil && report.ErrorCode == engine.ErrApplyFailed {
				log.Fatalf("Commit failed, no edits were applied: %v", err)
			}
			log.Fatalf("Execution failed: %v", err)
		}

		printSummary(report)
		if reportPath != "" {
			if err := report.Save(reportPath); err != nil {
				log.Fatalf("Failed to write report: %v", err)
			}
			fmt.Printf("📊 Report written to %s\n", reportPath)
		}
		if len(report.FailedIntents) > 0 {
			os.Exit(1)
		}
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate [batch.json]",
	Short: "Resolve every intent in a batch without applying anything",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		cfg, err := config.LoadConfig("config.yaml")
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		batch, err := intent.LoadBatch(args[0])
		if err != nil {
			log.Fatalf("Failed to load batch: %v", err)
		}

		var text string
		if docPath != "" {
			body, err := os.ReadFile(docPath)
			if err != nil {
				log.Fatalf("Failed to read document file: %v", err)
			}
			text = string(body)
		} else {
			store, err := initStore(cfg)
			if err != nil {
				log.Fatalf("Failed to open document store: %v", err)
			}
			defer store.Close()
			text, err = store.Read(ctx, batch.Document)
			if err != nil {
				log.Fatalf("Failed to read document: %v", err)
			}
		}

		roots, err := resolveTOC(text)
		if err != nil {
			log.Fatalf("Failed to resolve TOC: %v", err)
		}

		eng := engine.New(nil, engineOptions(cfg))
		report := eng.Validate(text, roots, batch.Intents)
		printSummary(report)
		if len(report.FailedIntents) > 0 {
			os.Exit(1)
		}
	},
}

var tocCmd = &cobra.Command{
	Use:   "toc [document.md]",
	Short: "Derive a TOC tree from a markdown document and print it as JSON",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		body, err := os.ReadFile(args[0])
		if err != nil {
			log.Fatalf("Failed to read document file: %v", err)
		}
		roots := toc.BuildFromMarkdown(string(body))
		out, err := json.MarshalIndent(roots, "", "  ")
		if err != nil {
			log.Fatalf("Failed to encode TOC: %v", err)
		}
		fmt.Println(string(out))
	},
}

func printSummary(report *engine.ExecutionReport) {
	fmt.Printf("✅ %d/%d intents succeeded (%d ms)\n",
		report.SuccessfulIntents, report.TotalIntents, report.DurationMS)
	for _, w := range report.Warnings {
		fmt.Printf("  ⚠️  [%s] %s\n", w.Kind, w.Message)
	}
	for _, f := range report.FailedIntents {
		fmt.Printf("  ❌ %s on %s: %s\n", f.ErrorCode, f.Intent.Target.SID, f.Error)
		if f.Suggestion != "" {
			fmt.Printf("     → %s (retryable: %v)\n", f.Suggestion, f.CanRetry)
		}
	}
}
