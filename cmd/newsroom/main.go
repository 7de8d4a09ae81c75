package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deusflow/newsroom/internal/app"
	"github.com/deusflow/newsroom/internal/config"
	"github.com/deusflow/newsroom/internal/extract"
	"github.com/deusflow/newsroom/internal/logger"
)

var version = "dev"

var (
	v           = viper.New()
	flagPreview int
)

var rootCmd = &cobra.Command{
	Use:           "newsroom",
	Short:         "News aggregation service with LLM summaries and search",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the feed, enrichment and search API",
	RunE:  runServe,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Aggregate every feed once and print the items as JSON",
	RunE:  runFetch,
}

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer a question from news search results",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("newsroom %s\n", version)
	},
}

func init() {
	config.SetDefaults(v)
	if err := config.BindFlags(rootCmd.PersistentFlags(), v); err != nil {
		panic(err)
	}
	fetchCmd.Flags().IntVar(&flagPreview, "preview", 0, "print a plain-text preview of the first N items instead of JSON")

	rootCmd.AddCommand(serveCmd, fetchCmd, askCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func setup() (*config.Config, error) {
	cfg, err := config.Load(v)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	logger.Init(cfg.Debug)
	return cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger.Logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return a.Serve(ctx)
}

func runFetch(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	a, err := app.NewFeeds(cfg, logger.Logger)
	if err != nil {
		return err
	}

	items, err := a.Aggregator.Items(cmd.Context())
	if err != nil {
		return err
	}

	if flagPreview <= 0 {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(items)
	}

	for i, n := range items {
		if i >= flagPreview {
			break
		}
		fmt.Println("---")
		fmt.Printf("[%s, %s] %s\n", n.Category, n.Source, n.Title)
		fmt.Printf("%s\n", n.PubDate)
		fmt.Printf("%s\n", extract.Truncate(extract.Text(n.Body()), 280))
		fmt.Printf("%s\n", n.Link)
	}
	return nil
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := setup()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := app.New(ctx, cfg, logger.Logger)
	if err != nil {
		return err
	}
	defer a.Close()
	if a.Bridge == nil {
		return fmt.Errorf("ask needs a completion backend: set LLM_API_URL and LLM_API_KEY (or GEMINI_API_KEY)")
	}

	answer, err := a.Bridge.Answer(ctx, strings.Join(args, " "))
	if err != nil {
		return err
	}

	fmt.Println(answer.Text)
	if len(answer.Results) > 0 {
		fmt.Println()
		fmt.Println("Sources:")
		for _, r := range answer.Results {
			fmt.Printf("- %s (%s)\n", r.Title, r.URL)
		}
	}
	return nil
}
