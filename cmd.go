package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type rootOptions struct {
	configPath string
	logLevel   string
	logger     *zap.Logger
	cfg        *Config
}

// newRootCommand creates the CLI. Without a subcommand it serves HTTP.
func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "savings-advisor",
		Short: "Savings suggestions from a bank transaction export",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadDotEnv(); err != nil {
				return err
			}
			level := opts.logLevel
			if level == "" {
				level = os.Getenv(envLogLevel)
			}
			logger, err := newLogger(level)
			if err != nil {
				return fmt.Errorf("creating logger: %w", err)
			}
			opts.logger = logger

			cfg, err := LoadConfig(opts.configPath, logger)
			if err != nil {
				return err
			}
			opts.cfg = cfg
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			if opts.logger != nil {
				_ = opts.logger.Sync()
			}
		},
		RunE: func(_ *cobra.Command, _ []string) error {
			return runServer(opts.cfg, opts.logger)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file (defaults to $CONFIG_FILE)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(newServeCommand(opts))
	rootCmd.AddCommand(newSuggestCommand(opts))

	return rootCmd
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web interface",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if port != "" {
				opts.cfg.Port = port
			}
			return runServer(opts.cfg, opts.logger)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "listen port (overrides $PORT)")
	return cmd
}

func newSuggestCommand(opts *rootOptions) *cobra.Command {
	var (
		questions []string
		dryRun    bool
	)

	cmd := &cobra.Command{
		Use:   "suggest <file.csv>",
		Short: "Print savings suggestions for a CSV export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			counter, err := newTokenCounter(opts.cfg.Model)
			if err != nil {
				return err
			}
			client := NewChatClient(opts.cfg.BaseURL, opts.cfg.Model, counter, opts.logger)
			advisor := NewAdvisor(client, counter, opts.cfg.TokenBudget, opts.cfg.APIKey, opts.logger)
			return runSuggest(cmd.Context(), cmd.OutOrStdout(), advisor, opts.cfg.APIKey, args[0], questions, dryRun)
		},
	}

	cmd.Flags().StringArrayVarP(&questions, "question", "q", nil, "follow-up question (repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the prompt without calling the API")

	return cmd
}

func runSuggest(ctx context.Context, out io.Writer, advisor *Advisor, apiKey, path string, questions []string, dryRun bool) error {
	if !IsCSVFilename(path) {
		return fmt.Errorf("%s: not a .csv file", path)
	}

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	txns, err := ParseTransactions(f)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}

	if dryRun {
		prompt, stats := advisor.Prompt(txns)
		fmt.Fprintln(out, prompt)
		fmt.Fprintf(out, "\n%d tokens, %d of %d transactions included\n", stats.Tokens, stats.Included, len(txns))
		return nil
	}

	if apiKey == "" {
		return fmt.Errorf("no API key: set %s", envAPIKey)
	}

	sess, err := advisor.Start(ctx, apiKey, txns)
	if err != nil {
		return err
	}
	for i, s := range sess.Suggestions {
		fmt.Fprintf(out, "%d. %s\n", i+1, s)
	}

	for _, q := range questions {
		if err := advisor.Ask(ctx, sess, q); err != nil {
			return err
		}
	}
	for _, c := range sess.Commentary {
		switch c.Type {
		case commentaryQuestion:
			fmt.Fprintf(out, "\nQ: %s\n", c.Text)
		case commentaryAnswer:
			fmt.Fprintf(out, "A: %s\n", c.Text)
		}
	}
	return nil
}
