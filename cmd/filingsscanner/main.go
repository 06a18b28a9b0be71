package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/spf13/cobra"

	"FilingsScanner/internal/app"
	"FilingsScanner/internal/config"
	"FilingsScanner/internal/logging"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:           "filingsscanner",
	Short:         "Fetches fund filings from FNET, summarizes them and publishes posts",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: $FILINGS_SCANNER_CONFIG)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	importCmd.Flags().String("date", "", "day to import as YYYY-MM-DD (default: today in the portal timezone)")

	rootCmd.AddCommand(importCmd, serveCmd, retryCmd, statsCmd, chatsCmd)
}

// withApp loads config, builds the application and closes it after fn returns.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.Application) error) error {
	path, _ := cmd.Flags().GetString("config")
	var cfg config.Config
	if path != "" {
		cfg = config.LoadFrom(path)
	} else {
		cfg = config.Load()
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logging.New(cfg.Logging.Level, cfg.Logging.Format)
	application, err := app.New(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if cErr := application.Close(); cErr != nil {
			log.Warn("close application", "error", cErr)
		}
	}()

	return fn(ctx, application)
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Run the whole pipeline once for a day",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			day := a.Today()
			if raw, _ := cmd.Flags().GetString("date"); raw != "" {
				parsed, err := time.ParseInLocation("2006-01-02", raw, day.Location())
				if err != nil {
					return fmt.Errorf("invalid --date %q: %w", raw, err)
				}
				day = parsed
			}

			report, err := a.Import(ctx, day)
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		})
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the cron schedule and the HTTP trigger",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			return a.Serve(ctx)
		})
	},
}

var retryCmd = &cobra.Command{
	Use:   "retry-downloads",
	Short: "Retry documents whose download failed permanently",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			report, err := a.RetryDownloads(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, report)
		})
	},
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print how many documents sit in each status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			counts, err := a.Stats(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd, counts)
		})
	},
}

var chatsCmd = &cobra.Command{
	Use:   "chats",
	Short: "List chat ids that recently messaged the Telegram bot",
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withApp(cmd, func(ctx context.Context, a *app.Application) error {
			chats, err := a.Chats(ctx)
			if err != nil {
				return err
			}
			for _, c := range chats {
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", c.ID, c.User, c.Text)
			}
			return nil
		})
	},
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
