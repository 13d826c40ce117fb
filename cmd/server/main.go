package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/sheikh-saqib/transactions-service/internal/correlation"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "transactions-service",
		Short:   "Risk-guarded account transactions with a live event feed",
		Version: Version,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(seedCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setupLogger installs a JSON logger that stamps the correlation id of the
// context onto every record.
func setupLogger(level slog.Level) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(correlation.NewHandler(handler)))
}
