package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/dbexec/internal/control"
	"github.com/vietddude/dbexec/internal/core/config"
)

var checkCmd = &cobra.Command{
	Use:   "check [resource...]",
	Short: "Resolve and probe configured resources",
	Run:   runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}

	app, err := control.NewService(control.Config{
		Port:      cfg.Server.Port,
		Retry:     cfg.Retry,
		Resources: cfg.Resources,
	}, slog.Default())
	if err != nil {
		slog.Error("Failed to initialize service", "error", err)
		os.Exit(1)
	}

	names := args
	if len(names) == 0 {
		for _, r := range cfg.Resources {
			names = append(names, r.Name)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RESOURCE\tSTATUS\tERROR")

	failed := false
	for _, name := range names {
		if err := app.Probe(ctx, name); err != nil {
			failed = true
			fmt.Fprintf(w, "%s\tunusable\t%v\n", name, err)
			continue
		}
		fmt.Fprintf(w, "%s\tlive\t\n", name)
	}
	_ = w.Flush()

	_ = app.Stop(ctx)
	if failed {
		os.Exit(1)
	}
}
