package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/frankli0324/go-asks"
)

type globalOptions struct {
	configPath string
	verbose    bool
	noColor    bool
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:   "asks",
		Short: "Send HTTP/1.1 requests from the command line.",
		Long: `asks sends a request, follows its redirects and authentication
challenge, and prints the response. Settings are read from asks.yaml or
.asks.yaml in the working directory unless --config names a file.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if g.noColor {
				color.NoColor = true
			}
		},
	}
	root.PersistentFlags().StringVar(&g.configPath, "config", "", "configuration file")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log the exchange to stderr")
	root.PersistentFlags().BoolVar(&g.noColor, "no-color", false, "disable colored output")

	root.AddCommand(newRequestCmd(g))
	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "asks version %s\n", asks.Version)
		},
	})
	return root
}

func (g *globalOptions) logger(w io.Writer) *slog.Logger {
	if !g.verbose {
		return slog.New(slog.DiscardHandler)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func (g *globalOptions) client(w io.Writer) (*asks.Client, error) {
	cfg, err := asks.LoadConfig(g.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg.NewClient(g.logger(w)), nil
}
