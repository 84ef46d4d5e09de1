package main

import (
	"fmt"
	"os"

	"github.com/gookit/color"
	"github.com/spf13/cobra"
)

func main() {
	var addr string

	rootCmd := &cobra.Command{
		Use:   "probe",
		Short: "Drive a running relay from the command line",
		Long: `Probe connects to a running relay as one or more clients.

Examples:
  probe scenario --addr ws://localhost:3000/ws
  probe watch alice
  probe health --health-addr localhost:3001`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&addr, "addr", "ws://localhost:3000/ws", "WebSocket endpoint of the relay")

	rootCmd.AddCommand(
		scenarioCmd(&addr),
		watchCmd(&addr),
		healthCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		errorMsg("%s", err)
		os.Exit(1)
	}
}

func success(format string, args ...any) {
	color.Green.Printf("✓ %s\n", fmt.Sprintf(format, args...))
}

func info(format string, args ...any) {
	fmt.Printf("  %s\n", fmt.Sprintf(format, args...))
}

func errorMsg(format string, args ...any) {
	_, _ = fmt.Fprintln(os.Stderr, color.Red.Sprintf("✗ %s", fmt.Sprintf(format, args...)))
}
