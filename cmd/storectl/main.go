package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "storectl",
		Short:         "storectl - operator tool for the Mystamoura storefront",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringP("conf", "c", "configs/config.yaml", "config path")

	// Add subcommands
	rootCmd.AddCommand(signCmd())
	rootCmd.AddCommand(tokenCmd())
	rootCmd.AddCommand(orderCmd())

	return rootCmd
}
