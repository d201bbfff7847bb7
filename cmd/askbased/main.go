package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cloo-solutions/askbase/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "askbased",
		Short: "Askbase daemon",
		Long:  "Askbase daemon for running the chat API server and ingesting knowledge sources",
	}

	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.IngestCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
