// batchctl — инструмент командной строки для управления
// batch'ами через HTTP API batchd.
//
// Использование:
//
//	batchctl [--api-url URL] [--json] <command> <subcommand> [flags]
//
// Команды:
//
//	batch    Управление batch'ами
//	history  Просмотр архива урегулированных batch'ей
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cain76/finderskeepers-v2-sub001/internal/cli"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var apiURL string
	var jsonOutput bool

	rootCmd := &cobra.Command{
		Use:           "batchctl",
		Short:         "batchctl — batch task scheduler CLI",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&apiURL, "api-url", "http://localhost:8080", "API server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	clientFn := func() *cli.Client { return cli.NewClient(apiURL) }
	outputFn := func() *cli.Output { return cli.NewOutput(jsonOutput) }

	rootCmd.AddCommand(
		cli.NewBatchCmd(clientFn, outputFn),
		cli.NewHistoryCmd(clientFn, outputFn),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
