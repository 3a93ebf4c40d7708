// Command stationflow runs the durable workflow engine: serve exposes
// its HTTP control surface, migrate applies pending schema migrations,
// and run drives one workflow to completion (or its first suspension)
// for local scripting and smoke tests.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

func main() {
	root := &cobra.Command{
		Use:   "stationflow",
		Short: "Durable generative-AI workflow engine",
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a stationflow.yaml config file")
	_ = viper.BindPFlag("config", root.PersistentFlags().Lookup("config"))

	root.AddCommand(serveCmd, migrateCmd, runCmd)

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
