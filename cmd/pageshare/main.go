package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "pageshare",
	Short: "pageshare: live page sharing dialog for the portal",
	Long:  "pageshare hosts the portal's page sharing dialog. It keeps one live view per session, talks to the portal's RPC API and pushes every re-render to the browser or terminal.",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: built-in defaults)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
