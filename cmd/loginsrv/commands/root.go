// Package commands implements the loginsrv CLI.
package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Version is injected at build time.
	Version = "dev"

	confPath    string
	lanConfPath string
)

var rootCmd = &cobra.Command{
	Use:   "loginsrv",
	Short: "Login server: account authentication and char-server presence coherence",
	Long: `loginsrv is the login server for the game cluster: it authenticates
clients, issues one-time tickets redeemed by char-servers, and keeps
online presence coherent across every attached char-server.

Use "loginsrv serve" to run the server, or "loginsrv --help" for other
commands.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Called once from main.main.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&confPath, "config", "login_athena.conf", "path to the main configuration file")
	rootCmd.PersistentFlags().StringVar(&lanConfPath, "lan-config", "subnet_athena.conf", "path to the subnet/LAN configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the loginsrv version",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.Println(Version)
		return nil
	},
}
