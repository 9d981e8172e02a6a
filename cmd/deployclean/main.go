package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev" // Will be set during build

// Global flags
var (
	configFile  string
	flagOwner   string
	flagRepo    string
	flagToken   string
	flagAPIURL  string
	flagDBPath  string
	flagVerbose bool
)

var rootCmd = &cobra.Command{
	Use:   "deployclean",
	Short: "List, deactivate and delete GitHub deployments",
	Long: `deployclean manages the deployments of a GitHub repository.

It lists deployments with their latest state, marks single deployments as
inactive, deletes them, and cleans a repository by removing every deployment
except the newest one. The same operations are available as a JSON web API
through the serve command.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Custom usage template that encourages 'help' subcommand pattern
const usageTemplate = `Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}{{$cmds := .Commands}}{{if eq (len .Groups) 0}}

Available Commands:{{range $cmds}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{else}}{{range $group := .Groups}}

{{.Title}}{{range $cmds}}{{if (and (eq .GroupID $group.ID) (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if not .AllChildCommandsHaveGroup}}

Additional Commands:{{range $cmds}}{{if (and (eq .GroupID "") (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{end}}{{end}}{{if .HasAvailableLocalFlags}}

Flags:
{{.LocalFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasAvailableInheritedFlags}}

Global Flags:
{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if .HasHelpSubCommands}}

Additional help topics:{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .CommandPath .CommandPathPadding}} {{.Short}}{{end}}{{end}}{{end}}{{if .HasAvailableSubCommands}}

Use "{{.CommandPath}} help [command]" for more information about a command.{{end}}
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	// Set custom usage template to encourage 'help' subcommand pattern
	rootCmd.SetUsageTemplate(usageTemplate)

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "Path to deployclean.yaml (default: search ., ./config, /etc/deployclean)")
	flags.StringVar(&flagOwner, "owner", "", "Repository owner (overrides GITHUB_USER)")
	flags.StringVar(&flagRepo, "repo", "", "Repository name (overrides GITHUB_REPO)")
	flags.StringVar(&flagToken, "token", "", "GitHub token (overrides GITHUB_TOKEN)")
	flags.StringVar(&flagAPIURL, "api-url", "", "GitHub API root, for GitHub Enterprise")
	flags.StringVar(&flagDBPath, "db", "", "Path to the SQLite audit history (empty disables history)")
	flags.BoolVarP(&flagVerbose, "verbose", "v", false, "Log requests and results to stderr")

	// Register subcommands
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(markCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(cleanCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
}
