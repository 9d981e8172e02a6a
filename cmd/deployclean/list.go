package main

import (
	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List deployments with their latest state",
	Long: `List the repository's deployments, newest first, as GitHub returns them.

The state of each deployment is looked up from its latest status. Deployments
without any status are pending; a failed lookup shows as unknown.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Print deployments as JSON")
}

func runList(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}

	deployments := a.client.ListWithStates(cmd.Context(), a.target.Repository())

	if listJSON {
		return writeJSON(cmd.OutOrStdout(), deployments)
	}
	return renderDeployments(cmd.OutOrStdout(), deployments)
}
