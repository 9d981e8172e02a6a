package main

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"deployclean/internal/history"
	"deployclean/internal/security"

	"github.com/spf13/cobra"
)

var deleteYes bool

var deleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a deployment",
	Long: `Delete one deployment.

GitHub only deletes inactive deployments; run "deployclean mark ID" first.
No check is made locally, so an active deployment is reported as a failure
by GitHub.`,
	Args: cobra.ExactArgs(1),
	RunE: runDelete,
}

func init() {
	deleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Do not ask for confirmation")
}

func runDelete(cmd *cobra.Command, args []string) error {
	id, err := security.ParseDeploymentID(args[0])
	if err != nil {
		return err
	}

	a, err := newApp()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !deleteYes {
		if !isInteractive() {
			return fmt.Errorf("refusing to delete without confirmation; pass --yes")
		}
		question := fmt.Sprintf("Delete deployment %d of %s?", id, a.target)
		if !confirm(cmd.InOrStdin(), out, question) {
			fmt.Fprintln(out, "Aborted.")
			return nil
		}
	}

	ok := a.client.Delete(cmd.Context(), a.target.Repository(), id)
	a.record(cmd.Context(), id, history.ActionDelete, ok)

	if ok {
		fmt.Fprintf(out, "%s Deployment %d deleted\n", colorize(colorGreen, "[OK]"), id)
	} else {
		fmt.Fprintf(out, "%s Failed to delete deployment %d; it may still be active (run with --verbose for details)\n", colorize(colorRed, "[FAIL]"), id)
	}
	return nil
}

// confirm asks a yes/no question. Anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N]: ", question)

	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}

	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}
