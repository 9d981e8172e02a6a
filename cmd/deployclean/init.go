package main

import (
	"fmt"
	"os"
	"path/filepath"

	"deployclean/internal/config"
	"deployclean/pkg/fileutil"
	"deployclean/pkg/templates"

	"github.com/spf13/cobra"
)

var (
	initDir     string
	initForce   bool
	initSystemd bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a sample configuration",
	Long: `Write deployclean.yaml and .env into a directory (default: current).

Values given with --owner, --repo, --token, --api-url and --db are filled
in; everything else is a placeholder to edit. Existing files are kept unless
--force is given. Templates in ./templates, ./config/templates or
/etc/deployclean/templates replace the built-in ones.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initDir, "dir", ".", "Directory to write the files to")
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite existing files")
	initCmd.Flags().BoolVar(&initSystemd, "systemd", false, "Also write deployclean.service for the serve command")
}

type sampleFile struct {
	name    string
	content string
	mode    os.FileMode
}

func runInit(cmd *cobra.Command, args []string) error {
	owner := valueOr(flagOwner, "your_user_name")
	repo := valueOr(flagRepo, "your_repo_name")
	token := valueOr(flagToken, "your_github_token")
	apiURL := valueOr(flagAPIURL, config.DefaultAPIURL)
	dbPath := valueOr(flagDBPath, "./deployclean.db")

	yamlContent, err := templates.RenderConfig(owner, repo, apiURL, dbPath, config.DefaultPort)
	if err != nil {
		return err
	}
	envContent, err := templates.RenderDotEnv(token, owner, repo)
	if err != nil {
		return err
	}

	files := []sampleFile{
		{config.DefaultConfigFile, yamlContent, 0644},
		// Holds the token
		{config.DefaultEnvFile, envContent, 0600},
	}

	if initSystemd {
		dir, err := filepath.Abs(initDir)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", initDir, err)
		}
		binary, err := os.Executable()
		if err != nil {
			binary = "/usr/local/bin/deployclean"
		}
		unit, err := templates.RenderSystemdService("deployclean", dir, binary, filepath.Join(dir, "deployclean.log"))
		if err != nil {
			return err
		}
		files = append(files, sampleFile{"deployclean.service", unit, 0644})
	}

	if err := os.MkdirAll(initDir, 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", initDir, err)
	}

	out := cmd.OutOrStdout()
	for _, f := range files {
		path := filepath.Join(initDir, f.name)
		if fileutil.FileExists(path) && !initForce {
			fmt.Fprintf(out, "%-50s%s\n", path, colorize(colorYellow, "[EXISTS]"))
			continue
		}
		if err := os.WriteFile(path, []byte(f.content), f.mode); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		fmt.Fprintf(out, "%-50s%s\n", path, colorize(colorGreen, "[OK]"))
	}

	return nil
}

func valueOr(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}
