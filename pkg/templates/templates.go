// Package templates renders the sample files written by the init command.
package templates

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"deployclean/pkg/fileutil"
)

// Template names
const (
	ConfigYAML     = "config-yaml"
	DotEnv         = "dotenv"
	SystemdService = "systemd-service"
)

//go:embed files/*.template
var builtin embed.FS

// TemplateData holds variables for template rendering.
type TemplateData map[string]string

// GetTemplatePaths returns the search paths for a local override of a
// template.
func GetTemplatePaths(templateName string) []string {
	filename := templateName + ".template"
	return []string{
		filepath.Join(".", "templates", filename),
		filepath.Join(".", "config", "templates", filename),
		filepath.Join(fileutil.SystemConfigDir, "templates", filename),
	}
}

// GetTemplate returns the raw template content by name.
// A file found on GetTemplatePaths wins over the built-in template.
func GetTemplate(name string) (string, error) {
	if !ValidateTemplate(name) {
		return "", fmt.Errorf("unknown template: %s", name)
	}

	for _, path := range GetTemplatePaths(name) {
		if content, err := os.ReadFile(path); err == nil {
			return string(content), nil
		}
	}

	content, err := builtin.ReadFile("files/" + name + ".template")
	if err != nil {
		return "", fmt.Errorf("built-in template missing: %s: %w", name, err)
	}
	return string(content), nil
}

// Render renders a template with the given data.
// Uses {{PLACEHOLDER}} syntax for variable substitution.
//
// Example:
//
//	data := TemplateData{
//		"OWNER": "octocat",
//		"REPO":  "hello-world",
//	}
//	rendered, err := Render(DotEnv, data)
func Render(templateName string, data TemplateData) (string, error) {
	tmplContent, err := GetTemplate(templateName)
	if err != nil {
		return "", err
	}

	// Sorted so the output does not depend on map order when one value
	// contains another placeholder.
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rendered := tmplContent
	for _, key := range keys {
		placeholder := fmt.Sprintf("{{%s}}", key)
		rendered = strings.ReplaceAll(rendered, placeholder, data[key])
	}

	return rendered, nil
}

// RenderConfig renders the sample deployclean.yaml.
func RenderConfig(owner, repo, apiURL, dbPath string, port int) (string, error) {
	return Render(ConfigYAML, TemplateData{
		"OWNER":   owner,
		"REPO":    repo,
		"API_URL": apiURL,
		"DB_PATH": dbPath,
		"PORT":    fmt.Sprintf("%d", port),
	})
}

// RenderDotEnv renders the sample .env file.
func RenderDotEnv(token, owner, repo string) (string, error) {
	return Render(DotEnv, TemplateData{
		"TOKEN": token,
		"OWNER": owner,
		"REPO":  repo,
	})
}

// RenderSystemdService renders a unit file running the serve command.
func RenderSystemdService(user, workingDir, binary, logFile string) (string, error) {
	return Render(SystemdService, TemplateData{
		"USER":        user,
		"WORKING_DIR": workingDir,
		"BINARY":      binary,
		"LOG_FILE":    logFile,
	})
}

// ListTemplates returns a list of all available template names.
func ListTemplates() []string {
	return []string{
		ConfigYAML,
		DotEnv,
		SystemdService,
	}
}

// ValidateTemplate checks if a template name is valid.
func ValidateTemplate(name string) bool {
	validNames := map[string]bool{
		ConfigYAML:     true,
		DotEnv:         true,
		SystemdService: true,
	}
	return validNames[name]
}
