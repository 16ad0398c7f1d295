package template

import (
	"bytes"
	"fmt"
	"os"
	"text/template"
)

// ExecuteSqlTemplate renders the SQL template file at templatePath.
func ExecuteSqlTemplate(templatePath string, params map[string]any) (string, error) {
	content, err := ReadSqlTemplate(templatePath)
	if err != nil {
		return "", err
	}
	return RenderSql(content, params)
}

// RenderSql renders SQL text with params. Every referenced key must be
// present. Values are inserted verbatim, so only validated identifiers may be
// passed; data values belong in bound query parameters.
func RenderSql(content string, params map[string]any) (string, error) {
	tmpl, err := template.New("sql").Option("missingkey=error").Parse(content)
	if err != nil {
		return "", fmt.Errorf("failed to parse SQL template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, params); err != nil {
		return "", fmt.Errorf("failed to execute SQL template: %w", err)
	}

	return buf.String(), nil
}

// ReadSqlTemplate reads a SQL template file and returns its contents as a string
func ReadSqlTemplate(templatePath string) (string, error) {
	content, err := os.ReadFile(templatePath)
	if err != nil {
		return "", fmt.Errorf("failed to read template file: %w", err)
	}
	return string(content), nil
}
