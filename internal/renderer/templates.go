package renderer

import (
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"text/template"
)

//go:embed templates/*.md
var templates embed.FS

// renderTemplate executes the main template with its partials, each partial
// being reachable under its alias.
func renderTemplate(mainFile string, partials map[string]string, data any) (string, error) {
	mainContent, err := fs.ReadFile(templates, "templates/"+mainFile)
	if err != nil {
		return "", fmt.Errorf("reading template %q: %w", mainFile, err)
	}
	tmpl, err := template.New(mainFile).Parse(string(mainContent))
	if err != nil {
		return "", fmt.Errorf("parsing template %q: %w", mainFile, err)
	}
	for name, file := range partials {
		content, err := fs.ReadFile(templates, "templates/"+file)
		if err != nil {
			return "", fmt.Errorf("reading partial %q: %w", file, err)
		}
		if _, err := tmpl.New(name).Parse(string(content)); err != nil {
			return "", fmt.Errorf("parsing partial %q for %q: %w", file, name, err)
		}
	}
	var b strings.Builder
	if err := tmpl.ExecuteTemplate(&b, mainFile, data); err != nil {
		return "", fmt.Errorf("executing template %q: %w", mainFile, err)
	}
	return b.String(), nil
}
