// Package templating renders command templates by substituting named
// placeholders of the form {{name}}. Rendering fails fast when a placeholder
// has no parameter or a parameter matches no placeholder, so a template/code
// mismatch never reaches a command line.
package templating

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{([A-Za-z0-9_]+)\}\}`)

// Render substitutes every {{name}} placeholder in template with params[name].
func Render(template string, params map[string]string) (string, error) {
	used := make(map[string]bool, len(params))
	for _, match := range placeholderPattern.FindAllStringSubmatch(template, -1) {
		name := match[1]
		if _, ok := params[name]; !ok {
			return "", fmt.Errorf("template placeholder {{%s}} has no parameter", name)
		}
		used[name] = true
	}
	for name := range params {
		if !used[name] {
			return "", fmt.Errorf("parameter %q matches no template placeholder", name)
		}
	}

	rendered := template
	for name, value := range params {
		rendered = strings.ReplaceAll(rendered, "{{"+name+"}}", value)
	}
	return rendered, nil
}
