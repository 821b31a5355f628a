package stack

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// maxRenderPasses bounds re-rendering of templates whose inputs
// themselves contain placeholders.
const maxRenderPasses = 8

// RenderTemplate substitutes {{ name }} placeholders from inputs into
// template, re-rendering until the output is stable so inputs may carry
// placeholders of their own. Nil-valued inputs are filtered; unknown
// placeholders are left in place.
func RenderTemplate(template string, inputs map[string]any) string {
	if template == "" || !strings.Contains(template, "{{") {
		return template
	}

	values := make(map[string]string, len(inputs))
	for key, value := range inputs {
		if value == nil {
			continue
		}
		values[key] = fmt.Sprintf("%v", value)
	}

	rendered := template
	for pass := 0; pass < maxRenderPasses; pass++ {
		next := placeholderPattern.ReplaceAllStringFunc(rendered, func(match string) string {
			name := placeholderPattern.FindStringSubmatch(match)[1]
			if value, ok := values[name]; ok {
				return value
			}
			return match
		})
		if next == rendered || !strings.Contains(next, "{{") {
			return next
		}
		rendered = next
	}
	return rendered
}
