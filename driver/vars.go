package driver

import (
	"fmt"
	"strings"
)

// SubstituteVariables replaces {{name}} placeholders with the bound value.
// Unbound placeholders are left in place so missing bindings stay visible
// in transcripts instead of silently vanishing.
func SubstituteVariables(text string, vars map[string]any) string {
	if len(vars) == 0 || !strings.Contains(text, "{{") {
		return text
	}
	out := text
	for name, value := range vars {
		placeholder := "{{" + name + "}}"
		if strings.Contains(out, placeholder) {
			out = strings.ReplaceAll(out, placeholder, fmt.Sprint(value))
		}
	}
	return out
}
