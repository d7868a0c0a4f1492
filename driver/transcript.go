package driver

import (
	"fmt"
	"strings"
)

// FormatTranscript renders a transcript as plain text for inclusion in
// evaluation prompts. Tool turns show the tool result inline.
func FormatTranscript(turns []Turn) string {
	var b strings.Builder
	for _, t := range turns {
		switch t.Role {
		case RoleUser:
			fmt.Fprintf(&b, "User: %s\n", t.Content)
		case RoleAgent:
			fmt.Fprintf(&b, "Agent: %s\n", t.Content)
			for _, tc := range t.ToolCalls {
				fmt.Fprintf(&b, "Agent called tool %s\n", tc.Name)
			}
		case RoleTool:
			fmt.Fprintf(&b, "Tool result: %s\n", t.Content)
		}
	}
	return b.String()
}
