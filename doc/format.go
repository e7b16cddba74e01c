package doc

import (
	"fmt"
	"strings"
)

// FormatFile formats a FileDoc for terminal display.
func FormatFile(fd *FileDoc) string {
	var sb strings.Builder

	if fd.Doc != "" {
		sb.WriteString(fd.Doc)
		sb.WriteString("\n\n")
	}
	for _, v := range fd.Views {
		if v.Doc == "" {
			continue
		}
		formatView(&sb, v)
		sb.WriteString("\n")
	}
	if sb.Len() == 0 {
		return "no documentation found\n"
	}
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func formatView(sb *strings.Builder, v ViewDoc) {
	fmt.Fprintf(sb, "view %s(%s)\n", v.Name, v.Params)
	sb.WriteString("    ")
	sb.WriteString(strings.ReplaceAll(v.Doc, "\n", "\n    "))
	sb.WriteString("\n")
}
