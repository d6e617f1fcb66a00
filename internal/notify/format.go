package notify

import (
	"fmt"
	"strings"

	"inksync/internal/model"
)

// FormatNewContent formats a new-content notification message.
func FormatNewContent(kind model.SourceKind, fresh, unread int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d new %s", fresh, sourceLabel(kind, fresh))
	if unread > 0 {
		fmt.Fprintf(&b, " (%d unread)", unread)
	}
	return b.String()
}

func sourceLabel(kind model.SourceKind, n int) string {
	var label string
	switch kind {
	case model.SourceBlogPost:
		label = "blog post"
	default:
		label = "announcement"
	}
	if n != 1 {
		label += "s"
	}
	return label
}
