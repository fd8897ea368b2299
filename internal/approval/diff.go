package approval

import (
	"fmt"
	"strings"

	"github.com/hexops/gotextdiff"
	"github.com/hexops/gotextdiff/myers"
	"github.com/hexops/gotextdiff/span"
)

// maxPreviewLines bounds the diff shown in an approval prompt; the full
// change is still visible in the tool input.
const maxPreviewLines = 200

// DiffPreview renders a unified diff of a proposed file modification for
// display alongside the approval question.
func DiffPreview(filePath, oldContent, newContent string) string {
	edits := myers.ComputeEdits(span.URIFromPath(filePath), oldContent, newContent)
	unified := fmt.Sprint(gotextdiff.ToUnified(filePath, filePath, oldContent, edits))
	return truncateLines(unified, maxPreviewLines)
}

// NewFilePreview renders a proposed new file as an all-additions diff.
func NewFilePreview(filePath, content string) string {
	lines := strings.Split(content, "\n")
	var b strings.Builder
	fmt.Fprintf(&b, "--- /dev/null\n+++ %s\n@@ -0,0 +1,%d @@\n", filePath, len(lines))
	for _, line := range lines {
		b.WriteString("+")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return truncateLines(b.String(), maxPreviewLines)
}

func truncateLines(s string, max int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= max {
		return s
	}
	return strings.Join(lines[:max], "\n") + fmt.Sprintf("\n... (%d more lines)", len(lines)-max)
}
