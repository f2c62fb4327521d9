package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// scrollbar renders a vertical bar for a pane showing height rows of a
// content rows long list, scrolled to offset.
type scrollbar struct {
	thumb lipgloss.Style
	track lipgloss.Style
}

func (s scrollbar) render(content, height, offset int) string {
	if height <= 0 {
		return ""
	}
	top, size := 0, height
	if content > height {
		maxOffset := content - height
		offset = max(0, min(offset, maxOffset))
		size = max(1, min(height, height*height/content))
		if span := height - size; span > 0 {
			top = offset * span / maxOffset
		}
	}

	var b strings.Builder
	for i := range height {
		if i > 0 {
			b.WriteByte('\n')
		}
		if i >= top && i < top+size {
			// non-breaking so the background is always emitted
			b.WriteString(s.thumb.Render("\u00a0"))
		} else {
			b.WriteString(s.track.Render("│"))
		}
	}
	return b.String()
}
