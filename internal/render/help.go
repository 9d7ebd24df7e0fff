// ABOUTME: Help overlay rendered from markdown with glamour
// ABOUTME: Rendered output is cached per width; plain markdown is shown if glamour fails

package render

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

const helpMarkdown = `# Punch card display

| Key | Action |
|-----|--------|
| ← → / h l | scroll the column window |
| home / end | first / last columns |
| ↑ ↓ / k j | scroll rows on short terminals, else the debug panel |
| pgup / pgdown | scroll the debug panel |
| ? / esc | close this help |
| q / ctrl+c | quit |

Rows are labelled in card order: **12, 11, 0, 1 … 9**. Letters combine a zone
punch (12, 11 or 0) with a digit punch.
`

type helpRenderer struct {
	mu    sync.Mutex
	cache map[int]string
}

func newHelpRenderer() *helpRenderer {
	return &helpRenderer{cache: make(map[int]string)}
}

// Render returns the help text wrapped to width.
func (h *helpRenderer) Render(width int) string {
	h.mu.Lock()
	defer h.mu.Unlock()

	if out, ok := h.cache[width]; ok {
		return out
	}

	out := helpMarkdown
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(max(width-4, 20)),
	)
	if err == nil {
		if rendered, err := r.Render(helpMarkdown); err == nil {
			out = strings.TrimRight(rendered, "\n ")
		}
	}
	h.cache[width] = out
	return out
}
