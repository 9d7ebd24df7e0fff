// ABOUTME: Bubble Tea model for the interactive split screen: grid panel, debug panel, status line
// ABOUTME: Queue contents arrive as messages from the bridge; the model owns its own grid mirror

package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mauromedda/punchcard-go/internal/grid"
	"github.com/mauromedda/punchcard-go/pkg/card"
)

// Messages delivered by the bridge.
type (
	ledMsg     struct{ events []grid.ChangeEvent }
	debugMsg   struct{ lines []string }
	statusMsg  struct{ text string }
	displayMsg struct{ cfg DisplayConfig }
)

type styles struct {
	panel   lipgloss.Style
	title   lipgloss.Style
	label   lipgloss.Style
	punched lipgloss.Style
	blank   lipgloss.Style
	ruler   lipgloss.Style
	status  lipgloss.Style
}

func newStyles() styles {
	border := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240"))
	return styles{
		panel:   border,
		title:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("214")),
		label:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
		punched: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		blank:   lipgloss.NewStyle().Foreground(lipgloss.Color("238")),
		ruler:   lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
		status:  lipgloss.NewStyle().Reverse(true),
	}
}

// panelLayout is how the screen is divided at a given size.
type panelLayout struct {
	bordered    bool
	ruler       bool
	gridRows    int
	gridCols    int
	debugHeight int // inner lines of the debug panel; 0 hides it
}

// computeLayout divides width x height between the grid panel, the debug
// panel, and the one-line status field.
func computeLayout(width, height int, cs Charset) panelLayout {
	avail := height - 1
	var l panelLayout
	switch {
	case avail >= card.Rows+3+3:
		l = panelLayout{bordered: true, ruler: true, gridRows: card.Rows, debugHeight: avail - (card.Rows + 3) - 2}
	case avail >= card.Rows+3:
		l = panelLayout{bordered: true, ruler: true, gridRows: card.Rows}
	default:
		l = panelLayout{gridRows: min(card.Rows, max(avail, 1))}
	}

	inner := width - gutter
	if l.bordered {
		inner -= 2
	}
	l.gridCols = min(max(inner/cs.CellWidth(), 1), card.Columns)
	return l
}

type model struct {
	cfg    DisplayConfig
	styles styles
	help   *helpRenderer

	grid card.Grid
	seq  uint64

	width, height int
	layout        panelLayout
	colOffset     int
	rowOffset     int

	debug      viewport.Model
	debugLines []string
	status     string
	showHelp   bool
}

func newModel(cfg DisplayConfig, g card.Grid, seq uint64, width, height int) model {
	m := model{
		cfg:    cfg,
		styles: newStyles(),
		help:   newHelpRenderer(),
		grid:   g,
		seq:    seq,
		debug:  viewport.New(0, 0),
		status: "ready",
	}
	return m.resize(width, height)
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.resize(msg.Width, msg.Height), nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case ledMsg:
		for _, ev := range msg.events {
			if ev.Seq <= m.seq {
				continue
			}
			ev.Apply(&m.grid)
			m.seq = ev.Seq
		}
		return m, nil

	case debugMsg:
		m.debugLines = append(m.debugLines, msg.lines...)
		if over := len(m.debugLines) - m.cfg.DebugHistory; over > 0 {
			m.debugLines = append([]string(nil), m.debugLines[over:]...)
		}
		atBottom := m.debug.AtBottom()
		m.debug.SetContent(strings.Join(m.debugLines, "\n"))
		if atBottom {
			m.debug.GotoBottom()
		}
		return m, nil

	case statusMsg:
		m.status = msg.text
		return m, nil

	case displayMsg:
		m.cfg = msg.cfg
		return m.resize(m.width, m.height), nil
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "?":
		m.showHelp = !m.showHelp
		return m, nil
	case "esc":
		m.showHelp = false
		return m, nil
	case "left", "h":
		m.colOffset = max(m.colOffset-1, 0)
	case "right", "l":
		m.colOffset = min(m.colOffset+1, card.Columns-m.layout.gridCols)
	case "home":
		m.colOffset = 0
	case "end":
		m.colOffset = card.Columns - m.layout.gridCols
	case "up", "k":
		if m.layout.gridRows < card.Rows {
			m.rowOffset = max(m.rowOffset-1, 0)
			return m, nil
		}
		return m.scrollDebug(msg)
	case "down", "j":
		if m.layout.gridRows < card.Rows {
			m.rowOffset = min(m.rowOffset+1, card.Rows-m.layout.gridRows)
			return m, nil
		}
		return m.scrollDebug(msg)
	case "pgup", "pgdown":
		return m.scrollDebug(msg)
	}
	return m, nil
}

func (m model) scrollDebug(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	m.debug, cmd = m.debug.Update(msg)
	return m, cmd
}

func (m model) resize(width, height int) model {
	m.width, m.height = width, height
	m.layout = computeLayout(width, height, m.cfg.Charset)
	m.colOffset = min(m.colOffset, card.Columns-m.layout.gridCols)
	m.rowOffset = min(m.rowOffset, card.Rows-m.layout.gridRows)
	m.debug.Width = max(width-2, 0)
	m.debug.Height = m.layout.debugHeight
	return m
}

func (m model) View() string {
	if m.showHelp {
		return m.help.Render(m.width)
	}

	parts := []string{m.gridView()}
	if m.layout.debugHeight > 0 {
		parts = append(parts, m.styles.panel.Width(max(m.width-2, 0)).Render(m.debug.View()))
	}
	parts = append(parts, m.statusView())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m model) gridView() string {
	cw := m.cfg.Charset.CellWidth()
	first := m.colOffset + 1
	last := min(first+m.layout.gridCols-1, card.Columns)

	var lines []string
	if m.layout.ruler {
		lines = append(lines, strings.Repeat(" ", gutter)+m.styles.ruler.Render(ruler(first, last, cw)))
	}

	var b strings.Builder
	for i := m.rowOffset; i < m.rowOffset+m.layout.gridRows; i++ {
		b.Reset()
		b.WriteString(m.styles.label.Render(fmt.Sprintf("%2s ", card.Labels[i].String())))
		for c := first; c <= last; c++ {
			punched := m.grid[i][c-1]
			glyph := m.cfg.Charset.Glyph(punched)
			if pad := cw - cellWidth(glyph); pad > 0 {
				glyph += strings.Repeat(" ", pad)
			}
			if punched {
				b.WriteString(m.styles.punched.Render(glyph))
			} else {
				b.WriteString(m.styles.blank.Render(glyph))
			}
		}
		lines = append(lines, b.String())
	}

	body := strings.Join(lines, "\n")
	if !m.layout.bordered {
		return body
	}
	return m.styles.panel.Render(body)
}

func (m model) statusView() string {
	left := fmt.Sprintf(" %s  cols %d-%d  #%d", m.status, m.colOffset+1, m.colOffset+m.layout.gridCols, m.seq)
	right := "? help  q quit "
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return m.styles.status.Render(truncateCells(left, m.width))
	}
	return m.styles.status.Render(left + strings.Repeat(" ", gap) + right)
}

// truncateCells cuts s to at most n terminal cells.
func truncateCells(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if cellWidth(s) <= n {
		return s
	}
	var b strings.Builder
	w := 0
	for _, r := range s {
		rw := cellWidth(string(r))
		if w+rw > n {
			break
		}
		b.WriteRune(r)
		w += rw
	}
	return b.String()
}
