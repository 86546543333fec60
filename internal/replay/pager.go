package replay

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/muesli/reflow/wordwrap"
)

var (
	pagerTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	pagerInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	pagerMatchStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11"))

	pagerMissStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9"))

	pagerLiveStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("10"))
)

// Pager is an interactive terminal pager for rendered traces.
type Pager struct {
	title string
}

// NewPager creates a pager with the given title.
func NewPager(title string) *Pager {
	return &Pager{title: title}
}

// Run shows static content until the user quits.
func (p *Pager) Run(content string) error {
	prog := tea.NewProgram(
		&pagerModel{title: p.title, content: content},
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := prog.Run()
	return err
}

// Follow shows render's output and re-renders whenever path is written.
// The parent directory is watched so a trace created after start is seen.
func (p *Pager) Follow(path string, render func() (string, error)) error {
	content, err := render()
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	prog := tea.NewProgram(
		&pagerModel{
			title:   p.title,
			content: content,
			live:    true,
			render:  render,
			watcher: watcher,
			target:  filepath.Clean(path),
		},
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err = prog.Run()
	return err
}

// traceChangedMsg is sent when the followed trace changes.
type traceChangedMsg struct{}

type pagerModel struct {
	viewport viewport.Model
	title    string
	content  string
	wrapped  string // content wrapped to the viewport width
	ready    bool

	// Follow mode
	live    bool
	render  func() (string, error)
	watcher *fsnotify.Watcher
	target  string
	tail    bool // stick to the bottom on reload

	// Search
	searching   bool
	searchInput textinput.Model
	query       string
	matches     []int // wrapped line numbers
	matchIndex  int
	noMatch     bool
}

func (m *pagerModel) Init() tea.Cmd {
	if m.live && m.watcher != nil {
		return m.waitForChange()
	}
	return nil
}

// waitForChange blocks until the followed trace is written or created.
func (m *pagerModel) waitForChange() tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case event, ok := <-m.watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Clean(event.Name) != m.target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					// Let the writer finish the line
					time.Sleep(100 * time.Millisecond)
					return traceChangedMsg{}
				}
			case _, ok := <-m.watcher.Errors:
				if !ok {
					return nil
				}
			}
		}
	}
}

func (m *pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.searching {
		return m.updateSearch(msg)
	}

	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case traceChangedMsg:
		m.reload()
		cmds = append(cmds, m.waitForChange())

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.query == "" {
				return m, tea.Quit
			}
			m.clearSearch()
		case "g":
			m.tail = false
			m.viewport.GotoTop()
		case "G":
			m.viewport.GotoBottom()
		case "f", "F":
			if m.live {
				m.tail = !m.tail
				if m.tail {
					m.viewport.GotoBottom()
				}
			}
		case "/":
			m.searching = true
			m.searchInput = textinput.New()
			m.searchInput.Placeholder = "Search..."
			m.searchInput.CharLimit = 100
			m.searchInput.Width = 40
			m.searchInput.SetValue(m.query)
			m.searchInput.Focus()
			return m, textinput.Blink
		case "n":
			if len(m.matches) > 0 {
				m.matchIndex = (m.matchIndex + 1) % len(m.matches)
				m.jumpToMatch(m.matchIndex)
			}
		case "N":
			if len(m.matches) > 0 {
				m.matchIndex = (m.matchIndex - 1 + len(m.matches)) % len(m.matches)
				m.jumpToMatch(m.matchIndex)
			}
		}

	case tea.WindowSizeMsg:
		height := msg.Height - 2 // header and footer
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.YPosition = 1
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.setContent(m.content)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *pagerModel) updateSearch(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			m.searching = false
			m.query = m.searchInput.Value()
			m.search()
			m.jumpToMatch(0)
			return m, nil
		case "esc", "ctrl+c":
			m.searching = false
			m.clearSearch()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// reload re-renders the followed trace and keeps the scroll position
// unless tailing.
func (m *pagerModel) reload() {
	if m.render == nil {
		return
	}
	content, err := m.render()
	if err != nil {
		return
	}
	offset := m.viewport.YOffset
	m.setContent(content)
	if m.tail {
		m.viewport.GotoBottom()
	} else {
		m.viewport.SetYOffset(offset)
	}
}

func (m *pagerModel) setContent(content string) {
	m.content = content
	m.wrapped = wrapContent(content, m.viewport.Width)
	m.viewport.SetContent(m.wrapped)
	if m.query != "" {
		m.search()
	}
}

// search finds wrapped lines containing the query, case-insensitively.
func (m *pagerModel) search() {
	m.matches = nil
	m.matchIndex = 0
	m.noMatch = false
	if m.query == "" {
		return
	}

	query := strings.ToLower(m.query)
	for i, line := range strings.Split(m.wrapped, "\n") {
		if strings.Contains(strings.ToLower(line), query) {
			m.matches = append(m.matches, i)
		}
	}
	m.noMatch = len(m.matches) == 0
}

func (m *pagerModel) clearSearch() {
	m.query = ""
	m.matches = nil
	m.noMatch = false
}

// jumpToMatch centers the given match on screen.
func (m *pagerModel) jumpToMatch(index int) {
	if index < 0 || index >= len(m.matches) {
		return
	}
	m.tail = false
	m.viewport.SetYOffset(m.matches[index] - m.viewport.Height/2)
}

func (m *pagerModel) View() string {
	if !m.ready {
		return "\n  Loading..."
	}

	title := pagerTitleStyle.Render(m.title)
	header := lipgloss.JoinHorizontal(lipgloss.Center, title,
		pagerInfoStyle.Render(strings.Repeat("─", max(0, m.viewport.Width-lipgloss.Width(title)))))

	if m.searching {
		return header + "\n" + m.viewport.View() + "\n" + pagerMatchStyle.Render("/") + m.searchInput.View()
	}

	info := fmt.Sprintf(" %3.f%% ", m.viewport.ScrollPercent()*100)
	var help string
	switch {
	case m.noMatch:
		help = fmt.Sprintf(" %s │ /: search ", pagerMissStyle.Render("Pattern not found"))
	case len(m.matches) > 0:
		help = fmt.Sprintf(" %s │ n/N: next/prev │ /: search │ esc: clear ",
			pagerMatchStyle.Render(fmt.Sprintf("[%d/%d]", m.matchIndex+1, len(m.matches))))
	case m.live:
		follow := "f: follow"
		if m.tail {
			follow = "f: stop following"
		}
		help = fmt.Sprintf(" %s │ q: quit │ /: search │ %s │ g/G: top/bottom ", pagerLiveStyle.Render("● LIVE"), follow)
	default:
		help = " q: quit │ /: search │ n/N: next/prev │ g/G: top/bottom "
	}

	fill := max(0, m.viewport.Width-lipgloss.Width(help)-lipgloss.Width(info))
	footer := pagerInfoStyle.Render(help) + pagerInfoStyle.Render(strings.Repeat("─", fill)) + pagerInfoStyle.Render(info)
	return header + "\n" + m.viewport.View() + "\n" + footer
}

// wrapContent wraps lines to width. Timeline rows ("seq │ time │ text")
// wrap their text column and indent continuation lines under it.
func wrapContent(content string, width int) string {
	if width <= 0 {
		return content
	}

	var result []string
	for _, line := range strings.Split(content, "\n") {
		if lipgloss.Width(line) <= width {
			result = append(result, line)
			continue
		}

		lastPipe := strings.LastIndex(line, "│")
		if lastPipe > 0 && lastPipe < len(line)-len("│") {
			start := lastPipe + len("│")
			for start < len(line) && line[start] == ' ' {
				start++
			}
			prefix := line[:start]
			prefixWidth := lipgloss.Width(prefix)
			textWidth := max(20, width-prefixWidth)

			wrapped := strings.Split(wordwrap.String(line[start:], textWidth), "\n")
			result = append(result, prefix+wrapped[0])
			indent := strings.Repeat(" ", prefixWidth)
			for _, w := range wrapped[1:] {
				result = append(result, indent+w)
			}
			continue
		}

		result = append(result, strings.Split(wordwrap.String(line, width), "\n")...)
	}
	return strings.Join(result, "\n")
}
