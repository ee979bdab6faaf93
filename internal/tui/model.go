package tui

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docqa/internal/domain"
)

// RAGPort is the TUI-facing subset of the RAG service.
type RAGPort interface {
	Answer(ctx context.Context, question string, topK int) (string, []domain.SearchResult, error)
	Retrieve(ctx context.Context, query string, topK int) ([]domain.SearchResult, error)
}

// Mode selects what Enter does with the input.
type Mode int

const (
	// ModeAsk answers the question from retrieved context.
	ModeAsk Mode = iota
	// ModeSearch only lists the closest chunks.
	ModeSearch
)

func (m Mode) String() string {
	if m == ModeSearch {
		return "search"
	}
	return "ask"
}

type answerMsg struct {
	query   string
	answer  string
	sources []domain.SearchResult
	err     error
}

type searchMsg struct {
	query   string
	results []domain.SearchResult
	err     error
}

// Model is the Bubble Tea model for the TUI application.
type Model struct {
	ctx       context.Context
	service   RAGPort
	topK      int
	mode      Mode
	input     textinput.Model
	viewport  viewport.Model
	answer    string
	results   []domain.SearchResult
	summary   string
	status    string
	cursor    int
	busy      bool
	ready     bool
	lastQuery string
}

// New creates a new TUI model instance. Summary is shown under the header.
func New(ctx context.Context, service RAGPort, topK int, summary string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "Ask a question and press Enter (Tab switches mode)"
	ti.Focus()
	ti.CharLimit = 0
	vp := viewport.New(0, 0)
	return Model{
		ctx:      ctx,
		service:  service,
		topK:     topK,
		input:    ti,
		viewport: vp,
		summary:  summary,
		status:   "Ready.",
	}
}

// Init initializes the model (text input cursor blink).
func (m Model) Init() tea.Cmd { return textinput.Blink }

// Update handles key and window events and updates the view state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.ready = true
		// account for frames around result and query boxes
		_, rh := resultBoxStyle.GetFrameSize()
		_, qh := queryBoxStyle.GetFrameSize()
		reserved := 2 + 1 + qh + 1 // header + summary, status, spacer
		m.viewport.Width = max(20, msg.Width)
		m.viewport.Height = max(3, msg.Height-reserved-rh)
		m.viewport.SetContent(m.renderContent())
		return m, nil
	case answerMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.answer, m.results = "", nil
		} else {
			m.status = fmt.Sprintf("Answered %q from %d chunks", msg.query, len(msg.sources))
			m.answer, m.results = msg.answer, msg.sources
			m.lastQuery = msg.query
		}
		m.cursor = 0
		m.viewport.SetContent(m.renderContent())
		return m, nil
	case searchMsg:
		m.busy = false
		if msg.err != nil {
			m.status = "Error: " + msg.err.Error()
			m.results = nil
		} else {
			m.status = fmt.Sprintf("Results for %q", msg.query)
			m.results = msg.results
			m.lastQuery = msg.query
		}
		m.answer = ""
		m.cursor = 0
		m.viewport.SetContent(m.renderContent())
		return m, nil
	case tea.KeyMsg:
		// Global quits
		if msg.Type == tea.KeyCtrlC || msg.Type == tea.KeyCtrlD {
			return m, tea.Quit
		}
		switch msg.String() {
		case "tab":
			if m.mode == ModeAsk {
				m.mode = ModeSearch
			} else {
				m.mode = ModeAsk
			}
			m.status = "Mode: " + m.mode.String()
			return m, nil
		case "enter":
			q := strings.TrimSpace(m.input.Value())
			if q == "" || m.busy {
				return m, nil
			}
			m.busy = true
			if m.mode == ModeAsk {
				m.status = "Thinking..."
				return m, m.ask(q)
			}
			m.status = "Searching..."
			return m, m.search(q)
		case "down":
			if len(m.results) > 0 {
				m.cursor = (m.cursor + 1) % len(m.results)
				m.viewport.SetContent(m.renderContent())
				return m, nil
			}
		case "up":
			if len(m.results) > 0 {
				m.cursor = (m.cursor - 1 + len(m.results)) % len(m.results)
				m.viewport.SetContent(m.renderContent())
				return m, nil
			}
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) ask(q string) tea.Cmd {
	ctx, svc, topK := m.ctx, m.service, m.topK
	return func() tea.Msg {
		answer, sources, err := svc.Answer(ctx, q, topK)
		return answerMsg{query: q, answer: answer, sources: sources, err: err}
	}
}

func (m Model) search(q string) tea.Cmd {
	ctx, svc, topK := m.ctx, m.service, m.topK
	return func() tea.Msg {
		res, err := svc.Retrieve(ctx, q, topK)
		return searchMsg{query: q, results: res, err: err}
	}
}

// View renders the TUI layout and current result.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	header := lipgloss.NewStyle().Bold(true).Render("Document Q&A  [" + m.mode.String() + "]")
	summary := lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Render(m.summary)
	input := queryBoxStyle.Render(m.input.View())
	status := lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Render(m.status)
	results := resultBoxStyle.Render(m.viewport.View())
	return header + "\n" + summary + "\n" + results + "\n" + input + "\n" + status
}

func (m Model) renderContent() string {
	var b strings.Builder
	if m.answer != "" {
		b.WriteString(answerStyle.Render(strings.TrimSpace(m.answer)))
		b.WriteString("\n\n")
	}
	if len(m.results) == 0 {
		if m.answer == "" {
			b.WriteString("No results yet.")
		} else {
			b.WriteString("No context was found.")
		}
		return b.String()
	}
	for i, r := range m.results {
		marker := "  "
		if i == m.cursor {
			marker = "> "
		}
		fmt.Fprintf(&b, "%s%d. score=%.3f  %s#%d\n", marker, i+1, r.Score, shortID(r.Chunk.DocumentID), r.Chunk.Ordinal)
		if i == m.cursor {
			b.WriteString("   " + highlightTerms(r.Chunk.Text, m.lastQuery) + "\n")
		}
	}
	return b.String()
}

var (
	resultBoxStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	queryBoxStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	answerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	highlightStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11")).Bold(true)
	unicodeWordRe  = regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*|\p{N}+`)
)

// highlightTerms renders every word of text that also occurs in query.
func highlightTerms(text, query string) string {
	qTokens := toTokenSet(query)
	if len(qTokens) == 0 {
		return text
	}
	return unicodeWordRe.ReplaceAllStringFunc(text, func(w string) string {
		if _, ok := qTokens[strings.ToLower(w)]; ok {
			return highlightStyle.Render(w)
		}
		return w
	})
}

func toTokenSet(s string) map[string]struct{} {
	tokens := unicodeWordRe.FindAllString(strings.ToLower(s), -1)
	m := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		m[t] = struct{}{}
	}
	return m
}

func shortID(id string) string {
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
