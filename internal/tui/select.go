// Package tui provides interactive terminal UI components.
package tui

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lepinkainen/shelf/internal/query"
)

const (
	defaultListWidth  = 72
	defaultListHeight = 20
)

var runProgram = func(m tea.Model) (tea.Model, error) {
	return tea.NewProgram(m).Run()
}

// SelectionAction represents the user's action in the selection UI.
type SelectionAction int

const (
	// ActionNone indicates no action was taken.
	ActionNone SelectionAction = iota
	// ActionSelected indicates the user selected an item.
	ActionSelected
	// ActionSkipped indicates the user skipped the selection.
	ActionSkipped
	// ActionStopped indicates the user stopped processing entirely.
	ActionStopped
)

// Candidate is one provider result offered for selection.
type Candidate struct {
	Provider string
	Label    string
	Result   *query.Result
}

// SelectionResult holds the result of a TUI selection.
type SelectionResult struct {
	Action    SelectionAction
	Selection *Candidate
}

type candidateItem struct {
	Candidate
}

func (i candidateItem) Title() string {
	return displayTitle(i.Result)
}

func (i candidateItem) FilterValue() string {
	return displayTitle(i.Result)
}

func (i candidateItem) Description() string {
	return stringField(i.Result, "description")
}

type itemStyles struct {
	normal        lipgloss.Style
	selected      lipgloss.Style
	providerStyle lipgloss.Style
	titleStyle    lipgloss.Style
	authorStyle   lipgloss.Style
	metadataStyle lipgloss.Style
	overviewStyle lipgloss.Style
}

func newItemStyles() itemStyles {
	asciiBorder := lipgloss.Border{
		Top:         "-",
		Bottom:      "-",
		Left:        "|",
		Right:       "|",
		TopLeft:     "+",
		TopRight:    "+",
		BottomLeft:  "+",
		BottomRight: "+",
	}

	container := lipgloss.NewStyle().
		Border(asciiBorder).
		BorderForeground(lipgloss.Color("62")).
		Padding(0, 1).
		Foreground(lipgloss.Color("252"))

	selected := container.
		BorderForeground(lipgloss.Color("214")).
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("237"))

	return itemStyles{
		normal:   container,
		selected: selected,
		providerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("110")),
		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("254")),
		authorStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("178")),
		metadataStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("247")).
			Faint(true),
		overviewStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("248")),
	}
}

type candidateDelegate struct {
	styles itemStyles
}

func newDelegate() candidateDelegate {
	return candidateDelegate{styles: newItemStyles()}
}

func (d candidateDelegate) Height() int                         { return 5 }
func (d candidateDelegate) Spacing() int                        { return 1 }
func (d candidateDelegate) Update(tea.Msg, *list.Model) tea.Cmd { return nil }

func (d candidateDelegate) Render(w io.Writer, m list.Model, idx int, item list.Item) {
	c, ok := item.(candidateItem)
	if !ok {
		return
	}

	width := m.Width() - 4
	providerLine := d.styles.providerStyle.Render(fmt.Sprintf("[%s]", strings.ToUpper(c.Label)))
	metadataLine := d.styles.metadataStyle.Render(formatMetadata(c.Result, width))
	titleLine := d.styles.titleStyle.Render(truncate(displayTitle(c.Result), width))
	// Missing fields render as blank lines so every item keeps the delegate height.
	shown := c.Result.FieldsWithEmpties("author", "description")
	authorLine := d.styles.authorStyle.Render(truncate(joinValue(shown["author"]), width))
	overviewLine := d.styles.overviewStyle.Render(truncate(joinValue(shown["description"]), width))

	content := lipgloss.JoinVertical(lipgloss.Left, providerLine, metadataLine, titleLine, authorLine, overviewLine)

	container := d.styles.normal
	if idx == m.Index() {
		container = d.styles.selected
	}
	_, _ = fmt.Fprint(w, container.Render(content))
}

type model struct {
	list        list.Model
	searchTitle string
	result      SelectionResult
}

func newModel(title string, items []candidateItem) *model {
	listItems := make([]list.Item, len(items))
	for i, item := range items {
		listItems[i] = item
	}

	l := list.New(listItems, newDelegate(), defaultListWidth, defaultListHeight)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.SetShowHelp(false)
	l.SetShowTitle(false)
	l.SetShowPagination(false)
	l.DisableQuitKeybindings()
	l.Styles.NoItems = lipgloss.NewStyle()

	return &model{
		list:        l,
		searchTitle: title,
		result:      SelectionResult{Action: ActionNone},
	}
}

func (m *model) Init() tea.Cmd { return nil }

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "enter":
			if selected, ok := m.list.SelectedItem().(candidateItem); ok {
				c := selected.Candidate
				m.result = SelectionResult{Action: ActionSelected, Selection: &c}
				return m, tea.Quit
			}
		case "s", "esc":
			m.result = SelectionResult{Action: ActionSkipped}
			return m, tea.Quit
		case "ctrl+c", "q":
			m.result = SelectionResult{Action: ActionStopped}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		width := clamp(defaultListWidth, msg.Width-4, 40)
		height := clamp(defaultListHeight, msg.Height-6, 5)
		m.list.SetSize(width, height)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *model) View() string {
	header := headerStyle.Render(fmt.Sprintf("Results for: %s", m.searchTitle))
	buttons := lipgloss.JoinHorizontal(
		lipgloss.Left,
		skipButtonStyle.Render(" Skip "),
		lipgloss.NewStyle().Padding(0, 2).Render(""),
		stopButtonStyle.Render(" Stop "),
	)
	help := helpStyle.Render("Up/Down navigate | Enter select | s skip | q stop")
	return lipgloss.JoinVertical(lipgloss.Left, header, m.list.View(), buttons, help)
}

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214")).
			MarginBottom(1)

	skipButtonStyle = lipgloss.NewStyle().
			MarginTop(1).
			Padding(0, 2).
			Background(lipgloss.Color("178")).
			Foreground(lipgloss.Color("0")).
			Bold(true)

	stopButtonStyle = lipgloss.NewStyle().
			MarginTop(1).
			Padding(0, 2).
			Background(lipgloss.Color("161")).
			Foreground(lipgloss.Color("230")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			MarginTop(1).
			Foreground(lipgloss.Color("244"))
)

// Select lets the user pick one candidate. A single candidate is still shown
// so the user can skip it; no candidates is an immediate skip.
func Select(title string, candidates []Candidate) (SelectionResult, error) {
	items := make([]candidateItem, 0, len(candidates))
	for _, c := range candidates {
		if c.Result != nil {
			items = append(items, candidateItem{Candidate: c})
		}
	}
	if len(items) == 0 {
		return SelectionResult{Action: ActionSkipped}, nil
	}

	finalModel, err := runProgram(newModel(title, items))
	if err != nil {
		return SelectionResult{}, err
	}
	if typed, ok := finalModel.(*model); ok {
		return typed.result, nil
	}
	return SelectionResult{}, fmt.Errorf("unexpected program result")
}

func displayTitle(r *query.Result) string {
	title := stringField(r, "title")
	if title == "" {
		title = "(untitled)"
	}
	if sub := stringField(r, "subtitle"); sub != "" {
		title += ": " + sub
	}
	return title
}

func stringField(r *query.Result, key string) string {
	v, _ := r.Get(key)
	s, _ := v.(string)
	return s
}

func joinValue(v any) string {
	switch x := v.(type) {
	case []string:
		return strings.Join(x, ", ")
	case string:
		return x
	case nil:
		return ""
	}
	return fmt.Sprint(v)
}

func truncate(value string, width int) string {
	value = strings.Join(strings.Fields(value), " ")
	if width <= 0 || len(value) <= width {
		return value
	}
	if width <= 3 {
		return value[:width]
	}
	return value[:width-3] + "..."
}

// formatMetadata creates the metadata line with publisher, year, pages and ISBN
func formatMetadata(r *query.Result, availableWidth int) string {
	var parts []string

	if publisher := stringField(r, "publisher"); publisher != "" {
		parts = append(parts, publisher)
	}

	if v, ok := r.Get("publicationDate"); ok {
		if date, ok := v.(time.Time); ok && !date.IsZero() {
			parts = append(parts, strconv.Itoa(date.Year()))
		}
	}

	if v, ok := r.Get("pages"); ok {
		if pages, ok := v.(int); ok && pages > 0 {
			parts = append(parts, fmt.Sprintf("%d p.", pages))
		}
	}

	if isbn := stringField(r, "isbn"); isbn != "" {
		parts = append(parts, "ISBN "+isbn)
	}

	if len(parts) == 0 {
		return "No metadata available"
	}

	metadata := strings.Join(parts, " | ")
	if availableWidth > 0 && len(metadata) > availableWidth {
		metadata = truncate(metadata, availableWidth)
	}
	return metadata
}

func clamp(defaultValue, available, minimum int) int {
	width := defaultValue
	if available > 0 && available < defaultValue {
		width = available
	}
	if width < minimum {
		width = minimum
	}
	return width
}
