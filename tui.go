package main

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// sessionState represents the current state of the browse session
type sessionState int

const (
	stateScanning sessionState = iota
	stateBrowsing
	stateConfirmDelete
)

const barWidth = 10

// objectDeleter is the slice of the S3 client the delete flow needs.
type objectDeleter interface {
	DeleteBatch(ctx context.Context, bucket string, keys []string) error
}

// Messages for async operations
type scanDoneMsg struct {
	tree *Tree
	err  error
}

type scanTickMsg time.Time

type batchDeletedMsg struct {
	keys []string
	err  error
}

type statusResetMsg struct{}

// Styles - Minimalistic theme
var (
	pathStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color("#333333")).
			Padding(0, 1)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#bbbbbb"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#cc0000")).
			Bold(true)

	busyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#ffffff")).
			Background(lipgloss.Color("#cc6600")).
			Padding(0, 1)
)

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		Bold(true).
		Foreground(lipgloss.Color("#999999")).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#999999")).
		BorderBottom(true)
	s.Selected = s.Selected.
		Bold(true).
		Foreground(lipgloss.Color("#ffffff")).
		Background(lipgloss.Color("#0066cc"))
	return s
}

// keyMap defines the browse keybindings
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Select   key.Binding
	Back     key.Binding
	Delete   key.Binding
	SortSize key.Binding
	SortName key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Select:   key.NewBinding(key.WithKeys("enter", "l"), key.WithHelp("enter", "open")),
		Back:     key.NewBinding(key.WithKeys("backspace", "h"), key.WithHelp("bksp", "back")),
		Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		SortSize: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "by size")),
		SortName: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "by name")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Select, k.Back, k.Delete, k.SortSize, k.SortName, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Back},
		{k.Delete, k.SortSize, k.SortName, k.Quit},
	}
}

// Model represents the application state
type Model struct {
	scanner *Scanner
	deleter objectDeleter
	bucket  string

	state sessionState
	tree  *Tree
	cwd   *Node
	rows  []*Node
	sort  sortOrder

	tbl  table.Model
	spin spinner.Model
	keys keyMap
	help help.Model

	scanned *atomic.Int64
	scanErr error

	confirmTarget  *Node
	deleting       bool
	pendingBatches [][]string
	deletedSoFar   int
	deleteTotal    int

	status    string
	statusErr bool

	width  int
	height int
}

// NewModel creates a new TUI model
func NewModel(s3Client *S3Client, bucket string) Model {
	return newModel(NewScanner(s3Client, bucket), s3Client, bucket)
}

func newModel(scanner *Scanner, deleter objectDeleter, bucket string) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	cols := []table.Column{
		{Title: "Size", Width: 10},
		{Title: "Usage", Width: barWidth + 2},
		{Title: "Name", Width: 50},
	}
	t := table.New(table.WithColumns(cols), table.WithFocused(true))
	t.SetStyles(tableStyles())

	return Model{
		scanner: scanner,
		deleter: deleter,
		bucket:  bucket,
		state:   stateScanning,
		sort:    bySize,
		tbl:     t,
		spin:    sp,
		keys:    defaultKeyMap(),
		help:    help.New(),
		scanned: &atomic.Int64{},
	}
}

// Init kicks off the bucket scan
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, scanTicker(), m.startScan())
}

// startScan runs the scanner in the background; page counts stream into
// the shared atomic counter which the scan ticker re-renders.
func (m Model) startScan() tea.Cmd {
	scanner := m.scanner
	counter := m.scanned
	return func() tea.Msg {
		tree, err := scanner.Scan(context.Background(), func(n int) {
			counter.Add(int64(n))
		})
		return scanDoneMsg{tree: tree, err: err}
	}
}

func scanTicker() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return scanTickMsg(t)
	})
}

func statusResetCmd() tea.Cmd {
	return tea.Tick(2*time.Second, func(time.Time) tea.Msg {
		return statusResetMsg{}
	})
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.tbl.SetHeight(maxInt(3, msg.Height-4))
		return m, nil

	case spinner.TickMsg:
		if m.state != stateScanning {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case scanTickMsg:
		if m.state != stateScanning {
			return m, nil
		}
		return m, scanTicker()

	case scanDoneMsg:
		if msg.err != nil {
			m.scanErr = msg.err
			return m, tea.Quit
		}
		m.state = stateBrowsing
		m.tree = msg.tree
		m.cwd = msg.tree.Root()
		m = m.refresh()
		return m, nil

	case batchDeletedMsg:
		return m.updateDeleteProgress(msg)

	case statusResetMsg:
		if m.state == stateBrowsing && !m.deleting && !m.statusErr {
			m.status = ""
		}
		return m, nil

	case tea.KeyMsg:
		if m.deleting {
			return m, nil // busy: a delete is in flight
		}
		switch m.state {
		case stateScanning:
			if key.Matches(msg, m.keys.Quit) {
				return m, tea.Quit
			}
			return m, nil
		case stateBrowsing:
			return m.updateBrowsing(msg)
		case stateConfirmDelete:
			return m.updateConfirm(msg)
		}
	}

	return m, nil
}

// updateBrowsing handles keys while browsing the tree
func (m Model) updateBrowsing(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Select):
		if node := m.selected(); node != nil && node.IsDir && len(node.Children) > 0 {
			m.cwd = node
			m = m.refresh()
			m.tbl.SetCursor(0)
		}
		return m, nil

	case key.Matches(msg, m.keys.Back):
		if m.cwd.Parent == nil {
			return m, nil
		}
		left := m.cwd.Name
		m.cwd = m.cwd.Parent
		m = m.refresh()
		for i, row := range m.rows {
			if row.Name == left {
				m.tbl.SetCursor(i)
				break
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.Delete):
		node := m.selected()
		if node == nil {
			return m, nil
		}
		m.state = stateConfirmDelete
		m.confirmTarget = node
		name := node.Name
		if node.IsDir {
			name += "/"
		}
		m.setStatus(fmt.Sprintf("Delete \"%s\" (%d objects, %s)? [y/N]", name, node.Count(), formatSize(node.Size)))
		return m, nil

	case key.Matches(msg, m.keys.SortSize):
		m.sort = bySize
		m = m.refresh()
		return m, nil

	case key.Matches(msg, m.keys.SortName):
		m.sort = byName
		m = m.refresh()
		return m, nil
	}

	// cursor movement is the table's business
	var cmd tea.Cmd
	m.tbl, cmd = m.tbl.Update(msg)
	return m, cmd
}

// updateConfirm handles keys while a delete confirmation is pending.
// Anything but an explicit "y" cancels and consumes the keypress.
func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() != "y" {
		m.state = stateBrowsing
		m.confirmTarget = nil
		m.setStatus("")
		return m, nil
	}

	node := m.confirmTarget
	m.confirmTarget = nil
	m.state = stateBrowsing

	keys := node.AllLeafKeys()
	if len(keys) == 0 {
		m.setStatus("")
		return m, nil
	}

	m.pendingBatches = batchKeys(keys, maxDeleteBatch)
	m.deleteTotal = len(keys)
	m.deletedSoFar = 0
	m.deleting = true
	m.setStatus(fmt.Sprintf("Deleting… 0/%d objects", m.deleteTotal))

	batch := m.pendingBatches[0]
	m.pendingBatches = m.pendingBatches[1:]
	return m, m.deleteBatchCmd(batch)
}

// updateDeleteProgress applies one finished delete batch. Successful
// batches are removed from the tree immediately so the view never shows
// objects already gone server-side; a failed batch aborts the rest but
// keeps earlier removals.
func (m Model) updateDeleteProgress(msg batchDeletedMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.deleting = false
		m.pendingBatches = nil
		m = m.refresh()
		m.setStatus(fmt.Sprintf("Delete failed: %s", msg.err))
		m.statusErr = true
		return m, nil
	}

	for _, k := range msg.keys {
		m.tree.RemoveKey(k)
	}
	m.deletedSoFar += len(msg.keys)

	// the current directory may have been pruned out from under us
	for !m.tree.Attached(m.cwd) {
		m.cwd = m.cwd.Parent
	}
	m = m.refresh()

	if len(m.pendingBatches) > 0 {
		m.setStatus(fmt.Sprintf("Deleting… %d/%d objects", m.deletedSoFar, m.deleteTotal))
		batch := m.pendingBatches[0]
		m.pendingBatches = m.pendingBatches[1:]
		return m, m.deleteBatchCmd(batch)
	}

	m.deleting = false
	m.setStatus(fmt.Sprintf("Deleted %d object(s)", m.deletedSoFar))
	return m, statusResetCmd()
}

// deleteBatchCmd issues one DeleteObjects call in the background
func (m Model) deleteBatchCmd(keys []string) tea.Cmd {
	deleter := m.deleter
	bucket := m.bucket
	return func() tea.Msg {
		err := deleter.DeleteBatch(context.Background(), bucket, keys)
		return batchDeletedMsg{keys: keys, err: err}
	}
}

// refresh rebuilds the table rows from the current directory and clamps
// the cursor into the valid range.
func (m Model) refresh() Model {
	m.rows = m.cwd.Sorted(m.sort)

	var biggest int64 = 1
	for _, n := range m.rows {
		if n.Size > biggest {
			biggest = n.Size
		}
	}

	rows := make([]table.Row, 0, len(m.rows))
	for _, n := range m.rows {
		name := n.Name
		if n.IsDir {
			name = "/" + name
		}
		rows = append(rows, table.Row{formatSize(n.Size), usageBar(n.Size, biggest), name})
	}
	m.tbl.SetRows(rows)

	if cursor := m.tbl.Cursor(); cursor >= len(rows) {
		if len(rows) > 0 {
			m.tbl.SetCursor(len(rows) - 1)
		} else {
			m.tbl.SetCursor(0)
		}
	}
	return m
}

func (m Model) selected() *Node {
	r := m.tbl.Cursor()
	if r < 0 || r >= len(m.rows) {
		return nil
	}
	return m.rows[r]
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusErr = false
}

// View renders the current view
func (m Model) View() string {
	if m.state == stateScanning {
		return fmt.Sprintf("\n %s Scanning… %d objects\n", m.spin.View(), m.scanned.Load())
	}

	var s strings.Builder

	s.WriteString(pathStyle.Render(fmt.Sprintf("%s:%s", m.bucket, m.cwd.Path())))
	s.WriteString("\n")
	s.WriteString(m.tbl.View())
	s.WriteString("\n")

	status := m.status
	style := statusStyle
	switch {
	case m.statusErr:
		style = errorStyle
	case m.deleting:
		style = busyStyle
	case status == "":
		status = fmt.Sprintf("Total: %s  Items: %d", formatSize(m.tree.Root().Size), m.tree.Root().Count())
	}
	s.WriteString(style.Render(" " + status))
	s.WriteString("\n")
	s.WriteString(m.help.View(m.keys))

	return s.String()
}

// usageBar renders a 10-cell bar scaled against the largest sibling.
// Float division avoids int64 overflow on very large sizes.
func usageBar(size, biggest int64) string {
	filled := 0
	if biggest > 0 && size > 0 {
		filled = int(float64(size) / float64(biggest) * barWidth)
	}
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(" ", barWidth-filled) + "]"
}

// batchKeys splits keys into chunks of at most size
func batchKeys(keys []string, size int) [][]string {
	var batches [][]string
	for len(keys) > size {
		batches = append(batches, keys[:size])
		keys = keys[size:]
	}
	if len(keys) > 0 {
		batches = append(batches, keys)
	}
	return batches
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
