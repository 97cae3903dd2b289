package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/desertthunder/betterblend/internal/formatter"
	"github.com/desertthunder/betterblend/internal/models"
	"github.com/desertthunder/betterblend/internal/tasks"
)

// Tab is one page of the viewer.
type Tab int

const (
	OverviewTab Tab = iota
	ArtistsTab
	TracksTab
	PlaylistTab
)

var tabNames = []string{"Overview", "Shared Artists", "Shared Tracks", "Playlist"}

func (t Tab) String() string {
	if int(t) < len(tabNames) {
		return tabNames[t]
	}
	return ""
}

// Loader reads the current state of the blend being viewed.
type Loader func(ctx context.Context) (*formatter.BlendExport, error)

// Generator publishes the blend, reporting progress on the channel.
type Generator func(ctx context.Context, progress chan<- tasks.ProgressUpdate) error

const barWidth = 20

// Model represents the viewer state.
type Model struct {
	ctx          context.Context
	load         Loader
	generate     Generator
	tab          Tab
	width        int
	height       int
	export       *formatter.BlendExport
	artists      list.Model
	shared       list.Model
	playlist     list.Model
	generating   bool
	progressChan chan tasks.ProgressUpdate
	progress     tasks.ProgressUpdate
	genErr       error
	err          error
	help         help.Model
	keys         keyMap
}

// NewModel creates a viewer. generate may be nil to make the viewer read-only.
func NewModel(ctx context.Context, load Loader, generate Generator) *Model {
	return &Model{
		ctx:      ctx,
		load:     load,
		generate: generate,
		tab:      OverviewTab,
		width:    80,
		height:   24,
		help:     help.New(),
		keys:     newKeyMap(),
	}
}

// Init loads the blend.
func (m *Model) Init() tea.Cmd {
	return m.fetch()
}

// Tab returns the active tab.
func (m *Model) Tab() Tab {
	return m.tab
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeLists()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeys(msg)

	case Msg:
		return m.handleMsg(msg)
	}

	return m, nil
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgBlendLoaded:
		data := msg.data.(loadedData)
		if data.err != nil {
			m.err = data.err
			return m, nil
		}
		m.err = nil
		m.setExport(data.export)
		return m, nil

	case MsgProgressUpdate:
		m.progress = msg.data.(tasks.ProgressUpdate)
		return m, m.waitForProgress()

	case MsgGenerateComplete:
		m.generating = false
		m.progressChan = nil
		if err, _ := msg.data.(error); err != nil {
			m.genErr = err
			return m, nil
		}
		m.genErr = nil
		m.tab = PlaylistTab
		return m, m.fetch()
	}
	return m, nil
}

func (m *Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.next):
		m.tab = (m.tab + 1) % Tab(len(tabNames))
		return m, nil
	case key.Matches(msg, m.keys.prev):
		m.tab = (m.tab + Tab(len(tabNames)) - 1) % Tab(len(tabNames))
		return m, nil
	case key.Matches(msg, m.keys.reload):
		if m.generating {
			return m, nil
		}
		return m, m.fetch()
	case key.Matches(msg, m.keys.generate):
		if !m.canGenerate() {
			return m, nil
		}
		return m, m.startGenerate()
	}

	if m.export == nil {
		return m, nil
	}

	var cmd tea.Cmd
	switch m.tab {
	case ArtistsTab:
		m.artists, cmd = m.artists.Update(msg)
	case TracksTab:
		m.shared, cmd = m.shared.Update(msg)
	case PlaylistTab:
		m.playlist, cmd = m.playlist.Update(msg)
	}
	return m, cmd
}

func (m *Model) setExport(export *formatter.BlendExport) {
	m.export = export

	w, h := m.listSize()
	var artists []models.SharedArtist
	var shared []models.Track
	if export.Result != nil {
		artists = export.Result.SharedArtists
		shared = export.Result.SharedTracks
	}
	m.artists = newList("Shared Artists", artistItems(artists), w, h)
	m.shared = newList("Shared Tracks", trackItems(shared), w, h)
	m.playlist = newList(fmt.Sprintf("Blend (%d tracks)", len(export.Playlist.Tracks)), trackItems(export.Playlist.Tracks), w, h)
}

func (m *Model) listSize() (int, int) {
	return max(m.width-4, 20), max(m.height-8, 5)
}

func (m *Model) resizeLists() {
	if m.export == nil {
		return
	}
	w, h := m.listSize()
	m.artists.SetSize(w, h)
	m.shared.SetSize(w, h)
	m.playlist.SetSize(w, h)
}

func (m *Model) canGenerate() bool {
	return m.generate != nil && !m.generating && m.export != nil && m.export.Result != nil && len(m.export.Published) == 0
}

func (m *Model) fetch() tea.Cmd {
	return func() tea.Msg {
		export, err := m.load(m.ctx)
		return blendLoadedMsg(export, err)
	}
}

func (m *Model) startGenerate() tea.Cmd {
	m.generating = true
	m.genErr = nil
	m.progress = tasks.ProgressUpdate{Message: "Starting..."}
	progress := make(chan tasks.ProgressUpdate, 16)
	m.progressChan = progress
	done := make(chan error, 1)

	go func() {
		done <- m.generate(m.ctx, progress)
		close(progress)
	}()

	waitDone := func() tea.Msg { return generateCompleteMsg(<-done) }
	return tea.Batch(m.waitForProgress(), waitDone)
}

func (m *Model) waitForProgress() tea.Cmd {
	progress := m.progressChan
	if progress == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-progress
		if !ok {
			return nil
		}
		return progressUpdateMsg(update)
	}
}

// View renders the active tab.
func (m *Model) View() string {
	if m.err != nil {
		return styles.err.Render(fmt.Sprintf("Error: %v\n\nPress r to retry, q to quit", m.err))
	}
	if m.export == nil {
		return "Loading blend..."
	}

	var body string
	switch m.tab {
	case OverviewTab:
		body = m.renderOverview()
	case ArtistsTab:
		body = m.renderList(m.artists, "No shared artists yet. Run `blend score` first.")
	case TracksTab:
		body = m.renderList(m.shared, "No tracks in common.")
	case PlaylistTab:
		body = m.renderList(m.playlist, "No playlist yet. Press g or run `blend generate`.")
	}

	helpView := m.help.ShortHelpView(m.helpKeys())
	return fmt.Sprintf("%s\n\n%s\n\n%s", m.renderTabs(), body, helpView)
}

func (m *Model) helpKeys() []key.Binding {
	keys := []key.Binding{m.keys.next, m.keys.prev}
	if m.tab != OverviewTab {
		keys = append(keys, m.keys.up, m.keys.down)
	}
	if m.canGenerate() {
		keys = append(keys, m.keys.generate)
	}
	return append(keys, m.keys.reload, m.keys.quit)
}

func (m *Model) renderTabs() string {
	tabs := make([]string, len(tabNames))
	for i, name := range tabNames {
		if Tab(i) == m.tab {
			tabs[i] = styles.activeTab.Render(name)
		} else {
			tabs[i] = styles.tab.Render(name)
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m *Model) renderList(l list.Model, empty string) string {
	if len(l.Items()) == 0 {
		return styles.help.Render(empty)
	}
	return l.View()
}

func (m *Model) renderOverview() string {
	e := m.export
	var b strings.Builder

	b.WriteString(styles.title.Render(e.Title()))
	b.WriteString("\n")

	cfg := e.Playlist.Config
	b.WriteString(fmt.Sprintf("Session %s • %s-term • %d tracks • ratio %.0f/%.0f\n\n",
		e.Code, cfg.Window, cfg.Length, cfg.Ratio*100, (1-cfg.Ratio)*100))

	r := e.Result
	if r == nil {
		b.WriteString(styles.warn.Render("Not scored yet. Run `blend fetch` then `blend score`."))
		return b.String()
	}

	b.WriteString(styles.ok.Render(fmt.Sprintf("Compatibility: %d%%", r.Score)))
	b.WriteString("\n\n")

	if r.CreatorFeatures != nil && r.PartnerFeatures != nil {
		b.WriteString(m.renderFeatures(r.CreatorFeatures, r.PartnerFeatures))
		b.WriteString("\n")
	}

	b.WriteString("Insights\n")
	for _, in := range r.Insights {
		b.WriteString(fmt.Sprintf("  • %s\n", in.Text))
	}

	switch {
	case m.generating:
		b.WriteString("\n" + styles.warn.Render(fmt.Sprintf("[%s] %s", m.progress.Phase, m.progress.Message)))
	case m.genErr != nil:
		b.WriteString("\n" + styles.err.Render(fmt.Sprintf("Generate failed: %v", m.genErr)))
	case len(e.Published) > 0:
		b.WriteString("\n" + styles.ok.Render("✓ Published"))
		for _, p := range e.Published {
			b.WriteString(fmt.Sprintf("\n  %s", p.URL))
		}
	}

	return b.String()
}

func (m *Model) renderFeatures(creator, partner *models.FeatureProfile) string {
	rows := []struct {
		name string
		c, p float64
	}{
		{"Danceability", creator.Danceability, partner.Danceability},
		{"Energy", creator.Energy, partner.Energy},
		{"Valence", creator.Valence, partner.Valence},
		{"Acousticness", creator.Acousticness, partner.Acousticness},
		{"Instrumental", creator.Instrumentalness, partner.Instrumentalness},
		{"Liveness", creator.Liveness, partner.Liveness},
		{"Speechiness", creator.Speechiness, partner.Speechiness},
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-13s %s  %s\n", "",
		styles.creator.Render(fmt.Sprintf("%-*s", barWidth+5, m.export.Creator)),
		styles.partner.Render(m.export.Partner)))
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("%-13s %s %.2f  %s %.2f\n", row.name,
			styles.creator.Render(bar(row.c)), row.c,
			styles.partner.Render(bar(row.p)), row.p))
	}
	return b.String()
}

// bar draws v in [0,1] as a fixed width bar.
func bar(v float64) string {
	filled := int(v*barWidth + 0.5)
	filled = min(max(filled, 0), barWidth)
	return strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
}
