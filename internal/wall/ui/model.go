// Package ui renders the wall terminal: grouped device tiles, alert
// flags, the stale-snapshot banner, and key bindings for the server
// operations.
package ui

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/asparks1987/NOCWALL-CE/internal/core/domain"
	"github.com/asparks1987/NOCWALL-CE/internal/wall/client"
	"github.com/asparks1987/NOCWALL-CE/internal/wall/override"
	"github.com/asparks1987/NOCWALL-CE/internal/wall/poll"
	"github.com/asparks1987/NOCWALL-CE/internal/wall/siren"
)

const opTimeout = 5 * time.Second

type pollMsg struct {
	update poll.Update
}

type tickMsg time.Time

type opDoneMsg struct {
	what string
	err  error
}

// Model is the bubbletea model for the wall.
type Model struct {
	api       *client.Client
	orch      *poll.Orchestrator
	overrides *override.Set
	siren     *siren.Scheduler

	server  domain.DeviceList // last delivered list, pre-override
	stale   bool
	lastErr error
	errors  int
	gotAt   time.Time
	next    time.Time

	views  []domain.DeviceView // post-override render order
	cursor int

	status string
	styles styles
	width  int
}

// NewModel wires the wall model to its collaborators. The orchestrator
// must already be running.
func NewModel(api *client.Client, orch *poll.Orchestrator, ovr *override.Set, sched *siren.Scheduler) *Model {
	return &Model{
		api:       api,
		orch:      orch,
		overrides: ovr,
		siren:     sched,
		styles:    newStyles(),
	}
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.listen(), tick())
}

func (m *Model) listen() tea.Cmd {
	return func() tea.Msg {
		up, ok := <-m.orch.Updates()
		if !ok {
			return nil
		}
		return pollMsg{update: up}
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case pollMsg:
		m.applyUpdate(msg.update)
		return m, m.listen()
	case tickMsg:
		// Re-apply pending overrides between polls so they stay
		// visible, and keep offline durations moving.
		m.rebuildViews(false)
		return m, tick()
	case opDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.what, msg.err)
		} else {
			m.status = msg.what
		}
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) applyUpdate(up poll.Update) {
	m.stale = up.Stale
	m.lastErr = up.Err
	m.errors = up.ErrorCount
	m.gotAt = up.CapturedAt
	m.next = up.NextPoll
	if len(up.List.Devices) > 0 || up.Err == nil {
		m.server = up.List
	}
	m.rebuildViews(up.Err == nil && !up.Stale)
}

func (m *Model) rebuildViews(fromServer bool) {
	views := make([]domain.DeviceView, len(m.server.Devices))
	copy(views, m.server.Devices)
	m.overrides.Apply(views, fromServer)
	sort.SliceStable(views, func(i, j int) bool {
		if gi, gj := groupRank(views[i]), groupRank(views[j]); gi != gj {
			return gi < gj
		}
		return views[i].Name < views[j].Name
	})
	m.views = views
	if m.cursor >= len(views) {
		m.cursor = len(views) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.siren.Evaluate(views)
}

func groupRank(v domain.DeviceView) int {
	switch {
	case v.Gateway:
		return 0
	case v.AP:
		return 1
	case v.Router, v.Switch:
		return 2
	default:
		return 3
	}
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Any keypress is the user gesture that unlocks audio.
	m.siren.Unlock()

	switch msg.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.views)-1 {
			m.cursor++
		}
	case "r":
		m.orch.Refresh()
		m.status = "refreshing"
	case "1":
		m.orch.SetInterval(poll.IntervalFast)
		m.status = "poll interval: fast (2s)"
	case "2":
		m.orch.SetInterval(poll.IntervalNormal)
		m.status = "poll interval: normal (5s)"
	case "3":
		m.orch.SetInterval(poll.IntervalSlow)
		m.status = "poll interval: slow (10s)"
	case "a":
		return m, m.ack("30m")
	case "A":
		return m, m.ack("1h")
	case "u":
		if v, ok := m.selected(); ok {
			return m, m.op("ack cleared", func(ctx context.Context) error {
				return m.api.ClearAck(ctx, v.ID)
			})
		}
	case "U":
		return m, m.op("all acks cleared", func(ctx context.Context) error {
			return m.api.ClearAllAcks(ctx)
		})
	case "s":
		return m, m.simulate()
	case "c":
		return m, m.clearSimulate()
	case "m":
		if v, ok := m.selected(); ok {
			if m.siren.ToggleDevice(v.ID) {
				m.status = v.Name + " siren muted"
			} else {
				m.status = v.Name + " siren unmuted"
			}
		}
	case "G":
		t := m.siren.Toggles()
		t.Gateways = !t.Gateways
		m.siren.SetToggles(t)
	case "P":
		t := m.siren.Toggles()
		t.APs = !t.APs
		m.siren.SetToggles(t)
	case "R":
		t := m.siren.Toggles()
		t.Routers = !t.Routers
		m.siren.SetToggles(t)
	}
	return m, nil
}

func (m *Model) selected() (domain.DeviceView, bool) {
	if m.cursor < 0 || m.cursor >= len(m.views) {
		return domain.DeviceView{}, false
	}
	return m.views[m.cursor], true
}

func (m *Model) ack(dur string) tea.Cmd {
	v, ok := m.selected()
	if !ok {
		return nil
	}
	return m.op(fmt.Sprintf("%s acked %s", v.Name, dur), func(ctx context.Context) error {
		return m.api.Ack(ctx, v.ID, dur)
	})
}

func (m *Model) simulate() tea.Cmd {
	v, ok := m.selected()
	if !ok {
		return nil
	}
	// Flip locally first, then tell the server.
	m.overrides.ForceOffline(v.ID)
	m.orch.NoteMutation()
	m.rebuildViews(false)
	return m.op(v.Name+" fault simulated", func(ctx context.Context) error {
		return m.api.Simulate(ctx, v.ID)
	})
}

func (m *Model) clearSimulate() tea.Cmd {
	v, ok := m.selected()
	if !ok {
		return nil
	}
	m.overrides.ClearOverride(v.ID)
	m.orch.NoteMutation()
	m.rebuildViews(false)
	return m.op(v.Name+" simulation cleared", func(ctx context.Context) error {
		return m.api.ClearSimulate(ctx, v.ID)
	})
}

func (m *Model) op(what string, fn func(context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		return opDoneMsg{what: what, err: fn(ctx)}
	}
}

func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.styles.title.Render("NOCWALL"))
	b.WriteString("\n")

	if m.stale {
		age := time.Since(m.gotAt).Round(time.Second)
		b.WriteString(m.styles.banner.Render(
			fmt.Sprintf("STALE DATA: poll failing (%d errors), showing snapshot from %s ago", m.errors, age)))
		b.WriteString("\n")
	} else if m.lastErr != nil {
		b.WriteString(m.styles.banner.Render(fmt.Sprintf("POLL FAILED: %v", m.lastErr)))
		b.WriteString("\n")
	}
	if m.siren.NeedsUnlock() {
		b.WriteString(m.styles.warn.Render("sound locked, press any key to enable"))
		b.WriteString("\n")
	}

	if len(m.views) == 0 {
		b.WriteString(m.styles.dim.Render("no devices"))
		b.WriteString("\n")
	} else {
		m.renderGroups(&b)
	}

	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return m.styles.app.Render(b.String())
}

var groupNames = [...]string{"GATEWAYS", "ACCESS POINTS", "ROUTERS & SWITCHES", "OTHER"}

func (m *Model) renderGroups(b *strings.Builder) {
	lastGroup := -1
	now := time.Now().Unix()
	for i, v := range m.views {
		if g := groupRank(v); g != lastGroup {
			lastGroup = g
			b.WriteString("\n")
			b.WriteString(m.styles.group.Render(groupNames[g]))
			b.WriteString("\n")
		}
		line := m.renderDevice(v, now)
		if i == m.cursor {
			line = m.styles.selected.Render("> " + line)
		} else {
			line = "  " + line
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
}

func (m *Model) renderDevice(v domain.DeviceView, now int64) string {
	var dot, detail string
	if v.Online {
		dot = m.styles.online.Render("●")
		if v.LatencyMs != nil {
			detail = fmt.Sprintf("%.0f ms", *v.LatencyMs)
		}
	} else {
		dot = m.styles.offline.Render("●")
		if v.OfflineSince != nil && *v.OfflineSince > 0 {
			detail = "down " + shortDuration(now-*v.OfflineSince)
		} else {
			detail = "down"
		}
	}

	var flags []string
	if v.Simulate {
		flags = append(flags, m.styles.warn.Render("[SIM]"))
	}
	if v.AckUntil != nil && *v.AckUntil > now {
		flags = append(flags, m.styles.dim.Render("[ACK]"))
	}
	if v.FlapAlert {
		flags = append(flags, m.styles.warn.Render(fmt.Sprintf("[FLAP x%d]", v.FlapsRecent)))
	}
	if v.LatencyAlert {
		flags = append(flags, m.styles.warn.Render("[LATENCY]"))
	}
	if m.siren.DeviceMuted(v.ID) {
		flags = append(flags, m.styles.dim.Render("[muted]"))
	}

	name := v.Name
	if name == "" {
		name = v.ID
	}
	parts := []string{dot, fmt.Sprintf("%-24s", truncate(name, 24))}
	if v.Site != "" {
		parts = append(parts, m.styles.dim.Render(fmt.Sprintf("%-16s", truncate(v.Site, 16))))
	}
	if detail != "" {
		parts = append(parts, detail)
	}
	parts = append(parts, flags...)
	return strings.Join(parts, " ")
}

func (m *Model) renderFooter() string {
	t := m.siren.Toggles()
	sirens := fmt.Sprintf("sirens gw:%s ap:%s rt:%s", onOff(t.Gateways), onOff(t.APs), onOff(t.Routers))

	updated := "never"
	if !m.gotAt.IsZero() {
		updated = m.gotAt.Format("15:04:05")
	}
	line := fmt.Sprintf("http %d | api %d ms | updated %s | every %s | %s",
		m.server.HTTPStatus, m.server.APILatency, updated, m.orch.Interval(), sirens)
	if m.status != "" {
		line += " | " + m.status
	}
	help := "j/k move  a/A ack  u/U unack  s sim  c clearsim  m mute  G/P/R sirens  1/2/3 speed  r refresh  q quit"
	return m.styles.footer.Render(line + "\n" + help)
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}

func shortDuration(sec int64) string {
	if sec < 0 {
		sec = 0
	}
	d := time.Duration(sec) * time.Second
	switch {
	case d >= 24*time.Hour:
		return fmt.Sprintf("%dd%dh", int(d.Hours())/24, int(d.Hours())%24)
	case d >= time.Hour:
		return fmt.Sprintf("%dh%02dm", int(d.Hours()), int(d.Minutes())%60)
	case d >= time.Minute:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
}
