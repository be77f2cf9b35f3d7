package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/AndrewLester/ntpproxy/internal/ntp"
	"github.com/AndrewLester/ntpproxy/internal/rpc"
	"github.com/AndrewLester/ntpproxy/internal/sugar"
	"github.com/AndrewLester/ntpproxy/internal/ui"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
)

func handleStatusUI(socket string) int {
	m := statusModel{socket: socket, table: setupTable()}

	if _, err := sugar.RunProgramWithErrors(m); err != nil {
		fmt.Printf("Error: %v\n", err)
		return exitTransport
	}
	return exitOK
}

const fetchStatusPeriod = time.Second

type statusModel struct {
	socket string
	client *rpc.Client

	table            table.Model
	status           ntp.Status
	daemonKillStatus string
	err              error
}

type dialSocketMessage *rpc.Client
type fetchStatusMessage ntp.Status
type statusErrorMessage struct{ err error }
type daemonStoppedMessage struct{}
type tickMsg time.Time

func dialSocketCommand(socket string) tea.Cmd {
	return func() tea.Msg {
		client, err := rpc.Dial(socket)
		if err != nil {
			return statusErrorMessage{fmt.Errorf("connecting to ntpproxy at %s: %w", socket, err)}
		}
		return dialSocketMessage(client)
	}
}

func fetchStatusCommand(client *rpc.Client) tea.Cmd {
	return func() tea.Msg {
		status, err := client.FetchStatus()
		if err != nil {
			return statusErrorMessage{fmt.Errorf("getting status from ntpproxy: %w", err)}
		}
		return fetchStatusMessage(status)
	}
}

func stopDaemonCommand() tea.Cmd {
	return func() tea.Msg {
		if err := killDaemon(); err != nil {
			return statusErrorMessage{err}
		}
		return daemonStoppedMessage{}
	}
}

func tickCommand(duration time.Duration) tea.Cmd {
	return tea.Tick(duration, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m statusModel) Init() tea.Cmd {
	return dialSocketCommand(m.socket)
}

func (m statusModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if m.table.Focused() {
				m.table.Blur()
			} else {
				m.table.Focus()
			}
		case "s":
			m.daemonKillStatus = "Stopping " + daemonName
			return m, stopDaemonCommand()
		case "ctrl+c", "q":
			return m, tea.Quit
		}

		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	case dialSocketMessage:
		m.client = msg
		return m, tickCommand(0)
	case fetchStatusMessage:
		m.status = ntp.Status(msg)
		m.table.SetRows(statusRows(m.status, time.Now()))
		return m, nil
	case statusErrorMessage:
		m.err = msg.err
		return m, tea.Quit
	case daemonStoppedMessage:
		return m, tea.Quit
	case tickMsg:
		if m.client == nil {
			return m, nil
		}
		return m, tea.Batch(tickCommand(fetchStatusPeriod), fetchStatusCommand(m.client))
	default:
		return m, nil
	}
}

func (m statusModel) View() (s string) {
	if m.err != nil {
		return
	}

	phase := ui.Before("announcing")
	if m.status.Crossed {
		phase = ui.After("leap applied")
	}
	s += ui.Title("ntpproxy") + " " + phase + "\n"
	s += ui.TableBase(m.table.View()) + "\n\n"
	if m.daemonKillStatus != "" {
		s += m.daemonKillStatus + "\n"
	} else {
		s += ui.Help("q: exit, s: stop daemon") + "\n"
	}
	return
}

func (m statusModel) GetError() error {
	return m.err
}

func statusRows(status ntp.Status, now time.Time) []table.Row {
	simulated := now.Add(time.Duration(status.Offset) * time.Second)
	if status.Crossed {
		simulated = simulated.Add(-time.Duration(status.Polarity) * time.Second)
	}
	leap := time.Unix(status.Boundary-ntp.UnixEraOffset, 0).UTC()

	lastReply := "never"
	if status.LastXmt != 0 {
		lastReply = ntp.NTPTimestampToTime(status.LastXmt).UTC().Format(time.RFC3339)
	}

	polarity := "insert"
	if status.Polarity < 0 {
		polarity = "delete"
	}

	started := ntp.NTPTimestampToTime(status.StartedAt).UTC().Format(time.RFC3339)

	return []table.Row{
		{"Upstream", status.Source},
		{"Running since", started},
		{"Leap second", polarity},
		{"Lead", (time.Duration(status.Lead) * time.Second).String()},
		{"Offset", (time.Duration(status.Offset) * time.Second).String()},
		{"Leap at", leap.Format(time.RFC3339)},
		{"Simulated now", simulated.UTC().Format(time.RFC3339)},
		{"Queries", strconv.FormatUint(status.Queries, 10)},
		{"Relayed", strconv.FormatUint(status.Relayed, 10)},
		{"Rejected", strconv.FormatUint(status.Rejected, 10)},
		{"Dropped", strconv.FormatUint(status.Dropped, 10)},
		{"Last client", status.LastPeer},
		{"Last reply", lastReply},
	}
}

func setupTable() table.Model {
	columns := []table.Column{
		{Title: "Field", Width: 15},
		{Title: "Value", Width: 30},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(13),
	)
	t.SetStyles(ui.TableStyles())

	return t
}
