package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/leonletto/agent-browser/internal/daemon"
	"github.com/leonletto/agent-browser/internal/paths"
)

// SessionInfo describes one session found in the marker directory.
type SessionInfo struct {
	Name       string `json:"name"`
	PID        int    `json:"pid,omitempty"`
	Status     string `json:"status"`
	Socket     bool   `json:"socket"`
	SocketPath string `json:"socket_path"`
	Current    bool   `json:"current"`
}

// ListSessions reports every session with a PID marker or socket under
// locator. It only reads; stale markers are left in place. The current
// session is always included, even without markers.
func ListSessions(locator paths.Locator, current string) ([]SessionInfo, error) {
	names, err := locator.Sessions()
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("list sessions in %s: %w", locator.Dir(), err)
	}

	probe := NewFileProbe(locator)
	seenCurrent := false
	infos := make([]SessionInfo, 0, len(names)+1)
	for _, name := range names {
		infos = append(infos, describeSession(locator, probe, name, current))
		seenCurrent = seenCurrent || name == current
	}
	if !seenCurrent && current != "" {
		infos = append(infos, describeSession(locator, probe, current, current))
	}
	return infos, nil
}

func describeSession(locator paths.Locator, probe Probe, name, current string) SessionInfo {
	info := SessionInfo{
		Name:       name,
		Status:     probe.State(name).String(),
		Socket:     probe.SocketReady(name),
		SocketPath: locator.SocketPath(name),
		Current:    name == current,
	}
	if pid, err := daemon.ReadPIDFile(locator.PIDPath(name)); err == nil {
		info.PID = pid
	}
	return info
}

// FormatSessionList writes sessions as a table.
func FormatSessionList(w io.Writer, sessions []SessionInfo) error {
	if len(sessions) == 0 {
		_, err := fmt.Fprintln(w, "No sessions found.")
		return err
	}

	table := tablewriter.NewWriter(w)
	table.Header("Session", "PID", "Status", "Socket", "Current")
	for _, s := range sessions {
		pid := "-"
		if s.PID > 0 {
			pid = strconv.Itoa(s.PID)
		}
		socket := "no"
		if s.Socket {
			socket = "yes"
		}
		current := ""
		if s.Current {
			current = "*"
		}
		if err := table.Append(s.Name, pid, s.Status, socket, current); err != nil {
			return err
		}
	}
	return table.Render()
}
