package paths

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	// DefaultSession is the session used when neither --session nor
	// AGENT_BROWSER_SESSION names one.
	DefaultSession = "default"

	// filePrefix namespaces every marker this tool writes into the shared
	// temp directory.
	filePrefix = "agent-browser-"

	socketSuffix = ".sock"
	pidSuffix    = ".pid"
	lockSuffix   = ".lock"
)

// Locator derives the per-session socket and PID marker paths.
//
// Paths are <dir>/agent-browser-<session>.sock and
// <dir>/agent-browser-<session>.pid, with the session name used verbatim:
// the worker derives the same names from AGENT_BROWSER_SESSION. Names are
// expected to have passed ValidateSession.
type Locator struct {
	dir string
}

// NewLocator returns a Locator rooted at the OS temp directory.
func NewLocator() Locator {
	return Locator{dir: os.TempDir()}
}

// NewLocatorAt returns a Locator rooted at dir. Used by tests and by callers
// that want markers outside the system temp directory.
func NewLocatorAt(dir string) Locator {
	return Locator{dir: dir}
}

// Dir returns the directory the locator places markers in.
func (l Locator) Dir() string {
	if l.dir == "" {
		return os.TempDir()
	}
	return l.dir
}

// SocketPath returns the unix socket path for a session.
func (l Locator) SocketPath(session string) string {
	return filepath.Join(l.Dir(), fileName(session, socketSuffix))
}

// PIDPath returns the PID marker path for a session.
func (l Locator) PIDPath(session string) string {
	return filepath.Join(l.Dir(), fileName(session, pidSuffix))
}

// LockPath returns the file locked while a worker for the session is
// being spawned.
func (l Locator) LockPath(session string) string {
	return filepath.Join(l.Dir(), fileName(session, lockSuffix))
}

// Sessions returns the names of all sessions that have a PID marker or a
// socket in the locator's directory, sorted by name. Files that do not
// decode back to a session name are skipped.
func (l Locator) Sessions() ([]string, error) {
	entries, err := os.ReadDir(l.Dir())
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	for _, entry := range entries {
		if name, ok := SessionFromFile(entry.Name()); ok {
			seen[name] = true
		}
	}

	sessions := make([]string, 0, len(seen))
	for name := range seen {
		sessions = append(sessions, name)
	}
	sort.Strings(sessions)
	return sessions, nil
}

// SessionFromFile recovers the session name from a marker file name
// (base name only). It reports false for files this tool did not create.
func SessionFromFile(base string) (string, bool) {
	if !strings.HasPrefix(base, filePrefix) {
		return "", false
	}
	rest := strings.TrimPrefix(base, filePrefix)

	var name string
	switch {
	case strings.HasSuffix(rest, socketSuffix):
		name = strings.TrimSuffix(rest, socketSuffix)
	case strings.HasSuffix(rest, pidSuffix):
		name = strings.TrimSuffix(rest, pidSuffix)
	default:
		return "", false
	}

	if name == "" {
		return "", false
	}
	return name, true
}

// ValidateSession rejects names that cannot form a single file name inside
// the marker directory.
func ValidateSession(session string) error {
	switch {
	case session == "":
		return fmt.Errorf("session name is empty")
	case strings.ContainsRune(session, '/'), strings.ContainsRune(session, os.PathSeparator):
		return fmt.Errorf("session name %q contains a path separator", session)
	case strings.ContainsRune(session, 0):
		return fmt.Errorf("session name %q contains a NUL byte", session)
	}
	return nil
}

func fileName(session, suffix string) string {
	return filePrefix + session + suffix
}
