package cli

import "strings"

// Flags are the global options of one invocation. They may appear anywhere
// on the command line.
type Flags struct {
	JSON    bool
	Full    bool
	Headed  bool
	Debug   bool
	Help    bool
	Session string // empty when --session was not given
}

// ParseArgs separates the global flags from args and returns the remaining
// tokens in their original order. Any other flag, such as find's --name or
// snapshot's -d, is left in place for the translator.
func ParseArgs(args []string) (Flags, []string) {
	var flags Flags
	rest := make([]string, 0, len(args))

	for i := 0; i < len(args); i++ {
		arg := args[i]
		switch arg {
		case "--json":
			flags.JSON = true
		case "--full", "-f":
			flags.Full = true
		case "--headed":
			flags.Headed = true
		case "--debug":
			flags.Debug = true
		case "--help", "-h":
			flags.Help = true
		case "--session":
			if i+1 < len(args) {
				flags.Session = args[i+1]
				i++
			}
		default:
			if value, ok := strings.CutPrefix(arg, "--session="); ok {
				flags.Session = value
				continue
			}
			rest = append(rest, arg)
		}
	}
	return flags, rest
}

// ResolveSession returns the session named by --session, or fallback when
// the flag was absent.
func (f Flags) ResolveSession(fallback string) string {
	if f.Session != "" {
		return f.Session
	}
	return fallback
}
