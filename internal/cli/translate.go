package cli

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/leonletto/agent-browser/internal/protocol"
)

// verbFunc maps the tokens after a verb to an action and its parameters.
// ok is false when the tokens do not form a valid command.
type verbFunc func(rest []string, flags Flags) (action string, params protocol.Params, ok bool)

// Translator turns command-line tokens into worker requests.
type Translator struct {
	newID func() string
	verbs map[string]verbFunc
}

// NewTranslator returns a translator that stamps requests with
// protocol.NewID.
func NewTranslator() *Translator {
	t := &Translator{newID: protocol.NewID}
	t.verbs = map[string]verbFunc{}
	t.register(navigationVerbs())
	t.register(interactionVerbs())
	t.register(queryVerbs())
	t.register(browserVerbs())
	return t
}

func (t *Translator) register(verbs map[string]verbFunc) {
	for name, fn := range verbs {
		t.verbs[name] = fn
	}
}

// Translate maps args (verb first) to exactly one request. It reports false
// for an unknown verb, an unknown sub-verb, or missing required arguments.
func (t *Translator) Translate(args []string, flags Flags) (*protocol.Request, bool) {
	if len(args) == 0 {
		return nil, false
	}
	fn, ok := t.verbs[args[0]]
	if !ok {
		return nil, false
	}
	action, params, ok := fn(args[1:], flags)
	if !ok {
		return nil, false
	}
	if params == nil {
		params = protocol.Params{}
	}
	return &protocol.Request{ID: t.newID(), Action: action, Params: params}, true
}

// Verbs returns the sorted list of top-level verbs.
func (t *Translator) Verbs() []string {
	verbs := lo.Keys(t.verbs)
	slices.Sort(verbs)
	return verbs
}

// arg returns rest[i] when present.
func arg(rest []string, i int) (string, bool) {
	if i < 0 || i >= len(rest) {
		return "", false
	}
	return rest[i], true
}

func argOr(rest []string, i int, def string) string {
	if v, ok := arg(rest, i); ok {
		return v
	}
	return def
}

// joinFrom joins rest[i:] with single spaces; "" when nothing is left.
func joinFrom(rest []string, i int) string {
	if i >= len(rest) {
		return ""
	}
	return strings.Join(rest[i:], " ")
}

func hasFlag(rest []string, name string) bool {
	return lo.Contains(rest, name)
}

// flagValue returns the token following the first occurrence of name.
func flagValue(rest []string, name string) (string, bool) {
	i := lo.IndexOf(rest, name)
	if i < 0 {
		return "", false
	}
	return arg(rest, i+1)
}

// positional drops switches and the first occurrence of each valued flag
// together with its value, leaving the positional tokens in order.
func positional(rest []string, switches []string, valued []string) []string {
	out := make([]string, 0, len(rest))
	seen := map[string]bool{}
	for i := 0; i < len(rest); i++ {
		tok := rest[i]
		if lo.Contains(switches, tok) {
			continue
		}
		if lo.Contains(valued, tok) && !seen[tok] {
			seen[tok] = true
			i++
			continue
		}
		out = append(out, tok)
	}
	return out
}

// setOpt stores value under key only when present; absent optional
// parameters are omitted from the record rather than sent as null.
func setOpt(p protocol.Params, key, value string, ok bool) {
	if ok {
		p[key] = value
	}
}

func parseInt32(s string) (int, bool) {
	n, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return int(n), true
}

// parseUint accepts an optional leading '+'.
func parseUint(s string) (uint64, bool) {
	n, err := strconv.ParseUint(strings.TrimPrefix(s, "+"), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func parseFloat(s string) (float64, bool) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
