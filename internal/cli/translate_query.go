package cli

import (
	"github.com/leonletto/agent-browser/internal/protocol"
)

func queryVerbs() map[string]verbFunc {
	return map[string]verbFunc{
		"get":        translateGet,
		"is":         translateIs,
		"find":       translateFind,
		"snapshot":   translateSnapshot,
		"screenshot": translateScreenshot,
		"pdf":        translatePDF,
		"eval":       translateEval,
	}
}

// getActions maps "get <what>" to an action that takes a selector.
var getActions = map[string]string{
	"text":  "gettext",
	"html":  "innerhtml",
	"value": "inputvalue",
	"count": "count",
	"box":   "boundingbox",
}

func translateGet(rest []string, _ Flags) (string, protocol.Params, bool) {
	what, _ := arg(rest, 0)
	switch what {
	case "url", "title":
		return what, nil, true
	case "attr":
		if len(rest) < 3 {
			return "", nil, false
		}
		return "getattribute", protocol.Params{"selector": rest[1], "attribute": rest[2]}, true
	}

	action, ok := getActions[what]
	if !ok {
		return "", nil, false
	}
	sel, ok := arg(rest, 1)
	if !ok {
		return "", nil, false
	}
	return action, protocol.Params{"selector": sel}, true
}

func translateIs(rest []string, _ Flags) (string, protocol.Params, bool) {
	what, _ := arg(rest, 0)
	switch what {
	case "visible", "enabled", "checked":
	default:
		return "", nil, false
	}
	sel, ok := arg(rest, 1)
	if !ok {
		return "", nil, false
	}
	return "is" + what, protocol.Params{"selector": sel}, true
}

// locator describes one "find <kind>" strategy.
type locator struct {
	action   string
	valueKey string // parameter holding the locator value
	fill     bool   // forwards trailing text as "value"
	exact    bool   // forwards the --exact switch
	name     bool   // forwards --name
}

var locators = map[string]locator{
	"role":        {action: "getbyrole", valueKey: "role", fill: true, exact: true, name: true},
	"text":        {action: "getbytext", valueKey: "text", exact: true},
	"label":       {action: "getbylabel", valueKey: "label", fill: true, exact: true},
	"placeholder": {action: "getbyplaceholder", valueKey: "placeholder", fill: true, exact: true},
	"alt":         {action: "getbyalttext", valueKey: "text", exact: true},
	"title":       {action: "getbytitle", valueKey: "text", exact: true},
	"testid":      {action: "getbytestid", valueKey: "testId", fill: true},
}

// translateFind handles "find <kind> <value> [subaction] [text...]".
//
// --name <v> and --exact may sit anywhere after the verb. They are pulled
// out before positions are counted so they never shift the subaction or
// become part of the fill text.
func translateFind(rest []string, _ Flags) (string, protocol.Params, bool) {
	name, hasName := flagValue(rest, "--name")
	exact := hasFlag(rest, "--exact")
	pos := positional(rest, []string{"--exact"}, []string{"--name"})

	if len(pos) < 2 {
		return "", nil, false
	}
	kind, value := pos[0], pos[1]

	switch kind {
	case "first", "last":
		index := 0
		if kind == "last" {
			index = -1
		}
		return "nth", nthParams(value, index, pos[2:]), true
	case "nth":
		index, ok := parseInt32(value)
		if !ok || len(pos) < 3 {
			return "", nil, false
		}
		return "nth", nthParams(pos[2], index, pos[3:]), true
	}

	loc, ok := locators[kind]
	if !ok {
		return "", nil, false
	}
	params := protocol.Params{
		loc.valueKey: value,
		"subaction":  argOr(pos, 2, "click"),
	}
	if loc.fill && len(pos) > 3 {
		params["value"] = joinFrom(pos, 3)
	}
	if loc.name {
		setOpt(params, "name", name, hasName)
	}
	if loc.exact {
		params["exact"] = exact
	}
	return loc.action, params, true
}

// nthParams builds the positional-locator parameters; tail holds the
// optional subaction and fill text.
func nthParams(selector string, index int, tail []string) protocol.Params {
	params := protocol.Params{
		"selector":  selector,
		"index":     index,
		"subaction": argOr(tail, 0, "click"),
	}
	if len(tail) > 1 {
		params["value"] = joinFrom(tail, 1)
	}
	return params
}

// translateSnapshot scans its options in any order. -d only consumes the
// next token when it is an integer; unknown tokens are ignored.
func translateSnapshot(rest []string, _ Flags) (string, protocol.Params, bool) {
	params := protocol.Params{}
	for i := 0; i < len(rest); i++ {
		switch rest[i] {
		case "-i", "--interactive":
			params["interactive"] = true
		case "-c", "--compact":
			params["compact"] = true
		case "-d", "--depth":
			if next, ok := arg(rest, i+1); ok {
				if n, ok := parseInt32(next); ok {
					params["maxDepth"] = n
					i++
				}
			}
		case "-s", "--selector":
			if next, ok := arg(rest, i+1); ok {
				params["selector"] = next
				i++
			}
		}
	}
	return "snapshot", params, true
}

func translateScreenshot(rest []string, flags Flags) (string, protocol.Params, bool) {
	params := protocol.Params{"fullPage": flags.Full}
	path, ok := arg(rest, 0)
	setOpt(params, "path", path, ok)
	return "screenshot", params, true
}

func translatePDF(rest []string, _ Flags) (string, protocol.Params, bool) {
	path, ok := arg(rest, 0)
	if !ok {
		return "", nil, false
	}
	return "pdf", protocol.Params{"path": path}, true
}

func translateEval(rest []string, _ Flags) (string, protocol.Params, bool) {
	return "evaluate", protocol.Params{"script": joinFrom(rest, 0)}, true
}
