package cli

import (
	"regexp"
	"strings"

	"github.com/leonletto/agent-browser/internal/protocol"
)

// schemePattern matches targets that already name a scheme, such as
// http://, file:// or chrome://.
var schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*://`)

// opaqueSchemes have no "//" after the colon.
var opaqueSchemes = []string{"about:", "data:", "javascript:", "blob:"}

// NormalizeURL prefixes https:// to a target without a recognizable scheme.
func NormalizeURL(target string) string {
	if schemePattern.MatchString(target) {
		return target
	}
	lower := strings.ToLower(target)
	for _, scheme := range opaqueSchemes {
		if strings.HasPrefix(lower, scheme) {
			return target
		}
	}
	return "https://" + target
}

func navigationVerbs() map[string]verbFunc {
	navigate := func(rest []string, _ Flags) (string, protocol.Params, bool) {
		target, ok := arg(rest, 0)
		if !ok {
			return "", nil, false
		}
		return "navigate", protocol.Params{"url": NormalizeURL(target)}, true
	}

	return map[string]verbFunc{
		"open":     navigate,
		"goto":     navigate,
		"navigate": navigate,
		"back":     fixed("back"),
		"forward":  fixed("forward"),
		"reload":   fixed("reload"),
	}
}

func interactionVerbs() map[string]verbFunc {
	return map[string]verbFunc{
		"click":          selectorOnly("click"),
		"dblclick":       selectorOnly("dblclick"),
		"hover":          selectorOnly("hover"),
		"focus":          selectorOnly("focus"),
		"check":          selectorOnly("check"),
		"uncheck":        selectorOnly("uncheck"),
		"highlight":      selectorOnly("highlight"),
		"scrollintoview": selectorOnly("scrollintoview"),
		"scrollinto":     selectorOnly("scrollintoview"),

		"fill": selectorText("fill", "value"),
		"type": selectorText("type", "text"),

		"press":   keyOnly("press"),
		"key":     keyOnly("press"),
		"keydown": keyOnly("keydown"),
		"keyup":   keyOnly("keyup"),

		"select": translateSelect,
		"drag":   translateDrag,
		"upload": translateUpload,
		"scroll": translateScroll,
		"wait":   translateWait,
		"mouse":  translateMouse,
	}
}

// fixed maps a verb that takes no arguments.
func fixed(action string) verbFunc {
	return func([]string, Flags) (string, protocol.Params, bool) {
		return action, nil, true
	}
}

func selectorOnly(action string) verbFunc {
	return func(rest []string, _ Flags) (string, protocol.Params, bool) {
		sel, ok := arg(rest, 0)
		if !ok {
			return "", nil, false
		}
		return action, protocol.Params{"selector": sel}, true
	}
}

// selectorText takes a selector followed by free text joined with spaces.
func selectorText(action, textKey string) verbFunc {
	return func(rest []string, _ Flags) (string, protocol.Params, bool) {
		sel, ok := arg(rest, 0)
		if !ok {
			return "", nil, false
		}
		return action, protocol.Params{"selector": sel, textKey: joinFrom(rest, 1)}, true
	}
}

func keyOnly(action string) verbFunc {
	return func(rest []string, _ Flags) (string, protocol.Params, bool) {
		key, ok := arg(rest, 0)
		if !ok {
			return "", nil, false
		}
		return action, protocol.Params{"key": key}, true
	}
}

func translateSelect(rest []string, _ Flags) (string, protocol.Params, bool) {
	if len(rest) < 2 {
		return "", nil, false
	}
	return "select", protocol.Params{"selector": rest[0], "value": rest[1]}, true
}

func translateDrag(rest []string, _ Flags) (string, protocol.Params, bool) {
	if len(rest) < 2 {
		return "", nil, false
	}
	return "drag", protocol.Params{"source": rest[0], "target": rest[1]}, true
}

func translateUpload(rest []string, _ Flags) (string, protocol.Params, bool) {
	sel, ok := arg(rest, 0)
	if !ok {
		return "", nil, false
	}
	files := append([]string{}, rest[1:]...)
	return "upload", protocol.Params{"selector": sel, "files": files}, true
}

func translateScroll(rest []string, _ Flags) (string, protocol.Params, bool) {
	amount := 300
	if s, ok := arg(rest, 1); ok {
		if n, ok := parseInt32(s); ok {
			amount = n
		}
	}
	return "scroll", protocol.Params{"direction": argOr(rest, 0, "down"), "amount": amount}, true
}

// translateWait reads its token as milliseconds only when the whole token
// is a non-negative integer. Anything else, including "12px", is a selector.
func translateWait(rest []string, _ Flags) (string, protocol.Params, bool) {
	target, ok := arg(rest, 0)
	if !ok {
		return "", nil, false
	}
	if ms, ok := parseUint(target); ok {
		return "wait", protocol.Params{"timeout": ms}, true
	}
	return "wait", protocol.Params{"selector": target}, true
}

func translateMouse(rest []string, _ Flags) (string, protocol.Params, bool) {
	sub, _ := arg(rest, 0)
	switch sub {
	case "move":
		if len(rest) < 3 {
			return "", nil, false
		}
		x, okX := parseInt32(rest[1])
		y, okY := parseInt32(rest[2])
		if !okX || !okY {
			return "", nil, false
		}
		return "mousemove", protocol.Params{"x": x, "y": y}, true
	case "down", "up":
		return "mouse" + sub, protocol.Params{"button": argOr(rest, 1, "left")}, true
	case "wheel":
		dy, dx := 100, 0
		if n, ok := parseInt32(argOr(rest, 1, "")); ok {
			dy = n
		}
		if n, ok := parseInt32(argOr(rest, 2, "")); ok {
			dx = n
		}
		return "mousewheel", protocol.Params{"deltaX": dx, "deltaY": dy}, true
	}
	return "", nil, false
}
