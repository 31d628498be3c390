package cli

import (
	"github.com/leonletto/agent-browser/internal/protocol"
)

func browserVerbs() map[string]verbFunc {
	return map[string]verbFunc{
		"close": fixed("close"),
		"quit":  fixed("close"),
		"exit":  fixed("close"),

		"set":     translateSet,
		"network": translateNetwork,
		"storage": translateStorage,
		"cookies": translateCookies,
		"tab":     translateTab,
		"window":  translateWindow,
		"frame":   translateFrame,
		"dialog":  translateDialog,
		"trace":   translateTrace,
		"state":   translateState,
		"console": clearable("console"),
		"errors":  clearable("errors"),
	}
}

func translateSet(rest []string, _ Flags) (string, protocol.Params, bool) {
	sub, _ := arg(rest, 0)
	switch sub {
	case "viewport":
		if len(rest) < 3 {
			return "", nil, false
		}
		w, okW := parseInt32(rest[1])
		h, okH := parseInt32(rest[2])
		if !okW || !okH {
			return "", nil, false
		}
		return "viewport", protocol.Params{"width": w, "height": h}, true

	case "device":
		device, ok := arg(rest, 1)
		if !ok {
			return "", nil, false
		}
		return "device", protocol.Params{"device": device}, true

	case "geo", "geolocation":
		if len(rest) < 3 {
			return "", nil, false
		}
		lat, okLat := parseFloat(rest[1])
		lng, okLng := parseFloat(rest[2])
		if !okLat || !okLng {
			return "", nil, false
		}
		return "geolocation", protocol.Params{"latitude": lat, "longitude": lng}, true

	case "offline":
		offline := true
		if v, ok := arg(rest, 1); ok {
			offline = v != "off" && v != "false"
		}
		return "offline", protocol.Params{"offline": offline}, true

	case "headers":
		// Forwarded as the raw JSON text; the worker parses it.
		headers, ok := arg(rest, 1)
		if !ok {
			return "", nil, false
		}
		return "headers", protocol.Params{"headers": headers}, true

	case "credentials", "auth":
		if len(rest) < 3 {
			return "", nil, false
		}
		return "credentials", protocol.Params{"username": rest[1], "password": rest[2]}, true

	case "media":
		scheme := "no-preference"
		switch {
		case hasFlag(rest, "dark"):
			scheme = "dark"
		case hasFlag(rest, "light"):
			scheme = "light"
		}
		return "media", protocol.Params{
			"colorScheme":   scheme,
			"reducedMotion": hasFlag(rest, "reduced-motion"),
		}, true
	}
	return "", nil, false
}

func translateNetwork(rest []string, _ Flags) (string, protocol.Params, bool) {
	sub, _ := arg(rest, 0)
	switch sub {
	case "route":
		opts := rest[1:]
		pos := positional(opts, []string{"--abort"}, []string{"--body"})
		url, ok := arg(pos, 0)
		if !ok {
			return "", nil, false
		}
		params := protocol.Params{"url": url, "abort": hasFlag(opts, "--abort")}
		body, ok := flagValue(opts, "--body")
		setOpt(params, "body", body, ok)
		return "route", params, true

	case "unroute":
		params := protocol.Params{}
		url, ok := arg(rest, 1)
		setOpt(params, "url", url, ok)
		return "unroute", params, true

	case "requests":
		opts := rest[1:]
		params := protocol.Params{"clear": hasFlag(opts, "--clear")}
		filter, ok := flagValue(opts, "--filter")
		setOpt(params, "filter", filter, ok)
		return "requests", params, true
	}
	return "", nil, false
}

func translateStorage(rest []string, _ Flags) (string, protocol.Params, bool) {
	kind, _ := arg(rest, 0)
	if kind != "local" && kind != "session" {
		return "", nil, false
	}
	params := protocol.Params{
		"storageType": kind,
		"operation":   argOr(rest, 1, "get"),
	}
	key, ok := arg(rest, 2)
	setOpt(params, "key", key, ok)
	value, ok := arg(rest, 3)
	setOpt(params, "value", value, ok)
	return "storage", params, true
}

// translateCookies treats an unrecognized operation as a plain get.
func translateCookies(rest []string, _ Flags) (string, protocol.Params, bool) {
	op := argOr(rest, 0, "get")
	switch op {
	case "get":
		params := protocol.Params{"operation": "get"}
		name, ok := arg(rest, 1)
		setOpt(params, "name", name, ok)
		return "cookies", params, true
	case "set":
		if len(rest) < 3 {
			return "", nil, false
		}
		return "cookies", protocol.Params{"operation": "set", "name": rest[1], "value": rest[2]}, true
	case "clear":
		return "cookies", protocol.Params{"operation": "clear"}, true
	}
	return "cookies", protocol.Params{"operation": "get"}, true
}

// translateTab lists tabs for a missing or unrecognized sub-verb.
func translateTab(rest []string, _ Flags) (string, protocol.Params, bool) {
	sub, _ := arg(rest, 0)
	switch sub {
	case "new":
		params := protocol.Params{}
		url, ok := arg(rest, 1)
		setOpt(params, "url", url, ok)
		return "tab_new", params, true
	case "list":
		return "tab_list", nil, true
	case "close":
		params := protocol.Params{}
		if n, ok := parseInt32(argOr(rest, 1, "")); ok {
			params["index"] = n
		}
		return "tab_close", params, true
	}
	if n, ok := parseInt32(sub); ok {
		return "tab_switch", protocol.Params{"index": n}, true
	}
	return "tab_list", nil, true
}

func translateWindow(rest []string, _ Flags) (string, protocol.Params, bool) {
	if sub, _ := arg(rest, 0); sub == "new" {
		return "window_new", nil, true
	}
	return "", nil, false
}

func translateFrame(rest []string, _ Flags) (string, protocol.Params, bool) {
	sel, ok := arg(rest, 0)
	if !ok {
		return "", nil, false
	}
	if sel == "main" {
		return "frame_main", nil, true
	}
	return "frame", protocol.Params{"selector": sel}, true
}

func translateDialog(rest []string, _ Flags) (string, protocol.Params, bool) {
	sub, _ := arg(rest, 0)
	switch sub {
	case "accept":
		params := protocol.Params{"response": "accept"}
		text, ok := arg(rest, 1)
		setOpt(params, "promptText", text, ok)
		return "dialog", params, true
	case "dismiss":
		return "dialog", protocol.Params{"response": "dismiss"}, true
	}
	return "", nil, false
}

func translateTrace(rest []string, _ Flags) (string, protocol.Params, bool) {
	sub, _ := arg(rest, 0)
	if sub != "start" && sub != "stop" {
		return "", nil, false
	}
	params := protocol.Params{}
	path, ok := arg(rest, 1)
	setOpt(params, "path", path, ok)
	return "trace_" + sub, params, true
}

func translateState(rest []string, _ Flags) (string, protocol.Params, bool) {
	sub, _ := arg(rest, 0)
	if sub != "save" && sub != "load" {
		return "", nil, false
	}
	path, ok := arg(rest, 1)
	if !ok {
		return "", nil, false
	}
	return "state_" + sub, protocol.Params{"path": path}, true
}

// clearable maps a log-style verb that accepts --clear anywhere.
func clearable(action string) verbFunc {
	return func(rest []string, _ Flags) (string, protocol.Params, bool) {
		return action, protocol.Params{"clear": hasFlag(rest, "--clear")}, true
	}
}
