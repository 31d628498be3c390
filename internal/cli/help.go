package cli

import (
	"fmt"
	"io"
)

const helpText = `agent-browser - browser automation CLI for AI agents

Usage: agent-browser <command> [args] [options]

Core Commands:
  open <url>                 Navigate to URL (https:// added when no scheme)
  click <sel>                Click element (or @ref)
  dblclick <sel>             Double-click element
  type <sel> <text>          Type into element
  fill <sel> <text>          Clear and fill
  press <key>                Press key (Enter, Tab, Control+a)
  keydown <key>              Hold key down
  keyup <key>                Release key
  hover <sel>                Hover element
  focus <sel>                Focus element
  check <sel>                Check checkbox
  uncheck <sel>              Uncheck checkbox
  select <sel> <val>         Select dropdown option
  drag <src> <dst>           Drag and drop
  upload <sel> <files...>    Upload files
  scroll [dir] [px]          Scroll (up/down/left/right, default down 300)
  scrollintoview <sel>       Scroll element into view
  wait <sel|ms>              Wait for element or milliseconds
  screenshot [path]          Take screenshot
  pdf <path>                 Save as PDF
  snapshot                   Accessibility tree with refs
  eval <js>                  Run JavaScript
  close                      Close browser

Navigation:
  back                       Go back
  forward                    Go forward
  reload                     Reload page

Get Info:  agent-browser get <what> [selector]
  text, html, value, attr <sel> <name>, title, url, count, box

Check State:  agent-browser is <what> <selector>
  visible, enabled, checked

Find Elements:  agent-browser find <locator> <value> [action] [text]
  role, text, label, placeholder, alt, title, testid, first, last
  nth <index> <sel> [action] [text]
  --name <name>              Accessible name (role only)
  --exact                    Exact text match

Mouse:  agent-browser mouse <action> [args]
  move <x> <y>, down [btn], up [btn], wheel [dy] [dx]

Browser Settings:  agent-browser set <setting> [value]
  viewport <w> <h>, device <name>, geo <lat> <lng>
  offline [on|off], headers <json>, credentials <user> <pass>
  media [dark|light] [reduced-motion]

Network:  agent-browser network <action>
  route <url> [--abort] [--body <json>]
  unroute [url]
  requests [--clear] [--filter <pattern>]

Storage:
  cookies [get [name]|set <name> <value>|clear]
  storage <local|session> [get|set|remove|clear] [key] [value]

Tabs and Frames:
  tab [new [url]|list|close [n]|<n>]
  window new
  frame <sel|main>
  dialog accept [text]|dismiss

Debug:
  trace start|stop [path]    Record trace
  console [--clear]          View console logs
  errors [--clear]           View page errors
  highlight <sel>            Highlight element
  state save|load <path>     Save or restore cookies and storage

Snapshot Options:
  -i, --interactive          Only interactive elements
  -c, --compact              Remove empty structural elements
  -d, --depth <n>            Limit tree depth
  -s, --selector <sel>       Scope to CSS selector

Options:
  --session <name>           Isolated session (or AGENT_BROWSER_SESSION env)
  --json                     JSON output
  --full, -f                 Full page screenshot
  --headed                   Show browser window (not headless)
  --debug                    Debug output on stderr

Other Commands:
  session                    Show the current session
  session list               List known sessions
  mcp serve                  Run as an MCP server on stdio
  version                    Show version

Examples:
  agent-browser open example.com
  agent-browser snapshot -i
  agent-browser click @e2
  agent-browser fill @e3 "test@example.com"
  agent-browser find role button click --name Submit
  agent-browser get text @e1
  agent-browser screenshot --full
`

// PrintHelp writes the command reference.
func PrintHelp(w io.Writer) {
	_, _ = fmt.Fprint(w, helpText)
}
