// Package permission asks the host platform for runtime capabilities and
// hands grants to whoever is waiting on them.
package permission

import (
	"log/slog"
)

type Capability string

const FineLocation Capability = "fine_location"

type State int

const (
	Unknown State = iota
	Granted
	Denied
)

func (s State) String() string {
	switch s {
	case Granted:
		return "granted"
	case Denied:
		return "denied"
	}
	return "unknown"
}

// ParseState maps a config value to a State. Anything unrecognised,
// including "ask", is Unknown.
func ParseState(s string) State {
	switch s {
	case "granted":
		return Granted
	case "denied":
		return Denied
	}
	return Unknown
}

// Host is the platform side: it answers queries and shows prompts. A
// prompt's answer comes back through Gate.OnResult.
type Host interface {
	Check(c Capability) State
	Request(c Capability, code int)
}

// requestCodes are stable per capability.
var requestCodes = map[Capability]int{
	FineLocation: 1,
}

// RequestCode returns the request code used for c.
func RequestCode(c Capability) int {
	if code, ok := requestCodes[c]; ok {
		return code
	}
	return 0
}

type pending struct {
	capability Capability
	waiters    []func()
}

// Gate keeps at most one outstanding request per capability. All methods
// run on the UI goroutine.
type Gate struct {
	host    Host
	logger  *slog.Logger
	states  map[Capability]State
	pending map[int]*pending
}

func NewGate(host Host, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		host:    host,
		logger:  logger,
		states:  make(map[Capability]State),
		pending: make(map[int]*pending),
	}
}

// Ensure calls onGranted now if c is granted, otherwise once the host
// reports a grant for the matching request. A denial never calls back.
func (g *Gate) Ensure(c Capability, onGranted func()) {
	if g.host.Check(c) == Granted {
		g.states[c] = Granted
		onGranted()
		return
	}

	code := RequestCode(c)
	if p, ok := g.pending[code]; ok {
		p.waiters = append(p.waiters, onGranted)
		return
	}
	g.pending[code] = &pending{capability: c, waiters: []func(){onGranted}}
	g.logger.Info("requesting permission", "capability", string(c), "code", code)
	g.host.Request(c, code)
}

// OnResult is the grant-result callback for a request code.
func (g *Gate) OnResult(code int, granted bool) {
	p, ok := g.pending[code]
	if !ok {
		g.logger.Debug("permission result without request", "code", code)
		return
	}
	delete(g.pending, code)

	if !granted {
		g.states[p.capability] = Denied
		g.logger.Info("permission denied", "capability", string(p.capability))
		return
	}
	g.states[p.capability] = Granted
	for _, fn := range p.waiters {
		fn()
	}
}

// State returns the last definite state seen for c.
func (g *Gate) State(c Capability) State {
	return g.states[c]
}

// Pending reports whether a request for c is outstanding.
func (g *Gate) Pending(c Capability) bool {
	_, ok := g.pending[RequestCode(c)]
	return ok
}

// Forget drops every waiter, used when the screen that asked goes away.
func (g *Gate) Forget() {
	for _, p := range g.pending {
		p.waiters = nil
	}
}
