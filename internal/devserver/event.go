// Package devserver pushes the outcome of every watch-mode pass to connected
// socket.io clients and serves a health endpoint next to it.
package devserver

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/specialistvlad/blueprintc/internal/compiler"
	"github.com/specialistvlad/blueprintc/internal/diag"
	"github.com/specialistvlad/blueprintc/internal/emit"
)

// PassEvent is the socket.io event name carrying an Event.
const PassEvent = "pass"

// Event summarizes one finished compile pass.
type Event struct {
	Pass        string    `json:"pass,omitempty"`
	Stage       string    `json:"stage"`
	Failed      bool      `json:"failed"`
	Errors      int       `json:"errors"`
	Warnings    int       `json:"warnings"`
	Routes      []string  `json:"routes,omitempty"`
	Diagnostics []string  `json:"diagnostics,omitempty"`
	Finished    time.Time `json:"finished"`
}

// NewEvent builds the event for a pass result. out may be nil when the pass
// could not run at all, in which case err becomes the only diagnostic.
func NewEvent(out *compiler.Output, err error, finished time.Time) Event {
	ev := Event{Finished: finished.UTC()}
	if out == nil {
		ev.Stage = "load"
		ev.Failed = true
		if err != nil {
			ev.Errors = 1
			ev.Diagnostics = []string{err.Error()}
		}
		return ev
	}

	ev.Pass = out.Pass
	ev.Stage = string(out.Stage)
	ev.Failed = out.Failed()
	for _, d := range out.Diagnostics {
		if d.Severity == diag.Error {
			ev.Errors++
		} else {
			ev.Warnings++
		}
		ev.Diagnostics = append(ev.Diagnostics, d.String())
	}
	if out.Routes != nil {
		var b strings.Builder
		if emit.Routes(&b, out) == nil {
			ev.Routes = strings.Split(strings.TrimSuffix(b.String(), "\n"), "\n")
		}
		if len(ev.Routes) == 1 && ev.Routes[0] == "" {
			ev.Routes = nil
		}
	}
	return ev
}

// Summary renders the outcome of the pass on one line.
func (e Event) Summary() string {
	if e.Failed {
		return fmt.Sprintf("pass failed during %s: %d error(s), %d warning(s)", e.Stage, e.Errors, e.Warnings)
	}
	return fmt.Sprintf("pass succeeded: %d route(s), %d warning(s)", len(e.Routes), e.Warnings)
}

// payload is the JSON object form of e sent over socket.io.
func (e Event) payload() map[string]any {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}
