// Package probetest provides an in-memory execution context for probe tests.
package probetest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/buemura/baseera/internal/probe"
	"github.com/buemura/baseera/pkg/types"
)

// Context is a scripted probe.ExecutionContext. Evaluate answers with the
// result registered for exactly that script, else the first one whose key
// the script contains. Head answers from a URL-keyed table and reports 404
// for anything else.
type Context struct {
	mu        sync.Mutex
	scripts   []scripted
	heads     map[string]*probe.HeadResponse
	headErrs  map[string]error
	readyErr  error
	evaluated []string
	requested []string
	closed    int
}

type scripted struct {
	key    string
	result json.RawMessage
	err    error
}

// New returns an empty Context.
func New() *Context {
	return &Context{
		heads:    make(map[string]*probe.HeadResponse),
		headErrs: make(map[string]error),
	}
}

// OnScript makes Evaluate return v, JSON-encoded, for scripts containing key.
func (c *Context) OnScript(key string, v any) *Context {
	raw, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts = append(c.scripts, scripted{key: key, result: raw})
	return c
}

// FailScript makes Evaluate fail for scripts containing key.
func (c *Context) FailScript(key string, err error) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.scripts = append(c.scripts, scripted{key: key, err: err})
	return c
}

// OnHead registers the response to a HEAD of rawURL.
func (c *Context) OnHead(rawURL string, status int, header http.Header) *Context {
	if header == nil {
		header = http.Header{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.heads[rawURL] = &probe.HeadResponse{URL: rawURL, StatusCode: status, Header: header}
	return c
}

// FailHead makes a HEAD of rawURL fail.
func (c *Context) FailHead(rawURL string, err error) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.headErrs[rawURL] = err
	return c
}

// NotReady makes Ready fail with err.
func (c *Context) NotReady(err error) *Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.readyErr = err
	return c
}

// Requested returns every URL passed to Head, in order.
func (c *Context) Requested() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.requested...)
}

// Evaluated returns every script passed to Evaluate, in order.
func (c *Context) Evaluated() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.evaluated...)
}

// Ready implements probe.ExecutionContext.
func (c *Context) Ready(_ context.Context, _ types.Target) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.readyErr
}

// Evaluate implements probe.PageInspector.
func (c *Context) Evaluate(ctx context.Context, script string, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	c.evaluated = append(c.evaluated, script)
	var match *scripted
	for i := range c.scripts {
		if script == c.scripts[i].key {
			match = &c.scripts[i]
			break
		}
	}
	for i := 0; match == nil && i < len(c.scripts); i++ {
		if strings.Contains(script, c.scripts[i].key) {
			match = &c.scripts[i]
		}
	}
	c.mu.Unlock()

	if match == nil {
		return &probe.CapabilityError{Capability: "page", Op: "evaluate", Err: fmt.Errorf("no scripted result")}
	}
	if match.err != nil {
		return &probe.CapabilityError{Capability: "page", Op: "evaluate", Err: match.err}
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(match.result, out)
}

// Head implements probe.NetworkProbe.
func (c *Context) Head(ctx context.Context, rawURL string) (*probe.HeadResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requested = append(c.requested, rawURL)
	if err, ok := c.headErrs[rawURL]; ok {
		return nil, &probe.CapabilityError{Capability: "network", Op: "head", Err: err}
	}
	if r, ok := c.heads[rawURL]; ok {
		cp := *r
		cp.Header = r.Header.Clone()
		return &cp, nil
	}
	return &probe.HeadResponse{URL: rawURL, StatusCode: http.StatusNotFound, Header: http.Header{}}, nil
}

// Target parses rawURL and panics on error.
func Target(rawURL string) types.Target {
	t, err := types.ParseTarget(rawURL)
	if err != nil {
		panic(err)
	}
	return t
}

// Close implements probe.Tab.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed++
	return nil
}

// Closed reports how many times Close was called.
func (c *Context) Closed() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Launcher hands out the same Context for every Open, or fails with Err.
type Launcher struct {
	Tab *Context
	Err error

	mu     sync.Mutex
	opened []types.Target
}

// Open implements probe.Launcher.
func (l *Launcher) Open(_ context.Context, target types.Target) (probe.Tab, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opened = append(l.opened, target)
	if l.Err != nil {
		return nil, l.Err
	}
	return l.Tab, nil
}

// Opened returns the targets passed to Open, in order.
func (l *Launcher) Opened() []types.Target {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]types.Target(nil), l.opened...)
}
