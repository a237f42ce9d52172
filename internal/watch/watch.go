// Package watch implements "sysyc watch": recompile a project's entry
// point whenever its source file changes, and push the result to any
// connected browser/editor client over a websocket, generalizing the
// teacher's live-reload websocket server from script output to
// compile diagnostics.
//
// There is no filesystem-event library in this module's dependency
// set, so change detection polls the entry point's mtime; see
// DESIGN.md for why.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sysyc/internal/buildcache"
	"sysyc/internal/diagnostics"
	"sysyc/internal/manifest"
	"sysyc/internal/pipeline"
)

// Notification is one recompile result, pushed as JSON over every
// connected websocket.
type Notification struct {
	File        string `json:"file"`
	Mode        string `json:"mode"`
	OK          bool   `json:"ok"`
	Diagnostic  string `json:"diagnostic,omitempty"`
	Bytes       int    `json:"bytes"`
	CompiledAt  string `json:"compiled_at"`
}

// Watcher recompiles a manifest's entry point on change and fans the
// result out to subscribers.
type Watcher struct {
	m        *manifest.Manifest
	cache    *buildcache.Cache
	reporter *diagnostics.Reporter

	mu      sync.Mutex
	clients map[*websocket.Conn]bool

	upgrader websocket.Upgrader
}

// New builds a Watcher for the given manifest and cache, typically
// the same pair build.Builder opened.
func New(m *manifest.Manifest, cache *buildcache.Cache) *Watcher {
	return &Watcher{
		m:        m,
		cache:    cache,
		reporter: diagnostics.NewReporter(os.Stderr, os.Stderr.Fd()),
		clients:  map[*websocket.Conn]bool{},
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// Handler serves the websocket endpoint clients subscribe to for
// recompile notifications.
func (w *Watcher) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := w.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		w.mu.Lock()
		w.clients[conn] = true
		w.mu.Unlock()

		defer func() {
			w.mu.Lock()
			delete(w.clients, conn)
			w.mu.Unlock()
			conn.Close()
		}()

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}
}

func (w *Watcher) broadcast(n Notification) {
	data, err := json.Marshal(n)
	if err != nil {
		return
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	for c := range w.clients {
		if err := c.WriteMessage(websocket.TextMessage, data); err != nil {
			c.Close()
			delete(w.clients, c)
		}
	}
}

// Run polls the entry point every interval, recompiling (via the
// shared build cache) whenever its mtime advances, and blocks until
// ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) error {
	path := w.m.EntryPointPath()
	var lastMod time.Time
	if info, err := os.Stat(path); err == nil {
		lastMod = info.ModTime()
	}

	recompile := func() {
		src, err := pipeline.ReadSource(path)
		if err != nil {
			w.reporter.Error(err)
			w.broadcast(Notification{File: path, Diagnostic: err.Error(), CompiledAt: time.Now().Format(time.RFC3339)})
			return
		}
		key := buildcache.HashKey(src, w.m.Build.BuildFlags...)
		art, err := w.cache.GetOrCompile(ctx, key, func() (buildcache.Artifact, error) {
			res, err := pipeline.Compile(src, pipeline.ModeRiscv)
			if err != nil {
				return buildcache.Artifact{}, err
			}
			return buildcache.Artifact{IRText: res.IRText, Asm: res.Output}, nil
		})
		n := Notification{File: path, Mode: string(pipeline.ModeRiscv), CompiledAt: time.Now().Format(time.RFC3339)}
		if err != nil {
			w.reporter.Error(err)
			n.Diagnostic = err.Error()
		} else {
			n.OK = true
			n.Bytes = len(art.Asm)
			fmt.Fprintf(os.Stderr, "recompiled %s (%d bytes)\n", path, n.Bytes)
		}
		w.broadcast(n)
	}

	recompile()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			info, err := os.Stat(path)
			if err != nil {
				continue
			}
			if info.ModTime().After(lastMod) {
				lastMod = info.ModTime()
				recompile()
			}
		}
	}
}
