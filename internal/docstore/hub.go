package docstore

import (
	"log/slog"
	"sync"
)

// hub fans collection snapshots out to subscribers. Each backend embeds one
// and calls refresh after every mutation; refresh re-reads the collection so
// subscribers always see the store's view, not the mutation's.
type hub struct {
	mu     sync.Mutex
	nextID int
	subs   map[string]map[int]func([]Document)
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[int]func([]Document))}
}

func (h *hub) subscribe(path string, fn func([]Document)) func() {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[path] == nil {
		h.subs[path] = make(map[int]func([]Document))
	}
	h.subs[path][id] = fn
	h.mu.Unlock()

	return func() {
		h.mu.Lock()
		defer h.mu.Unlock()
		if m, ok := h.subs[path]; ok {
			delete(m, id)
			if len(m) == 0 {
				delete(h.subs, path)
			}
		}
	}
}

// publish delivers docs to every subscriber of path. Callbacks run outside
// the hub lock; each receives its own copy of the slice.
func (h *hub) publish(path string, docs []Document) {
	h.mu.Lock()
	fns := make([]func([]Document), 0, len(h.subs[path]))
	for _, fn := range h.subs[path] {
		fns = append(fns, fn)
	}
	h.mu.Unlock()

	for _, fn := range fns {
		snapshot := make([]Document, len(docs))
		copy(snapshot, docs)
		fn(snapshot)
	}
}

// refresh loads the collection and publishes it. Load failures are logged
// and swallowed: a broken read must not tear down the push channel.
func (h *hub) refresh(path string, load func(string) ([]Document, error)) {
	docs, err := load(path)
	if err != nil {
		slog.Error("Snapshot refresh failed", "collection", path, "error", err)
		return
	}
	h.publish(path, docs)
}

// paths returns every collection that currently has subscribers.
func (h *hub) paths() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.subs))
	for p := range h.subs {
		out = append(out, p)
	}
	return out
}
