package watcher

import (
	"github.com/fsnotify/fsnotify"

	"github.com/fulmenhq/twproj/internal/reactor"
)

// kindOf maps an fsnotify operation to a change kind. Chmod-only events are
// dropped.
func kindOf(op fsnotify.Op) (reactor.Kind, bool) {
	switch {
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return reactor.Deleted, true
	case op.Has(fsnotify.Create):
		return reactor.Created, true
	case op.Has(fsnotify.Write):
		return reactor.Changed, true
	default:
		return 0, false
	}
}

// batch coalesces the changes seen during one debounce window, one event per
// path, in first-seen order.
type batch struct {
	order []string
	kinds map[string]reactor.Kind
}

func newBatch() *batch {
	return &batch{kinds: make(map[string]reactor.Kind)}
}

// add folds k into the pending change for path. A file created and removed
// within the window never existed for the batch; one removed and recreated
// has changed.
func (b *batch) add(path string, k reactor.Kind) {
	prev, ok := b.kinds[path]
	if !ok {
		b.order = append(b.order, path)
		b.kinds[path] = k
		return
	}
	switch {
	case prev == reactor.Created && k == reactor.Changed:
		return
	case prev == reactor.Created && k == reactor.Deleted:
		k = 0
	case prev == reactor.Deleted && k == reactor.Created:
		k = reactor.Changed
	}
	b.kinds[path] = k
}

func (b *batch) len() int {
	return len(b.order)
}

// events drains the batch.
func (b *batch) events() []reactor.Event {
	out := make([]reactor.Event, 0, len(b.order))
	for _, p := range b.order {
		if k := b.kinds[p]; k != 0 {
			out = append(out, reactor.Event{Path: p, Kind: k})
		}
	}
	b.order = nil
	b.kinds = make(map[string]reactor.Kind)
	return out
}
