package store

import (
	"context"
	"encoding/json"
	"reflect"
	"sort"
	"sync"
	"time"
)

// Helpers shared by the stores that keep documents as JSON (memory and SQL).

// normalize gives v the shape it has after a JSON round trip so values read
// back from the store compare equal to values supplied by callers.
func normalize(v interface{}) interface{} {
	b, err := json.Marshal(v)
	if err != nil {
		return v
	}
	out, err := unmarshalValue(b)
	if err != nil {
		return v
	}
	return out
}

// prepare resolves ServerTimestamp sentinels and normalizes the payload.
func prepare(data map[string]interface{}, now time.Time) map[string]interface{} {
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		if _, ok := v.(serverTimestamp); ok {
			out[k] = now.UTC().Format(time.RFC3339Nano)
			continue
		}
		out[k] = normalize(v)
	}
	return out
}

func clone(data map[string]interface{}) map[string]interface{} {
	if data == nil {
		return nil
	}
	out := make(map[string]interface{}, len(data))
	for k, v := range data {
		out[k] = v
	}
	return out
}

func matchesAll(data map[string]interface{}, filters []Filter) bool {
	for _, f := range filters {
		if !matches(data, f) {
			return false
		}
	}
	return true
}

func matches(data map[string]interface{}, f Filter) bool {
	got, ok := data[f.Field]
	switch f.Op {
	case "in":
		list, _ := normalize(f.Value).([]interface{})
		for _, want := range list {
			if ok && reflect.DeepEqual(got, want) {
				return true
			}
		}
		return false
	default:
		want := normalize(f.Value)
		if !ok {
			return want == nil
		}
		return reflect.DeepEqual(got, want)
	}
}

func sortByID(docs []Document) {
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
}

type watcher struct {
	collection string
	docID      string
	filters    []Filter
	notify     chan struct{}
	cancel     context.CancelFunc
}

func (w *watcher) Stop() { w.cancel() }

// notifier fans local writes out to live subscriptions. Each watcher coalesces
// bursts of writes into one snapshot delivery.
type notifier struct {
	mu       sync.Mutex
	watchers map[*watcher]struct{}
}

func newNotifier() *notifier {
	return &notifier{watchers: make(map[*watcher]struct{})}
}

func (n *notifier) add(ctx context.Context, collection, docID string, filters []Filter, deliver func()) *watcher {
	ctx, cancel := context.WithCancel(ctx)
	w := &watcher{collection: collection, docID: docID, filters: filters, notify: make(chan struct{}, 1), cancel: cancel}
	n.mu.Lock()
	n.watchers[w] = struct{}{}
	n.mu.Unlock()
	go func() {
		defer func() {
			n.mu.Lock()
			delete(n.watchers, w)
			n.mu.Unlock()
		}()
		deliver()
		for {
			select {
			case <-ctx.Done():
				return
			case <-w.notify:
				deliver()
			}
		}
	}()
	return w
}

func (n *notifier) changed(collection, id string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for w := range n.watchers {
		if w.collection != collection || (w.docID != "" && w.docID != id) {
			continue
		}
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}
}
