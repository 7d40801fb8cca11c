package docstore

import "sync"

// subscriber serialises deliveries to one subscription.
type subscriber struct {
	mu         sync.Mutex
	done       bool
	onSnapshot func(Document)
	onError    func(error)
}

func (s *subscriber) deliver(doc Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deliverLocked(doc)
}

func (s *subscriber) deliverLocked(doc Document) {
	if s.done {
		return
	}
	doc.Record = doc.Record.clone()
	s.onSnapshot(doc)
}

func (s *subscriber) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done {
		return
	}
	s.done = true
	if s.onError != nil {
		s.onError(err)
	}
}

func (s *subscriber) stop() {
	s.mu.Lock()
	s.done = true
	s.mu.Unlock()
}

// hub fans document writes out to in-process subscribers. Callbacks
// run on the publishing goroutine, outside the hub lock.
type hub struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

func newHub() *hub {
	return &hub{subs: make(map[string]map[*subscriber]struct{})}
}

func (h *hub) add(id string, onSnapshot func(Document), onError func(error)) *subscriber {
	s := &subscriber{onSnapshot: onSnapshot, onError: onError}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[id] == nil {
		h.subs[id] = make(map[*subscriber]struct{})
	}
	h.subs[id][s] = struct{}{}
	return s
}

// remove returns an idempotent unsubscribe function for s.
func (h *hub) remove(id string, s *subscriber) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			s.stop()
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[id], s)
			if len(h.subs[id]) == 0 {
				delete(h.subs, id)
			}
		})
	}
}

func (h *hub) snapshot(id string) []*subscriber {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*subscriber, 0, len(h.subs[id]))
	for s := range h.subs[id] {
		out = append(out, s)
	}
	return out
}

func (h *hub) publish(doc Document) {
	for _, s := range h.snapshot(doc.ID) {
		s.deliver(doc)
	}
}

// failAll breaks every subscription, used when the store closes.
func (h *hub) failAll(err error) {
	h.mu.Lock()
	var all []*subscriber
	for _, set := range h.subs {
		for s := range set {
			all = append(all, s)
		}
	}
	h.subs = make(map[string]map[*subscriber]struct{})
	h.mu.Unlock()

	for _, s := range all {
		s.fail(err)
	}
}

func (h *hub) count(id string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[id])
}
