package store

import (
	"context"
	"path"
	"sync"
)

// MemoryStore is an in-process Store and Bus. It backs tests and
// single-instance deployments that have no external Redis. One mutex
// guards everything, which makes the multi-key Delete atomic by
// construction.
type MemoryStore struct {
	mu     sync.Mutex
	lists  map[string][][]byte
	hashes map[string]map[string]string
	sets   map[string]map[string]struct{}
	subs   []*memorySub
	closed bool
}

type memorySub struct {
	pattern string
	ch      chan BusMessage
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Bus   = (*MemoryStore)(nil)
)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		lists:  make(map[string][][]byte),
		hashes: make(map[string]map[string]string),
		sets:   make(map[string]map[string]struct{}),
	}
}

func (s *MemoryStore) ListPush(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	s.lists[key] = append(s.lists[key], cp)
	return nil
}

// normalizeIndex resolves a possibly-negative list index against length n,
// clamped to [0, n-1].
func normalizeIndex(idx, n int64) int64 {
	if idx < 0 {
		idx = n + idx
	}
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	return idx
}

func (s *MemoryStore) ListTrim(ctx context.Context, key string, start, stop int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.lists[key]
	if !ok {
		return nil
	}
	n := int64(len(list))
	lo, hi := normalizeIndex(start, n), normalizeIndex(stop, n)
	if lo > hi || n == 0 {
		delete(s.lists, key)
		return nil
	}
	s.lists[key] = list[lo : hi+1]
	return nil
}

func (s *MemoryStore) ListRange(ctx context.Context, key string, start, stop int64) ([][]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[key]
	n := int64(len(list))
	if n == 0 {
		return nil, nil
	}
	lo, hi := normalizeIndex(start, n), normalizeIndex(stop, n)
	if lo > hi {
		return nil, nil
	}
	out := make([][]byte, 0, hi-lo+1)
	for _, v := range list[lo : hi+1] {
		cp := make([]byte, len(v))
		copy(cp, v)
		out = append(out, cp)
	}
	return out, nil
}

func (s *MemoryStore) HashSetAll(ctx context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (s *MemoryStore) HashGetAll(ctx context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.hashes[key]))
	for k, v := range s.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (s *MemoryStore) SetAdd(ctx context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	set[member] = struct{}{}
	return nil
}

func (s *MemoryStore) SetRemove(ctx context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if set, ok := s.sets[key]; ok {
		delete(set, member)
		if len(set) == 0 {
			delete(s.sets, key)
		}
	}
	return nil
}

func (s *MemoryStore) SetMembers(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.sets[key]))
	for m := range s.sets[key] {
		out = append(out, m)
	}
	return out, nil
}

func (s *MemoryStore) SetSize(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.sets[key])), nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.lists[key]; ok {
		return true, nil
	}
	if _, ok := s.hashes[key]; ok {
		return true, nil
	}
	_, ok := s.sets[key]
	return ok, nil
}

func (s *MemoryStore) Delete(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.lists, key)
		delete(s.hashes, key)
		delete(s.sets, key)
	}
	return nil
}

func (s *MemoryStore) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	appendMatches := func(keys map[string]bool) {
		for key := range keys {
			if ok, _ := path.Match(pattern, key); ok {
				out = append(out, key)
			}
		}
	}
	all := make(map[string]bool)
	for k := range s.lists {
		all[k] = true
	}
	for k := range s.hashes {
		all[k] = true
	}
	for k := range s.sets {
		all[k] = true
	}
	appendMatches(all)
	return out, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, sub := range s.subs {
		close(sub.ch)
	}
	s.subs = nil
	return nil
}

func (s *MemoryStore) Publish(ctx context.Context, channel string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if ok, _ := path.Match(sub.pattern, channel); !ok {
			continue
		}
		cp := make([]byte, len(payload))
		copy(cp, payload)
		select {
		case sub.ch <- BusMessage{Channel: channel, Payload: cp}:
		default:
		}
	}
	return nil
}

func (s *MemoryStore) PSubscribe(ctx context.Context, pattern string) (<-chan BusMessage, error) {
	s.mu.Lock()
	sub := &memorySub{pattern: pattern, ch: make(chan BusMessage, 64)}
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	out := make(chan BusMessage, 64)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				s.dropSub(sub)
				return
			case msg, ok := <-sub.ch:
				if !ok {
					return
				}
				select {
				case out <- msg:
				case <-ctx.Done():
					s.dropSub(sub)
					return
				}
			}
		}
	}()
	return out, nil
}

func (s *MemoryStore) dropSub(sub *memorySub) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, candidate := range s.subs {
		if candidate == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}
