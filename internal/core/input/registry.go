package input

import (
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const defaultShardCount = 16

// Registry is the table of currently detected input sources. It is
// sharded by source ID so pose updates from many sessions don't contend
// on a single lock.
type Registry struct {
	shards []registryShard
	count  uint64
}

type registryShard struct {
	mu      sync.RWMutex
	sources map[string]*Source
}

// NewRegistry creates a registry with the given shard count.
func NewRegistry(shardCount int) *Registry {
	if shardCount <= 0 {
		shardCount = defaultShardCount
	}
	r := &Registry{
		shards: make([]registryShard, shardCount),
		count:  uint64(shardCount),
	}
	for i := range r.shards {
		r.shards[i].sources = make(map[string]*Source)
	}
	return r
}

func (r *Registry) shardFor(id string) *registryShard {
	return &r.shards[xxhash.Sum64String(id)%r.count]
}

// Attach adds or replaces a source record.
func (r *Registry) Attach(src *Source) {
	sh := r.shardFor(src.ID)
	sh.mu.Lock()
	sh.sources[src.ID] = src
	sh.mu.Unlock()
}

// Detach removes a source. Returns the removed record, or false when
// the ID is not attached.
func (r *Registry) Detach(id string) (*Source, bool) {
	sh := r.shardFor(id)
	sh.mu.Lock()
	src, ok := sh.sources[id]
	if ok {
		delete(sh.sources, id)
	}
	sh.mu.Unlock()
	return src, ok
}

// Get returns a copy of the source with the given ID.
func (r *Registry) Get(id string) (*Source, bool) {
	sh := r.shardFor(id)
	sh.mu.RLock()
	src, ok := sh.sources[id]
	var cp *Source
	if ok {
		cp = src.clone()
	}
	sh.mu.RUnlock()
	return cp, ok
}

// SetMapping records a mapping pose on an attached source and refreshes
// its LastSeen. Returns false when the source is not attached.
func (r *Registry) SetMapping(id string, usage MappingUsage, pose Pose) bool {
	sh := r.shardFor(id)
	sh.mu.Lock()
	src, ok := sh.sources[id]
	if ok {
		src.SetMapping(usage, pose)
		src.LastSeen = time.Now()
	}
	sh.mu.Unlock()
	return ok
}

// Touch refreshes a source's LastSeen without changing its mappings.
func (r *Registry) Touch(id string) bool {
	sh := r.shardFor(id)
	sh.mu.Lock()
	src, ok := sh.sources[id]
	if ok {
		src.LastSeen = time.Now()
	}
	sh.mu.Unlock()
	return ok
}

// FindByKind scans for the first attached source matching kind and
// handedness. (kind, handedness) is expected to be unique among attached
// sources, so first match wins and no tie-break is applied.
func (r *Registry) FindByKind(kind SourceKind, hand Handedness) (*Source, bool) {
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		for _, src := range sh.sources {
			if src.Kind == kind && src.Handedness == hand {
				cp := src.clone()
				sh.mu.RUnlock()
				return cp, true
			}
		}
		sh.mu.RUnlock()
	}
	return nil, false
}

// Snapshot returns copies of all attached sources.
func (r *Registry) Snapshot() []*Source {
	var out []*Source
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		for _, src := range sh.sources {
			out = append(out, src.clone())
		}
		sh.mu.RUnlock()
	}
	return out
}

// Len returns the number of attached sources.
func (r *Registry) Len() int {
	n := 0
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.RLock()
		n += len(sh.sources)
		sh.mu.RUnlock()
	}
	return n
}

// SweepStale detaches every source whose LastSeen is older than ttl and
// returns the removed records.
func (r *Registry) SweepStale(ttl time.Duration) []*Source {
	cutoff := time.Now().Add(-ttl)
	var removed []*Source
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		for id, src := range sh.sources {
			if src.LastSeen.Before(cutoff) {
				delete(sh.sources, id)
				removed = append(removed, src)
			}
		}
		sh.mu.Unlock()
	}
	return removed
}

// DetachSession removes every source attached by the given session and
// returns the removed records. Used when a device connection drops.
func (r *Registry) DetachSession(sessionID string) []*Source {
	var removed []*Source
	for i := range r.shards {
		sh := &r.shards[i]
		sh.mu.Lock()
		for id, src := range sh.sources {
			if src.SessionID == sessionID {
				delete(sh.sources, id)
				removed = append(removed, src)
			}
		}
		sh.mu.Unlock()
	}
	return removed
}
