package memory

import (
	"sync"

	"github.com/vaultkv/vaultkv/lib/db"
)

// --------------------------------------------------------------------------
// Core memory database structure
// --------------------------------------------------------------------------

// memoryImpl implements db.KVDB as a single reader/writer-locked map.
//
// Go's sync.RWMutex blocks new readers once a writer is waiting, so a
// continuous stream of readers cannot starve writers indefinitely.
type memoryImpl struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// DBOptions configures the memoryImpl behavior during initialization
type DBOptions struct {
	InitialCapacity int // Initial map capacity (0 = let the runtime decide)
}

// DefaultOptions returns the default memoryImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		InitialCapacity: 0,
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewMemoryDB creates a new in-memory database instance with the specified
// options (optional).
//
// Thread-safety: This function is not thread-safe and should only be called
// once during initialization. All methods of the returned db.KVDB are safe
// for concurrent use.
func NewMemoryDB(opts *DBOptions) db.KVDB {
	if opts == nil {
		opts = DefaultOptions()
	}

	return &memoryImpl{
		data: make(map[string][]byte, opts.InitialCapacity),
	}
}

// --------------------------------------------------------------------------
// Interface Methods - Write Operations (docu see db/db.go)
// --------------------------------------------------------------------------

func (m *memoryImpl) Set(key string, value []byte) {
	// Copy the value so later caller-side mutations cannot leak into the map
	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = stored
}

func (m *memoryImpl) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, existed := m.data[key]
	delete(m.data, key)
	return existed
}

func (m *memoryImpl) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string][]byte)
}

// --------------------------------------------------------------------------
// Interface Methods - Query Operations (docu see db/db.go)
// --------------------------------------------------------------------------

func (m *memoryImpl) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, loaded := m.data[key]
	if !loaded {
		return nil, false
	}

	// Return a copy, never a reference to the stored value
	result := make([]byte, len(value))
	copy(result, value)
	return result, true
}

func (m *memoryImpl) Has(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, loaded := m.data[key]
	return loaded
}

func (m *memoryImpl) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

func (m *memoryImpl) ForEach(fn func(key string, value []byte) bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for key, value := range m.data {
		if !fn(key, value) {
			return
		}
	}
}
