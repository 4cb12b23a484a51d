package value

import (
	"sync"
	"sync/atomic"
)

const defaultConstantPoolSize = 4096

type constantKey struct {
	mode Mode
	bits uint64
}

// ConstantPool interns numeric constants. Sharing is an optimization only:
// entries may be evicted, so callers compare with Equal, not by pointer.
type ConstantPool struct {
	table     map[constantKey]*Numeric
	mutex     sync.RWMutex
	maxSize   int
	hits      int64
	misses    int64
	evictions int64
}

// NewConstantPool creates a pool holding at most maxSize constants.
func NewConstantPool(maxSize int) *ConstantPool {
	if maxSize <= 0 {
		maxSize = defaultConstantPoolSize
	}
	return &ConstantPool{
		table:   make(map[constantKey]*Numeric),
		maxSize: maxSize,
	}
}

var globalConstants = NewConstantPool(defaultConstantPoolSize)

// Constant returns the interned numeric of the given mode. bits is masked
// to the width of the mode.
func Constant(mode Mode, bits uint64) *Numeric {
	return globalConstants.Get(mode, bits)
}

// ConstantStats returns the statistics of the process-wide pool.
func ConstantStats() map[string]interface{} {
	return globalConstants.GetStats()
}

func (cp *ConstantPool) Get(mode Mode, bits uint64) *Numeric {
	key := constantKey{mode: mode, bits: bits & mode.mask()}

	cp.mutex.RLock()
	if n, exists := cp.table[key]; exists {
		cp.mutex.RUnlock()
		atomic.AddInt64(&cp.hits, 1)
		return n
	}
	cp.mutex.RUnlock()

	cp.mutex.Lock()
	defer cp.mutex.Unlock()

	// Double-check after acquiring write lock
	if n, exists := cp.table[key]; exists {
		atomic.AddInt64(&cp.hits, 1)
		return n
	}

	if len(cp.table) >= cp.maxSize {
		cp.evictBatch()
	}

	n := &Numeric{mode: key.mode, bits: key.bits}
	cp.table[key] = n
	atomic.AddInt64(&cp.misses, 1)
	return n
}

// evictBatch drops a fifth of the table. Caller holds the write lock.
func (cp *ConstantPool) evictBatch() {
	removeCount := len(cp.table) / 5
	if removeCount < 1 {
		removeCount = 1
	}
	for key := range cp.table {
		if removeCount == 0 {
			break
		}
		delete(cp.table, key)
		removeCount--
		atomic.AddInt64(&cp.evictions, 1)
	}
}

// GetStats returns pool statistics
func (cp *ConstantPool) GetStats() map[string]interface{} {
	cp.mutex.RLock()
	size := len(cp.table)
	cp.mutex.RUnlock()

	hits := atomic.LoadInt64(&cp.hits)
	misses := atomic.LoadInt64(&cp.misses)
	hitRate := 0.0
	if hits+misses > 0 {
		hitRate = float64(hits) / float64(hits+misses) * 100
	}
	return map[string]interface{}{
		"size":      size,
		"max_size":  cp.maxSize,
		"hits":      hits,
		"misses":    misses,
		"evictions": atomic.LoadInt64(&cp.evictions),
		"hit_rate":  hitRate,
	}
}
