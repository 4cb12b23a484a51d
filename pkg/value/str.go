package value

import (
	"sync"
	"sync/atomic"
)

// Str is an interned, immutable string value.
type Str struct {
	text string
}

func (s *Str) String() string {
	return s.text
}

func (s *Str) Len() int {
	return len(s.text)
}

// StrTable interns strings by content. Entries are never evicted so equal
// content always yields the same *Str.
type StrTable struct {
	table  map[string]*Str
	mutex  sync.RWMutex
	hits   int64
	misses int64
}

func NewStrTable() *StrTable {
	return &StrTable{table: make(map[string]*Str)}
}

var globalStrings = NewStrTable()

// Instance returns the process-wide interned Str for text.
func Instance(text string) *Str {
	return globalStrings.Instance(text)
}

// StrStats returns the statistics of the process-wide table.
func StrStats() map[string]interface{} {
	return globalStrings.GetStats()
}

func (st *StrTable) Instance(text string) *Str {
	st.mutex.RLock()
	if s, exists := st.table[text]; exists {
		st.mutex.RUnlock()
		atomic.AddInt64(&st.hits, 1)
		return s
	}
	st.mutex.RUnlock()

	st.mutex.Lock()
	defer st.mutex.Unlock()
	if s, exists := st.table[text]; exists {
		atomic.AddInt64(&st.hits, 1)
		return s
	}
	s := &Str{text: text}
	st.table[text] = s
	atomic.AddInt64(&st.misses, 1)
	return s
}

func (st *StrTable) Len() int {
	st.mutex.RLock()
	defer st.mutex.RUnlock()
	return len(st.table)
}

func (st *StrTable) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"entries": st.Len(),
		"hits":    atomic.LoadInt64(&st.hits),
		"misses":  atomic.LoadInt64(&st.misses),
	}
}
