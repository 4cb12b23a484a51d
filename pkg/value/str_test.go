package value

import (
	"sync"
	"testing"
)

func TestInstanceInterning(t *testing.T) {
	a := Instance("hello")
	b := Instance("hel" + "lo")
	if a != b {
		t.Error("Identical content should yield the same instance")
	}
	if a.String() != "hello" || a.Len() != 5 {
		t.Errorf("Unexpected content %q", a.String())
	}
	if Instance("Hello") == a {
		t.Error("Different content must not share an instance")
	}
}

func TestStrTableConcurrent(t *testing.T) {
	table := NewStrTable()
	const workers = 8

	results := make([]*Str, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = table.Instance("shared text")
		}(i)
	}
	wg.Wait()

	for i := 1; i < workers; i++ {
		if results[i] != results[0] {
			t.Fatalf("Worker %d got a different instance", i)
		}
	}
	stats := table.GetStats()
	if stats["entries"].(int) != 1 {
		t.Errorf("Expected 1 entry, got %v", stats["entries"])
	}
	if stats["misses"].(int64) != 1 {
		t.Errorf("Expected exactly one miss, got %v", stats["misses"])
	}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{nil, "<none>"},
		{Int(3), "int 3"},
		{Double(2.5), "double 2.5"},
		{Instance("x"), `str "x"`},
	}
	for _, tt := range tests {
		if got := Describe(tt.v); got != tt.want {
			t.Errorf("Describe: expected %q, got %q", tt.want, got)
		}
	}
}
