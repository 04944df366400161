package identity

import (
	"sync"
	"testing"
)

func TestPool_Next(t *testing.T) {
	ids := []Identity{
		{UserAgent: "A"},
		{UserAgent: "B"},
		{UserAgent: "C"},
	}
	p := NewPool(ids)

	// One full cycle before any repeat
	if got := p.Next().UserAgent; got != "A" {
		t.Errorf("expected A, got %s", got)
	}
	if got := p.Next().UserAgent; got != "B" {
		t.Errorf("expected B, got %s", got)
	}
	if got := p.Next().UserAgent; got != "C" {
		t.Errorf("expected C, got %s", got)
	}
	if got := p.Next().UserAgent; got != "A" {
		t.Errorf("expected A after full cycle, got %s", got)
	}
}

func TestPool_FullCycleBeforeRepeat(t *testing.T) {
	p := NewPool(nil)
	n := p.Size()

	seen := make(map[string]int)
	for i := 0; i < n; i++ {
		seen[p.Next().UserAgent]++
	}

	if len(seen) != n {
		t.Errorf("expected %d distinct identities in one cycle, got %d", n, len(seen))
	}
	for ua, count := range seen {
		if count != 1 {
			t.Errorf("identity %q handed out %d times within one cycle", ua, count)
		}
	}
}

func TestPool_Default(t *testing.T) {
	p := NewPool(nil)
	if p.Size() != len(DefaultIdentities) {
		t.Errorf("expected pool size %d, got %d", len(DefaultIdentities), p.Size())
	}
	if got := p.Next(); got != DefaultIdentities[0] {
		t.Errorf("expected first default identity, got %+v", got)
	}
}

func TestPool_Concurrent(t *testing.T) {
	ids := []Identity{{UserAgent: "X"}, {UserAgent: "Y"}, {UserAgent: "Z"}}
	p := NewPool(ids)

	var wg sync.WaitGroup
	const routines = 50
	const iterations = 300

	results := make(chan string, routines*iterations)
	for i := 0; i < routines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				results <- p.Next().UserAgent
			}
		}()
	}
	wg.Wait()
	close(results)

	counts := map[string]int{}
	for r := range results {
		counts[r]++
	}

	expected := (routines * iterations) / len(ids)
	for ua, count := range counts {
		if count != expected {
			t.Errorf("expected exactly %d hits for %s, got %d", expected, ua, count)
		}
	}
}
