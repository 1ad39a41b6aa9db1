package prefilter

import "testing"

// listPrefilter reports candidates from a fixed sorted list.
type listPrefilter []int

func (l listPrefilter) Find(_ string, start int) int {
	for _, pos := range l {
		if pos >= start {
			return pos
		}
	}
	return -1
}

func (l listPrefilter) IsComplete() bool { return false }
func (l listPrefilter) LiteralLen() int  { return 0 }
func (l listPrefilter) HeapBytes() int   { return 0 }

func sequential(n int) listPrefilter {
	positions := make(listPrefilter, n)
	for i := range positions {
		positions[i] = i
	}
	return positions
}

func TestTrackerNext(t *testing.T) {
	tr := NewTracker(listPrefilter{5, 10}, DefaultTrackerConfig())
	if cand, ok := tr.Next("", 0); cand != 5 || !ok {
		t.Fatalf("Next(0) = %d, %v; want 5, true", cand, ok)
	}
	tr.Hit()
	if cand, ok := tr.Next("", 11); cand != -1 || !ok {
		t.Fatalf("Next(11) = %d, %v; want -1, true", cand, ok)
	}
	if c, h := tr.Counts(); c != 1 || h != 1 {
		t.Errorf("Counts() = %d, %d; want 1, 1", c, h)
	}
}

func TestTrackerRetires(t *testing.T) {
	config := TrackerConfig{Warmup: 50, Interval: 10, MinHitsPer1024: 102}
	tests := []struct {
		name        string
		hit         func(i int) bool
		wantRetired bool
	}{
		{"no hits", func(int) bool { return false }, true},
		{"half hits", func(i int) bool { return i%2 == 0 }, false},
		{"rare hits", func(i int) bool { return i%20 == 0 }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := NewTracker(sequential(200), config)
			for i := 0; i < 200; i++ {
				cand, ok := tr.Next("", i)
				if !ok || cand < 0 {
					break
				}
				if tt.hit(i) {
					tr.Hit()
				}
			}
			if tr.Retired() != tt.wantRetired {
				t.Errorf("Retired() = %v, want %v", tr.Retired(), tt.wantRetired)
			}
		})
	}
}

func TestTrackerWarmupAndReset(t *testing.T) {
	tr := NewTracker(sequential(100), TrackerConfig{Warmup: 50, Interval: 1, MinHitsPer1024: 512})
	for i := 0; i < 49; i++ {
		tr.Next("", i)
	}
	if tr.Retired() {
		t.Fatal("retired during warmup")
	}
	if _, ok := tr.Next("", 49); ok {
		t.Fatal("Next() after warmup with no hits did not retire")
	}
	if cand, ok := tr.Next("", 0); cand != -1 || ok {
		t.Errorf("Next() when retired = %d, %v", cand, ok)
	}

	tr.Reset()
	if c, h := tr.Counts(); c != 0 || h != 0 || tr.Retired() {
		t.Errorf("after Reset: candidates=%d hits=%d retired=%v", c, h, tr.Retired())
	}
}

func TestNewTrackerNil(t *testing.T) {
	if NewTracker(nil, DefaultTrackerConfig()) != nil {
		t.Error("NewTracker(nil) should return nil")
	}
}
