package tokencount

import "testing"

func TestHeuristicCount(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"abcd", 1},
		{"abcdefgh", 2},
	}
	for _, tc := range cases {
		if got := heuristicCount(tc.in); got != tc.want {
			t.Errorf("heuristicCount(%q) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestCounterFallback(t *testing.T) {
	c := &Counter{} // no encoding loaded
	if got := c.Count("hello world"); got <= 0 {
		t.Errorf("Count() = %d, want > 0", got)
	}
}
