package gate

import "testing"

func TestIsAdmin(t *testing.T) {
	g := New([]int64{10, 20})

	cases := []struct {
		id   int64
		want bool
	}{
		{10, true},
		{20, true},
		{30, false},
		{0, false},
		{-10, false},
	}
	for _, tc := range cases {
		if got := g.IsAdmin(tc.id); got != tc.want {
			t.Errorf("IsAdmin(%d) = %v, want %v", tc.id, got, tc.want)
		}
	}
}

func TestEmptyGateDeniesEveryone(t *testing.T) {
	g := New(nil)
	if g.IsAdmin(1) {
		t.Fatal("empty gate granted access")
	}
}
