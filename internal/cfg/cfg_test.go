package cfg

import "testing"

func TestBody_PointNumberingIsDense(t *testing.T) {
	body := NewBody([]int{2, 3, 1})

	if got := body.NumBlocks(); got != 3 {
		t.Errorf("NumBlocks = %d, want 3", got)
	}
	if got := body.NumPoints(); got != 6 {
		t.Errorf("NumPoints = %d, want 6", got)
	}
	if got := body.Statements(1); got != 3 {
		t.Errorf("Statements(1) = %d, want 3", got)
	}

	// Points are numbered block by block, statement by statement.
	want := []struct {
		loc   Location
		point PointIndex
	}{
		{Location{Block: 0, Statement: 0}, 0},
		{Location{Block: 0, Statement: 1}, 1},
		{Location{Block: 1, Statement: 0}, 2},
		{Location{Block: 1, Statement: 2}, 4},
		{Location{Block: 2, Statement: 0}, 5},
	}
	for _, tc := range want {
		if got := body.PointFrom(tc.loc); got != tc.point {
			t.Errorf("PointFrom(%s) = %d, want %d", tc.loc, got, tc.point)
		}
	}
}

func TestBody_LocationRoundTrip(t *testing.T) {
	body := NewBody([]int{1, 4, 2})
	for p := 0; p < body.NumPoints(); p++ {
		loc := body.LocationFrom(PointIndex(p))
		if got := body.PointFrom(loc); got != PointIndex(p) {
			t.Errorf("point %d round-trips to %d via %s", p, got, loc)
		}
	}
}

func TestBody_DanglingLocationPanics(t *testing.T) {
	body := NewBody([]int{2, 2})

	cases := []Location{
		{Block: 2, Statement: 0},
		{Block: 0, Statement: 2},
	}
	for _, loc := range cases {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("PointFrom(%s) should panic", loc)
				}
			}()
			body.PointFrom(loc)
		}()
	}

	func() {
		defer func() {
			if recover() == nil {
				t.Error("LocationFrom(4) should panic")
			}
		}()
		body.LocationFrom(4)
	}()
}

func TestNewBody_EmptyBlockPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("a block without a terminator slot should panic")
		}
	}()
	NewBody([]int{1, 0})
}

func TestLocation_String(t *testing.T) {
	loc := Location{Block: 3, Statement: 7}
	if got := loc.String(); got != "bb3[7]" {
		t.Errorf("String = %q", got)
	}
}
