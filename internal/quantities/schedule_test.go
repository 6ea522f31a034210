package quantities

import "testing"

func TestLinearSchedule(t *testing.T) {
	s := Linear(3)
	want := map[int]bool{0: true, 1: false, 2: false, 3: true, 6: true, 7: false}
	for step, w := range want {
		if got := s(step); got != w {
			t.Errorf("Linear(3)(%d) = %v, want %v", step, got, w)
		}
	}
}

func TestLinearFromSchedule(t *testing.T) {
	s := LinearFrom(2, 5)
	want := map[int]bool{0: false, 4: false, 5: true, 6: false, 7: true, 9: true}
	for step, w := range want {
		if got := s(step); got != w {
			t.Errorf("LinearFrom(2,5)(%d) = %v, want %v", step, got, w)
		}
	}
}

func TestNeverSchedule(t *testing.T) {
	s := Never()
	for _, step := range []int{0, 1, 100} {
		if s(step) {
			t.Errorf("Never()(%d) = true", step)
		}
	}
}

func TestLinearRejectsNonPositiveInterval(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for interval 0")
		}
	}()
	Linear(0)
}
