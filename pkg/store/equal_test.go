package store

import "testing"

func TestStrictEqual(t *testing.T) {
	shared := []int{1, 2, 3}
	m := map[string]int{"a": 1}
	p := &struct{ N int }{1}
	var nilPtr *int
	ch := make(chan int)

	type point struct{ X, Y int }
	type withSlice struct{ Items []int }
	type holder struct{ V any }

	tests := []struct {
		name string
		eq   bool
		want bool
	}{
		{"equal ints", strictEqual(1, 1), true},
		{"different ints", strictEqual(1, 2), false},
		{"equal strings", strictEqual("foo", "foo"), true},
		{"comparable structs", strictEqual(point{1, 2}, point{1, 2}), true},
		{"same slice", strictEqual(shared, shared), true},
		{"resliced prefix", strictEqual(shared, shared[:2]), false},
		{"equal-content slices", strictEqual([]int{1}, []int{1}), false},
		{"nil slices", strictEqual([]int(nil), []int(nil)), true},
		{"nil and empty slice", strictEqual([]int(nil), []int{}), false},
		{"same map", strictEqual(m, m), true},
		{"equal-content maps", strictEqual(map[string]int{"a": 1}, map[string]int{"a": 1}), false},
		{"same pointer", strictEqual(p, p), true},
		{"different pointers", strictEqual(p, &struct{ N int }{1}), false},
		{"nil pointers", strictEqual(nilPtr, nilPtr), true},
		{"same channel", strictEqual(ch, ch), true},
		{"non-comparable struct", strictEqual(withSlice{shared}, withSlice{shared}), false},
		{"nil interfaces", strictEqual[any](nil, nil), true},
		{"nil and value", strictEqual[any](nil, 0), false},
		{"different dynamic types", strictEqual[any](1, int64(1)), false},
		{"interface holding slice", strictEqual[any](shared, shared), true},
		{"struct field holding slice", strictEqual(holder{shared}, holder{shared}), false},
		{"struct field holding int", strictEqual(holder{1}, holder{1}), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.eq != tt.want {
				t.Fatalf("strictEqual = %v, want %v", tt.eq, tt.want)
			}
		})
	}
}
