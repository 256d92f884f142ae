package matrix

import "testing"

func TestPortSpecRanges(t *testing.T) {
	spec := ModelTable[DefaultModel]

	tests := []struct {
		id       int
		inputOK  bool
		outputOK bool
	}{
		{0, false, true},
		{1, true, true},
		{4, true, true},
		{5, false, false},
		{-1, false, false},
	}

	for _, tt := range tests {
		if got := spec.ValidInput(tt.id); got != tt.inputOK {
			t.Errorf("ValidInput(%d) = %v; want %v", tt.id, got, tt.inputOK)
		}
		if got := spec.ValidOutput(tt.id); got != tt.outputOK {
			t.Errorf("ValidOutput(%d) = %v; want %v", tt.id, got, tt.outputOK)
		}
	}
}
