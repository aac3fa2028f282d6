package report

import (
	"testing"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		name  string
		part  int
		whole int
		want  float64
	}{
		{name: "half", part: 50, whole: 100, want: 50},
		{name: "empty whole", part: 10, whole: 0, want: 0},
		{name: "all", part: 7, whole: 7, want: 100},
		{name: "none", part: 0, whole: 9, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percentage(tt.part, tt.whole); got != tt.want {
				t.Errorf("Percentage(%d, %d) = %v, want %v", tt.part, tt.whole, got, tt.want)
			}
		})
	}
}
