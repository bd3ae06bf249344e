package synclog

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		matched int
		total   int
		failed  bool
		want    Status
	}{
		{"all matched", 10, 10, false, StatusSuccess},
		{"partial match is not an error", 8, 10, false, StatusPartial},
		{"partial match with error still partial", 8, 10, true, StatusPartial},
		{"nothing matched with error", 0, 10, true, StatusFailed},
		{"connection failure", 0, 0, true, StatusFailed},
		{"empty collection without error", 0, 0, false, StatusSuccess},
		{"single item matched", 1, 1, false, StatusSuccess},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.matched, tt.total, tt.failed); got != tt.want {
				t.Errorf("Classify(%d, %d, %v) = %s, want %s", tt.matched, tt.total, tt.failed, got, tt.want)
			}
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		if Classify(8, 10, false) != StatusPartial {
			t.Fatal("Classify not deterministic")
		}
	}
}
