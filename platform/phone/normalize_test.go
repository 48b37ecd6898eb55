package phone

import "testing"

func TestNormalizeE164(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"06 12345678", "+31612345678"},
		{"+31 6 12345678", "+31612345678"},
		{"  ", ""},
		{"not a number", "not a number"},
	}

	for _, tt := range tests {
		if got := NormalizeE164(tt.in); got != tt.want {
			t.Errorf("NormalizeE164(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDigitsDropsPlus(t *testing.T) {
	if got := Digits("+31612345678"); got != "31612345678" {
		t.Fatalf("unexpected digits %q", got)
	}
	if IsValid("12") {
		t.Fatalf("expected short input to be invalid")
	}
}
