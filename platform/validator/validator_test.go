package validator

import "testing"

type slotRequest struct {
	Date string `validate:"required,isodate"`
	Time string `validate:"required,hhmm"`
}

func TestCustomTags(t *testing.T) {
	v := New()

	tests := []struct {
		req     slotRequest
		wantErr bool
	}{
		{slotRequest{Date: "2026-03-01", Time: "09:30"}, false},
		{slotRequest{Date: "2026-02-30", Time: "09:30"}, true},
		{slotRequest{Date: "2026-03-01", Time: "24:00"}, true},
		{slotRequest{Date: "2026-03-01", Time: "9:30"}, true},
	}

	for _, tt := range tests {
		err := v.Struct(tt.req)
		if (err != nil) != tt.wantErr {
			t.Errorf("%+v: expected error=%v, got %v", tt.req, tt.wantErr, err)
		}
	}
}

func TestFieldErrors(t *testing.T) {
	err := New().Struct(slotRequest{Date: "bad"})
	fields := FieldErrors(err)
	if fields["Date"] != "isodate" || fields["Time"] != "required" {
		t.Fatalf("unexpected field errors %v", fields)
	}
}
