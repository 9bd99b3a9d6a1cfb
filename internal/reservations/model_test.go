package reservations

import (
	"errors"
	"testing"
)

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
		err  bool
	}{
		{"CONFIRMED", StatusConfirmed, false},
		{"pending", StatusPending, false},
		{" canceled ", StatusCanceled, false},
		{"CANCELLED", StatusCanceled, false},
		{"done", "", true},
		{"", "", true},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		if tt.err {
			if !errors.Is(err, ErrInvalidStatus) {
				t.Errorf("ParseStatus(%q): expected ErrInvalidStatus, got %v", tt.in, err)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseStatus(%q) = %q, %v; want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Status
		want     bool
	}{
		{StatusPending, StatusConfirmed, true},
		{StatusPending, StatusCanceled, true},
		{StatusConfirmed, StatusPending, true},
		{StatusConfirmed, StatusCanceled, true},
		{StatusConfirmed, StatusConfirmed, false},
		{StatusCanceled, StatusConfirmed, false},
		{StatusCanceled, StatusPending, false},
	}
	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestCreateRequestValidation(t *testing.T) {
	long := make([]rune, 101)
	for i := range long {
		long[i] = 'a'
	}
	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"ok", CreateRequest{TimeSlotID: 1, Name: " Taro ", PhoneNumber: "+81 90-1234-5678"}, nil},
		{"missing slot", CreateRequest{Name: "Taro", PhoneNumber: "09012345678"}, ErrTimeSlotRequired},
		{"blank name", CreateRequest{TimeSlotID: 1, Name: "  ", PhoneNumber: "09012345678"}, ErrInvalidName},
		{"long name", CreateRequest{TimeSlotID: 1, Name: string(long), PhoneNumber: "09012345678"}, ErrInvalidName},
		{"short phone", CreateRequest{TimeSlotID: 1, Name: "Taro", PhoneNumber: "090-1234"}, ErrInvalidPhone},
		{"long phone", CreateRequest{TimeSlotID: 1, Name: "Taro", PhoneNumber: "1234567890123456"}, ErrInvalidPhone},
		{"letters", CreateRequest{TimeSlotID: 1, Name: "Taro", PhoneNumber: "090-ABCD-5678"}, ErrInvalidPhone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			req.Normalize()
			err := req.Validate()
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	req := CreateRequest{TimeSlotID: 1, Name: " Taro ", PhoneNumber: "+81 90-1234-5678"}
	req.Normalize()
	if req.Name != "Taro" || req.PhoneNumber != "819012345678" {
		t.Fatalf("unexpected normalization %+v", req)
	}
}
