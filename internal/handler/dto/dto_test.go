package dto

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{"60", 60, false},
		{"-5", -5, false},
		{"0", 0, false},
		{"10.0", 10, false},
		{"1e3", 1000, false},
		{"1.5", 0, true},
		{"0.1", 0, true},
		{"", 0, true},
		{"abc", 0, true},
		{"1e400", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(json.Number(tt.in))
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidAmount) {
					t.Fatalf("ParseAmount(%q) err = %v, want ErrInvalidAmount", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) unexpected error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseAmount(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestGrantRequest_User(t *testing.T) {
	var camel, snake GrantRequest
	if err := json.NewDecoder(strings.NewReader(`{"userId":"u1","amount":5}`)).Decode(&camel); err != nil {
		t.Fatal(err)
	}
	if err := json.NewDecoder(strings.NewReader(`{"user_id":"u2","amount":5}`)).Decode(&snake); err != nil {
		t.Fatal(err)
	}

	if camel.User() != "u1" || snake.User() != "u2" {
		t.Errorf("User() = %q, %q", camel.User(), snake.User())
	}
}
