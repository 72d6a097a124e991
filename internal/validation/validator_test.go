package validation

import (
	"errors"
	"testing"
)

type moodRequest struct {
	Score int     `json:"score" validate:"min=1,max=10"`
	Notes *string `json:"notes,omitempty" validate:"omitempty,max=20"`
}

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func TestValidateStruct(t *testing.T) {
	long := "this note is far too long for the limit"

	tests := []struct {
		name      string
		in        interface{}
		wantField string
		wantMsg   string
	}{
		{"valid mood", moodRequest{Score: 5}, "", ""},
		{"score too low", moodRequest{Score: 0}, "score", "score must be at least 1"},
		{"score too high", moodRequest{Score: 11}, "score", "score must be at most 10"},
		{"notes too long", moodRequest{Score: 3, Notes: &long}, "notes", "notes must be at most 20 characters"},
		{"bad email", registerRequest{Email: "nope", Password: "longenough"}, "email", "email must be a valid email address"},
		{"short password", registerRequest{Email: "a@b.co", Password: "short"}, "password", "password must be at least 8 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateStruct(tt.in)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateStruct() = %v, want nil", err)
				}
				return
			}

			var verr *RequestValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("ValidateStruct() = %v, want *RequestValidationError", err)
			}
			if len(verr.Fields) != 1 {
				t.Fatalf("got %d field errors, want 1: %v", len(verr.Fields), verr.Fields)
			}
			if verr.Fields[0].Field != tt.wantField || verr.Fields[0].Message != tt.wantMsg {
				t.Errorf("got %+v, want field %q message %q", verr.Fields[0], tt.wantField, tt.wantMsg)
			}
		})
	}
}
