package inputval

import "testing"

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		// Valid emails
		{"user@example.com", true},
		{"user.name@example.com", true},
		{"user+tag@example.com", true},
		{"user@subdomain.example.com", true},
		{"user123@example.co.uk", true},
		{"a@b.co", true},
		{"user@localhost", true}, // single-label domains are fine for dev/test

		// Invalid emails - empty/whitespace
		{"", false},
		{"   ", false},

		// Invalid emails - missing parts
		{"user", false},
		{"user@", false},
		{"@example.com", false},

		// Invalid emails - bad format
		{".user@example.com", false},
		{"user.@example.com", false},
		{"user..name@example.com", false},
		{"user@@example.com", false},
		{"user@.example.com", false},
		{"user@example.com.", false},
		{"user name@example.com", false},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			got := IsValidEmail(tt.email)
			if got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestIsValidObjectID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"507f1f77bcf86cd799439011", true},
		{"000000000000000000000000", true},
		{"ffffffffffffffffffffffff", true},
		{"FFFFFFFFFFFFFFFFFFFFFFFF", true}, // uppercase hex is valid
		{"  507f1f77bcf86cd799439011  ", true},

		{"", false},
		{"   ", false},
		{"507f1f77bcf86cd79943901", false},   // too short (23 chars)
		{"507f1f77bcf86cd7994390111", false}, // too long (25 chars)
		{"507f1f77bcf86cd79943901g", false},  // invalid hex char
		{"not-a-valid-id", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := IsValidObjectID(tt.id)
			if got != tt.want {
				t.Errorf("IsValidObjectID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	type testInput struct {
		Name  string `validate:"required,max=10" label:"Full name"`
		Email string `validate:"required,email" label:"Email address"`
	}

	tests := []struct {
		name       string
		input      testInput
		wantErrors bool
		wantFirst  string
	}{
		{
			name:       "valid input",
			input:      testInput{Name: "John", Email: "john@example.com"},
			wantErrors: false,
		},
		{
			name:       "missing name",
			input:      testInput{Name: "", Email: "john@example.com"},
			wantErrors: true,
			wantFirst:  "Full name is required.",
		},
		{
			name:       "name too long",
			input:      testInput{Name: "VeryLongNameThatExceedsLimit", Email: "john@example.com"},
			wantErrors: true,
			wantFirst:  "Full name must be at most 10 characters.",
		},
		{
			name:       "invalid email",
			input:      testInput{Name: "John", Email: "not-an-email"},
			wantErrors: true,
			wantFirst:  "A valid email address is required.",
		},
		{
			name:       "missing both",
			input:      testInput{Name: "", Email: ""},
			wantErrors: true,
			wantFirst:  "Full name is required.", // first field wins
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.input)

			if result.HasErrors() != tt.wantErrors {
				t.Errorf("Validate() HasErrors = %v, want %v", result.HasErrors(), tt.wantErrors)
			}
			if tt.wantErrors && result.First() != tt.wantFirst {
				t.Errorf("Validate() First() = %q, want %q", result.First(), tt.wantFirst)
			}
		})
	}
}

func TestValidate_ObjectIDRule(t *testing.T) {
	type idInput struct {
		ID string `validate:"required,objectid" label:"Badge id"`
	}

	if res := Validate(idInput{ID: "507f1f77bcf86cd799439011"}); res.HasErrors() {
		t.Errorf("valid id flagged: %v", res.Errors)
	}
	res := Validate(idInput{ID: "nope"})
	if !res.HasErrors() {
		t.Fatal("invalid id not flagged")
	}
	if got, want := res.First(), "Badge id must be a valid id."; got != want {
		t.Errorf("First() = %q, want %q", got, want)
	}
}

func TestResult_AllAndFirst(t *testing.T) {
	empty := &Result{}
	if empty.All() != "" || empty.First() != "" {
		t.Errorf("empty result: All=%q First=%q, want empty", empty.All(), empty.First())
	}

	r := &Result{Errors: []FieldError{
		{Field: "A", Message: "Error 1"},
		{Field: "B", Message: "Error 2"},
	}}
	if got, want := r.All(), "Error 1; Error 2"; got != want {
		t.Errorf("All() = %q, want %q", got, want)
	}
	if got, want := r.First(), "Error 1"; got != want {
		t.Errorf("First() = %q, want %q", got, want)
	}
	if got := r.Fields(); got["A"] != "Error 1" || got["B"] != "Error 2" {
		t.Errorf("Fields() = %v", got)
	}
}
