package core

import (
	"errors"
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	valid := CandidateInput{Name: "Ann Lee", Email: "ann@example.com", Phone: "+1 (555) 010-0101", Status: "Applied"}

	tests := []struct {
		name       string
		mutate     func(*CandidateInput)
		wantFields []string
	}{
		{"valid", func(*CandidateInput) {}, nil},
		{"status case-insensitive", func(in *CandidateInput) { in.Status = "hIrEd" }, nil},
		{"email with plus and subdomain", func(in *CandidateInput) { in.Email = "ann+jobs@mail.example.co.uk" }, nil},
		{"all missing", func(in *CandidateInput) { *in = CandidateInput{} }, []string{FieldName, FieldEmail, FieldPhone, FieldStatus}},
		{"whitespace is empty", func(in *CandidateInput) { in.Name = "   " }, []string{FieldName}},
		{"email without domain", func(in *CandidateInput) { in.Email = "ann@" }, []string{FieldEmail}},
		{"email without tld", func(in *CandidateInput) { in.Email = "ann@example" }, []string{FieldEmail}},
		{"email with space", func(in *CandidateInput) { in.Email = "ann lee@example.com" }, []string{FieldEmail}},
		{"phone with letters", func(in *CandidateInput) { in.Phone = "555-CALL-NOW" }, []string{FieldPhone}},
		{"phone too short", func(in *CandidateInput) { in.Phone = "12345" }, []string{FieldPhone}},
		{"phone too long", func(in *CandidateInput) { in.Phone = "1234567890123456" }, []string{FieldPhone}},
		{"plus in middle", func(in *CandidateInput) { in.Phone = "555+0101" }, []string{FieldPhone}},
		{"unknown status", func(in *CandidateInput) { in.Status = "Ghosted" }, []string{FieldStatus}},
		{"several", func(in *CandidateInput) {
			in.Email = "bad"
			in.Status = "?"
		}, []string{FieldEmail, FieldStatus}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)

			result := Validate(in)
			if result.Valid != (len(tt.wantFields) == 0) {
				t.Fatalf("Valid = %v, errors = %v", result.Valid, result.Errors)
			}
			if len(result.Errors) != len(tt.wantFields) {
				t.Fatalf("errors = %v, want fields %v", result.Errors, tt.wantFields)
			}
			for i, field := range tt.wantFields {
				if result.Errors[i].Field != field {
					t.Errorf("Errors[%d].Field = %q, want %q", i, result.Errors[i].Field, field)
				}
			}
		})
	}
}

func TestValidate_RequiredNotCheckedFurther(t *testing.T) {
	result := Validate(CandidateInput{Name: "Ann", Status: "Applied"})
	if len(result.Errors) != 2 {
		t.Fatalf("errors = %v, want only two required-field errors", result.Errors)
	}
	for _, e := range result.Errors {
		if e.Message != "required field is empty" {
			t.Errorf("%s: %q, want required-field message", e.Field, e.Message)
		}
	}
}

func TestValidationResult_Err(t *testing.T) {
	if err := Validate(CandidateInput{Name: "A", Email: "a@b.co", Phone: "5550101", Status: "Offered"}).Err(); err != nil {
		t.Fatalf("Err() = %v, want nil", err)
	}

	err := Validate(CandidateInput{Name: "A", Email: "x", Phone: "5550101", Status: "Offered"}).Err()
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("Err() = %T, want ValidationErrors", err)
	}
	if verrs.ForField(FieldEmail) != "invalid email format" {
		t.Errorf("ForField(email) = %q", verrs.ForField(FieldEmail))
	}
	if verrs.ForField(FieldPhone) != "" {
		t.Errorf("ForField(phone) = %q, want empty", verrs.ForField(FieldPhone))
	}
	if !strings.HasPrefix(err.Error(), "validation failed: email:") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestNormalize(t *testing.T) {
	in := CandidateInput{
		Name:   "  Ann Lee ",
		Email:  " Ann.Lee@Example.COM ",
		Phone:  " +47 (555) 010.0101 ",
		Status: " interviewing",
		Notes:  " referral ",
	}
	got := in.Normalize()

	want := CandidateInput{
		Name:   "Ann Lee",
		Email:  "ann.lee@example.com",
		Phone:  "+475550100101",
		Status: "Interviewing",
		Notes:  "referral",
	}
	if got != want {
		t.Errorf("Normalize() = %+v, want %+v", got, want)
	}
	if again := got.Normalize(); again != got {
		t.Errorf("Normalize() not idempotent: %+v", again)
	}
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"555-0101", "5550101"},
		{"(555) 010 0101", "5550100101"},
		{"+1.555.010.0101", "+15550100101"},
		{"555+0101", "555+0101"},
		{"555-CALL", "555CALL"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizePhone(tt.in); got != tt.want {
			t.Errorf("NormalizePhone(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseStatus(t *testing.T) {
	for _, st := range Statuses {
		got, ok := ParseStatus(strings.ToUpper(string(st)))
		if !ok || got != st {
			t.Errorf("ParseStatus(%q) = %q, %v", strings.ToUpper(string(st)), got, ok)
		}
	}
	if _, ok := ParseStatus("Withdrawn"); ok {
		t.Error("ParseStatus(Withdrawn) should fail")
	}
}
