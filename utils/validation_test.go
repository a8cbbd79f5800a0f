package utils

import (
	"errors"
	"mime/multipart"
	"net/textproto"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
)

func TestSanitizeValidationError(t *testing.T) {
	validate := validator.New()

	type loginReq struct {
		Email    string `validate:"required,email"`
		Password string `validate:"required,min=8"`
	}
	type itemReq struct {
		Quantity int    `validate:"min=1,max=10"`
		Status   string `validate:"oneof=approved rejected"`
		Points   int    `validate:"gte=0"`
	}

	tests := []struct {
		name  string
		input interface{}
		want  []string
	}{
		{"bad email", loginReq{Email: "nope", Password: "longenough"}, []string{"email must be a valid email address"}},
		{"missing fields", loginReq{}, []string{"email is required", "password is required"}},
		{"short password", loginReq{Email: "a@b.co", Password: "short"}, []string{"password must be at least 8 characters"}},
		{"numeric range", itemReq{Quantity: 11, Status: "approved"}, []string{"quantity must be at most 10"}},
		{"oneof", itemReq{Quantity: 1, Status: "lost"}, []string{"status must be one of: approved, rejected"}},
		{"gte", itemReq{Quantity: 1, Status: "approved", Points: -1}, []string{"points must be 0 or more"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validate.Struct(tt.input)
			if err == nil {
				t.Fatal("expected validation error")
			}
			msg := SanitizeValidationError(err)
			for _, w := range tt.want {
				if !strings.Contains(msg, w) {
					t.Errorf("expected %q in %q", w, msg)
				}
			}
			if strings.Contains(msg, "Req.") {
				t.Errorf("message leaks struct name: %q", msg)
			}
		})
	}
}

func TestValidateEmail(t *testing.T) {
	for _, ok := range []string{"a@b.co", "user@test.com"} {
		if err := ValidateEmail(ok); err != nil {
			t.Errorf("%q: unexpected error %v", ok, err)
		}
	}
	for _, bad := range []string{"", "nope", "user at test.com", " a@b.co"} {
		if err := ValidateEmail(bad); err == nil {
			t.Errorf("%q: expected an error", bad)
		}
	}
}

func TestSanitizeValidationErrorNonValidator(t *testing.T) {
	if msg := SanitizeValidationError(nil); msg != "" {
		t.Errorf("expected empty string for nil error, got: %s", msg)
	}
	if msg := SanitizeValidationError(errors.New("invalid character 'x'")); msg != "Invalid request body" {
		t.Errorf("expected generic message, got: %s", msg)
	}
}

func fileHeader(size int64, contentType string) *multipart.FileHeader {
	h := &multipart.FileHeader{Filename: "upload", Size: size, Header: make(textproto.MIMEHeader)}
	h.Header.Set("Content-Type", contentType)
	return h
}

func TestValidateFileUpload(t *testing.T) {
	for _, ct := range []string{"image/jpeg", "image/png", "image/webp", "image/gif"} {
		if err := ValidateFileUpload(fileHeader(1024, ct)); err != nil {
			t.Errorf("expected %s to be accepted, got: %v", ct, err)
		}
	}

	err := ValidateFileUpload(fileHeader(10<<20, "image/jpeg"))
	if err == nil || !strings.Contains(err.Error(), "exceeds maximum") {
		t.Errorf("expected size error, got: %v", err)
	}

	err = ValidateFileUpload(fileHeader(1024, "application/pdf"))
	if err == nil || !strings.Contains(err.Error(), "invalid file type") {
		t.Errorf("expected content type error, got: %v", err)
	}
}
