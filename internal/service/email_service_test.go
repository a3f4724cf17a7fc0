package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/astrocyte/PSOLOMON/internal/config"
)

func TestSendCustomEmailGuards(t *testing.T) {
	cases := []struct {
		name    string
		cfg     config.EmailConfig
		to      string
		wantErr error
	}{
		{
			name:    "disabled service",
			cfg:     config.EmailConfig{Enabled: false},
			to:      "jane@example.com",
			wantErr: ErrEmailServiceDisabled,
		},
		{
			name:    "enabled but unconfigured",
			cfg:     config.EmailConfig{Enabled: true},
			to:      "jane@example.com",
			wantErr: ErrEmailServiceNotConfigured,
		},
		{
			name: "bad recipient address",
			cfg: config.EmailConfig{
				Enabled: true,
				Host:    "smtp.example.com",
				Port:    587,
				From:    "notify@example.com",
			},
			to:      "not-an-address",
			wantErr: ErrInvalidEmail,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewEmailService(&tc.cfg)
			if err := svc.SendCustomEmail(tc.to, "", ""); !errors.Is(err, tc.wantErr) {
				t.Fatalf("want %v, got %v", tc.wantErr, err)
			}
		})
	}
}

func TestSenderAddress(t *testing.T) {
	if got := senderAddress("notify@example.com", "  "); got != "notify@example.com" {
		t.Fatalf("blank display name should return bare address, got %q", got)
	}

	got := senderAddress("notify@example.com", "Park Slope Provisions")
	for _, part := range []string{"notify@example.com", "Park Slope Provisions"} {
		if !strings.Contains(got, part) {
			t.Fatalf("sender %q missing %q", got, part)
		}
	}
}

func TestComposeMessage(t *testing.T) {
	raw := string(composeMessage("notify@example.com", "jane@example.com", "Monthly summary", "Hello Jane"))

	headerPart, bodyPart, found := strings.Cut(raw, "\r\n\r\n")
	if !found {
		t.Fatalf("message lacks header/body separator:\n%s", raw)
	}
	if bodyPart != "Hello Jane" {
		t.Fatalf("body want %q got %q", "Hello Jane", bodyPart)
	}
	for _, header := range []string{
		"From: notify@example.com",
		"To: jane@example.com",
		"Subject: Monthly summary",
		"Content-Type: text/plain; charset=UTF-8",
	} {
		if !strings.Contains(headerPart, header) {
			t.Fatalf("headers missing %q:\n%s", header, headerPart)
		}
	}
}

func TestIsRecipientRejected(t *testing.T) {
	rejected := []string{
		"550 No such recipient here",
		"SMTP 5.1.1 user unknown",
		"550 mailbox unavailable",
		"454 recipient address rejected: access denied",
	}
	for _, message := range rejected {
		if !isRecipientRejected(errors.New(message)) {
			t.Fatalf("%q should count as recipient rejection", message)
		}
	}

	passedThrough := []string{
		"dial tcp timeout",
		// 550 但与收件人无关，保留原始错误
		"550 policy violation",
	}
	for _, message := range passedThrough {
		if isRecipientRejected(errors.New(message)) {
			t.Fatalf("%q should not count as recipient rejection", message)
		}
	}

	if isRecipientRejected(nil) {
		t.Fatalf("nil error is not a rejection")
	}
}
