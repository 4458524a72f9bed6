package service

import (
	"errors"
	"testing"
)

func TestDecodeScanToken(t *testing.T) {
	cases := []struct {
		name    string
		token   string
		want    string
		wantErr bool
	}{
		{name: "plain number", token: "VLT-20240101-AB123", want: "VLT-20240101-AB123"},
		{name: "lowercase plain number", token: "vlt-20240101-ab123", want: "VLT-20240101-AB123"},
		{name: "surrounding whitespace", token: "  VLT-20240101-AB123  ", want: "VLT-20240101-AB123"},
		{name: "embedded in receipt text", token: "Certificate: VLT-20240101-AB123 (show at register)", want: "VLT-20240101-AB123"},
		{name: "embedded lowercase with punctuation", token: "your pass vlt-20240101-ab123, valid 72h", want: "VLT-20240101-AB123"},
		{name: "json payload", token: `{"certificate_number":"VLT-20240101-AB123"}`, want: "VLT-20240101-AB123"},
		{name: "json with extra fields", token: `{"certificate_number":"VLT-20240101-AB123","v":2}`, want: "VLT-20240101-AB123"},
		{name: "empty", token: "", wantErr: true},
		{name: "wrong prefix", token: "XYZ-20240101-AB123", wantErr: true},
		{name: "short date", token: "VLT-2024-AB123", wantErr: true},
		{name: "short suffix", token: "VLT-20240101-AB1", wantErr: true},
		{name: "overlong suffix", token: "VLT-20240101-AB1234", wantErr: true},
		{name: "embedded overlong suffix", token: "see VLT-20240101-AB1234 inside", wantErr: true},
		{name: "json with surrounding text in number", token: `{"certificate_number":"see VLT-20240101-AB123"}`, wantErr: true},
		{name: "broken json", token: `{"certificate_number":`, wantErr: true},
		{name: "json without number", token: `{"other":"x"}`, wantErr: true},
		{name: "free text", token: "hello world", wantErr: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeScanToken(tc.token)
			if tc.wantErr {
				if !errors.Is(err, ErrMalformedToken) {
					t.Fatalf("expected ErrMalformedToken, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}
