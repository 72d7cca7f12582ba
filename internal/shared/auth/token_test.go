package auth

import (
	"net/http/httptest"
	"testing"
)

func TestExtractBearerTokenFromHeader(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		header string
		want   string
	}{
		"standard prefix":  {"Bearer s3cr3t", "s3cr3t"},
		"lowercase prefix": {"bearer s3cr3t", "s3cr3t"},
		"padded":           {"  Bearer s3cr3t  ", "s3cr3t"},
		"empty":            {"", ""},
		"no prefix":        {"s3cr3t", ""},
		"prefix only":      {"Bearer ", ""},
		"basic scheme":     {"Basic dXNlcjpwYXNz", ""},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := ExtractBearerTokenFromHeader(tc.header); got != tc.want {
				t.Fatalf("ExtractBearerTokenFromHeader(%q) = %q, want %q", tc.header, got, tc.want)
			}
		})
	}
}

func TestExtractBearerTokenFromRequest(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest("GET", "/internal/sync", nil)
	req.Header.Set("Authorization", "Bearer s3cr3t")

	if got := ExtractBearerToken(req); got != "s3cr3t" {
		t.Fatalf("ExtractBearerToken = %q, want %q", got, "s3cr3t")
	}
	if got := ExtractBearerToken(nil); got != "" {
		t.Fatalf("ExtractBearerToken(nil) = %q, want empty", got)
	}
}

func TestSecretEqual(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		configured string
		presented  string
		want       bool
	}{
		"match":             {"s3cr3t", "s3cr3t", true},
		"mismatch":          {"s3cr3t", "guess", false},
		"empty configured":  {"", "", false},
		"empty presented":   {"s3cr3t", "", false},
		"prefix not enough": {"s3cr3t", "s3c", false},
		"case sensitive":    {"s3cr3t", "S3CR3T", false},
		"longer presented":  {"s3cr3t", "s3cr3t1", false},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if got := SecretEqual(tc.configured, tc.presented); got != tc.want {
				t.Fatalf("SecretEqual(%q, %q) = %v, want %v", tc.configured, tc.presented, got, tc.want)
			}
		})
	}
}
