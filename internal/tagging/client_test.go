package tagging

import (
	"context"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"go.uber.org/zap"

	"github.com/drona-gyawali/Supportix/internal/config"
	"github.com/drona-gyawali/Supportix/pkg/util"
)

func TestParseTags(t *testing.T) {
	cases := []struct {
		name    string
		content string
		want    []string
	}{
		{"plain", "billing, payment, urgent", []string{"billing", "payment", "urgent"}},
		{"mixed case and spacing", "  Billing ,PAYMENT ", []string{"billing", "payment"}},
		{"caps at limit", "a, b, c, d, e", []string{"a", "b", "c"}},
		{"skips empties", "billing,, ,payment", []string{"billing", "payment"}},
		{"empty content", "", []string{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseTags(tc.content)
			if !reflect.DeepEqual(got, tc.want) {
				t.Fatalf("ParseTags(%q) = %v, want %v", tc.content, got, tc.want)
			}
		})
	}
}

func TestGenerateTags(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("authorization = %q", auth)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"billing, Payment, urgent, extra"}}]}`))
	}))
	defer server.Close()

	client := NewClient(config.TaggingConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gpt-4o-mini",
	}, zap.NewNop())

	tags, err := client.GenerateTags(context.Background(), "Invoice issue", "I was charged twice")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"billing", "payment", "urgent"}
	if !reflect.DeepEqual(tags, want) {
		t.Fatalf("tags = %v, want %v", tags, want)
	}
}

func TestGenerateTagsRequiresAPIKey(t *testing.T) {
	client := NewClient(config.TaggingConfig{BaseURL: "http://localhost"}, zap.NewNop())

	_, err := client.GenerateTags(context.Background(), "t", "d")
	if err == nil {
		t.Fatal("expected an error without an api key")
	}
	domainErr := util.ToDomainError(err)
	if domainErr.Code != "EXTERNAL_SERVICE_FAILURE" {
		t.Fatalf("code = %s", domainErr.Code)
	}
}

func TestGenerateTagsSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid key","type":"auth_error"}}`))
	}))
	defer server.Close()

	client := NewClient(config.TaggingConfig{APIKey: "bad", BaseURL: server.URL}, zap.NewNop())

	_, err := client.GenerateTags(context.Background(), "t", "d")
	if err == nil {
		t.Fatal("expected an error from the api error body")
	}
}
