package wayback

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestFetchRendered(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<h1>Company Team</h1>
			<p>Our <a href="/about">about page</a> has more.</p>
		</body></html>`)
	}))
	defer srv.Close()

	c := NewClient()
	text, err := c.FetchRendered(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(text, "Company Team") {
		t.Errorf("expected heading text, got: %s", text)
	}
	if !strings.Contains(text, "/about") {
		t.Errorf("link targets should be preserved, got: %s", text)
	}
	if strings.Contains(text, "<h1>") {
		t.Errorf("HTML tags should be stripped, got: %s", text)
	}
}

func TestFetchRendered_Truncation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "<html><body><p>%s</p></body></html>", strings.Repeat("word ", 20000))
	}))
	defer srv.Close()

	c := NewClient()
	text, err := c.FetchRendered(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasSuffix(text, truncationMarker) {
		t.Error("expected truncation marker on oversized content")
	}
	if len([]rune(text)) > maxContentChars+len([]rune(truncationMarker)) {
		t.Errorf("content exceeds truncation limit: %d runes", len([]rune(text)))
	}
}

func TestFetchRendered_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient()
	if _, err := c.FetchRendered(context.Background(), srv.URL); err == nil {
		t.Error("expected error for 404 replay")
	}
}
