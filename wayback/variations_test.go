package wayback

import (
	"testing"
)

func TestNormalizeURL(t *testing.T) {
	if got := NormalizeURL("example.com/page"); got != "https://example.com/page" {
		t.Errorf("expected https prefix, got %s", got)
	}
	if got := NormalizeURL("http://example.com"); got != "http://example.com" {
		t.Errorf("existing scheme should be kept, got %s", got)
	}
}

func TestAltHost(t *testing.T) {
	if got := AltHost("example.com"); got != "www.example.com" {
		t.Errorf("expected www added, got %s", got)
	}
	if got := AltHost("www.example.com"); got != "example.com" {
		t.Errorf("expected www stripped, got %s", got)
	}
}

func TestExtractDomain(t *testing.T) {
	if got := ExtractDomain("https://www.example.com/page"); got != "www.example.com" {
		t.Errorf("unexpected domain: %s", got)
	}
	if got := ExtractDomain("example.com/page"); got != "example.com" {
		t.Errorf("bare domains should work, got %s", got)
	}
}

func TestVariations_Extensionless(t *testing.T) {
	got := Variations("https://example.com/team")

	want := []string{
		"https://example.com/team",
		"https://www.example.com/team",
		"https://example.com/team.html",
		"https://example.com/team.htm",
		"https://example.com/team/",
		"https://www.example.com/team.html",
		"https://www.example.com/team.htm",
		"https://www.example.com/team/",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d variations, got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("variation %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestVariations_QueryString(t *testing.T) {
	got := Variations("https://example.com/page?id=1")
	// Host variant only; no extension variants for query URLs.
	if len(got) != 2 {
		t.Fatalf("expected 2 variations, got %d: %v", len(got), got)
	}
}

func TestVariations_TrailingSlash(t *testing.T) {
	got := Variations("https://www.example.com/blog/")
	if len(got) != 2 {
		t.Fatalf("expected 2 variations, got %d: %v", len(got), got)
	}
	if got[1] != "https://example.com/blog/" {
		t.Errorf("expected non-www variant, got %s", got[1])
	}
}

func TestVariations_KnownExtension(t *testing.T) {
	for _, u := range []string{
		"https://example.com/index.html",
		"https://example.com/page.php",
		"https://example.com/page.aspx",
	} {
		if got := Variations(u); len(got) != 2 {
			t.Errorf("%s: expected 2 variations, got %d: %v", u, len(got), got)
		}
	}
}
