package wayback

import (
	"net/url"
	"strings"
)

// NormalizeURL prepends https:// when the URL carries no scheme.
func NormalizeURL(raw string) string {
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		return raw
	}
	return "https://" + raw
}

// AltHost toggles the www prefix on a hostname.
func AltHost(host string) string {
	if strings.HasPrefix(host, "www.") {
		return host[4:]
	}
	return "www." + host
}

// ExtractDomain pulls the hostname out of a URL, tolerating bare domains.
func ExtractDomain(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.Host != "" {
		return parsed.Host
	}
	return strings.SplitN(parsed.Path, "/", 2)[0]
}

// pageExtensions are path suffixes that already identify a concrete page, so
// no extension variants are generated for them.
var pageExtensions = []string{".html", ".htm", ".php", ".asp", ".aspx", ".jsp"}

// Variations generates the URL forms to try against the archive: the URL as
// given, its www/non-www twin, and for extensionless paths the common
// .html/.htm/trailing-slash spellings of each. Sites get re-archived under
// different canonical forms over the years, so a miss on the exact URL often
// hits on a variant.
func Variations(raw string) []string {
	variations := []string{raw}

	if parsed, err := url.Parse(raw); err == nil && parsed.Host != "" {
		alt := *parsed
		alt.Host = AltHost(parsed.Host)
		if altURL := alt.String(); altURL != raw {
			variations = append(variations, altURL)
		}
	}

	// Query strings and directory URLs keep their exact form.
	if strings.Contains(raw, "?") || strings.HasSuffix(raw, "/") {
		return variations
	}
	for _, ext := range pageExtensions {
		if strings.HasSuffix(raw, ext) {
			return variations
		}
	}

	bases := append([]string(nil), variations...)
	for _, base := range bases {
		for _, suffix := range []string{".html", ".htm", "/"} {
			variant := base + suffix
			if !contains(variations, variant) {
				variations = append(variations, variant)
			}
		}
	}
	return variations
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
