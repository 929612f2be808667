package wayback

import (
	"context"
	"io"
	"net/http"

	"github.com/jaytaylor/html2text"

	"github.com/waymcp/waymcp/errors"
)

// truncationMarker is appended when rendered content exceeds maxContentChars.
const truncationMarker = "\n\n[Content truncated due to length...]"

// FetchRendered downloads an archived page and converts its HTML to readable
// plain text, preserving link targets. Output is truncated at 50k characters.
func (c *Client) FetchRendered(ctx context.Context, archiveURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, archiveURL, nil)
	if err != nil {
		return "", errors.Wrap(err, "building replay request", errors.WithURL(archiveURL))
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrCodeNetworkErr,
			"fetching archived page", errors.WithURL(archiveURL))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf(errors.ErrCodeUpstream,
			"archive replay returned status %d", resp.StatusCode)
	}

	html, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrCodeNetworkErr, "reading archived page")
	}

	text, err := html2text.FromString(string(html), html2text.Options{
		OmitLinks: false,
	})
	if err != nil {
		return "", errors.WrapWithCode(err, errors.ErrCodeInternal, "converting page to text")
	}

	// Truncate on rune boundaries so multi-byte characters survive.
	runes := []rune(text)
	if len(runes) > maxContentChars {
		text = string(runes[:maxContentChars]) + truncationMarker
	}
	return text, nil
}
