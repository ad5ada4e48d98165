package branchname

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Prefix namespaces every branch the pipeline pushes
const Prefix = "deepatch"

const (
	maxSlugRunes = 40
	suffixLen    = 10
	fallbackSlug = "change"
)

// FromPrompt builds a collision-resistant branch name: deepatch/<slug>-<id suffix>.
// The suffix is the tail of the request id, so two requests never share a branch.
func FromPrompt(requestID, prompt string) string {
	id := strings.ToLower(requestID)
	if len(id) > suffixLen {
		id = id[len(id)-suffixLen:]
	}
	slug := Slugify(prompt)
	if id == "" {
		return Prefix + "/" + slug
	}
	return Prefix + "/" + slug + "-" + id
}

// Slugify converts free text to a git-ref-safe slug.
// NFKC folds compatibility forms, NFD lets accents be dropped, anything else becomes "-".
func Slugify(text string) string {
	text = norm.NFKC.String(text)
	text = norm.NFD.String(strings.ToLower(text))

	var b strings.Builder
	lastDash := true
	for _, r := range text {
		switch {
		case unicode.Is(unicode.Mn, r):
			continue
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteRune('-')
				lastDash = true
			}
		}
	}

	slug := strings.Trim(b.String(), "-")
	if runes := []rune(slug); len(runes) > maxSlugRunes {
		slug = strings.TrimRight(string(runes[:maxSlugRunes]), "-")
	}
	if slug == "" {
		return fallbackSlug
	}
	return slug
}
