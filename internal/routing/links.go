// Package routing builds the public links of recipes and community posts.
//
// Links look like /recipes/{id}/{slug} and /community/{id}/{slug}.  Handlers
// route on the id; the slug only makes the URL readable, so a stale slug
// (the title changed) is answered with a redirect to the canonical link.
package routing

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// MaxSlug bounds slug length in bytes.  Cuts happen on a word boundary.
const MaxSlug = 60

const fallbackSlug = "untitled"

// stripMarks folds "Crème brûlée" to "Creme brulee".
var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Slug converts a title to lower-kebab ASCII.
func Slug(title string) string {
	folded, _, err := transform.String(stripMarks, title)
	if err != nil {
		folded = title
	}

	words := strings.FieldsFunc(strings.ToLower(folded), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})

	var b strings.Builder
	for _, w := range words {
		n := len(w)
		if b.Len() > 0 {
			n++
		}
		if b.Len()+n > MaxSlug {
			if b.Len() == 0 {
				b.WriteString(w[:MaxSlug])
			}
			break
		}
		if b.Len() > 0 {
			b.WriteByte('-')
		}
		b.WriteString(w)
	}
	if b.Len() == 0 {
		return fallbackSlug
	}
	return b.String()
}

// RecipePath is the canonical link of a recipe.
func RecipePath(id, title string) string { return link("recipes", id, title) }

// PostPath is the canonical link of a community post.
func PostPath(id, title string) string { return link("community", id, title) }

func link(section, id, title string) string {
	return "/" + section + "/" + url.PathEscape(id) + "/" + Slug(title)
}

// Canonical reports whether slug, as found in a request path, is the one
// title produces.  An absent slug counts as canonical.
func Canonical(slug, title string) bool {
	return slug == "" || slug == Slug(title)
}
