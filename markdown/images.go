// Package markdown finds and rewrites image embeds in post content and
// renders content to sanitized HTML.
package markdown

import (
	"regexp"
	"sort"
	"strings"

	"github.com/cppla/inkblog/storage"
)

// imageEmbed matches ![alt](url) and ![alt](<url> "title").
var imageEmbed = regexp.MustCompile(`!\[([^\]]*)\]\(\s*<?([^\s()<>]+)>?(?:\s+(?:"[^"]*"|'[^']*'))?\s*\)`)

// Resolver maps between storage paths and the public URLs embedded in content.
// storage.Store satisfies it.
type Resolver interface {
	PublicURL(path string) string
	PathFromURL(rawURL string) (string, bool)
}

// ImageRef is one image embed that points into the object store.
type ImageRef struct {
	Alt  string
	URL  string
	Path string
}

// Promotion records that the object at From now lives at To.
type Promotion struct {
	From string
	To   string
}

// ExtractImages returns every storage image embedded in md, in text order.
// Embeds pointing elsewhere are skipped. Duplicates are kept.
func ExtractImages(md string, r Resolver) []ImageRef {
	matches := imageEmbed.FindAllStringSubmatch(md, -1)
	if len(matches) == 0 {
		return nil
	}
	refs := make([]ImageRef, 0, len(matches))
	for _, m := range matches {
		path, ok := r.PathFromURL(m[2])
		if !ok {
			continue
		}
		refs = append(refs, ImageRef{Alt: m[1], URL: m[2], Path: path})
	}
	return refs
}

// ExtractImagePaths is ExtractImages reduced to the storage paths.
func ExtractImagePaths(md string, r Resolver) []string {
	refs := ExtractImages(md, r)
	if len(refs) == 0 {
		return []string{}
	}
	paths := make([]string, len(refs))
	for i, ref := range refs {
		paths[i] = ref.Path
	}
	return paths
}

// RewriteURLs replaces every occurrence of each promoted object's old URL with
// its new public URL. Both the URL form found in md and the canonical public
// URL are replaced, but only where they stand as a whole URL, so a foreign URL
// that merely contains one is left alone. Objects without a promotion are
// never touched.
func RewriteURLs(md string, promotions []Promotion, r Resolver) string {
	if len(promotions) == 0 || md == "" {
		return md
	}
	targets := make(map[string]string, len(promotions))
	for _, p := range promotions {
		targets[p.From] = r.PublicURL(p.To)
	}

	pairs := map[string]string{}
	for from, to := range targets {
		pairs[r.PublicURL(from)] = to
	}
	for _, ref := range ExtractImages(md, r) {
		if to, ok := targets[ref.Path]; ok {
			pairs[ref.URL] = to
		}
	}

	olds := make([]string, 0, len(pairs))
	for old := range pairs {
		if old != pairs[old] {
			olds = append(olds, old)
		}
	}
	if len(olds) == 0 {
		return md
	}
	// Longest first so a URL never shadows a longer one sharing its prefix.
	sort.Slice(olds, func(i, j int) bool {
		if len(olds[i]) != len(olds[j]) {
			return len(olds[i]) > len(olds[j])
		}
		return olds[i] < olds[j]
	})
	quoted := make([]string, len(olds))
	for i, old := range olds {
		quoted[i] = regexp.QuoteMeta(old)
	}
	re := regexp.MustCompile(strings.Join(quoted, "|"))

	var b strings.Builder
	last := 0
	for _, loc := range re.FindAllStringIndex(md, -1) {
		// A match inside a longer URL belongs to someone else.
		if !urlBoundary(md, loc[0]-1) || !urlEnd(md, loc[1]) {
			continue
		}
		b.WriteString(md[last:loc[0]])
		b.WriteString(pairs[md[loc[0]:loc[1]]])
		last = loc[1]
	}
	if last == 0 {
		return md
	}
	b.WriteString(md[last:])
	return b.String()
}

// urlBoundary reports whether md[i] cannot continue a URL. Out of range
// indexes count as boundaries.
func urlBoundary(md string, i int) bool {
	if i < 0 || i >= len(md) {
		return true
	}
	c := md[i]
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return false
	}
	return !strings.ContainsRune("-._~:/?#@$&*+,;=%", rune(c))
}

// urlEnd is urlBoundary that also accepts sentence punctuation right after a URL.
func urlEnd(md string, i int) bool {
	if urlBoundary(md, i) {
		return true
	}
	return strings.IndexByte(".,;:!?", md[i]) >= 0 && urlBoundary(md, i+1)
}

// FirstThumbnail returns the path of the first storage image in md.
func FirstThumbnail(md string, r Resolver) (string, bool) {
	refs := ExtractImages(md, r)
	if len(refs) == 0 {
		return "", false
	}
	return refs[0].Path, true
}

// FirstPermanentThumbnail returns the first image in md that already lives in
// the permanent namespace.
func FirstPermanentThumbnail(md string, r Resolver) (string, bool) {
	return FirstThumbnailWhere(md, r, storage.IsPermanent)
}

// FirstThumbnailWhere returns the first storage image in md whose path satisfies match.
func FirstThumbnailWhere(md string, r Resolver, match func(path string) bool) (string, bool) {
	for _, ref := range ExtractImages(md, r) {
		if match(ref.Path) {
			return ref.Path, true
		}
	}
	return "", false
}
