// Package media builds the lookup table that maps exercise ids to media
// filenames taken from a directory listing.
package media

import (
	"path"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// PreferredExt wins when several files share a normalized name.
const PreferredExt = ".gif"

var folder = cases.Fold()

// NormalizeKey case-folds a name into the index key space. It does not strip
// extensions; use KeyForFilename for listing entries.
func NormalizeKey(name string) string {
	return folder.String(strings.TrimSpace(name))
}

// KeyForFilename strips the extension from a listed filename and normalizes
// the remainder.
func KeyForFilename(filename string) string {
	base := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	return NormalizeKey(strings.TrimSuffix(base, path.Ext(base)))
}

// LooseKey reduces a normalized key further: separators are unified to "_"
// and each token loses a simple English plural suffix, so that
// "bicycle_crunches" and "bicycle_crunch" share a key.
func LooseKey(key string) string {
	tokens := strings.FieldsFunc(key, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	for i, t := range tokens {
		tokens[i] = singular(t)
	}
	return strings.Join(tokens, "_")
}

func singular(token string) string {
	switch {
	case len(token) > 4 && strings.HasSuffix(token, "ies"):
		return strings.TrimSuffix(token, "ies") + "y"
	case strings.HasSuffix(token, "ches"), strings.HasSuffix(token, "shes"),
		strings.HasSuffix(token, "sses"), strings.HasSuffix(token, "xes"):
		return strings.TrimSuffix(token, "es")
	case len(token) > 3 && strings.HasSuffix(token, "s") && !strings.HasSuffix(token, "ss") &&
		!strings.HasSuffix(token, "us") && !strings.HasSuffix(token, "is"):
		return strings.TrimSuffix(token, "s")
	default:
		return token
	}
}

// AssetIndex maps normalized names to the chosen media filename.
//
// When several files share a key, a file with the .gif extension (any case)
// replaces a non-gif one; otherwise the first file seen in the listing is kept.
// Listing order depends on the storage backend, so the same-extension
// tie-break is best effort.
type AssetIndex struct {
	exact map[string]string
	loose map[string][]string // loose key -> exact keys
	// Shadowed lists filenames that lost a tie-break, in listing order.
	Shadowed []string
}

// BuildAssetIndex indexes a directory listing.
func BuildAssetIndex(filenames []string) *AssetIndex {
	ix := &AssetIndex{
		exact: make(map[string]string, len(filenames)),
		loose: make(map[string][]string),
	}
	for _, name := range filenames {
		key := KeyForFilename(name)
		if key == "" {
			continue
		}
		existing, ok := ix.exact[key]
		if !ok {
			ix.exact[key] = name
			lk := LooseKey(key)
			ix.loose[lk] = append(ix.loose[lk], key)
			continue
		}
		if isPreferred(name) && !isPreferred(existing) {
			ix.exact[key] = name
			ix.Shadowed = append(ix.Shadowed, existing)
			continue
		}
		ix.Shadowed = append(ix.Shadowed, name)
	}
	return ix
}

func isPreferred(filename string) bool {
	return strings.EqualFold(path.Ext(filename), PreferredExt)
}

// Len returns the number of distinct keys.
func (ix *AssetIndex) Len() int {
	return len(ix.exact)
}

// Lookup returns the filename indexed under the exact normalized key.
func (ix *AssetIndex) Lookup(name string) (string, bool) {
	filename, ok := ix.exact[NormalizeKey(name)]
	return filename, ok
}

// MatchKind tells how Match found a filename.
type MatchKind int

const (
	NoMatch MatchKind = iota
	ExactMatch
	// LooseMatch is a guess based on plural folding.
	LooseMatch
)

// Match resolves name first by exact key, then by loose key. A loose match is
// only returned when exactly one asset shares the loose key.
func (ix *AssetIndex) Match(name string) (string, MatchKind) {
	if filename, ok := ix.Lookup(name); ok {
		return filename, ExactMatch
	}
	candidates := ix.loose[LooseKey(NormalizeKey(name))]
	if len(candidates) != 1 {
		return "", NoMatch
	}
	return ix.exact[candidates[0]], LooseMatch
}

// Filenames returns the chosen filename for every key, sorted.
func (ix *AssetIndex) Filenames() []string {
	out := make([]string, 0, len(ix.exact))
	for _, f := range ix.exact {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}
