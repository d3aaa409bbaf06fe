package service

import (
	"alcyxob/exercise-curator/internal/domain"
	"alcyxob/exercise-curator/internal/media"
)

// ResolveResult reports a media resolution pass.
type ResolveResult struct {
	Matched    int      // records with a matching asset
	Changed    int      // matched records whose gif value actually changed
	Unresolved []string // ids with no matching asset, in dataset order
	Skipped    int      // records without an id
	Loose      []LooseMatch
}

// LooseMatch is a plural-folded match. Applied is false when the record
// already had a gif, which a loose match never replaces.
type LooseMatch struct {
	ID       string
	Filename string
	Applied  bool
}

// ResolveMedia sets gif on every record whose id matches an asset in the
// index. An exact match always overwrites the current value. A loose match
// only fills a missing or empty gif. Records without a match are left
// untouched. Running it twice against the same index changes nothing the
// second time.
func ResolveMedia(ds *domain.Dataset, assets *media.AssetIndex) (ResolveResult, error) {
	var res ResolveResult
	for _, ex := range ds.Exercises {
		id := ex.ID()
		if id == "" {
			res.Skipped++
			continue
		}
		filename, kind := assets.Match(id)
		if kind == media.NoMatch {
			res.Unresolved = append(res.Unresolved, id)
			continue
		}
		if kind == media.LooseMatch {
			gif, _ := ex.Gif()
			applied := gif == "" || gif == filename
			res.Loose = append(res.Loose, LooseMatch{ID: id, Filename: filename, Applied: applied})
			if !applied {
				continue
			}
		}
		res.Matched++
		if current, present := ex.String(domain.FieldGif); present && current == filename {
			continue
		}
		if err := ex.Set(domain.FieldGif, filename); err != nil {
			return res, err
		}
		res.Changed++
	}
	return res, nil
}
