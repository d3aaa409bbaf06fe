package service

import (
	"alcyxob/exercise-curator/internal/domain"
	"alcyxob/exercise-curator/internal/schema"
	"sort"
)

// RecordIssues groups the schema findings of one record.
type RecordIssues struct {
	Position int                 `json:"position"`
	ID       string              `json:"id"`
	Errors   []schema.FieldError `json:"errors"`
}

// Collision describes an id carried by more than one record.
type Collision struct {
	ID        string `json:"id"`
	Positions []int  `json:"positions"`
}

// TierCount is one row of the equipment tier frequency table.
type TierCount struct {
	Tier  string `json:"tier"`
	Count int    `json:"count"`
}

// Report is the read-only outcome of validating a dataset.
type Report struct {
	Records         int            `json:"records"`
	Issues          []RecordIssues `json:"issues,omitempty"`
	Collisions      []Collision    `json:"collisions,omitempty"`
	Tiers           []TierCount    `json:"tiers"`
	ErrorCount      int            `json:"error_count"`
	WarningCount    int            `json:"warning_count"`
	MediaUnresolved int            `json:"media_unresolved"`
}

// Valid reports whether no error-severity finding and no collision exists.
// Warnings do not make a dataset invalid.
func (r *Report) Valid() bool {
	return r.ErrorCount == 0 && len(r.Collisions) == 0
}

// TierCount returns the number of records in the given tier bucket.
func (r *Report) TierCount(tier string) int {
	for _, t := range r.Tiers {
		if t.Tier == tier {
			return t.Count
		}
	}
	return 0
}

// Validator checks an assembled dataset. It never mutates its input.
type Validator struct {
	schema *schema.RecordSchema
}

// NewValidator creates a validator using the given record schema.
func NewValidator(s *schema.RecordSchema) *Validator {
	return &Validator{schema: s}
}

// Validate collects every finding of the dataset rather than stopping at the
// first one.
func (v *Validator) Validate(ds *domain.Dataset) *Report {
	report := &Report{Records: ds.Len()}
	tiers := make(map[string]int)

	for i, ex := range ds.Exercises {
		tiers[TierBucket(ex)]++

		errs := v.schema.Validate(ex)
		if len(errs) == 0 {
			continue
		}
		for _, e := range errs {
			switch e.Severity {
			case schema.SeverityError:
				report.ErrorCount++
			default:
				report.WarningCount++
			}
			if e.Rule == schema.RuleMediaUnresolved {
				report.MediaUnresolved++
			}
		}
		report.Issues = append(report.Issues, RecordIssues{Position: i, ID: ex.ID(), Errors: errs})
	}

	ix := domain.BuildIndex(ds)
	for _, id := range ix.Collisions {
		report.Collisions = append(report.Collisions, Collision{ID: id, Positions: ix.Positions(id)})
	}

	for tier, n := range tiers {
		report.Tiers = append(report.Tiers, TierCount{Tier: tier, Count: n})
	}
	sort.Slice(report.Tiers, func(i, j int) bool {
		if report.Tiers[i].Count != report.Tiers[j].Count {
			return report.Tiers[i].Count > report.Tiers[j].Count
		}
		return report.Tiers[i].Tier < report.Tiers[j].Tier
	})
	return report
}

// TierBucket returns the record's equipment tier, or UNKNOWN when the tier is
// missing, empty or not a string.
func TierBucket(ex *domain.Exercise) string {
	tier, ok := ex.String(domain.FieldEquipmentTier)
	if !ok || tier == "" {
		return string(domain.TierUnknown)
	}
	return tier
}
