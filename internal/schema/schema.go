// Package schema defines the validity rules of a single exercise record.
//
// The rules are tolerant: a record that breaks them is reported, never
// rejected or modified. Type rules come from an embedded JSON Schema;
// presence, enumeration and media rules are checked here.
package schema

import (
	"alcyxob/exercise-curator/internal/domain"
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed exercise.schema.json
var exerciseSchemaJSON []byte

// Severity ranks a FieldError.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Rule names the check a record failed.
type Rule string

const (
	RuleRequired        Rule = "required"
	RuleInvalidType     Rule = "invalid_type"
	RuleConstraint      Rule = "constraint"
	RuleUnrecognized    Rule = "unrecognized_value"
	RuleMediaUnresolved Rule = "media_unresolved"
	RuleDuplicateKey    Rule = "duplicate_key"
	RuleDuplicateEntry  Rule = "duplicate_entry"
)

// FieldError names the field at fault and the rule it violated.
type FieldError struct {
	Field    string   `json:"field"`
	Rule     Rule     `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Rule)
}

// Options configures the recognized enumeration values.
type Options struct {
	Mechanics      []string
	EquipmentTiers []string
}

// DefaultOptions returns the enumerations used by the dataset today.
func DefaultOptions() Options {
	return Options{
		Mechanics:      []string{string(domain.MechanicCompound), string(domain.MechanicIsolation)},
		EquipmentTiers: []string{string(domain.TierHome), string(domain.TierDumbbell), string(domain.TierGym)},
	}
}

// RecordSchema validates exercise records.
type RecordSchema struct {
	mechanics map[string]struct{}
	tiers     map[string]struct{}
	types     *gojsonschema.Schema
}

// New compiles the record schema. Empty option lists fall back to defaults.
func New(opts Options) (*RecordSchema, error) {
	defaults := DefaultOptions()
	if len(opts.Mechanics) == 0 {
		opts.Mechanics = defaults.Mechanics
	}
	if len(opts.EquipmentTiers) == 0 {
		opts.EquipmentTiers = defaults.EquipmentTiers
	}

	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(exerciseSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile exercise schema: %w", err)
	}
	return &RecordSchema{
		mechanics: toSet(opts.Mechanics),
		tiers:     toSet(opts.EquipmentTiers),
		types:     compiled,
	}, nil
}

// MustNew is New for the built-in schema, panicking if it cannot compile.
func MustNew(opts Options) *RecordSchema {
	s, err := New(opts)
	if err != nil {
		panic(err)
	}
	return s
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[strings.TrimSpace(v)] = struct{}{}
	}
	return set
}

// Validate returns every problem found in the record, sorted by field.
func (s *RecordSchema) Validate(ex *domain.Exercise) []FieldError {
	var errs []FieldError

	for _, field := range domain.RequiredFields {
		if !ex.Has(field) {
			errs = append(errs, FieldError{
				Field:    field,
				Rule:     RuleRequired,
				Severity: SeverityError,
				Message:  "required field is missing",
			})
		}
	}

	// An empty gif is a pending resolution, not a broken record.
	if raw, ok := ex.Raw(domain.FieldGif); ok && string(raw) == `""` {
		errs = append(errs, FieldError{
			Field:    domain.FieldGif,
			Rule:     RuleMediaUnresolved,
			Severity: SeverityWarning,
			Message:  "media filename not resolved yet",
		})
	}

	errs = append(errs, s.typeErrors(ex)...)
	errs = append(errs, s.enumError(ex, domain.FieldMechanic, s.mechanics)...)
	errs = append(errs, s.enumError(ex, domain.FieldEquipmentTier, s.tiers)...)

	if muscles, ok := ex.Strings(domain.FieldSecondaryMuscles); ok {
		seen := make(map[string]bool, len(muscles))
		for _, m := range muscles {
			if seen[m] {
				errs = append(errs, FieldError{
					Field:    domain.FieldSecondaryMuscles,
					Rule:     RuleDuplicateEntry,
					Severity: SeverityWarning,
					Message:  fmt.Sprintf("%q listed more than once", m),
				})
			}
			seen[m] = true
		}
	}

	for _, key := range ex.DuplicateKeys() {
		errs = append(errs, FieldError{
			Field:    key,
			Rule:     RuleDuplicateKey,
			Severity: SeverityError,
			Message:  "key appears more than once in the record; last value kept",
		})
	}

	sort.SliceStable(errs, func(i, j int) bool {
		if errs[i].Field != errs[j].Field {
			return errs[i].Field < errs[j].Field
		}
		return errs[i].Rule < errs[j].Rule
	})
	return errs
}

func (s *RecordSchema) typeErrors(ex *domain.Exercise) []FieldError {
	doc, err := ex.MarshalJSON()
	if err != nil {
		return []FieldError{{
			Field:    "(record)",
			Rule:     RuleInvalidType,
			Severity: SeverityError,
			Message:  err.Error(),
		}}
	}
	result, err := s.types.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return []FieldError{{
			Field:    "(record)",
			Rule:     RuleInvalidType,
			Severity: SeverityError,
			Message:  err.Error(),
		}}
	}
	if result.Valid() {
		return nil
	}

	errs := make([]FieldError, 0, len(result.Errors()))
	for _, re := range result.Errors() {
		rule := RuleConstraint
		if re.Type() == "invalid_type" {
			rule = RuleInvalidType
		}
		errs = append(errs, FieldError{
			Field:    re.Field(),
			Rule:     rule,
			Severity: SeverityError,
			Message:  re.Description(),
		})
	}
	return errs
}

func (s *RecordSchema) enumError(ex *domain.Exercise, field string, allowed map[string]struct{}) []FieldError {
	value, ok := ex.String(field)
	if !ok {
		return nil
	}
	if _, known := allowed[value]; known {
		return nil
	}
	return []FieldError{{
		Field:    field,
		Rule:     RuleUnrecognized,
		Severity: SeverityError,
		Message:  fmt.Sprintf("unrecognized value %q", value),
	}}
}
