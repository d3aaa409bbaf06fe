// Package manifest reads curation manifests: YAML (or JSON) documents that
// list records to add and fields to patch.
//
//	add:
//	  - id: squat
//	    name: Squat
//	    ...
//	patch:
//	  - id: bicycle_crunch
//	    field: gif
//	    value: bicycle_crunches.gif
//	    when: empty
//
// A document that is a bare sequence is read as the add list.
package manifest

import (
	"alcyxob/exercise-curator/internal/domain"
	"alcyxob/exercise-curator/internal/service"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

var ErrInvalidManifest = errors.New("invalid manifest")

// Load reads and parses the manifest at path.
func Load(path string) (service.Changes, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return service.Changes{}, fmt.Errorf("read manifest: %w", err)
	}
	return Parse(data)
}

// Parse decodes a manifest document. Record key order is preserved.
func Parse(data []byte) (service.Changes, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return service.Changes{}, fmt.Errorf("%w: %v", ErrInvalidManifest, err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return service.Changes{}, fmt.Errorf("%w: empty document", ErrInvalidManifest)
	}
	root := doc.Content[0]

	var changes service.Changes
	switch root.Kind {
	case yaml.SequenceNode:
		records, err := decodeRecords(root)
		if err != nil {
			return changes, err
		}
		changes.Add = records
	case yaml.MappingNode:
		for i := 0; i+1 < len(root.Content); i += 2 {
			key, value := root.Content[i], root.Content[i+1]
			switch key.Value {
			case "add":
				records, err := decodeRecords(value)
				if err != nil {
					return changes, err
				}
				changes.Add = append(changes.Add, records...)
			case "patch":
				patches, err := decodePatches(value)
				if err != nil {
					return changes, err
				}
				changes.Patch = append(changes.Patch, patches...)
			default:
				return changes, fmt.Errorf("%w: line %d: unknown section %q", ErrInvalidManifest, key.Line, key.Value)
			}
		}
	default:
		return changes, fmt.Errorf("%w: line %d: expected a mapping or a sequence", ErrInvalidManifest, root.Line)
	}
	return changes, nil
}

func decodeRecords(node *yaml.Node) ([]*domain.Exercise, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: line %d: add must be a sequence of records", ErrInvalidManifest, node.Line)
	}
	records := make([]*domain.Exercise, 0, len(node.Content))
	for _, item := range node.Content {
		ex, err := decodeRecord(item)
		if err != nil {
			return nil, err
		}
		records = append(records, ex)
	}
	return records, nil
}

// decodeRecord walks the mapping pairs in document order so the record keeps
// the author's key order.
func decodeRecord(node *yaml.Node) (*domain.Exercise, error) {
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: line %d: record must be a mapping", ErrInvalidManifest, node.Line)
	}
	fields := make([]domain.Field, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, value := node.Content[i], node.Content[i+1]
		raw, err := nodeJSON(value)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: field %q: %v", ErrInvalidManifest, value.Line, key.Value, err)
		}
		fields = append(fields, domain.Field{Key: key.Value, Value: raw})
	}
	ex := domain.NewExercise(fields...)
	if ex.ID() == "" {
		return nil, fmt.Errorf("%w: line %d: record has no string id", ErrInvalidManifest, node.Line)
	}
	return ex, nil
}

func nodeJSON(node *yaml.Node) ([]byte, error) {
	v, err := nodeValue(node)
	if err != nil {
		return nil, err
	}
	return domain.MarshalValue(v)
}

func nodeValue(node *yaml.Node) (any, error) {
	var v any
	if err := node.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

type patchEntry struct {
	ID     string    `yaml:"id"`
	Field  string    `yaml:"field"`
	Value  yaml.Node `yaml:"value"`
	When   string    `yaml:"when"`
	Expect yaml.Node `yaml:"expect"`
}

func decodePatches(node *yaml.Node) ([]service.PatchSpec, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("%w: line %d: patch must be a sequence", ErrInvalidManifest, node.Line)
	}
	specs := make([]service.PatchSpec, 0, len(node.Content))
	for _, item := range node.Content {
		var entry patchEntry
		if err := item.Decode(&entry); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidManifest, item.Line, err)
		}
		if entry.ID == "" || entry.Field == "" {
			return nil, fmt.Errorf("%w: line %d: patch needs id and field", ErrInvalidManifest, item.Line)
		}
		if entry.Value.Kind == 0 {
			return nil, fmt.Errorf("%w: line %d: patch %s.%s has no value", ErrInvalidManifest, item.Line, entry.ID, entry.Field)
		}
		value, err := nodeValue(&entry.Value)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidManifest, item.Line, err)
		}
		spec := service.PatchSpec{ID: entry.ID, Field: entry.Field, Value: value, When: entry.When}
		if entry.Expect.Kind != 0 {
			if spec.Expect, err = nodeValue(&entry.Expect); err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidManifest, item.Line, err)
			}
		}
		if _, err := service.ParsePredicate(spec.When, spec.Expect); err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidManifest, item.Line, err)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}
