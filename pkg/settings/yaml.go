package settings

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Load reads a settings file. See Decode for the validation rules.
func Load(path string) (ModelSettings, error) {
	return loadOnto(Default(), path)
}

func loadOnto(base ModelSettings, path string) (ModelSettings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ModelSettings{}, fmt.Errorf("failed to read settings file: %w", err)
	}

	s, err := decodeOnto(base, bytes.NewReader(data))
	if err != nil {
		return ModelSettings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Decode parses one YAML document from r over the defaults.
//
// An empty document yields Default. Otherwise the document must be a single
// mapping whose keys are declared fields; every value must decode into the
// field's type. Schema violations are reported together as a
// *ValidationError, syntax errors are returned as parse errors.
func Decode(r io.Reader) (ModelSettings, error) {
	return decodeOnto(Default(), r)
}

func decodeOnto(base ModelSettings, r io.Reader) (ModelSettings, error) {
	dec := yaml.NewDecoder(r)

	var doc yaml.Node
	if err := dec.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return base, nil
		}
		return ModelSettings{}, fmt.Errorf("failed to parse settings: %w", err)
	}

	var extra yaml.Node
	if err := dec.Decode(&extra); err == nil {
		return ModelSettings{}, errors.New("failed to parse settings: more than one YAML document")
	} else if !errors.Is(err, io.EOF) {
		return ModelSettings{}, fmt.Errorf("failed to parse settings: %w", err)
	}

	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return base, nil
		}
		root = root.Content[0]
	}
	if root.Kind == yaml.ScalarNode && root.ShortTag() == "!!null" {
		return base, nil
	}
	if root.Kind != yaml.MappingNode {
		return ModelSettings{}, &ValidationError{Errors: []FieldError{{
			Field:   "__root__",
			Line:    root.Line,
			Message: "settings document must be a mapping",
		}}}
	}

	s := base
	verr := &ValidationError{}
	seen := make(map[string]bool, len(root.Content)/2)

	for i := 0; i+1 < len(root.Content); i += 2 {
		keyNode, valueNode := root.Content[i], root.Content[i+1]

		if keyNode.Kind != yaml.ScalarNode {
			verr.add("__root__", keyNode.Line, "field names must be scalars")
			continue
		}
		key := keyNode.Value

		if seen[key] {
			verr.add(key, keyNode.Line, "field defined more than once")
			continue
		}
		seen[key] = true

		f, ok := lookupField(key)
		if !ok {
			verr.add(key, keyNode.Line, "extra fields not permitted")
			continue
		}

		for valueNode.Kind == yaml.AliasNode && valueNode.Alias != nil {
			valueNode = valueNode.Alias
		}

		if valueNode.Kind == yaml.ScalarNode && valueNode.ShortTag() == "!!null" {
			verr.add(key, valueNode.Line, "none is not an allowed value")
			continue
		}

		ref := f.ref(&s)
		if msg := checkKind(ref, valueNode); msg != "" {
			verr.add(key, valueNode.Line, "%s", msg)
			continue
		}
		if p, ok := ref.(*string); ok {
			*p = valueNode.Value
			continue
		}
		if err := valueNode.Decode(ref); err != nil {
			verr.add(key, valueNode.Line, "%s", typeErrorMessage(err))
		}
	}

	if err := verr.orNil(); err != nil {
		return ModelSettings{}, err
	}
	return s, nil
}

// checkKind rejects values whose resolved YAML tag does not match the field
// type. yaml.v3 alone would truncate floats into ints.
func checkKind(ref any, n *yaml.Node) string {
	if n.Kind != yaml.ScalarNode {
		return "value is not a scalar"
	}
	tag := n.ShortTag()
	switch ref.(type) {
	case *int:
		if tag != "!!int" {
			return "value is not a valid integer"
		}
	case *bool:
		if tag != "!!bool" {
			return "value could not be parsed to a boolean"
		}
	case *string:
		if tag == "!!binary" {
			return "str type expected"
		}
	}
	return ""
}

func typeErrorMessage(err error) string {
	var te *yaml.TypeError
	if errors.As(err, &te) {
		msgs := make([]string, len(te.Errors))
		for i, m := range te.Errors {
			// drop the "line N: " prefix, the field error carries the line
			if idx := strings.Index(m, ": "); idx >= 0 && strings.HasPrefix(m, "line ") {
				m = m[idx+2:]
			}
			msgs[i] = m
		}
		return strings.Join(msgs, "; ")
	}
	return err.Error()
}

// Encode writes s as a YAML mapping with 4-space indentation, keys in
// declaration order.
func (s ModelSettings) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(4)
	if err := enc.Encode(s); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	return nil
}

// Dump writes s to path, replacing any existing file.
func (s ModelSettings) Dump(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create settings file: %w", err)
	}

	if err := s.Encode(file); err != nil {
		file.Close()
		return err
	}

	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}
