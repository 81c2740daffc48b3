package settings

import (
	"os"
	"strconv"
	"strings"
)

// DefaultEnvPrefix prefixes the environment variables read by ApplyEnv.
const DefaultEnvPrefix = "GENETRANS_"

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// EnvName returns the environment variable that overrides key.
func EnvName(prefix, key string) string {
	return prefix + strings.ToUpper(key)
}

// ApplyEnv returns a copy of s with fields overridden from the environment.
// A field is read from EnvName(prefix, key); unset variables leave the field
// alone. Values that do not parse as the field's type are reported as a
// *ValidationError.
func ApplyEnv(s ModelSettings, prefix string, lookup LookupFunc) (ModelSettings, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}

	out := s
	verr := &ValidationError{}

	for _, f := range fields {
		name := EnvName(prefix, f.key)
		raw, ok := lookup(name)
		if !ok {
			continue
		}
		raw = strings.TrimSpace(raw)

		switch p := f.ref(&out).(type) {
		case *string:
			*p = raw
		case *bool:
			v, err := strconv.ParseBool(raw)
			if err != nil {
				verr.add(f.key, 0, "%s: value could not be parsed to a boolean", name)
				continue
			}
			*p = v
		case *int:
			v, err := strconv.Atoi(raw)
			if err != nil {
				verr.add(f.key, 0, "%s: value is not a valid integer", name)
				continue
			}
			*p = v
		}
	}

	if err := verr.orNil(); err != nil {
		return ModelSettings{}, err
	}
	return out, nil
}

// Resolve builds the effective settings: defaults, then environment
// overrides, then the file at path when path is not empty.
func Resolve(path string, lookup LookupFunc) (ModelSettings, error) {
	s, err := ApplyEnv(Default(), DefaultEnvPrefix, lookup)
	if err != nil {
		return ModelSettings{}, err
	}
	if path == "" {
		return s, nil
	}
	return loadOnto(s, path)
}
