package engine

import (
	"fmt"
	"strings"

	"ibus-m17n/internal/m17n"
)

// Namespace is the first token of every engine identifier.
const Namespace = "m17n"

// sectionPrefix is the configuration section prefix of a variant.
const sectionPrefix = "engine/M17N"

// EngineVariant identifies one input method of the library.
type EngineVariant struct {
	Language m17n.Symbol
	Method   m17n.Symbol
}

// ParseIdentifier parses "m17n:<language>:<method>". Tokens must be
// non-empty and lowercase.
func ParseIdentifier(id string) (EngineVariant, error) {
	parts := strings.Split(id, ":")
	if len(parts) != 3 {
		return EngineVariant{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}
	for _, p := range parts {
		if p == "" || p != strings.ToLower(p) || strings.ContainsAny(p, " \t\n/") {
			return EngineVariant{}, fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
		}
	}
	if parts[0] != Namespace {
		return EngineVariant{}, fmt.Errorf("%w: %q: namespace must be %q", ErrInvalidIdentifier, id, Namespace)
	}
	return EngineVariant{Language: m17n.Symbol(parts[1]), Method: m17n.Symbol(parts[2])}, nil
}

// String returns the engine identifier of v.
func (v EngineVariant) String() string {
	return Namespace + ":" + string(v.Language) + ":" + string(v.Method)
}

// ConfigSection returns the configuration store section of v.
func (v EngineVariant) ConfigSection() string {
	return sectionPrefix + "/" + string(v.Language) + "/" + string(v.Method)
}
