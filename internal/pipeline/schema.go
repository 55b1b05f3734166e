package pipeline

import (
	"fmt"
	"strings"

	"github.com/geostrata/categorize/internal/core/model"
)

// punctuation stripped from output field names, underscore excepted.
const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^`{|}~"

const digitPrefix = "Field_"

const (
	longNameLimit   = 64
	legacyNameLimit = 10
)

// SanitizeFieldName normalizes a user-supplied output field name for the
// destination store: punctuation stripped, a leading digit prefixed, spaces
// replaced with underscores, then truncated to the store's limit. The
// 64/10 character limits are an external-format constraint and must not
// change.
func SanitizeFieldName(name string, longNames bool) (string, error) {
	for _, p := range punctuation {
		name = strings.ReplaceAll(name, string(p), "")
	}

	if name == "" {
		return "", fmt.Errorf("%w (input %q)", ErrBadFieldName, name)
	}
	if r := []rune(name)[0]; r >= '0' && r <= '9' {
		name = digitPrefix + name
	}
	name = strings.ReplaceAll(name, " ", "_")

	limit := legacyNameLimit
	if longNames {
		limit = longNameLimit
	}
	if runes := []rune(name); len(runes) > limit {
		name = string(runes[:limit])
	}
	if strings.Trim(name, "_") == "" {
		return "", fmt.Errorf("%w (input %q)", ErrBadFieldName, name)
	}
	return name, nil
}

// DeriveOutputField derives the output field spec from the division field:
// same type (token uppercased), length, precision and scale with zero
// values dropped, under the sanitized output name.
func DeriveOutputField(fields []model.FieldSpec, divisionField, outputName string, longNames bool) (model.FieldSpec, error) {
	var (
		src   model.FieldSpec
		found bool
	)
	for _, f := range fields {
		if f.Name == divisionField {
			src = f
			found = true
			break
		}
	}
	if !found {
		return model.FieldSpec{}, fmt.Errorf("%w: %q", ErrFieldNotFound, divisionField)
	}
	if src.Type.IsGeometry() || src.Type.IsIdentity() {
		return model.FieldSpec{}, fmt.Errorf("%w: %q is %s", ErrBadFieldType, divisionField, src.Type.Canon())
	}

	name, err := SanitizeFieldName(outputName, longNames)
	if err != nil {
		return model.FieldSpec{}, err
	}

	// zero length/precision/scale mean unset and stay zero, which the
	// codec omits
	return model.FieldSpec{
		Name:      name,
		Type:      src.Type.Canon(),
		Length:    src.Length,
		Precision: src.Precision,
		Scale:     src.Scale,
	}, nil
}
