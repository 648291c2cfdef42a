package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		query string
		want  Shape
	}{
		{"ParseFile", ShapeIdentifier},
		{"parse_file", ShapeIdentifier},
		{"auth.Login()", ShapeIdentifier},
		{"Config", ShapeIdentifier},
		{"how does authentication work", ShapeNaturalLanguage},
		{"user authentication with tokens", ShapeNaturalLanguage},
		{"authenticate", ShapeMixed},
		{"ParseFile error handling paths", ShapeMixed},
		{"", ShapeMixed},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.query))
		})
	}
}

func TestShapeString(t *testing.T) {
	assert.Equal(t, "identifier", ShapeIdentifier.String())
	assert.Equal(t, "natural_language", ShapeNaturalLanguage.String())
	assert.Equal(t, "mixed", ShapeMixed.String())
}
