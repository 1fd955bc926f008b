package ast_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chartschema/chartschema/ast"
)

func TestParseSimpleMapping(t *testing.T) {
	t.Parallel()

	src := "replicas: {{ .Values.replicaCount }}\nimage: {{ .Values.image }}\n"

	doc, defs, err := ast.Parse("test.yaml", []byte(src))
	require.NoError(t, err)
	assert.Empty(t, defs)

	document, ok := doc.(*ast.Document)
	require.True(t, ok)

	mapping, ok := document.Body.(*ast.Mapping)
	require.True(t, ok)
	assert.Len(t, mapping.Items, 2)
}

func TestParseEmptySourceReturnsNilDoc(t *testing.T) {
	t.Parallel()

	doc, defs, err := ast.Parse("empty.yaml", []byte(""))
	require.NoError(t, err)
	assert.Nil(t, doc)
	assert.Empty(t, defs)
}

func TestParseInvalidUTF8(t *testing.T) {
	t.Parallel()

	_, _, err := ast.Parse("bad.yaml", []byte{0xff, 0xfe, 0xfd})
	require.Error(t, err)
	assert.ErrorIs(t, err, ast.ErrEncoding)
}

func TestParseUnbalancedTemplateAction(t *testing.T) {
	t.Parallel()

	_, _, err := ast.Parse("bad.yaml", []byte("key: {{ .Values.x \n"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ast.ErrParse)
}

func TestParseRegistersDefines(t *testing.T) {
	t.Parallel()

	src := `{{- define "chart.name" -}}
mychart
{{- end }}
name: {{ include "chart.name" . }}
`

	doc, defs, err := ast.Parse("helpers.yaml", []byte(src))
	require.NoError(t, err)
	require.NotNil(t, doc)
	require.Len(t, defs, 1)

	assert.Equal(t, "chart.name", defs[0].DefName())
}

func TestParseMultiDocumentStream(t *testing.T) {
	t.Parallel()

	src := "a: 1\n---\nb: 2\n"

	doc, _, err := ast.Parse("stream.yaml", []byte(src))
	require.NoError(t, err)

	stream, ok := doc.(*ast.Stream)
	require.True(t, ok)
	assert.Len(t, stream.Documents, 2)
}

func TestParseIfElseControl(t *testing.T) {
	t.Parallel()

	src := `{{- if .Values.enabled }}
key: a
{{- else }}
key: b
{{- end }}
`

	doc, _, err := ast.Parse("cond.yaml", []byte(src))
	require.NoError(t, err)
	require.NotNil(t, doc)
}
