package render

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const simulationBody = `{"markdown":"# Caso\n\nAudiencia <script>alert(1)</script>","json":{"meta":{"titulo":"Hurto"},"variantes":["a"]},"warnings":[]}`

const partialBody = `{"markdown":"# Caso","json":null,"warnings":["No se detectó un bloque JSON válido en la respuesta del modelo."]}`

const stepsBody = `{"steps":["Demanda","Contestación","Sentencia"],"summary":"Disputa resuelta.","metadata":{"model":"x"}}`

func mustDecode(t *testing.T, body string) *Result {
	t.Helper()
	r, err := Decode([]byte(body))
	require.NoError(t, err)
	return r
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte("  "))
	assert.ErrorIs(t, err, ErrEmptyBody)

	_, err = Decode([]byte("{"))
	assert.Error(t, err)
}

func TestBuild_PicksShape(t *testing.T) {
	t.Run("simulation", func(t *testing.T) {
		v := Build(mustDecode(t, simulationBody))
		assert.Equal(t, ShapeSimulation, v.Shape)
		require.Len(t, v.Panes, 2)
		assert.Equal(t, "Markdown", v.Panes[0].Title)
		assert.True(t, v.Panes[0].Markdown)
		assert.Equal(t, "JSON", v.Panes[1].Title)
		assert.Contains(t, v.Panes[1].Body, "\n  \"meta\": {")
		assert.Empty(t, v.Warnings)
	})

	t.Run("partial result", func(t *testing.T) {
		r := mustDecode(t, partialBody)
		assert.False(t, r.HasJSON())

		v := Build(r)
		assert.Equal(t, noJSONBody, v.Panes[1].Body)
		assert.Equal(t, []string{"No se detectó un bloque JSON válido en la respuesta del modelo."}, v.Warnings)
	})

	t.Run("steps", func(t *testing.T) {
		v := Build(mustDecode(t, stepsBody))
		assert.Equal(t, ShapeSteps, v.Shape)
		assert.Equal(t, "Pasos", v.Panes[0].Title)
		assert.Equal(t, "1. Demanda\n2. Contestación\n3. Sentencia\n\nDisputa resuelta.", v.Panes[0].Body)
		assert.JSONEq(t, `{"model":"x"}`, v.Panes[1].Body)
	})

	t.Run("summary alone selects steps", func(t *testing.T) {
		v := Build(mustDecode(t, `{"summary":"Solo resumen."}`))
		assert.Equal(t, ShapeSteps, v.Shape)
		assert.Equal(t, "{}", v.Panes[1].Body)
	})
}

func TestText(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Text(&buf, Build(mustDecode(t, partialBody))))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "Advertencias:\n  - No se detectó"))
	assert.Contains(t, out, "== Markdown ==\n# Caso\n")
	assert.Contains(t, out, "== JSON ==\nSin bloque JSON.\n")
}

func TestHTML_EscapesRawMarkup(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, HTML(&buf, Build(mustDecode(t, simulationBody))))

	out := buf.String()
	assert.Contains(t, out, "<h1>Caso</h1>")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "<pre>{\n  &#34;meta&#34;")
}

func TestDownload_JSONMatchesServerBytes(t *testing.T) {
	for _, body := range []string{simulationBody, partialBody, stepsBody} {
		got, err := Download(mustDecode(t, body), FormatJSON)
		require.NoError(t, err)

		var compact bytes.Buffer
		require.NoError(t, json.Compact(&compact, got))
		assert.Equal(t, body, compact.String())
		assert.True(t, bytes.HasSuffix(got, []byte("\n")))
	}
}

func TestDownload_Markdown(t *testing.T) {
	got, err := Download(mustDecode(t, partialBody), FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "# Caso", string(got))

	got, err = Download(mustDecode(t, stepsBody), FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "# Simulación LexSim\n\n1. Demanda\n2. Contestación\n3. Sentencia\n\nDisputa resuelta.\n", string(got))
}

func TestDownload_HTML(t *testing.T) {
	got, err := Download(mustDecode(t, stepsBody), FormatHTML)
	require.NoError(t, err)
	assert.Contains(t, string(got), "<h2>Pasos</h2>")
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
		name string
	}{
		{"json", FormatJSON, "simulacion.json"},
		{"MD", FormatMarkdown, "simulacion.md"},
		{"markdown", FormatMarkdown, "simulacion.md"},
		{" html ", FormatHTML, "simulacion.html"},
	}
	for _, tt := range tests {
		f, err := ParseFormat(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, f)
		assert.Equal(t, tt.name, f.Filename())
	}

	_, err := ParseFormat("pdf")
	assert.Error(t, err)
}
