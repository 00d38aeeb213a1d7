package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validContext = "Un estudiante fue acusado de hurto en la biblioteca. Las cámaras muestran una figura borrosa. Un testigo afirma haberlo visto."

type captured struct {
	calls int
	body  map[string]any
}

func newServer(t *testing.T, status int, response string) (*httptest.Server, *captured) {
	t.Helper()
	c := &captured{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c.calls++
		b, _ := io.ReadAll(r.Body)
		if len(b) > 0 {
			require.NoError(t, json.Unmarshal(b, &c.body))
		}
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	t.Setenv("LEXSIM_CONFIG_DIR", t.TempDir())
	return srv, c
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSimulate_WritesDownload(t *testing.T) {
	response := `{"markdown":"# Caso","json":null,"warnings":["No se detectó un bloque JSON válido en la respuesta del modelo."]}`
	srv, got := newServer(t, http.StatusOK, response)
	outFile := filepath.Join(t.TempDir(), "caso.md")

	out, err := execute(t, "simulate", "--server", srv.URL,
		"--context", validContext, "--subject", "civil", "--constraint", "sin menores",
		"--output", outFile)
	require.NoError(t, err)

	assert.Equal(t, 1, got.calls)
	assert.Equal(t, "civil", got.body["materia"])
	assert.Equal(t, "intermedio", got.body["nivel"])
	assert.EqualValues(t, 90, got.body["duracion_min"])
	assert.Contains(t, out, "Advertencias:")
	assert.Contains(t, out, "== Markdown ==\n# Caso")

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.Equal(t, "# Caso", string(data))
}

func TestSimulate_StepsPrompt(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, `{"steps":["a","b","c"],"summary":"s","metadata":{"model":"x"}}`)
	outFile := filepath.Join(t.TempDir(), "pasos.json")

	out, err := execute(t, "simulate", "--server", srv.URL,
		"--prompt", "Simulate a contract dispute", "--max-steps", "3", "--output", outFile)
	require.NoError(t, err)

	assert.Equal(t, "Simulate a contract dispute", got.body["prompt"])
	assert.EqualValues(t, 3, got.body["parameters"].(map[string]any)["max_steps"])
	assert.Contains(t, out, "1. a\n2. b\n3. c")

	data, err := os.ReadFile(outFile)
	require.NoError(t, err)
	assert.JSONEq(t, `{"steps":["a","b","c"],"summary":"s","metadata":{"model":"x"}}`, string(data))
}

func TestSimulate_ValidatesLocally(t *testing.T) {
	srv, got := newServer(t, http.StatusOK, `{}`)

	_, err := execute(t, "simulate", "--server", srv.URL, "--context", "breve")
	require.Error(t, err)
	assert.Equal(t, "El contexto debe tener al menos 10 caracteres.", err.Error())
	assert.Equal(t, 0, got.calls)
}

func TestSimulate_ReportsAPIError(t *testing.T) {
	srv, _ := newServer(t, http.StatusBadGateway,
		`{"code":502,"message":"Error al generar la simulación. Intente nuevamente más tarde.","error":{"error_code":"5005"}}`)

	_, err := execute(t, "simulate", "--server", srv.URL, "--context", validContext)
	require.Error(t, err)
	assert.Equal(t, "Error al generar la simulación. Intente nuevamente más tarde.", err.Error())
}

func TestHealth(t *testing.T) {
	srv, _ := newServer(t, http.StatusOK, `{"status":"ok"}`)

	out, err := execute(t, "health", "--server", srv.URL)
	require.NoError(t, err)
	assert.Contains(t, out, `"health"`)
	assert.Contains(t, out, `"status": "ok"`)
}
