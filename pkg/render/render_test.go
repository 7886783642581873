package render_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/pseudomuto/sqlchanges/pkg/render"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestTemplateRender(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	schema := filepath.Join(dir, "schema")

	write(t, schema, "grants/events.sql", "GRANT SELECT ON events TO {{ .reader }};")
	write(t, schema, "grants/events.sql.tmpl", "GRANT SELECT ON events TO {{ .reader | upper }};")
	write(t, schema, "loop.sql.tmpl", `{{ include "loop.sql.tmpl" }}`)

	r := render.New(render.Options{
		SchemaDir:  schema,
		ConfigName: "production",
		Dialect:    "postgres",
		Vars:       map[string]any{"schema": "app", "reader": "analyst"},
	})

	tests := []struct {
		name     string
		file     string
		content  string
		expected string
		err      string
	}{
		{
			name:     "plain sql is not rendered",
			file:     "001.sql",
			content:  "SELECT '{{ .schema }}';",
			expected: "SELECT '{{ .schema }}';",
		},
		{
			name:     "vars",
			file:     "002.sql.tmpl",
			content:  "CREATE TABLE {{ .schema }}.events (id INT);",
			expected: "CREATE TABLE app.events (id INT);",
		},
		{
			name:     "upper case extension",
			file:     "004_GRANTS.SQL.TMPL",
			content:  "CREATE SCHEMA {{ .schema }};",
			expected: "CREATE SCHEMA app;",
		},
		{
			name:     "config and dialect",
			file:     "003.sql.tmpl",
			content:  `-- {{ .Config }} {{ if eq .Dialect "postgres" }}BIGSERIAL{{ end }}`,
			expected: "-- production BIGSERIAL",
		},
		{
			name:     "sprig functions",
			file:     "004.sql.tmpl",
			content:  `SELECT {{ list "a" "b" | join ", " | quote }};`,
			expected: `SELECT "a, b";`,
		},
		{
			name:     "include plain file",
			file:     "005.sql.tmpl",
			content:  `{{ include "grants/events.sql" }}`,
			expected: "GRANT SELECT ON events TO {{ .reader }};",
		},
		{
			name:     "include template",
			file:     "006.sql.tmpl",
			content:  `{{ include "grants/events.sql.tmpl" }}`,
			expected: "GRANT SELECT ON events TO ANALYST;",
		},
		{
			name:    "missing var",
			file:    "007.sql.tmpl",
			content: "{{ .nope }}",
			err:     "failed to render template",
		},
		{
			name:    "parse error",
			file:    "008.sql.tmpl",
			content: "{{ .schema ",
			err:     "failed to parse template",
		},
		{
			name:    "missing include",
			file:    "009.sql.tmpl",
			content: `{{ include "missing.sql" }}`,
			err:     "failed to read",
		},
		{
			name:    "recursive include",
			file:    "010.sql.tmpl",
			content: `{{ include "loop.sql.tmpl" }}`,
			err:     "include depth exceeded",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := write(t, dir, tt.file, tt.content)

			got, err := r.Render(ctx, path)
			if tt.err != "" {
				require.ErrorContains(t, err, tt.err)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.expected, got)
		})
	}
}

func TestRenderMissingFile(t *testing.T) {
	_, err := render.New(render.Options{}).Render(context.Background(), filepath.Join(t.TempDir(), "nope.sql"))
	require.ErrorContains(t, err, "failed to read")
}

func TestRendererFunc(t *testing.T) {
	var r render.Renderer = render.RendererFunc(func(_ context.Context, path string) (string, error) {
		return "-- " + path, nil
	})

	got, err := r.Render(context.Background(), "x.sql")
	require.NoError(t, err)
	require.Equal(t, "-- x.sql", got)
}
