// Package render turns change files into the SQL that is executed.
//
// Plain .sql files are returned verbatim. Files ending in .sql.tmpl are Go
// text/templates with the sprig function library available, executed with
// the configured vars as data:
//
//	-- change/001_create_events.sql.tmpl
//	CREATE TABLE {{ .schema }}.events (
//		id {{ if eq .Dialect "postgres" }}BIGSERIAL{{ else }}INTEGER{{ end }} PRIMARY KEY
//	);
//	{{ include "grants/events.sql" }}
//
// Besides the vars, templates see .Config (the config name) and .Dialect.
// include renders a file relative to the schema directory.
package render

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/pkg/errors"
	"github.com/pseudomuto/sqlchanges/pkg/change"
)

const maxIncludeDepth = 8

type (
	// Renderer produces executable SQL for a change file.
	Renderer interface {
		Render(ctx context.Context, path string) (string, error)
	}

	// RendererFunc adapts a function to a Renderer.
	RendererFunc func(ctx context.Context, path string) (string, error)

	// Options configure a Template renderer.
	Options struct {
		// SchemaDir is the root include paths resolve against
		SchemaDir string

		// ConfigName is exposed to templates as .Config
		ConfigName string

		// Dialect is exposed to templates as .Dialect
		Dialect string

		// Vars are the template data
		Vars map[string]any
	}

	// Template renders .sql files verbatim and .sql.tmpl files as templates.
	Template struct {
		opts Options
		data map[string]any
	}
)

func (f RendererFunc) Render(ctx context.Context, path string) (string, error) { return f(ctx, path) }

// New creates a Template renderer.
func New(opts Options) *Template {
	data := make(map[string]any, len(opts.Vars)+2)
	for k, v := range opts.Vars {
		data[k] = v
	}
	data["Config"] = opts.ConfigName
	data["Dialect"] = opts.Dialect

	return &Template{opts: opts, data: data}
}

// Render reads path and renders it when it is a template.
func (t *Template) Render(ctx context.Context, path string) (string, error) {
	return t.render(ctx, path, 0)
}

func (t *Template) render(ctx context.Context, path string, depth int) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", path)
	}

	if !change.IsTemplate(path) {
		return string(content), nil
	}

	tmpl, err := template.New(filepath.Base(path)).
		Funcs(sprig.TxtFuncMap()).
		Funcs(template.FuncMap{
			"include": func(rel string) (string, error) {
				return t.include(ctx, rel, depth+1)
			},
		}).
		Option("missingkey=error").
		Parse(string(content))
	if err != nil {
		return "", errors.Wrapf(err, "failed to parse template %s", path)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, t.data); err != nil {
		return "", errors.Wrapf(err, "failed to render template %s", path)
	}

	return buf.String(), nil
}

func (t *Template) include(ctx context.Context, rel string, depth int) (string, error) {
	if depth > maxIncludeDepth {
		return "", errors.Errorf("include depth exceeded at %s", rel)
	}

	if filepath.IsAbs(rel) {
		return "", errors.Errorf("include path must be relative: %s", rel)
	}

	return t.render(ctx, filepath.Join(t.opts.SchemaDir, rel), depth)
}
