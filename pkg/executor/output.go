package executor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/pseudomuto/sqlchanges/pkg/change"
	"github.com/pseudomuto/sqlchanges/pkg/consts"
	"github.com/pseudomuto/sqlchanges/pkg/history"
)

// dryRun renders every file and writes it beneath the tmp directory at the
// path it has relative to the project, e.g.
// changes/2024-01-15-users/change/001.sql.tmpl -> tmp/changes/2024-01-15-users/change/001.sql
func (e *Executor) dryRun(ctx context.Context, res *Result) *Result {
	res.Status = StatusSuccess

	e.renderAll(ctx, res, func(f *FileResult, sql string) error {
		out := e.dryRunPath(res, f)
		if err := os.MkdirAll(filepath.Dir(out), consts.ModeDir); err != nil {
			return errors.Wrapf(err, "failed to create %s", filepath.Dir(out))
		}

		if err := os.WriteFile(out, []byte(sql), consts.ModeFile); err != nil {
			return errors.Wrapf(err, "failed to write %s", out)
		}

		f.OutputPath = out
		return nil
	})

	if res.Error != nil {
		e.fail(ctx, res, res.Error)
	}

	return res
}

// preview renders every file into one script, each file preceded by a
// header comment naming it.
func (e *Executor) preview(ctx context.Context, res *Result, w io.Writer) (*Result, error) {
	res.Status = StatusSuccess

	var buf strings.Builder
	e.renderAll(ctx, res, func(f *FileResult, sql string) error {
		if buf.Len() > 0 {
			buf.WriteString("\n")
		}

		fmt.Fprintf(&buf, "-- ==> %s/%s\n", res.Name, f.RelPath)
		buf.WriteString(sql)
		if !strings.HasSuffix(sql, "\n") {
			buf.WriteString("\n")
		}

		return nil
	})

	res.Output = buf.String()
	if res.Error != nil {
		e.fail(ctx, res, res.Error)
	}

	if w != nil {
		if _, err := io.WriteString(w, res.Output); err != nil {
			return res, errors.Wrap(err, "failed to write preview")
		}
	}

	return res, nil
}

// renderAll renders files in order, handing each to emit. The first failure
// marks the result failed and the remaining files skipped.
func (e *Executor) renderAll(ctx context.Context, res *Result, emit func(*FileResult, string) error) {
	for i, f := range res.Files {
		sql, err := e.renderer.Render(ctx, f.Path)
		if err == nil {
			f.SQL = sql
			err = emit(f, sql)
		}

		if err != nil {
			f.Status = history.StatusFailed
			f.Error = err
			res.Status = StatusFailed
			res.Error = errors.Wrapf(err, "%s failed", f.RelPath)

			for _, rest := range res.Files[i+1:] {
				rest.Status = history.StatusSkipped
				rest.SkipReason = "not run: " + res.Error.Error()
			}
			return
		}

		f.Status = history.StatusSuccess
	}
}

func (e *Executor) dryRunPath(res *Result, f *FileResult) string {
	rel, err := filepath.Rel(e.projectDir, f.Path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = filepath.Join(res.Name, filepath.FromSlash(f.RelPath))
		rel = strings.ReplaceAll(rel, ":", string(filepath.Separator))
	}

	if change.IsTemplate(rel) {
		rel = rel[:len(rel)-len(change.TemplateExt)]
	}
	return filepath.Join(e.tmpDir, rel)
}
