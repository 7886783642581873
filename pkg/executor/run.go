package executor

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/pseudomuto/sqlchanges/pkg/change"
	"github.com/pseudomuto/sqlchanges/pkg/event"
	"github.com/pseudomuto/sqlchanges/pkg/history"
)

func (e *Executor) run(ctx context.Context, j job, c *change.Change, opts Options) (*Result, error) {
	res := &Result{
		Name:      j.name,
		Kind:      j.kind,
		Direction: j.dir,
		Mode:      ModeExecute,
	}

	switch {
	case opts.DryRun:
		res.Mode = ModeDryRun
	case opts.Preview:
		res.Mode = ModePreview
	}

	if c != nil {
		if err := c.Validate(); err != nil {
			return e.fail(ctx, res, err), err
		}
	}

	if len(j.files) == 0 {
		err := &change.ValidationError{Path: j.path, Problems: []string{"no files to " + string(j.dir)}}
		return e.fail(ctx, res, err), err
	}

	if err := change.CheckContent(j.files); err != nil {
		return e.fail(ctx, res, err), err
	}

	plan, err := change.NewPlan(j.files, e.schemaDir)
	if err != nil {
		return e.fail(ctx, res, err), err
	}

	res.Checksum = plan.Checksum()
	res.Files = e.fileResults(j, plan)

	switch res.Mode {
	case ModeDryRun:
		return e.dryRun(ctx, res), nil
	case ModePreview:
		return e.preview(ctx, res, opts.Output)
	}

	if run, err := e.check(ctx, res, j, plan); err != nil || !run {
		return res, err
	}

	lockOpts := e.lockOpts
	lockOpts.Reason = j.name

	err = e.locks.WithLock(ctx, e.configName, e.identity, lockOpts, func(ctx context.Context) error {
		// history may have moved on while we waited for the lock
		if run, err := e.check(ctx, res, j, plan); err != nil || !run {
			return err
		}

		e.execute(ctx, res, j, plan)
		return nil
	})
	if err != nil {
		return e.fail(ctx, res, err), err
	}

	return res, nil
}

// check runs the job's gate. A false result without error means the result
// has been marked as skipped.
func (e *Executor) check(ctx context.Context, res *Result, j job, plan *change.Plan) (bool, error) {
	if j.gate == nil {
		return true, nil
	}

	run, reason, err := j.gate(ctx, plan)
	res.Reason = reason
	if err != nil {
		e.fail(ctx, res, err)
		return false, err
	}

	if !run {
		res.Skipped = true
		res.Status = StatusSuccess
		res.Files = nil
		e.observer.Notify(ctx, event.Event{
			Kind:      event.ChangeSkip,
			Name:      j.name,
			Direction: string(j.dir),
			Reason:    reason,
		})
	}

	return run, nil
}

func (e *Executor) execute(ctx context.Context, res *Result, j job, plan *change.Plan) {
	var (
		start = time.Now()
		hctx  = context.WithoutCancel(ctx)
		errs  []error
	)

	op := &history.Operation{
		Name:       j.name,
		Kind:       j.kind,
		Direction:  j.dir,
		Checksum:   plan.Checksum(),
		ExecutedBy: e.identity,
	}

	if err := e.history.CreateOperation(hctx, op); err != nil {
		e.fail(ctx, res, err)
		return
	}
	res.OperationID = op.ID

	records := make([]*history.FileExecution, len(res.Files))
	for i, f := range res.Files {
		records[i] = &history.FileExecution{Path: f.RelPath, FileType: f.Type, Checksum: f.Checksum}
	}

	if err := e.history.CreateFileRecords(hctx, op.ID, records); err != nil {
		errs = append(errs, err)
	}

	e.observer.Notify(ctx, event.Event{Kind: event.ChangeStart, Name: j.name, Direction: string(j.dir)})

	var failure error
	for i, f := range res.Files {
		if err := ctx.Err(); err != nil {
			failure = errors.Wrapf(err, "stopped before %s", f.Name)
			break
		}

		fileStart := time.Now()
		err := e.executeFile(hctx, f.Path)
		f.Duration = time.Since(fileStart)

		rec := records[i]
		rec.Duration = f.Duration
		if err != nil {
			f.Status, rec.Status = history.StatusFailed, history.StatusFailed
			f.Error, rec.ErrorMessage = err, err.Error()
		} else {
			f.Status, rec.Status = history.StatusSuccess, history.StatusSuccess
		}

		if rec.ID != "" {
			if uerr := e.history.UpdateFileExecution(hctx, rec); uerr != nil {
				errs = append(errs, uerr)
			}
		}

		e.observer.Notify(ctx, event.Event{
			Kind:      event.ChangeFile,
			Name:      j.name,
			Direction: string(j.dir),
			File:      f.RelPath,
			Status:    string(f.Status),
			Duration:  f.Duration,
			Err:       err,
		})

		if err != nil {
			failure = errors.Wrapf(err, "%s failed", f.RelPath)
			break
		}
	}

	if failure != nil {
		reason := "not run: " + failure.Error()
		if err := e.history.SkipRemainingFiles(hctx, op.ID, reason); err != nil {
			errs = append(errs, err)
		}

		for _, f := range res.Files {
			if f.Status == history.StatusPending {
				f.Status = history.StatusSkipped
				f.SkipReason = reason
			}
		}
	}

	op.Duration = time.Since(start)
	op.Status = history.StatusSuccess
	if failure != nil {
		op.Status = history.StatusFailed
		op.ErrorMessage = failure.Error()
	}

	if err := e.history.FinalizeOperation(hctx, op); err != nil {
		errs = append(errs, err)
	}

	if failure == nil && j.dir == change.Reverse && j.kind == history.KindChange {
		if err := e.history.MarkAsReverted(hctx, j.name); err != nil {
			errs = append(errs, err)
		}
	}

	for _, err := range errs {
		e.logger.Error("Failed to record history", "name", j.name, "error", err)
	}

	res.Duration = op.Duration
	res.Status = StatusSuccess
	if err := combine(failure, errs); err != nil {
		res.Status = StatusFailed
		res.Error = err
	}

	e.complete(ctx, res)
}

// executeFile runs one file to completion. ctx must not be cancellable; the
// caller checks for cancellation between files.
func (e *Executor) executeFile(ctx context.Context, path string) error {
	sql, err := e.renderer.Render(ctx, path)
	if err != nil {
		return errors.Wrap(err, "render")
	}

	return e.db.ExecRaw(ctx, sql)
}

// fileResults lays out a pending FileResult for every step of plan.
func (e *Executor) fileResults(j job, plan *change.Plan) []*FileResult {
	files := make([]*FileResult, 0, len(plan.Steps))
	for _, step := range plan.Steps {
		rel := step.Name
		switch {
		case step.Type == change.Manifest:
			rel = path.Join(j.prefix, step.Source.Filename) + ":" + step.Name
		case j.prefix != "":
			rel = path.Join(j.prefix, step.Name)
		}

		files = append(files, &FileResult{
			Name:     step.Name,
			RelPath:  rel,
			Path:     step.Path,
			Type:     step.Type,
			Checksum: step.Checksum,
			Status:   history.StatusPending,
		})
	}

	return files
}

func (e *Executor) fail(ctx context.Context, res *Result, err error) *Result {
	res.Status = StatusFailed
	res.Error = err
	e.observer.Notify(ctx, event.Event{
		Kind:      event.Error,
		Name:      res.Name,
		Direction: string(res.Direction),
		Err:       err,
	})

	return res
}

func (e *Executor) complete(ctx context.Context, res *Result) {
	if res.Error != nil {
		e.fail(ctx, res, res.Error)
	}

	e.observer.Notify(ctx, event.Event{
		Kind:      event.ChangeComplete,
		Name:      res.Name,
		Direction: string(res.Direction),
		Status:    string(res.Status),
		Duration:  res.Duration,
	})
}

// combine reports the execution failure first, followed by any history
// write failures.
func combine(failure error, errs []error) error {
	all := errs
	if failure != nil {
		all = append([]error{failure}, errs...)
	}

	switch len(all) {
	case 0:
		return nil
	case 1:
		return all[0]
	default:
		merr := &multierror.Error{
			Errors: all,
			ErrorFormat: func(es []error) string {
				msgs := make([]string, 0, len(es))
				for _, e := range es {
					msgs = append(msgs, e.Error())
				}
				return strings.Join(msgs, "; ")
			},
		}
		return merr
	}
}
