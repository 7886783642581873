package history

import (
	"context"
	"database/sql"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/pseudomuto/sqlchanges/pkg/change"
	"github.com/pseudomuto/sqlchanges/pkg/consts"
	"github.com/pseudomuto/sqlchanges/pkg/database"
)

const operationColumns = "id, name, change_type, direction, status, config_name, executed_by, executed_at, duration_ms, checksum, error_message"

const fileColumns = "id, changeset_id, position, filepath, file_type, checksum, status, skip_reason, error_message, duration_ms"

type (
	// Config holds the optional settings of a Store.
	Config struct {
		// ConfigName scopes every read and write; defaults to "default"
		ConfigName string

		Logger *slog.Logger

		// Clock returns the current time; defaults to time.Now
		Clock func() time.Time
	}

	// Store reads and writes the changeset and executions tables.
	Store struct {
		db         *database.DB
		configName string
		logger     *slog.Logger
		now        func() time.Time
	}
)

// NewStore creates a Store backed by db.
func NewStore(db *database.DB, cfg Config) *Store {
	s := &Store{
		db:         db,
		configName: cfg.ConfigName,
		logger:     cfg.Logger,
		now:        cfg.Clock,
	}

	if s.configName == "" {
		s.configName = consts.DefaultConfigName
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}

	return s
}

// ConfigName returns the scope of the store.
func (s *Store) ConfigName() string { return s.configName }

// NeedsRun decides whether the named change has to be applied. It never
// fails: when history can't be read the change is treated as needing a run.
func (s *Store) NeedsRun(ctx context.Context, name, checksum string, force bool) RunDecision {
	if force {
		return RunDecision{Run: true, Reason: ReasonForce}
	}

	op, err := s.GetStatus(ctx, name)
	if err != nil {
		s.logger.Warn("Unable to read history, treating change as pending", "name", name, "error", err)
		return RunDecision{Run: true, Reason: ReasonError}
	}

	switch {
	case op == nil:
		return RunDecision{Run: true, Reason: ReasonNew}
	case op.Status == StatusFailed:
		return RunDecision{Run: true, Reason: ReasonFailed}
	case op.Status == StatusReverted:
		return RunDecision{Run: true, Reason: ReasonReverted}
	case op.Status == StatusPending:
		return RunDecision{Run: true, Reason: ReasonPending}
	case op.Checksum != checksum:
		return RunDecision{Run: true, Reason: ReasonChanged}
	default:
		return RunDecision{Run: false, Reason: ReasonApplied}
	}
}

// CanRevert decides whether the named change may be reverted.
func (s *Store) CanRevert(ctx context.Context, name string, force bool) (RevertDecision, error) {
	op, err := s.GetStatus(ctx, name)
	if err != nil {
		return RevertDecision{}, err
	}

	switch {
	case op == nil:
		return RevertDecision{Reason: ReasonNotApplied}, nil
	case force:
		return RevertDecision{Allowed: true, Reason: ReasonForce}, nil
	case op.Status == StatusPending:
		return RevertDecision{Reason: ReasonInProgress}, nil
	case op.Status == StatusReverted:
		return RevertDecision{Reason: ReasonAlreadyReverted}, nil
	default:
		return RevertDecision{Allowed: true, Reason: string(op.Status)}, nil
	}
}

// CreateOperation inserts op as pending. ID, ConfigName, ExecutedAt and
// Status are assigned by the store.
func (s *Store) CreateOperation(ctx context.Context, op *Operation) error {
	op.ID = uuid.NewString()
	op.ConfigName = s.configName
	op.ExecutedAt = s.now().UTC()
	op.Status = StatusPending
	if op.Kind == "" {
		op.Kind = KindChange
	}

	_, err := s.db.Exec(
		ctx,
		"INSERT INTO "+s.db.Tables().Changeset+" ("+operationColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		op.ID,
		op.Name,
		string(op.Kind),
		string(op.Direction),
		string(op.Status),
		op.ConfigName,
		op.ExecutedBy,
		s.db.Dialect().EncodeTime(op.ExecutedAt),
		op.Duration.Milliseconds(),
		op.Checksum,
		op.ErrorMessage,
	)

	return errors.Wrapf(err, "failed to record operation for %s", op.Name)
}

// CreateFileRecords inserts a pending row for every file of operationID in
// the given order with a single statement. Files are only assigned IDs once
// the rows exist.
func (s *Store) CreateFileRecords(ctx context.Context, operationID string, files []*FileExecution) error {
	if len(files) == 0 {
		return nil
	}

	var (
		ids    = make([]string, len(files))
		tuples = make([]string, len(files))
		args   = make([]any, 0, len(files)*10)
	)

	for i, f := range files {
		ids[i] = uuid.NewString()
		tuples[i] = "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args,
			ids[i],
			operationID,
			i,
			f.Path,
			string(f.FileType),
			f.Checksum,
			string(StatusPending),
			f.SkipReason,
			f.ErrorMessage,
			f.Duration.Milliseconds(),
		)
	}

	query := "INSERT INTO " + s.db.Tables().Executions + " (" + fileColumns + ") VALUES " + strings.Join(tuples, ", ")
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return errors.Wrapf(err, "failed to record %d file(s) for operation %s", len(files), operationID)
	}

	for i, f := range files {
		f.ID = ids[i]
		f.OperationID = operationID
		f.Position = i
		f.Status = StatusPending
	}

	return nil
}

// UpdateFileExecution stores the outcome of a single file.
func (s *Store) UpdateFileExecution(ctx context.Context, f *FileExecution) error {
	_, err := s.db.Exec(
		ctx,
		s.db.Dialect().Update(
			s.db.Tables().Executions,
			"status = ?, skip_reason = ?, error_message = ?, duration_ms = ?",
			"id = ?",
		),
		string(f.Status),
		f.SkipReason,
		f.ErrorMessage,
		f.Duration.Milliseconds(),
		f.ID,
	)

	return errors.Wrapf(err, "failed to update file %s", f.Path)
}

// SkipRemainingFiles marks every still pending file of operationID as
// skipped with reason.
func (s *Store) SkipRemainingFiles(ctx context.Context, operationID, reason string) error {
	_, err := s.db.Exec(
		ctx,
		s.db.Dialect().Update(
			s.db.Tables().Executions,
			"status = ?, skip_reason = ?",
			"changeset_id = ? AND status = ?",
		),
		string(StatusSkipped),
		reason,
		operationID,
		string(StatusPending),
	)

	return errors.Wrap(err, "failed to skip remaining files")
}

// FinalizeOperation stores the terminal status, checksum, duration and error
// of op.
func (s *Store) FinalizeOperation(ctx context.Context, op *Operation) error {
	_, err := s.db.Exec(
		ctx,
		s.db.Dialect().Update(
			s.db.Tables().Changeset,
			"status = ?, checksum = ?, duration_ms = ?, error_message = ?",
			"id = ?",
		),
		string(op.Status),
		op.Checksum,
		op.Duration.Milliseconds(),
		op.ErrorMessage,
		op.ID,
	)

	return errors.Wrapf(err, "failed to finalize operation for %s", op.Name)
}

// MarkAsReverted flips the most recent forward operation of name to reverted.
// History rows are never deleted by a revert.
func (s *Store) MarkAsReverted(ctx context.Context, name string) error {
	op, err := s.GetStatus(ctx, name)
	if err != nil {
		return err
	}

	if op == nil {
		return errors.Errorf("no forward operation recorded for %s", name)
	}

	_, err = s.db.Exec(
		ctx,
		s.db.Dialect().Update(s.db.Tables().Changeset, "status = ?", "id = ?"),
		string(StatusReverted),
		op.ID,
	)

	return errors.Wrapf(err, "failed to mark %s as reverted", name)
}

// GetStatus returns the most recent forward operation for the named change,
// or nil when it has never been applied.
func (s *Store) GetStatus(ctx context.Context, name string) (*Operation, error) {
	ops, err := s.queryOperations(
		ctx,
		"config_name = ? AND name = ? AND change_type = ? AND direction = ?",
		" LIMIT 1",
		s.configName, name, string(KindChange), string(change.Forward),
	)
	if err != nil || len(ops) == 0 {
		return nil, err
	}

	return ops[0], nil
}

// GetAllStatuses returns the latest forward operation of every change, sorted
// by name.
func (s *Store) GetAllStatuses(ctx context.Context) ([]*Operation, error) {
	ops, err := s.queryOperations(
		ctx,
		"config_name = ? AND change_type = ? AND direction = ?",
		"",
		s.configName, string(KindChange), string(change.Forward),
	)
	if err != nil {
		return nil, err
	}

	return latestByName(ops), nil
}

// GetHistory returns every change operation (both directions) for name,
// newest first. An empty name returns the history of all changes.
func (s *Store) GetHistory(ctx context.Context, name string) ([]*Operation, error) {
	where := "config_name = ? AND change_type = ?"
	args := []any{s.configName, string(KindChange)}
	if name != "" {
		where += " AND name = ?"
		args = append(args, name)
	}

	return s.queryOperations(ctx, where, "", args...)
}

// GetUnifiedHistory returns operations of every kind, newest first. A limit
// of zero returns everything.
func (s *Store) GetUnifiedHistory(ctx context.Context, limit int) ([]*Operation, error) {
	ops, err := s.queryOperations(ctx, "config_name = ?", "", s.configName)
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(ops) > limit {
		ops = ops[:limit]
	}

	return ops, nil
}

// GetOperation returns the operation with the given id, or nil.
func (s *Store) GetOperation(ctx context.Context, id string) (*Operation, error) {
	ops, err := s.queryOperations(ctx, "config_name = ? AND id = ?", "", s.configName, id)
	if err != nil || len(ops) == 0 {
		return nil, err
	}

	return ops[0], nil
}

// GetFileHistory returns the file executions of an operation in execution order.
func (s *Store) GetFileHistory(ctx context.Context, operationID string) ([]*FileExecution, error) {
	rows, err := s.db.Query(
		ctx,
		"SELECT "+fileColumns+" FROM "+s.db.Tables().Executions+" WHERE changeset_id = ? ORDER BY position",
		operationID,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query file history")
	}
	defer func() { _ = rows.Close() }()

	var files []*FileExecution
	for rows.Next() {
		var (
			f        FileExecution
			fileType string
			status   string
			duration int64
		)

		err := rows.Scan(
			&f.ID,
			&f.OperationID,
			&f.Position,
			&f.Path,
			&fileType,
			&f.Checksum,
			&status,
			&f.SkipReason,
			&f.ErrorMessage,
			&duration,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to read file history")
		}

		f.FileType = change.FileType(fileType)
		f.Status = Status(status)
		f.Duration = time.Duration(duration) * time.Millisecond
		files = append(files, &f)
	}

	return files, errors.Wrap(rows.Err(), "failed to read file history")
}

// GetOrphaned returns the latest status of changes recorded in history whose
// folders are no longer on disk.
func (s *Store) GetOrphaned(ctx context.Context, diskNames []string) ([]*Operation, error) {
	statuses, err := s.GetAllStatuses(ctx)
	if err != nil {
		return nil, err
	}

	onDisk := make(map[string]struct{}, len(diskNames))
	for _, n := range diskNames {
		onDisk[n] = struct{}{}
	}

	var orphaned []*Operation
	for _, op := range statuses {
		if _, ok := onDisk[op.Name]; !ok {
			orphaned = append(orphaned, op)
		}
	}

	return orphaned, nil
}

// Purge deletes the operations and file executions of the named change, or
// of every change in the config scope when name is empty. It returns the
// number of operations removed.
func (s *Store) Purge(ctx context.Context, name string) (int, error) {
	where := "config_name = ?"
	args := []any{s.configName}
	if name != "" {
		where += " AND name = ?"
		args = append(args, name)
	}

	var count int
	err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM "+s.db.Tables().Changeset+" WHERE "+where, args...).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(err, "failed to count history")
	}

	if count == 0 {
		return 0, nil
	}

	d := s.db.Dialect()
	tables := s.db.Tables()

	_, err = s.db.Exec(
		ctx,
		d.Delete(tables.Executions, "changeset_id IN (SELECT id FROM "+tables.Changeset+" WHERE "+where+")"),
		args...,
	)
	if err != nil {
		return 0, errors.Wrap(err, "failed to purge file history")
	}

	if _, err := s.db.Exec(ctx, d.Delete(tables.Changeset, where), args...); err != nil {
		return 0, errors.Wrap(err, "failed to purge history")
	}

	s.logger.Info("Purged history", "config", s.configName, "name", name, "operations", count)
	return count, nil
}

func (s *Store) queryOperations(ctx context.Context, where, suffix string, args ...any) ([]*Operation, error) {
	rows, err := s.db.Query(
		ctx,
		"SELECT "+operationColumns+" FROM "+s.db.Tables().Changeset+
			" WHERE "+where+" ORDER BY executed_at DESC"+suffix,
		args...,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query history")
	}
	defer func() { _ = rows.Close() }()

	var ops []*Operation
	for rows.Next() {
		op, err := s.scanOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}

	return ops, errors.Wrap(rows.Err(), "failed to read history")
}

func (s *Store) scanOperation(rows *sql.Rows) (*Operation, error) {
	var (
		op                      Operation
		kind, direction, status string
		executedAt              any
		duration                int64
	)

	err := rows.Scan(
		&op.ID,
		&op.Name,
		&kind,
		&direction,
		&status,
		&op.ConfigName,
		&op.ExecutedBy,
		&executedAt,
		&duration,
		&op.Checksum,
		&op.ErrorMessage,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read history")
	}

	op.Kind = Kind(kind)
	op.Direction = change.Direction(direction)
	op.Status = Status(status)
	op.Duration = time.Duration(duration) * time.Millisecond
	if op.ExecutedAt, err = s.db.Dialect().DecodeTime(executedAt); err != nil {
		return nil, err
	}

	return &op, nil
}

// latestByName keeps the first (newest) operation per name, sorted by name.
func latestByName(ops []*Operation) []*Operation {
	seen := make(map[string]struct{}, len(ops))
	latest := make([]*Operation, 0, len(ops))

	for _, op := range ops {
		if _, ok := seen[op.Name]; ok {
			continue
		}
		seen[op.Name] = struct{}{}
		latest = append(latest, op)
	}

	sort.Slice(latest, func(i, j int) bool {
		return latest[i].Name < latest[j].Name
	})

	return latest
}
