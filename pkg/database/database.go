package database

import (
	"os"
	"sync"
	"time"

	"pagedb/pkg/catalog"
	"pagedb/pkg/dberr"
	"pagedb/pkg/executor"
	"pagedb/pkg/log/wal"
	"pagedb/pkg/logging"
	"pagedb/pkg/parser"
	"pagedb/pkg/storage/pager"
)

// Options configures Open.
type Options struct {
	// DatabasePath is the backing file; created if missing.
	DatabasePath string

	// WALPath is the write-ahead log; created if missing.
	WALPath string

	// MaxPages caps file growth, 0 for the default limit.
	MaxPages uint64
}

// Database is the single-process engine facade: it owns the WAL, the
// pager, the catalog and the executor, and serializes access with one
// writer or any number of concurrent readers.
type Database struct {
	mu    sync.RWMutex
	log   *wal.WAL
	pager *pager.Pager
	exec  *executor.Executor

	closed bool
}

// QueryResult is the outcome of one SQL statement. Err is set instead
// of returning an error so callers render failures uniformly; Success
// mirrors it for convenience.
type QueryResult struct {
	Success  bool
	Columns  []string
	Rows     [][]string
	Affected int
	Err      *dberr.DBError
	Elapsed  time.Duration
}

// Open starts the engine: the WAL is replayed onto the backing file
// before any statement runs, so a crash between a logged write and the
// page write is invisible to callers. Replay hitting a corrupt or torn
// record fails Open: the engine refuses to serve writes over a log it
// cannot fully reapply.
func Open(opts Options) (*Database, error) {
	log, err := wal.Open(opts.WALPath)
	if err != nil {
		return nil, err
	}

	var p *pager.Pager
	if _, statErr := os.Stat(opts.DatabasePath); os.IsNotExist(statErr) {
		p, err = pager.Create(opts.DatabasePath, log, opts.MaxPages)
	} else {
		p, err = pager.Open(opts.DatabasePath, log, opts.MaxPages)
	}
	if err != nil {
		log.Close()
		return nil, err
	}

	if err := replayLog(p, opts.WALPath); err != nil {
		p.Close()
		log.Close()
		return nil, err
	}

	cat, err := catalog.Load(p)
	if err != nil {
		p.Close()
		log.Close()
		return nil, err
	}

	logging.Info("database open", "path", opts.DatabasePath, "pages", p.PageCount())
	return &Database{
		log:   log,
		pager: p,
		exec:  executor.New(p, cat),
	}, nil
}

// replayLog applies every WAL after-image past the checkpoint. Images
// are idempotent, so replaying work already on disk converges.
func replayLog(p *pager.Pager, walPath string) error {
	from := p.CheckpointLSN()
	var applied int
	err := wal.Replay(walPath, from, func(rec *wal.Record) error {
		if rec.Type == wal.RecordCheckpoint {
			return nil
		}
		applied++
		return p.ApplyImage(rec.PageID, rec.Image)
	})
	if err != nil {
		return err
	}
	if applied > 0 {
		logging.Info("replayed write-ahead log", "records", applied, "fromLSN", uint64(from))
	}
	return nil
}

// ExecuteSQL parses and runs one statement. SELECTs run concurrently;
// everything else takes the writer lock.
func (db *Database) ExecuteSQL(sql string) *QueryResult {
	start := time.Now()

	stmt, err := parser.Parse(sql)
	if err != nil {
		return failed(err, start)
	}

	if _, readOnly := stmt.(*parser.SelectStatement); readOnly {
		db.mu.RLock()
		defer db.mu.RUnlock()
	} else {
		db.mu.Lock()
		defer db.mu.Unlock()
	}
	if db.closed {
		return failed(dberr.New(dberr.CategoryUser, dberr.CodeInternal, "database is closed"), start)
	}

	res, err := db.exec.Execute(stmt)
	if err != nil {
		logging.Warn("statement failed", "error", err)
		return failed(err, start)
	}
	return &QueryResult{
		Success:  true,
		Columns:  res.Columns,
		Rows:     res.Rows,
		Affected: res.Affected,
		Elapsed:  time.Since(start),
	}
}

func failed(err error, start time.Time) *QueryResult {
	dbe := dberr.As(err)
	if dbe == nil {
		dbe = dberr.Wrap(err, dberr.CategoryInternal, dberr.CodeInternal, "")
	}
	return &QueryResult{Err: dbe, Elapsed: time.Since(start)}
}

// Close checkpoints at end-of-log, so the next Open replays nothing,
// then releases the files. Close is idempotent.
func (db *Database) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true

	if err := db.pager.Checkpoint(db.log.EndLSN()); err != nil {
		return err
	}
	if err := db.pager.Close(); err != nil {
		return err
	}
	if err := db.log.Close(); err != nil {
		return err
	}
	logging.Info("database closed")
	return nil
}
