// Package ledger keeps a SQLite record of cross validation runs so that
// experiments can be compared after the fact.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/notargets/gossm/validation"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL,
    started     TEXT NOT NULL,
    items       INTEGER NOT NULL,
    folds       INTEGER NOT NULL,
    discrepancy TEXT NOT NULL,
    params      TEXT,
    mean        REAL NOT NULL,
    stddev      REAL NOT NULL
);
CREATE TABLE IF NOT EXISTS fold_scores (
    run_id     INTEGER NOT NULL REFERENCES runs(id),
    fold       INTEGER NOT NULL,
    model_rank INTEGER NOT NULL,
    score      REAL NOT NULL,
    PRIMARY KEY (run_id, fold)
);
CREATE TABLE IF NOT EXISTS item_scores (
    run_id  INTEGER NOT NULL REFERENCES runs(id),
    fold    INTEGER NOT NULL,
    item_id TEXT NOT NULL,
    score   REAL NOT NULL
);
`

type Run struct {
	ID          int64
	Name        string
	Started     time.Time
	Items       int
	Folds       int
	Discrepancy string
	Params      string // Experiment parameters as YAML
	Mean        float64
	StdDev      float64
}

type Ledger struct {
	db *sql.DB
}

// Open creates or opens the ledger database at path.
func Open(path string) (*Ledger, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	l, err := New(db)
	if err != nil {
		db.Close()
		return nil, err
	}
	return l, nil
}

// New wraps an open database, creating the tables if needed.
func New(db *sql.DB) (*Ledger, error) {
	if db == nil {
		return nil, fmt.Errorf("ledger: db is nil")
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("ledger schema: %w", err)
	}
	return &Ledger{db: db}, nil
}

func (l *Ledger) Close() error { return l.db.Close() }

// RecordRun stores the run summary with every fold and item score in one
// transaction and returns the new run id.
func (l *Ledger) RecordRun(ctx context.Context, run Run, report *validation.CVReport) (id int64, err error) {
	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if run.Started.IsZero() {
		run.Started = time.Now()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs(name, started, items, folds, discrepancy, params, mean, stddev)
		 VALUES(?, ?, ?, ?, ?, ?, ?, ?)`,
		run.Name, run.Started.UTC().Format(time.RFC3339Nano), run.Items, len(report.Folds),
		run.Discrepancy, run.Params, report.Mean, report.StdDev)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	if id, err = res.LastInsertId(); err != nil {
		return 0, err
	}

	foldStmt, err := tx.PrepareContext(ctx, `INSERT INTO fold_scores(run_id, fold, model_rank, score) VALUES(?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer foldStmt.Close()
	itemStmt, err := tx.PrepareContext(ctx, `INSERT INTO item_scores(run_id, fold, item_id, score) VALUES(?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer itemStmt.Close()

	for _, f := range report.Folds {
		if _, err = foldStmt.ExecContext(ctx, id, f.Fold, f.Rank, f.Score); err != nil {
			return 0, fmt.Errorf("insert fold %d: %w", f.Fold, err)
		}
		for i, s := range f.ItemScores {
			if _, err = itemStmt.ExecContext(ctx, id, f.Fold, f.TestingIDs[i], s); err != nil {
				return 0, fmt.Errorf("insert item score: %w", err)
			}
		}
	}
	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// Runs lists every recorded run, oldest first.
func (l *Ledger) Runs(ctx context.Context) (runs []Run, err error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, name, started, items, folds, discrepancy, COALESCE(params, ''), mean, stddev
		 FROM runs ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			r       Run
			started string
		)
		if err = rows.Scan(&r.ID, &r.Name, &started, &r.Items, &r.Folds, &r.Discrepancy,
			&r.Params, &r.Mean, &r.StdDev); err != nil {
			return nil, err
		}
		if r.Started, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("run %d start time: %w", r.ID, err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// FoldScores returns the per fold results of a run, with item scores, in
// fold order.
func (l *Ledger) FoldScores(ctx context.Context, runID int64) (folds []validation.FoldResult, err error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT fold, model_rank, score FROM fold_scores WHERE run_id = ? ORDER BY fold`, runID)
	if err != nil {
		return nil, err
	}
	byFold := make(map[int]int)
	for rows.Next() {
		var f validation.FoldResult
		if err = rows.Scan(&f.Fold, &f.Rank, &f.Score); err != nil {
			rows.Close()
			return nil, err
		}
		byFold[f.Fold] = len(folds)
		folds = append(folds, f)
	}
	rows.Close()
	if err = rows.Err(); err != nil {
		return nil, err
	}

	items, err := l.db.QueryContext(ctx,
		`SELECT fold, item_id, score FROM item_scores WHERE run_id = ? ORDER BY rowid`, runID)
	if err != nil {
		return nil, err
	}
	defer items.Close()
	for items.Next() {
		var (
			fold  int
			id    string
			score float64
		)
		if err = items.Scan(&fold, &id, &score); err != nil {
			return nil, err
		}
		if k, ok := byFold[fold]; ok {
			folds[k].TestingIDs = append(folds[k].TestingIDs, id)
			folds[k].ItemScores = append(folds[k].ItemScores, score)
		}
	}
	return folds, items.Err()
}
