package storage

// sqlite.go: archivo de resultados de simulaciones.
//
// Esquema:
//   - `runs`: una fila por simulación (upsert por id). Cabecera + snapshot final.
//   - `run_samples`: curva de valor, una fila por paso, ordenada por seq.
//   - `run_fills`: journal de fills en orden de ejecución.
//   - `run_positions`: posiciones finales, una fila por activo.
//
// Re-guardar un run reemplaza sus filas hijas completas dentro de la misma
// transacción; el archivo nunca mezcla dos versiones del mismo run.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/backsim/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
-- Una fila por simulación
CREATE TABLE IF NOT EXISTS runs (
    id            TEXT PRIMARY KEY,
    strategy      TEXT NOT NULL,
    start_date    TEXT NOT NULL,
    end_date      TEXT NOT NULL,
    starting_cash REAL NOT NULL,
    final_cash    REAL NOT NULL,
    final_value   REAL NOT NULL,
    status        TEXT NOT NULL,
    err_msg       TEXT NOT NULL DEFAULT '',
    orders        INTEGER NOT NULL DEFAULT 0,
    started_at    TEXT NOT NULL,
    finished_at   TEXT NOT NULL
);

-- Curva de valor del portfolio, un punto por paso
CREATE TABLE IF NOT EXISTS run_samples (
    run_id TEXT    NOT NULL,
    seq    INTEGER NOT NULL,
    ts     TEXT    NOT NULL,
    value  REAL    NOT NULL,
    PRIMARY KEY (run_id, seq)
);

-- Journal de fills en orden de ejecución
CREATE TABLE IF NOT EXISTS run_fills (
    run_id     TEXT    NOT NULL,
    seq        INTEGER NOT NULL,
    order_id   INTEGER NOT NULL,
    asset_id   INTEGER NOT NULL,
    quantity   REAL    NOT NULL,
    price      REAL    NOT NULL,
    commission REAL    NOT NULL,
    ts         TEXT    NOT NULL,
    PRIMARY KEY (run_id, seq)
);

-- Posiciones al cierre del run
CREATE TABLE IF NOT EXISTS run_positions (
    run_id     TEXT    NOT NULL,
    asset_id   INTEGER NOT NULL,
    quantity   REAL    NOT NULL,
    cost_basis REAL    NOT NULL,
    realized   REAL    NOT NULL,
    last_price REAL    NOT NULL,
    PRIMARY KEY (run_id, asset_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_finished ON runs(finished_at DESC);
`

// ErrRunNotFound se devuelve cuando el id pedido no está en el archivo.
var ErrRunNotFound = errors.New("run not found")

// SQLiteStore implementa ports.RunStore usando SQLite (pure Go, sin CGo).
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore abre (o crea) la base de datos en la ruta dada y aplica
// el schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStore: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStore: apply schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// SaveRun persiste el registro completo en una transacción: upsert de la
// cabecera y reemplazo de samples, fills y posiciones.
func (s *SQLiteStore) SaveRun(ctx context.Context, rec *domain.RunRecord) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("storage.SaveRun: record without id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs
			(id, strategy, start_date, end_date, starting_cash, final_cash,
			 final_value, status, err_msg, orders, started_at, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			strategy      = excluded.strategy,
			start_date    = excluded.start_date,
			end_date      = excluded.end_date,
			starting_cash = excluded.starting_cash,
			final_cash    = excluded.final_cash,
			final_value   = excluded.final_value,
			status        = excluded.status,
			err_msg       = excluded.err_msg,
			orders        = excluded.orders,
			started_at    = excluded.started_at,
			finished_at   = excluded.finished_at
	`,
		rec.ID, rec.Strategy, fmtTime(rec.Start), fmtTime(rec.End),
		rec.StartingCash, rec.FinalCash, rec.FinalValue,
		string(rec.Status), rec.ErrMsg, rec.Orders,
		fmtTime(rec.StartedAt), fmtTime(rec.FinishedAt),
	); err != nil {
		return fmt.Errorf("storage.SaveRun: upsert run %s: %w", rec.ID, err)
	}

	for _, table := range []string{"run_samples", "run_fills", "run_positions"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE run_id = ?`, rec.ID); err != nil {
			return fmt.Errorf("storage.SaveRun: clear %s: %w", table, err)
		}
	}

	if err := insertSamples(ctx, tx, rec); err != nil {
		return err
	}
	if err := insertFills(ctx, tx, rec); err != nil {
		return err
	}
	if err := insertPositions(ctx, tx, rec); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return nil
}

// GetRun recupera una simulación completa, con curva, fills y posiciones.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*domain.RunRecord, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, strategy, start_date, end_date, starting_cash, final_cash,
		       final_value, status, err_msg, orders, started_at, finished_at
		FROM runs WHERE id = ?
	`, id)

	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("storage.GetRun: %q: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("storage.GetRun: scan run: %w", err)
	}

	if rec.Samples, err = s.loadSamples(ctx, id); err != nil {
		return nil, err
	}
	if rec.Fills, err = s.loadFills(ctx, id); err != nil {
		return nil, err
	}
	if rec.Positions, err = s.loadPositions(ctx, id); err != nil {
		return nil, err
	}
	return rec, nil
}

// ListRuns devuelve las cabeceras de las últimas simulaciones, la más
// reciente primero. No carga curva, fills ni posiciones.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]domain.RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, strategy, start_date, end_date, starting_cash, final_cash,
		       final_value, status, err_msg, orders, started_at, finished_at
		FROM runs
		ORDER BY finished_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.ListRuns: query: %w", err)
	}
	defer rows.Close()

	var recs []domain.RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("storage.ListRuns: scan row: %w", err)
		}
		recs = append(recs, *rec)
	}
	return recs, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func insertSamples(ctx context.Context, tx *sql.Tx, rec *domain.RunRecord) error {
	if len(rec.Samples) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO run_samples (run_id, seq, ts, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: prepare samples: %w", err)
	}
	defer stmt.Close()

	for i, s := range rec.Samples {
		if _, err := stmt.ExecContext(ctx, rec.ID, i, fmtTime(s.Timestamp), s.Value); err != nil {
			return fmt.Errorf("storage.SaveRun: insert sample %d: %w", i, err)
		}
	}
	return nil
}

func insertFills(ctx context.Context, tx *sql.Tx, rec *domain.RunRecord) error {
	if len(rec.Fills) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_fills (run_id, seq, order_id, asset_id, quantity, price, commission, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: prepare fills: %w", err)
	}
	defer stmt.Close()

	for i, f := range rec.Fills {
		if _, err := stmt.ExecContext(ctx, rec.ID, i,
			int64(f.OrderID), int64(f.Asset), f.Quantity, f.Price, f.Commission,
			fmtTime(f.Timestamp),
		); err != nil {
			return fmt.Errorf("storage.SaveRun: insert fill %d: %w", i, err)
		}
	}
	return nil
}

func insertPositions(ctx context.Context, tx *sql.Tx, rec *domain.RunRecord) error {
	if len(rec.Positions) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_positions (run_id, asset_id, quantity, cost_basis, realized, last_price)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("storage.SaveRun: prepare positions: %w", err)
	}
	defer stmt.Close()

	for _, p := range rec.Positions {
		if _, err := stmt.ExecContext(ctx, rec.ID,
			int64(p.Asset), p.Quantity, p.CostBasis, p.Realized, p.LastPrice,
		); err != nil {
			return fmt.Errorf("storage.SaveRun: insert position %d: %w", p.Asset, err)
		}
	}
	return nil
}

func (s *SQLiteStore) loadSamples(ctx context.Context, id string) ([]domain.ValueSample, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT ts, value FROM run_samples WHERE run_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRun: query samples: %w", err)
	}
	defer rows.Close()

	var samples []domain.ValueSample
	for rows.Next() {
		var ts string
		var sample domain.ValueSample
		if err := rows.Scan(&ts, &sample.Value); err != nil {
			return nil, fmt.Errorf("storage.GetRun: scan sample: %w", err)
		}
		sample.Timestamp = parseTime(ts)
		samples = append(samples, sample)
	}
	return samples, rows.Err()
}

func (s *SQLiteStore) loadFills(ctx context.Context, id string) ([]domain.Fill, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT order_id, asset_id, quantity, price, commission, ts
		FROM run_fills WHERE run_id = ? ORDER BY seq
	`, id)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRun: query fills: %w", err)
	}
	defer rows.Close()

	var fills []domain.Fill
	for rows.Next() {
		var orderID, assetID int64
		var ts string
		var f domain.Fill
		if err := rows.Scan(&orderID, &assetID, &f.Quantity, &f.Price, &f.Commission, &ts); err != nil {
			return nil, fmt.Errorf("storage.GetRun: scan fill: %w", err)
		}
		f.OrderID = domain.OrderID(orderID)
		f.Asset = domain.AssetID(assetID)
		f.Timestamp = parseTime(ts)
		fills = append(fills, f)
	}
	return fills, rows.Err()
}

func (s *SQLiteStore) loadPositions(ctx context.Context, id string) ([]domain.Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT asset_id, quantity, cost_basis, realized, last_price
		FROM run_positions WHERE run_id = ? ORDER BY asset_id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("storage.GetRun: query positions: %w", err)
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		var assetID int64
		var p domain.Position
		if err := rows.Scan(&assetID, &p.Quantity, &p.CostBasis, &p.Realized, &p.LastPrice); err != nil {
			return nil, fmt.Errorf("storage.GetRun: scan position: %w", err)
		}
		p.Asset = domain.AssetID(assetID)
		positions = append(positions, p)
	}
	return positions, rows.Err()
}

// scanner cubre tanto *sql.Row como *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*domain.RunRecord, error) {
	var rec domain.RunRecord
	var start, end, status, startedAt, finishedAt string
	if err := row.Scan(
		&rec.ID, &rec.Strategy, &start, &end,
		&rec.StartingCash, &rec.FinalCash, &rec.FinalValue,
		&status, &rec.ErrMsg, &rec.Orders, &startedAt, &finishedAt,
	); err != nil {
		return nil, err
	}
	rec.Start = parseTime(start)
	rec.End = parseTime(end)
	rec.Status = domain.RunStatus(status)
	rec.StartedAt = parseTime(startedAt)
	rec.FinishedAt = parseTime(finishedAt)
	return &rec, nil
}

// fmtTime serializa en RFC3339 UTC con nanosegundos, independiente del
// driver.
func fmtTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}
