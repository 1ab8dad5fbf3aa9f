package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

var (
	// ErrNotConfigured indicates the storage pool was not initialised.
	ErrNotConfigured = errors.New("storage: pool not configured")
)

const (
	createEvaluationRunsSQL = `CREATE TABLE IF NOT EXISTS evaluation_runs (
        run_id            UUID        NOT NULL,
        horizon_ms        INTEGER     NOT NULL,
        calibration_kind  TEXT        NOT NULL,
        roc_auc           NUMERIC     NOT NULL,
        pr_auc            NUMERIC     NOT NULL,
        recall_at_fpr     NUMERIC     NOT NULL,
        mean_lead_time_ms NUMERIC     NOT NULL,
        brier_score       NUMERIC     NOT NULL,
        calibration_error NUMERIC     NOT NULL,
        train_shots       INTEGER     NOT NULL,
        test_shots        INTEGER     NOT NULL,
        created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
        PRIMARY KEY (run_id, horizon_ms)
    );`

	createCalibrationModelsSQL = `CREATE TABLE IF NOT EXISTS calibration_models (
        run_id      UUID        NOT NULL,
        horizon_ms  INTEGER     NOT NULL,
        kind        TEXT        NOT NULL,
        scale       NUMERIC     NOT NULL,
        "offset"    NUMERIC     NOT NULL,
        version     TEXT        NOT NULL,
        norm_min    NUMERIC,
        norm_max    NUMERIC,
        breakpoints JSONB,
        created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
        PRIMARY KEY (run_id, horizon_ms)
    );`

	insertEvaluationRunSQL = `INSERT INTO evaluation_runs (
        run_id,
        horizon_ms,
        calibration_kind,
        roc_auc,
        pr_auc,
        recall_at_fpr,
        mean_lead_time_ms,
        brier_score,
        calibration_error,
        train_shots,
        test_shots
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11
    )
    ON CONFLICT (run_id, horizon_ms) DO UPDATE
    SET
        calibration_kind  = EXCLUDED.calibration_kind,
        roc_auc           = EXCLUDED.roc_auc,
        pr_auc            = EXCLUDED.pr_auc,
        recall_at_fpr     = EXCLUDED.recall_at_fpr,
        mean_lead_time_ms = EXCLUDED.mean_lead_time_ms,
        brier_score       = EXCLUDED.brier_score,
        calibration_error = EXCLUDED.calibration_error,
        train_shots       = EXCLUDED.train_shots,
        test_shots        = EXCLUDED.test_shots;`

	insertCalibrationModelSQL = `INSERT INTO calibration_models (
        run_id,
        horizon_ms,
        kind,
        scale,
        "offset",
        version,
        norm_min,
        norm_max,
        breakpoints
    ) VALUES (
        $1,$2,$3,$4,$5,$6,$7,$8,$9
    )
    ON CONFLICT (run_id, horizon_ms) DO UPDATE
    SET
        kind        = EXCLUDED.kind,
        scale       = EXCLUDED.scale,
        "offset"    = EXCLUDED."offset",
        version     = EXCLUDED.version,
        norm_min    = EXCLUDED.norm_min,
        norm_max    = EXCLUDED.norm_max,
        breakpoints = EXCLUDED.breakpoints;`

	listRecentRunsSQL = `SELECT
        run_id,
        horizon_ms,
        calibration_kind,
        roc_auc::text,
        pr_auc::text,
        recall_at_fpr::text,
        mean_lead_time_ms::text,
        brier_score::text,
        calibration_error::text,
        train_shots,
        test_shots,
        created_at
    FROM evaluation_runs
    ORDER BY created_at DESC, horizon_ms
    LIMIT $1;`

	latestCalibrationSQL = `SELECT
        run_id,
        horizon_ms,
        kind,
        scale::text,
        "offset"::text,
        version,
        norm_min::text,
        norm_max::text,
        breakpoints,
        created_at
    FROM calibration_models
    WHERE horizon_ms = $1
    ORDER BY created_at DESC
    LIMIT 1;`
)

// RunStore persists evaluation runs with their calibration models.
type RunStore interface {
	SaveRun(ctx context.Context, run EvaluationRun, model CalibrationRecord) error
	ListRecentRuns(ctx context.Context, limit int) ([]EvaluationRun, error)
	LatestCalibration(ctx context.Context, horizonMs int) (CalibrationRecord, error)
}

// Store aggregates access to evaluation runs and calibration models.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore wires a pgx pool into a Store.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	if s == nil || s.pool == nil {
		return nil, ErrNotConfigured
	}
	return s.pool, nil
}

// EnsureSchema creates the tables when they do not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}
	for _, stmt := range []string{createEvaluationRunsSQL, createCalibrationModelsSQL} {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

// SaveRun stores a run and its calibration model atomically.
func (s *Store) SaveRun(ctx context.Context, run EvaluationRun, model CalibrationRecord) error {
	pool, err := s.getPool()
	if err != nil {
		return err
	}

	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, insertEvaluationRunSQL,
			run.RunID,
			run.HorizonMs,
			run.CalibrationKind,
			run.ROCAUC.String(),
			run.PRAUC.String(),
			run.RecallAtFPR.String(),
			run.MeanLeadTimeMs.String(),
			run.BrierScore.String(),
			run.CalibrationError.String(),
			run.TrainShots,
			run.TestShots,
		); err != nil {
			return fmt.Errorf("insert evaluation run: %w", err)
		}

		var normMin, normMax interface{}
		if model.NormMin != nil {
			normMin = model.NormMin.String()
		}
		if model.NormMax != nil {
			normMax = model.NormMax.String()
		}
		var breakpoints interface{}
		if len(model.Breakpoints) > 0 {
			breakpoints = []byte(model.Breakpoints)
		}

		if _, err := tx.Exec(ctx, insertCalibrationModelSQL,
			model.RunID,
			model.HorizonMs,
			model.Kind,
			model.Scale.String(),
			model.Offset.String(),
			model.Version,
			normMin,
			normMax,
			breakpoints,
		); err != nil {
			return fmt.Errorf("insert calibration model: %w", err)
		}
		return nil
	})
}

// ListRecentRuns lists the most recent evaluation runs.
func (s *Store) ListRecentRuns(ctx context.Context, limit int) ([]EvaluationRun, error) {
	pool, err := s.getPool()
	if err != nil {
		return nil, err
	}

	rows, queryErr := pool.Query(ctx, listRecentRunsSQL, limit)
	if queryErr != nil {
		return nil, fmt.Errorf("list recent runs: %w", queryErr)
	}
	defer rows.Close()

	runs := make([]EvaluationRun, 0, limit)
	for rows.Next() {
		run, scanErr := scanEvaluationRun(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		runs = append(runs, run)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return runs, nil
}

// LatestCalibration returns the newest calibration model stored for a horizon.
func (s *Store) LatestCalibration(ctx context.Context, horizonMs int) (CalibrationRecord, error) {
	pool, err := s.getPool()
	if err != nil {
		return CalibrationRecord{}, err
	}

	var (
		rec                CalibrationRecord
		scaleStr, offStr   string
		normMinS, normMaxS *string
		breakpoints        []byte
	)
	if scanErr := pool.QueryRow(ctx, latestCalibrationSQL, horizonMs).Scan(
		&rec.RunID,
		&rec.HorizonMs,
		&rec.Kind,
		&scaleStr,
		&offStr,
		&rec.Version,
		&normMinS,
		&normMaxS,
		&breakpoints,
		&rec.CreatedAt,
	); scanErr != nil {
		return CalibrationRecord{}, fmt.Errorf("latest calibration for %dms: %w", horizonMs, scanErr)
	}

	var convErr error
	if rec.Scale, convErr = decimal.NewFromString(scaleStr); convErr != nil {
		return CalibrationRecord{}, fmt.Errorf("parse scale: %w", convErr)
	}
	if rec.Offset, convErr = decimal.NewFromString(offStr); convErr != nil {
		return CalibrationRecord{}, fmt.Errorf("parse offset: %w", convErr)
	}
	if rec.NormMin, convErr = parseOptionalDecimal(normMinS); convErr != nil {
		return CalibrationRecord{}, fmt.Errorf("parse norm_min: %w", convErr)
	}
	if rec.NormMax, convErr = parseOptionalDecimal(normMaxS); convErr != nil {
		return CalibrationRecord{}, fmt.Errorf("parse norm_max: %w", convErr)
	}
	rec.Breakpoints = breakpoints
	return rec, nil
}

func parseOptionalDecimal(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanEvaluationRun(rows pgx.Rows) (EvaluationRun, error) {
	var (
		run     EvaluationRun
		metrics [6]string
	)
	if err := rows.Scan(
		&run.RunID,
		&run.HorizonMs,
		&run.CalibrationKind,
		&metrics[0],
		&metrics[1],
		&metrics[2],
		&metrics[3],
		&metrics[4],
		&metrics[5],
		&run.TrainShots,
		&run.TestShots,
		&run.CreatedAt,
	); err != nil {
		return EvaluationRun{}, err
	}

	targets := []*decimal.Decimal{
		&run.ROCAUC, &run.PRAUC, &run.RecallAtFPR,
		&run.MeanLeadTimeMs, &run.BrierScore, &run.CalibrationError,
	}
	for i, raw := range metrics {
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return EvaluationRun{}, fmt.Errorf("parse metric %d: %w", i, err)
		}
		*targets[i] = d
	}
	return run, nil
}

// IsNotFound reports whether err means no stored row matched.
func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

var _ RunStore = (*Store)(nil)
