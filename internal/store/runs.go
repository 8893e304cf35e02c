package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang/geo/r3"
	"github.com/google/uuid"

	"github.com/banshee-data/fiducial3d/internal/triangulate"
	"github.com/banshee-data/fiducial3d/internal/version"
)

// ErrRunNotFound is returned when a run id does not exist.
var ErrRunNotFound = errors.New("run not found")

// timeLayout is fixed width so created_at sorts as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// Run is the stored summary of one triangulation run.
type Run struct {
	ID                   string
	CreatedAt            time.Time
	Version              string
	MinCameras           int
	MaxReprojectionError float64
	OutlierScale         float64
	OutlierFloor         float64
	MarkerCount          int
	RejectedCount        int
	Readiness            triangulate.ReadinessVerdict
}

// StoredRejection is a rejection as persisted. The error chain is flattened
// to its message.
type StoredRejection struct {
	MarkerID string
	Stage    triangulate.Stage
	Cameras  int
	Reason   string
}

// SaveReport stores a report under a new run id and returns the id. The run,
// its markers and its rejections are written in one transaction.
func (s *Store) SaveReport(ctx context.Context, report triangulate.Report) (string, error) {
	runID := uuid.New().String()

	tx, err := s.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	p := report.Params
	_, err = tx.ExecContext(ctx, `
		INSERT INTO triangulation_runs (
			run_id, created_at, version, min_cameras, max_reprojection_error,
			outlier_scale, outlier_floor, marker_count, rejected_count, readiness
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, s.Clock.Now().UTC().Format(timeLayout), version.String(),
		p.MinCameras, p.MaxReprojectionError, p.OutlierScale, p.OutlierFloor,
		len(report.Results), len(report.Rejections), string(report.Readiness.Verdict),
	)
	if err != nil {
		return "", fmt.Errorf("failed to insert run: %w", err)
	}

	markerStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO triangulated_markers (
			run_id, marker_id, x, y, z, observations_count, reprojection_error,
			confidence, quality, camera_ids, candidate_count, inlier_count
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("failed to prepare marker insert: %w", err)
	}
	defer markerStmt.Close()

	for _, r := range report.Results {
		cams, err := json.Marshal(r.CameraIDs)
		if err != nil {
			return "", fmt.Errorf("failed to encode camera ids for marker %s: %w", r.MarkerID, err)
		}
		if _, err := markerStmt.ExecContext(ctx,
			runID, r.MarkerID, r.Position.X, r.Position.Y, r.Position.Z,
			r.ObservationsCount, r.ReprojectionError, r.Confidence, string(r.Quality),
			string(cams), r.CandidateCount, r.InlierCount,
		); err != nil {
			return "", fmt.Errorf("failed to insert marker %s: %w", r.MarkerID, err)
		}
	}

	for _, rej := range report.Rejections {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO marker_rejections (run_id, marker_id, stage, cameras, reason)
			VALUES (?, ?, ?, ?, ?)`,
			runID, rej.MarkerID, string(rej.Stage), rej.Cameras, rej.Reason(),
		); err != nil {
			return "", fmt.Errorf("failed to insert rejection for marker %s: %w", rej.MarkerID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit run: %w", err)
	}
	return runID, nil
}

const runColumns = `run_id, created_at, version, min_cameras, max_reprojection_error,
	outlier_scale, outlier_floor, marker_count, rejected_count, readiness`

func scanRun(row interface{ Scan(...any) error }) (Run, error) {
	var (
		r         Run
		createdAt string
		readiness string
	)
	if err := row.Scan(&r.ID, &createdAt, &r.Version, &r.MinCameras, &r.MaxReprojectionError,
		&r.OutlierScale, &r.OutlierFloor, &r.MarkerCount, &r.RejectedCount, &readiness); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("run %s: invalid created_at %q: %w", r.ID, createdAt, err)
	}
	r.CreatedAt = t
	r.Readiness = triangulate.ReadinessVerdict(readiness)
	return r, nil
}

// GetRun returns the run with the given id.
func (s *Store) GetRun(ctx context.Context, runID string) (Run, error) {
	row := s.QueryRowContext(ctx, `SELECT `+runColumns+` FROM triangulation_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	if err != nil {
		return Run{}, fmt.Errorf("failed to get run: %w", err)
	}
	return r, nil
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns(ctx context.Context) ([]Run, error) {
	rows, err := s.QueryContext(ctx, `SELECT `+runColumns+` FROM triangulation_runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// ListMarkers returns the accepted markers of a run ordered by marker id.
// Per-camera errors are not persisted.
func (s *Store) ListMarkers(ctx context.Context, runID string) ([]triangulate.MarkerResult, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT marker_id, x, y, z, observations_count, reprojection_error, confidence,
		       quality, camera_ids, candidate_count, inlier_count
		FROM triangulated_markers
		WHERE run_id = ?
		ORDER BY marker_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list markers: %w", err)
	}
	defer rows.Close()

	var out []triangulate.MarkerResult
	for rows.Next() {
		var (
			r       triangulate.MarkerResult
			pos     r3.Vector
			quality string
			cams    string
		)
		if err := rows.Scan(&r.MarkerID, &pos.X, &pos.Y, &pos.Z, &r.ObservationsCount,
			&r.ReprojectionError, &r.Confidence, &quality, &cams,
			&r.CandidateCount, &r.InlierCount); err != nil {
			return nil, fmt.Errorf("failed to scan marker: %w", err)
		}
		if err := json.Unmarshal([]byte(cams), &r.CameraIDs); err != nil {
			return nil, fmt.Errorf("marker %s: invalid camera_ids: %w", r.MarkerID, err)
		}
		r.Position = pos
		r.Quality = triangulate.Quality(quality)
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListRejections returns the rejected markers of a run ordered by marker id.
func (s *Store) ListRejections(ctx context.Context, runID string) ([]StoredRejection, error) {
	rows, err := s.QueryContext(ctx, `
		SELECT marker_id, stage, cameras, reason
		FROM marker_rejections
		WHERE run_id = ?
		ORDER BY marker_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rejections: %w", err)
	}
	defer rows.Close()

	var out []StoredRejection
	for rows.Next() {
		var (
			r     StoredRejection
			stage string
		)
		if err := rows.Scan(&r.MarkerID, &stage, &r.Cameras, &r.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan rejection: %w", err)
		}
		r.Stage = triangulate.Stage(stage)
		out = append(out, r)
	}
	return out, rows.Err()
}

// DeleteRun removes a run and, by cascade, its markers and rejections.
func (s *Store) DeleteRun(ctx context.Context, runID string) error {
	res, err := s.ExecContext(ctx, `DELETE FROM triangulation_runs WHERE run_id = ?`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", runID, ErrRunNotFound)
	}
	return nil
}
