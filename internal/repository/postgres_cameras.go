package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/superrexy/APD-Restaurant-Violation-App/internal/domain"
	"go.uber.org/zap"
)

const cameraColumns = `
	c.id,
	c.code,
	c.name,
	c.description,
	c.location,
	c.yolo_service_url,
	c.status,
	c.yolo_detection_status,
	c.connected_at,
	c.disconnected_at,
	c.last_maintenance_at,
	c.created_at,
	c.updated_at`

type PostgresCamerasRepo struct {
	db     *sql.DB
	logger *zap.Logger
}

func NewPostgresCamerasRepo(db *sql.DB, logger *zap.Logger) *PostgresCamerasRepo {
	return &PostgresCamerasRepo{db: db, logger: logger}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCamera(s rowScanner) (*domain.Camera, error) {
	var c domain.Camera
	var status string
	if err := s.Scan(
		&c.ID,
		&c.Code,
		&c.Name,
		&c.Description,
		&c.Location,
		&c.DetectionServiceURL,
		&status,
		&c.DetectionOnline,
		&c.ConnectedAt,
		&c.DisconnectedAt,
		&c.LastMaintenanceAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	); err != nil {
		return nil, err
	}
	c.Status = domain.CameraStatus(status)
	return &c, nil
}

func (r *PostgresCamerasRepo) ListReconcilable(ctx context.Context, statuses []domain.CameraStatus) ([]*domain.Camera, error) {
	if len(statuses) == 0 {
		return []*domain.Camera{}, nil
	}
	raw := make([]string, 0, len(statuses))
	for _, s := range statuses {
		raw = append(raw, string(s))
	}

	q := `SELECT ` + cameraColumns + `
		FROM cameras c
		WHERE c.status = ANY($1)
		ORDER BY c.id`

	rows, err := r.db.QueryContext(ctx, q, pq.Array(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to query reconcilable cameras: %w", err)
	}
	defer rows.Close()

	out := []*domain.Camera{}
	for rows.Next() {
		c, err := scanCamera(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan camera: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cameras: %w", err)
	}
	return out, nil
}

func (r *PostgresCamerasRepo) ListCameras(ctx context.Context, filters CameraFilters, page, size int) ([]*domain.Camera, int, error) {
	where := []string{"1=1"}
	args := []any{}
	argN := 1

	if len(filters.Status) > 0 {
		where = append(where, fmt.Sprintf("c.status = ANY($%d)", argN))
		args = append(args, pq.Array(filters.Status))
		argN++
	}
	if kw := strings.TrimSpace(filters.Search); kw != "" {
		where = append(where, fmt.Sprintf("(c.code ILIKE $%d OR c.name ILIKE $%d OR c.location ILIKE $%d)", argN, argN, argN))
		args = append(args, "%"+kw+"%")
		argN++
	}

	var total int
	countQ := `SELECT COUNT(*) FROM cameras c WHERE ` + strings.Join(where, " AND ")
	if err := r.db.QueryRowContext(ctx, countQ, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count cameras: %w", err)
	}

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	q := `SELECT ` + cameraColumns + `
		FROM cameras c
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY c.code
		LIMIT $` + fmt.Sprintf("%d", argN) + ` OFFSET $` + fmt.Sprintf("%d", argN+1)

	rows, err := r.db.QueryContext(ctx, q, append(args, size, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cameras: %w", err)
	}
	defer rows.Close()

	out := []*domain.Camera{}
	for rows.Next() {
		c, err := scanCamera(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan camera: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate cameras: %w", err)
	}
	return out, total, nil
}

func (r *PostgresCamerasRepo) GetCameraByCode(ctx context.Context, code string) (*domain.Camera, error) {
	q := `SELECT ` + cameraColumns + ` FROM cameras c WHERE c.code = $1`
	c, err := scanCamera(r.db.QueryRowContext(ctx, q, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrCameraNotFound, code)
		}
		return nil, fmt.Errorf("failed to get camera %s: %w", code, err)
	}
	return c, nil
}

func (r *PostgresCamerasRepo) UpdateConnectivity(ctx context.Context, u ConnectivityUpdate) error {
	q := `
		UPDATE cameras
		SET status = $2,
		    yolo_detection_status = $3,
		    connected_at = $4,
		    disconnected_at = $5,
		    updated_at = $6
		WHERE id = $1`
	args := []any{
		u.CameraID,
		string(u.Status),
		u.DetectionOnline,
		domain.NullTimeFrom(u.ConnectedAt),
		domain.NullTimeFrom(u.DisconnectedAt),
		u.UpdatedAt,
	}
	if u.ExpectedStatus != "" {
		q += ` AND status = $7`
		args = append(args, string(u.ExpectedStatus))
	}

	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("failed to update camera %d connectivity: %w", u.CameraID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		if u.ExpectedStatus != "" {
			return ErrStaleCamera
		}
		return fmt.Errorf("%w: id=%d", ErrCameraNotFound, u.CameraID)
	}
	return nil
}

func (r *PostgresCamerasRepo) ApplyHeartbeat(ctx context.Context, code string, status *domain.CameraStatus, at time.Time) (*HeartbeatResult, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin heartbeat tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	q := `SELECT ` + cameraColumns + ` FROM cameras c WHERE c.code = $1 FOR UPDATE`
	c, err := scanCamera(tx.QueryRowContext(ctx, q, code))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrCameraNotFound, code)
		}
		return nil, fmt.Errorf("failed to lock camera %s: %w", code, err)
	}

	prev := c.Status
	applyHeartbeat(c, status, at)

	_, err = tx.ExecContext(ctx, `
		UPDATE cameras
		SET status = $2,
		    connected_at = $3,
		    disconnected_at = $4,
		    updated_at = $5
		WHERE id = $1`,
		c.ID,
		string(c.Status),
		c.ConnectedAt,
		c.DisconnectedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to apply heartbeat for %s: %w", code, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit heartbeat for %s: %w", code, err)
	}

	if r.logger != nil {
		r.logger.Debug("Heartbeat applied",
			zap.String("camera_code", code),
			zap.String("previous_status", string(prev)),
			zap.String("status", string(c.Status)),
		)
	}
	return &HeartbeatResult{Camera: c, PreviousStatus: prev}, nil
}
