package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/superrexy/APD-Restaurant-Violation-App/internal/domain"
)

// MemoryCamerasRepo backs local runs without PostgreSQL and the handler tests.
// Every read returns copies so callers never share rows.
type MemoryCamerasRepo struct {
	mu      sync.RWMutex
	nextID  int64
	cameras map[string]*domain.Camera // code -> camera
}

func NewMemoryCamerasRepo() *MemoryCamerasRepo {
	return &MemoryCamerasRepo{
		nextID:  1,
		cameras: map[string]*domain.Camera{},
	}
}

// CreateCamera inserts c, assigning ID and timestamps when unset.
func (r *MemoryCamerasRepo) CreateCamera(_ context.Context, c *domain.Camera) (*domain.Camera, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.Code == "" {
		return nil, fmt.Errorf("camera code is required")
	}
	if _, ok := r.cameras[c.Code]; ok {
		return nil, fmt.Errorf("camera code %s already exists", c.Code)
	}
	if c.Status == "" {
		c.Status = domain.CameraStatusInactive
	}

	cp := *c
	if cp.ID == 0 {
		cp.ID = r.nextID
	}
	if cp.ID >= r.nextID {
		r.nextID = cp.ID + 1
	}
	now := time.Now()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	if cp.UpdatedAt.IsZero() {
		cp.UpdatedAt = now
	}
	r.cameras[cp.Code] = &cp

	out := cp
	return &out, nil
}

func (r *MemoryCamerasRepo) ListReconcilable(_ context.Context, statuses []domain.CameraStatus) ([]*domain.Camera, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	want := map[domain.CameraStatus]bool{}
	for _, s := range statuses {
		want[s] = true
	}

	out := []*domain.Camera{}
	for _, c := range r.cameras {
		if want[c.Status] {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *MemoryCamerasRepo) ListCameras(_ context.Context, filters CameraFilters, page, size int) ([]*domain.Camera, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statusSet := map[string]bool{}
	for _, s := range filters.Status {
		statusSet[s] = true
	}
	kw := strings.ToLower(strings.TrimSpace(filters.Search))

	matched := []*domain.Camera{}
	for _, c := range r.cameras {
		if len(statusSet) > 0 && !statusSet[string(c.Status)] {
			continue
		}
		if kw != "" &&
			!strings.Contains(strings.ToLower(c.Code), kw) &&
			!strings.Contains(strings.ToLower(c.Name), kw) &&
			!strings.Contains(strings.ToLower(c.Location), kw) {
			continue
		}
		cp := *c
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Code < matched[j].Code })

	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = 20
	}
	total := len(matched)
	start := (page - 1) * size
	if start >= total {
		return []*domain.Camera{}, total, nil
	}
	end := start + size
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (r *MemoryCamerasRepo) GetCameraByCode(_ context.Context, code string) (*domain.Camera, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.cameras[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCameraNotFound, code)
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryCamerasRepo) UpdateConnectivity(_ context.Context, u ConnectivityUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range r.cameras {
		if c.ID != u.CameraID {
			continue
		}
		if u.ExpectedStatus != "" && c.Status != u.ExpectedStatus {
			return ErrStaleCamera
		}
		c.Status = u.Status
		c.DetectionOnline = u.DetectionOnline
		c.ConnectedAt = domain.NullTimeFrom(u.ConnectedAt)
		c.DisconnectedAt = domain.NullTimeFrom(u.DisconnectedAt)
		c.UpdatedAt = u.UpdatedAt
		return nil
	}
	return fmt.Errorf("%w: id=%d", ErrCameraNotFound, u.CameraID)
}

func (r *MemoryCamerasRepo) ApplyHeartbeat(_ context.Context, code string, status *domain.CameraStatus, at time.Time) (*HeartbeatResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.cameras[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCameraNotFound, code)
	}
	prev := c.Status
	applyHeartbeat(c, status, at)

	cp := *c
	return &HeartbeatResult{Camera: &cp, PreviousStatus: prev}, nil
}
