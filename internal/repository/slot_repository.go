package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"slot-swap-api/internal/model"
	"slot-swap-api/internal/swap"
)

// SlotRepo provides CRUD operations for the 'slots' table. It does no
// cross-slot validation; that belongs to the swap engine. All
// timestamps are stored in UTC and every write bumps the version
// column so that concurrent writers can be detected.
type SlotRepo struct{ DB *sql.DB }

// NewSlotRepo returns a SlotRepo bound to the given database.
func NewSlotRepo(db *sql.DB) *SlotRepo { return &SlotRepo{DB: db} }

const slotColumns = "id, owner_email, name, description, start_time, end_time, is_swappable, status, version, created_at, updated_at"

func scanSlot(row interface{ Scan(...any) error }) (*model.Slot, error) {
	var s model.Slot
	err := row.Scan(&s.ID, &s.OwnerEmail, &s.Name, &s.Description,
		&s.StartTime, &s.EndTime, &s.IsSwappable, &s.Status,
		&s.Version, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new slot, assigning a UUID when the caller did not
// provide one, and reads the row back to populate timestamps.
func (r *SlotRepo) Create(ctx context.Context, s *model.Slot) error {
	if !model.ValidSlotStatus(s.Status) {
		return fmt.Errorf("invalid slot status %q", s.Status)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	const q = `INSERT INTO slots (id, owner_email, name, description, start_time, end_time, is_swappable, status)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.DB.ExecContext(ctx, q,
		s.ID, s.OwnerEmail, s.Name, s.Description,
		s.StartTime.UTC(), s.EndTime.UTC(), s.IsSwappable, s.Status); err != nil {
		return err
	}
	created, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = *created
	return nil
}

// GetByID fetches a slot, returning (nil, nil) when no row matches.
func (r *SlotRepo) GetByID(ctx context.Context, id string) (*model.Slot, error) {
	const q = `SELECT ` + slotColumns + ` FROM slots WHERE id = ?`
	s, err := scanSlot(r.DB.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// Update persists an owner edit. The expected version must match the
// stored one; swap.ErrVersionMismatch reports a stale or missing row.
func (r *SlotRepo) Update(ctx context.Context, s *model.Slot) error {
	if !model.ValidSlotStatus(s.Status) {
		return fmt.Errorf("invalid slot status %q", s.Status)
	}
	const q = `UPDATE slots
	           SET name=?, description=?, start_time=?, end_time=?, is_swappable=?, status=?, version=version+1
	           WHERE id=? AND version=?`
	res, err := r.DB.ExecContext(ctx, q,
		s.Name, s.Description, s.StartTime.UTC(), s.EndTime.UTC(),
		s.IsSwappable, s.Status, s.ID, s.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return swap.ErrVersionMismatch
	}
	s.Version++
	return nil
}

// Delete removes a slot. Deleting an absent id is not an error; the
// caller is expected to have resolved the slot first.
func (r *SlotRepo) Delete(ctx context.Context, id string) error {
	_, err := r.DB.ExecContext(ctx, `DELETE FROM slots WHERE id = ?`, id)
	return err
}

// ListByOwner returns all slots owned by the identity, newest first.
func (r *SlotRepo) ListByOwner(ctx context.Context, owner string) ([]model.Slot, error) {
	const q = `SELECT ` + slotColumns + ` FROM slots WHERE owner_email = ? ORDER BY created_at DESC, id`
	return r.list(ctx, q, owner)
}

// ListSwappable returns slots offerable in a swap: is_swappable set
// and status SWAPPABLE.
func (r *SlotRepo) ListSwappable(ctx context.Context) ([]model.Slot, error) {
	const q = `SELECT ` + slotColumns + ` FROM slots WHERE is_swappable = 1 AND status = ? ORDER BY start_time, id`
	return r.list(ctx, q, model.SlotStatusSwappable)
}

func (r *SlotRepo) list(ctx context.Context, q string, args ...any) ([]model.Slot, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Slot, 0)
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// GetForUpdateTx locks the slot row for the duration of the
// transaction. Returns (nil, nil) when no row matches.
func (r *SlotRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*model.Slot, error) {
	const q = `SELECT ` + slotColumns + ` FROM slots WHERE id = ? FOR UPDATE`
	s, err := scanSlot(tx.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// UpdateOwnerStatusTx rewrites ownership and status inside a
// transaction. Only the swap engine calls this. The version check is
// a second line of defence behind the row lock.
func (r *SlotRepo) UpdateOwnerStatusTx(ctx context.Context, tx *sql.Tx, id, owner, status string, swappable bool, expectVersion uint64) error {
	const q = `UPDATE slots
	           SET owner_email=?, status=?, is_swappable=?, version=version+1
	           WHERE id=? AND version=?`
	res, err := tx.ExecContext(ctx, q, owner, status, swappable, id, expectVersion)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return swap.ErrVersionMismatch
	}
	return nil
}
