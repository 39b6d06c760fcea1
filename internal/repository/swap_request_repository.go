package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"

	"slot-swap-api/internal/model"
)

// SwapRequestRepo provides persistence for the 'swap_requests' table.
// Requests are never deleted; resolved rows form the swap history.
type SwapRequestRepo struct{ DB *sql.DB }

// NewSwapRequestRepo returns a SwapRequestRepo bound to the given database.
func NewSwapRequestRepo(db *sql.DB) *SwapRequestRepo { return &SwapRequestRepo{DB: db} }

const requestColumns = "id, target_slot_id, offered_slot_id, target_owner_email, requester_email, status, message, proposed_start_time, proposed_end_time, created_at, updated_at"

func scanRequest(row interface{ Scan(...any) error }) (*model.SwapRequest, error) {
	var (
		r   model.SwapRequest
		msg sql.NullString
	)
	err := row.Scan(&r.ID, &r.TargetSlotID, &r.OfferedSlotID,
		&r.TargetOwnerEmail, &r.RequesterEmail, &r.Status, &msg,
		&r.ProposedStartTime, &r.ProposedEndTime, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if msg.Valid {
		r.Message = msg.String
	}
	return &r, nil
}

// Create inserts a new request, assigning a UUID when the caller did
// not provide one, and reads the row back to populate timestamps.
func (r *SwapRequestRepo) Create(ctx context.Context, req *model.SwapRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	var msg any
	if req.Message != "" {
		msg = req.Message
	}
	const q = `INSERT INTO swap_requests
	           (id, target_slot_id, offered_slot_id, target_owner_email, requester_email, status, message, proposed_start_time, proposed_end_time)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if _, err := r.DB.ExecContext(ctx, q,
		req.ID, req.TargetSlotID, req.OfferedSlotID,
		req.TargetOwnerEmail, req.RequesterEmail, req.Status, msg,
		req.ProposedStartTime.UTC(), req.ProposedEndTime.UTC()); err != nil {
		return err
	}
	created, err := r.GetByID(ctx, req.ID)
	if err != nil {
		return err
	}
	if created != nil {
		*req = *created
	}
	return nil
}

// GetByID fetches a request, returning (nil, nil) when no row matches.
func (r *SwapRequestRepo) GetByID(ctx context.Context, id string) (*model.SwapRequest, error) {
	const q = `SELECT ` + requestColumns + ` FROM swap_requests WHERE id = ?`
	req, err := scanRequest(r.DB.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return req, err
}

// ListByRequester returns requests the identity has sent, newest first.
func (r *SwapRequestRepo) ListByRequester(ctx context.Context, email string) ([]model.SwapRequest, error) {
	const q = `SELECT ` + requestColumns + ` FROM swap_requests WHERE requester_email = ? ORDER BY created_at DESC, id`
	return r.list(ctx, q, email)
}

// ListByTargetOwner returns requests targeting slots the identity
// owned at creation time, filtered to the given statuses.
func (r *SwapRequestRepo) ListByTargetOwner(ctx context.Context, email string, statuses []string) ([]model.SwapRequest, error) {
	ph, args := inArgs(statuses)
	q := `SELECT ` + requestColumns + ` FROM swap_requests
	      WHERE target_owner_email = ? AND status IN (` + ph + `) ORDER BY created_at DESC, id`
	return r.list(ctx, q, append([]any{email}, args...)...)
}

// ListInvolving returns requests in which the identity is either the
// requester or the target owner, filtered to the given statuses and
// ordered by last update, newest first.
func (r *SwapRequestRepo) ListInvolving(ctx context.Context, email string, statuses []string) ([]model.SwapRequest, error) {
	ph, args := inArgs(statuses)
	q := `SELECT ` + requestColumns + ` FROM swap_requests
	      WHERE (requester_email = ? OR target_owner_email = ?) AND status IN (` + ph + `)
	      ORDER BY updated_at DESC, id`
	return r.list(ctx, q, append([]any{email, email}, args...)...)
}

func (r *SwapRequestRepo) list(ctx context.Context, q string, args ...any) ([]model.SwapRequest, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.SwapRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, rows.Err()
}

// GetForUpdateTx locks the request row for the duration of the
// transaction. Returns (nil, nil) when no row matches.
func (r *SwapRequestRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id string) (*model.SwapRequest, error) {
	const q = `SELECT ` + requestColumns + ` FROM swap_requests WHERE id = ? FOR UPDATE`
	req, err := scanRequest(tx.QueryRowContext(ctx, q, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return req, err
}

// UpdateStatusTx transitions a request inside a transaction.
func (r *SwapRequestRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id, status string) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE swap_requests SET status=?, updated_at=NOW() WHERE id=?`, status, id)
	return err
}

// inArgs builds a "?,?,?" placeholder list and matching args slice.
func inArgs(vals []string) (string, []any) {
	ph := make([]string, len(vals))
	args := make([]any, len(vals))
	for i, v := range vals {
		ph[i] = "?"
		args[i] = v
	}
	return strings.Join(ph, ","), args
}
