package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/tripweave/tripweave-core/store"
	"github.com/tripweave/tripweave-core/types"
)

// RequestStore implements store.RequestStore on PostgreSQL. Activity change
// payloads are stored as JSONB.
type RequestStore struct {
	db DB
}

var _ store.RequestStore = (*RequestStore)(nil)

// NewRequestStore creates a PostgreSQL request store.
func NewRequestStore(db DB) *RequestStore {
	return &RequestStore{db: db}
}

// --- role promotion requests ---

const editRequestColumns = `id, trip_id, requester_id, requester_email, owner_id, status, message, requested_at, responded_at, responded_by, response_message`

func (s *RequestStore) CreateEditRequest(ctx context.Context, req *types.EditRequest) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO edit_requests (id, trip_id, requester_id, requester_email, owner_id, status, message, requested_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		req.ID,
		req.TripID,
		req.RequesterID,
		req.RequesterEmail,
		req.OwnerID,
		string(req.Status),
		req.Message,
		req.RequestedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("pending edit request by %s on trip %s: %w", req.RequesterID, req.TripID, store.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert edit request: %w", err)
	}
	return nil
}

func (s *RequestStore) GetEditRequest(ctx context.Context, id string) (*types.EditRequest, error) {
	row := s.db.QueryRow(ctx, `
        SELECT `+editRequestColumns+`
        FROM edit_requests
        WHERE id = $1`, id)

	req, err := scanEditRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get edit request %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query edit request %s: %w", id, err)
	}
	return req, nil
}

func (s *RequestStore) ListPendingEditRequests(ctx context.Context, tripID string) ([]*types.EditRequest, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+editRequestColumns+`
        FROM edit_requests
        WHERE trip_id = $1 AND status = 'PENDING'
        ORDER BY requested_at`, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to query edit requests: %w", err)
	}
	defer rows.Close()

	var requests []*types.EditRequest
	for rows.Next() {
		req, err := scanEditRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan edit request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate edit requests: %w", err)
	}
	return requests, nil
}

func (s *RequestStore) ResolveEditRequestTx(ctx context.Context, req *types.EditRequest, promote bool) error {
	return WithTx(ctx, s.db, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
            UPDATE edit_requests
            SET status = $2, responded_at = $3, responded_by = $4, response_message = $5
            WHERE id = $1 AND status = 'PENDING'`,
			req.ID,
			string(req.Status),
			req.RespondedAt,
			req.RespondedBy,
			req.ResponseMessage,
		)
		if err != nil {
			return fmt.Errorf("failed to resolve edit request: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("resolve edit request %s: %w", req.ID, store.ErrAlreadyResolved)
		}

		if promote {
			if err := updateCollaboratorRoleTx(ctx, tx, req.TripID, req.RequesterID, types.RoleEditor); err != nil {
				return err
			}
			return bumpTripUpdatedAtTx(ctx, tx, req.TripID)
		}
		return nil
	})
}

// --- activity edit requests ---

const activityRequestColumns = `id, trip_id, requester_id, owner_id, request_type, activity_id, changes, status, message, requested_at, responded_at, responded_by, response_message`

func (s *RequestStore) CreateActivityEditRequest(ctx context.Context, req *types.ActivityEditRequest) error {
	changes, err := json.Marshal(req.Changes)
	if err != nil {
		return fmt.Errorf("failed to marshal proposed changes: %w", err)
	}

	_, err = s.db.Exec(ctx, `
        INSERT INTO activity_edit_requests (id, trip_id, requester_id, owner_id, request_type, activity_id, changes, status, message, requested_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		req.ID,
		req.TripID,
		req.RequesterID,
		req.OwnerID,
		string(req.RequestType),
		req.ActivityID,
		changes,
		string(req.Status),
		req.Message,
		req.RequestedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert activity edit request: %w", err)
	}
	return nil
}

func (s *RequestStore) GetActivityEditRequest(ctx context.Context, id string) (*types.ActivityEditRequest, error) {
	row := s.db.QueryRow(ctx, `
        SELECT `+activityRequestColumns+`
        FROM activity_edit_requests
        WHERE id = $1`, id)

	req, err := scanActivityEditRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get activity edit request %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query activity edit request %s: %w", id, err)
	}
	return req, nil
}

func (s *RequestStore) ListPendingActivityEditRequests(ctx context.Context, tripID string) ([]*types.ActivityEditRequest, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+activityRequestColumns+`
        FROM activity_edit_requests
        WHERE trip_id = $1 AND status = 'PENDING'
        ORDER BY requested_at`, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity edit requests: %w", err)
	}
	defer rows.Close()

	var requests []*types.ActivityEditRequest
	for rows.Next() {
		req, err := scanActivityEditRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan activity edit request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity edit requests: %w", err)
	}
	return requests, nil
}

func (s *RequestStore) MarkActivityEditRequestResolved(ctx context.Context, req *types.ActivityEditRequest) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE activity_edit_requests
        SET status = $2, responded_at = $3, responded_by = $4, response_message = $5
        WHERE id = $1 AND status = 'PENDING'`,
		req.ID,
		string(req.Status),
		req.RespondedAt,
		req.RespondedBy,
		req.ResponseMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to mark activity edit request resolved: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("mark activity edit request %s: %w", req.ID, store.ErrAlreadyResolved)
	}
	return nil
}

func (s *RequestStore) ApplyActivityEditRequestTx(ctx context.Context, req *types.ActivityEditRequest, activities []types.Activity) error {
	return WithTx(ctx, s.db, func(tx pgx.Tx) error {
		// The guarded flip runs first: if a concurrent resolve won, zero
		// rows come back and the transaction aborts before the trip is
		// touched. If any later step fails, the whole transaction rolls
		// back and the request remains pending, keeping retries safe.
		tag, err := tx.Exec(ctx, `
            UPDATE activity_edit_requests
            SET status = 'APPROVED', responded_at = $2, responded_by = $3, response_message = $4
            WHERE id = $1 AND status = 'PENDING'`,
			req.ID,
			req.RespondedAt,
			req.RespondedBy,
			req.ResponseMessage,
		)
		if err != nil {
			return fmt.Errorf("failed to approve activity edit request: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("apply activity edit request %s: %w", req.ID, store.ErrAlreadyResolved)
		}

		if err := replaceActivitiesTx(ctx, tx, req.TripID, activities); err != nil {
			return err
		}
		return bumpTripUpdatedAtTx(ctx, tx, req.TripID)
	})
}

func scanEditRequest(row rowScanner) (*types.EditRequest, error) {
	var req types.EditRequest
	var status string
	err := row.Scan(
		&req.ID,
		&req.TripID,
		&req.RequesterID,
		&req.RequesterEmail,
		&req.OwnerID,
		&status,
		&req.Message,
		&req.RequestedAt,
		&req.RespondedAt,
		&req.RespondedBy,
		&req.ResponseMessage,
	)
	if err != nil {
		return nil, err
	}
	req.Status = types.RequestStatus(status)
	return &req, nil
}

func scanActivityEditRequest(row rowScanner) (*types.ActivityEditRequest, error) {
	var req types.ActivityEditRequest
	var requestType, status string
	var changes []byte
	err := row.Scan(
		&req.ID,
		&req.TripID,
		&req.RequesterID,
		&req.OwnerID,
		&requestType,
		&req.ActivityID,
		&changes,
		&status,
		&req.Message,
		&req.RequestedAt,
		&req.RespondedAt,
		&req.RespondedBy,
		&req.ResponseMessage,
	)
	if err != nil {
		return nil, err
	}
	req.RequestType = types.ActivityRequestType(requestType)
	req.Status = types.RequestStatus(status)
	if len(changes) > 0 {
		if err := json.Unmarshal(changes, &req.Changes); err != nil {
			return nil, fmt.Errorf("failed to unmarshal proposed changes: %w", err)
		}
	}
	return &req, nil
}
