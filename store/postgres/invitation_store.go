package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/tripweave/tripweave-core/store"
	"github.com/tripweave/tripweave-core/types"
)

// InvitationStore implements store.InvitationStore on PostgreSQL.
type InvitationStore struct {
	db DB
}

var _ store.InvitationStore = (*InvitationStore)(nil)

// NewInvitationStore creates a PostgreSQL invitation store.
func NewInvitationStore(db DB) *InvitationStore {
	return &InvitationStore{db: db}
}

const invitationColumns = `id, trip_id, inviter_id, invitee_email, invitee_id, role, status, message, sent_at, responded_at, expires_at`

func (s *InvitationStore) CreateInvitation(ctx context.Context, invitation *types.TripInvitation) error {
	_, err := s.db.Exec(ctx, `
        INSERT INTO trip_invitations (id, trip_id, inviter_id, invitee_email, invitee_id, role, status, message, sent_at, expires_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		invitation.ID,
		invitation.TripID,
		invitation.InviterID,
		invitation.InviteeEmail,
		invitation.InviteeID,
		string(invitation.Role),
		string(invitation.Status),
		invitation.Message,
		invitation.SentAt,
		invitation.ExpiresAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("pending invitation for %s on trip %s: %w",
				invitation.InviteeEmail, invitation.TripID, store.ErrDuplicate)
		}
		return fmt.Errorf("failed to insert invitation: %w", err)
	}
	return nil
}

func (s *InvitationStore) GetInvitation(ctx context.Context, id string) (*types.TripInvitation, error) {
	row := s.db.QueryRow(ctx, `
        SELECT `+invitationColumns+`
        FROM trip_invitations
        WHERE id = $1`, id)

	inv, err := scanInvitation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get invitation %s: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to query invitation %s: %w", id, err)
	}
	return inv, nil
}

func (s *InvitationStore) ListInvitationsByTrip(ctx context.Context, tripID string) ([]*types.TripInvitation, error) {
	rows, err := s.db.Query(ctx, `
        SELECT `+invitationColumns+`
        FROM trip_invitations
        WHERE trip_id = $1
        ORDER BY sent_at DESC`, tripID)
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer rows.Close()

	var invitations []*types.TripInvitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan invitation: %w", err)
		}
		invitations = append(invitations, inv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate invitations: %w", err)
	}
	return invitations, nil
}

func (s *InvitationStore) UpdateInvitationStatus(ctx context.Context, id string, status types.InvitationStatus, respondedAt time.Time) error {
	tag, err := s.db.Exec(ctx, `
        UPDATE trip_invitations
        SET status = $2, responded_at = $3
        WHERE id = $1 AND status = 'PENDING'`,
		id, string(status), respondedAt)
	if err != nil {
		return fmt.Errorf("failed to update invitation status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either missing or no longer pending; disambiguate for the caller.
		var exists bool
		if err := s.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM trip_invitations WHERE id = $1)`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check invitation %s: %w", id, err)
		}
		if !exists {
			return fmt.Errorf("update invitation %s: %w", id, store.ErrNotFound)
		}
		return fmt.Errorf("update invitation %s: %w", id, store.ErrAlreadyResolved)
	}
	return nil
}

func (s *InvitationStore) AcceptInvitationTx(ctx context.Context, invitationID, inviteeID string, collaborator *types.Collaborator) error {
	return WithTx(ctx, s.db, func(tx pgx.Tx) error {
		// Guarded flip first: zero rows means the invitation was already
		// resolved by a concurrent accept/decline, and nothing else runs.
		tag, err := tx.Exec(ctx, `
            UPDATE trip_invitations
            SET status = 'ACCEPTED', invitee_id = $2, responded_at = now()
            WHERE id = $1 AND status = 'PENDING'`,
			invitationID, inviteeID)
		if err != nil {
			return fmt.Errorf("failed to accept invitation: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("accept invitation %s: %w", invitationID, store.ErrAlreadyResolved)
		}

		if err := upsertCollaboratorTx(ctx, tx, collaborator); err != nil {
			return err
		}
		return bumpTripUpdatedAtTx(ctx, tx, collaborator.TripID)
	})
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvitation(row rowScanner) (*types.TripInvitation, error) {
	var inv types.TripInvitation
	var role, status string
	err := row.Scan(
		&inv.ID,
		&inv.TripID,
		&inv.InviterID,
		&inv.InviteeEmail,
		&inv.InviteeID,
		&role,
		&status,
		&inv.Message,
		&inv.SentAt,
		&inv.RespondedAt,
		&inv.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}
	inv.Role = types.CollaboratorRole(role)
	inv.Status = types.InvitationStatus(status)
	return &inv, nil
}
