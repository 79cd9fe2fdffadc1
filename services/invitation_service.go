package services

import (
	"context"
	stderrors "errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tripweave/tripweave-core/auth"
	"github.com/tripweave/tripweave-core/errors"
	"github.com/tripweave/tripweave-core/logger"
	"github.com/tripweave/tripweave-core/store"
	"github.com/tripweave/tripweave-core/types"
	"github.com/tripweave/tripweave-core/validation"
)

// defaultInvitationTTL bounds how long an invitation can be accepted.
const defaultInvitationTTL = 7 * 24 * time.Hour

// InvitationService runs the invitation workflow: pending, then accepted or
// declined, both terminal. Accepting atomically creates the membership.
type InvitationService struct {
	store       store.Store
	publisher   types.EventPublisher
	email       EmailSender
	frontendURL string
}

// NewInvitationService wires the invitation workflow. publisher and email
// may be nil; both are advisory side channels.
func NewInvitationService(s store.Store, publisher types.EventPublisher, email EmailSender, frontendURL string) *InvitationService {
	return &InvitationService{
		store:       s,
		publisher:   publisher,
		email:       email,
		frontendURL: frontendURL,
	}
}

// Invite creates a pending invitation addressed to an email. Owner-only.
func (s *InvitationService) Invite(ctx context.Context, tripID, inviteeEmail string, role types.CollaboratorRole, message string) (*types.TripInvitation, error) {
	identity, err := auth.IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}

	if role != types.RoleEditor && role != types.RoleViewer {
		return nil, errors.ValidationFailed("invalid invitation role", "role must be EDITOR or VIEWER")
	}
	inviteeEmail = strings.ToLower(strings.TrimSpace(inviteeEmail))
	if inviteeEmail == "" {
		return nil, errors.ValidationFailed("invalid invitee email", "email is required")
	}

	trip, err := loadTrip(ctx, s.store.Trips(), tripID)
	if err != nil {
		return nil, err
	}
	if identity.ID != trip.OwnerID {
		return nil, errors.Unauthorized("not_owner", "only the trip owner can send invitations")
	}

	// The owner is never stored as a collaborator row, so their own email
	// is not invitable.
	if strings.EqualFold(inviteeEmail, identity.Email) {
		conflictErr := errors.NewConflictError("owner cannot invite themselves", inviteeEmail)
		conflictErr.Code = "ALREADY_COLLABORATOR"
		return nil, conflictErr
	}

	if c := trip.ActiveCollaboratorByEmail(inviteeEmail); c != nil {
		conflictErr := errors.NewConflictError("invitee is already an active collaborator", inviteeEmail)
		conflictErr.Code = "ALREADY_COLLABORATOR"
		return nil, conflictErr
	}

	existing, err := s.store.Invitations().ListInvitationsByTrip(ctx, tripID)
	if err != nil {
		return nil, errors.NewDatabaseError(err)
	}
	for _, inv := range existing {
		if inv.Status == types.InvitationStatusPending && strings.EqualFold(inv.InviteeEmail, inviteeEmail) {
			conflictErr := errors.NewConflictError("a pending invitation already targets this email", inviteeEmail)
			conflictErr.Code = "DUPLICATE_PENDING"
			return nil, conflictErr
		}
	}

	now := time.Now().UTC()
	expiresAt := now.Add(defaultInvitationTTL)
	invitation := &types.TripInvitation{
		ID:           uuid.New().String(),
		TripID:       tripID,
		InviterID:    identity.ID,
		InviteeEmail: inviteeEmail,
		Role:         role,
		Status:       types.InvitationStatusPending,
		Message:      message,
		SentAt:       now,
		ExpiresAt:    &expiresAt,
	}

	if err := s.store.Invitations().CreateInvitation(ctx, invitation); err != nil {
		if stderrors.Is(err, store.ErrDuplicate) {
			// Concurrent duplicate caught by the store's uniqueness guarantee.
			conflictErr := errors.NewConflictError("a pending invitation already targets this email", inviteeEmail)
			conflictErr.Code = "DUPLICATE_PENDING"
			return nil, conflictErr
		}
		return nil, errors.NewDatabaseError(err)
	}

	logger.GetLogger().Infow("Invitation created",
		"tripId", tripID,
		"invitationId", invitation.ID,
		"invitee", logger.MaskEmail(inviteeEmail),
		"role", role)

	publishEvent(ctx, s.publisher, types.EventTypeInvitationCreated, tripID, identity.ID, invitation)
	s.sendInvitationEmail(trip, invitation)

	return invitation, nil
}

// sendInvitationEmail delivers the invitation mail in the background. A
// failed send is logged and never rolls back the invitation record.
func (s *InvitationService) sendInvitationEmail(trip *types.SharedTrip, invitation *types.TripInvitation) {
	if s.email == nil {
		return
	}
	data := InvitationEmailData{
		To:            invitation.InviteeEmail,
		TripName:      trip.Name,
		InviterName:   invitation.InviterID,
		Role:          strings.ToLower(string(invitation.Role)),
		AcceptanceURL: s.frontendURL + "/invitations/" + invitation.ID,
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := s.email.SendInvitationEmail(ctx, data); err != nil {
			logger.GetLogger().Errorw("Invitation email delivery failed",
				"invitationId", invitation.ID, "error", err)
		}
	}()
}

// Accept converts a pending invitation into an active membership. The
// caller's email must match the invitation's target, the invitation must not
// be expired, and the status flip plus the collaborator insert land in one
// atomic write.
func (s *InvitationService) Accept(ctx context.Context, invitationID string) error {
	identity, err := auth.IdentityFromContext(ctx)
	if err != nil {
		return err
	}

	invitation, err := s.getInvitation(ctx, invitationID)
	if err != nil {
		return err
	}

	if invitation.Status != types.InvitationStatusPending {
		return errors.InvalidState("invitation is no longer pending", string(invitation.Status))
	}
	if !strings.EqualFold(invitation.InviteeEmail, identity.Email) {
		return errors.InvalidState("invitation is addressed to a different email", "")
	}
	if invitation.IsExpired(time.Now()) {
		return errors.InvalidState("invitation has expired", invitation.ExpiresAt.Format(time.RFC3339))
	}

	trip, err := loadTrip(ctx, s.store.Trips(), invitation.TripID)
	if err != nil {
		return err
	}
	if identity.ID == trip.OwnerID {
		return errors.InvalidState("trip owner cannot accept an invitation to their own trip", "")
	}

	collaborator := &types.Collaborator{
		ID:      uuid.New().String(),
		TripID:  invitation.TripID,
		UserID:  identity.ID,
		Email:   strings.ToLower(identity.Email),
		Role:    invitation.Role,
		Status:  types.CollaboratorStatusActive,
		AddedAt: time.Now().UTC(),
	}

	if err := s.store.Invitations().AcceptInvitationTx(ctx, invitationID, identity.ID, collaborator); err != nil {
		switch {
		case stderrors.Is(err, store.ErrAlreadyResolved):
			return errors.InvalidState("invitation is no longer pending", "")
		case stderrors.Is(err, store.ErrNotFound):
			return errors.NotFound("Invitation", invitationID)
		default:
			return errors.NewDatabaseError(err)
		}
	}

	logger.GetLogger().Infow("Invitation accepted",
		"invitationId", invitationID,
		"tripId", invitation.TripID,
		"userId", identity.ID)

	publishEvent(ctx, s.publisher, types.EventTypeInvitationAccepted, invitation.TripID, identity.ID, invitation)
	publishEvent(ctx, s.publisher, types.EventTypeCollaboratorJoined, invitation.TripID, identity.ID,
		types.CollaboratorJoinedEvent{
			InvitationID: invitationID,
			UserID:       identity.ID,
			Role:         invitation.Role,
		})

	return nil
}

// Decline marks a pending invitation declined. Terminal; no membership
// side effects.
func (s *InvitationService) Decline(ctx context.Context, invitationID string) error {
	identity, err := auth.IdentityFromContext(ctx)
	if err != nil {
		return err
	}

	invitation, err := s.getInvitation(ctx, invitationID)
	if err != nil {
		return err
	}

	if invitation.Status != types.InvitationStatusPending {
		return errors.InvalidState("invitation is no longer pending", string(invitation.Status))
	}
	if !strings.EqualFold(invitation.InviteeEmail, identity.Email) {
		return errors.InvalidState("invitation is addressed to a different email", "")
	}

	if err := s.store.Invitations().UpdateInvitationStatus(ctx, invitationID, types.InvitationStatusDeclined, time.Now().UTC()); err != nil {
		switch {
		case stderrors.Is(err, store.ErrAlreadyResolved):
			return errors.InvalidState("invitation is no longer pending", "")
		case stderrors.Is(err, store.ErrNotFound):
			return errors.NotFound("Invitation", invitationID)
		default:
			return errors.NewDatabaseError(err)
		}
	}

	publishEvent(ctx, s.publisher, types.EventTypeInvitationDeclined, invitation.TripID, identity.ID, invitation)
	return nil
}

// ListInvitations returns the trip's invitations, newest first. Owner-only.
func (s *InvitationService) ListInvitations(ctx context.Context, tripID string) ([]*types.TripInvitation, error) {
	identity, err := auth.IdentityFromContext(ctx)
	if err != nil {
		return nil, err
	}
	trip, err := loadTrip(ctx, s.store.Trips(), tripID)
	if err != nil {
		return nil, err
	}
	if validation.ResolveRole(trip, identity.ID) != types.RoleOwner {
		return nil, errors.Unauthorized("not_owner", "only the trip owner can list invitations")
	}

	invitations, err := s.store.Invitations().ListInvitationsByTrip(ctx, tripID)
	if err != nil {
		return nil, errors.NewDatabaseError(err)
	}
	return invitations, nil
}

func (s *InvitationService) getInvitation(ctx context.Context, id string) (*types.TripInvitation, error) {
	invitation, err := s.store.Invitations().GetInvitation(ctx, id)
	if err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			return nil, errors.NotFound("Invitation", id)
		}
		return nil, errors.NewDatabaseError(err)
	}
	return invitation, nil
}
