package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tripweave/tripweave-core/errors"
	"github.com/tripweave/tripweave-core/types"
)

type recordingEmailSender struct {
	sent chan InvitationEmailData
}

func newRecordingEmailSender() *recordingEmailSender {
	return &recordingEmailSender{sent: make(chan InvitationEmailData, 1)}
}

func (r *recordingEmailSender) SendInvitationEmail(_ context.Context, data InvitationEmailData) error {
	r.sent <- data
	return nil
}

func TestInvite(t *testing.T) {
	t.Run("owner invites a new email", func(t *testing.T) {
		s := newTestStore(t)
		email := newRecordingEmailSender()
		svc := NewInvitationService(s, nil, email, "https://app.tripweave.io")

		inv, err := svc.Invite(identityCtx(ownerID, ownerEmail), testTripID, "  Newbie@Example.com ", types.RoleEditor, "join us")
		require.NoError(t, err)
		assert.Equal(t, "newbie@example.com", inv.InviteeEmail)
		assert.Equal(t, types.InvitationStatusPending, inv.Status)
		assert.Equal(t, types.RoleEditor, inv.Role)
		require.NotNil(t, inv.ExpiresAt)
		assert.WithinDuration(t, time.Now().Add(defaultInvitationTTL), *inv.ExpiresAt, time.Minute)

		select {
		case data := <-email.sent:
			assert.Equal(t, "newbie@example.com", data.To)
			assert.Equal(t, "Lisbon Getaway", data.TripName)
			assert.Contains(t, data.AcceptanceURL, "https://app.tripweave.io/invitations/"+inv.ID)
		case <-time.After(2 * time.Second):
			t.Fatal("invitation email was never sent")
		}
	})

	t.Run("non-owner cannot invite", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewInvitationService(s, nil, nil, "")

		_, err := svc.Invite(identityCtx(editorID, editorEmail), testTripID, "newbie@example.com", types.RoleViewer, "")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ForbiddenError))
	})

	t.Run("owner role is not invitable", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewInvitationService(s, nil, nil, "")

		_, err := svc.Invite(identityCtx(ownerID, ownerEmail), testTripID, "newbie@example.com", types.RoleOwner, "")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ValidationError))
	})

	t.Run("owner cannot invite their own email", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewInvitationService(s, nil, nil, "")

		_, err := svc.Invite(identityCtx(ownerID, ownerEmail), testTripID, "Owner@Example.com", types.RoleViewer, "")
		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "ALREADY_COLLABORATOR", appErr.Code)
	})

	t.Run("active collaborator email is rejected", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewInvitationService(s, nil, nil, "")

		_, err := svc.Invite(identityCtx(ownerID, ownerEmail), testTripID, "Editor@Example.com", types.RoleViewer, "")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ConflictError))
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "ALREADY_COLLABORATOR", appErr.Code)
	})

	t.Run("second pending invitation for the same email is rejected", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewInvitationService(s, nil, nil, "")
		ctx := identityCtx(ownerID, ownerEmail)

		_, err := svc.Invite(ctx, testTripID, "newbie@example.com", types.RoleViewer, "")
		require.NoError(t, err)

		_, err = svc.Invite(ctx, testTripID, "NEWBIE@example.com", types.RoleEditor, "")
		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "DUPLICATE_PENDING", appErr.Code)
	})

	t.Run("unknown trip", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewInvitationService(s, nil, nil, "")

		_, err := svc.Invite(identityCtx(ownerID, ownerEmail), "no-such-trip", "newbie@example.com", types.RoleViewer, "")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.NotFoundError))
	})
}

func TestAccept(t *testing.T) {
	invite := func(t *testing.T, svc *InvitationService, email string, role types.CollaboratorRole) *types.TripInvitation {
		t.Helper()
		inv, err := svc.Invite(identityCtx(ownerID, ownerEmail), testTripID, email, role, "")
		require.NoError(t, err)
		return inv
	}

	t.Run("invitee becomes an active collaborator", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewInvitationService(s, nil, nil, "")
		inv := invite(t, svc, "newbie@example.com", types.RoleEditor)

		err := svc.Accept(identityCtx("user-newbie", "Newbie@Example.com"), inv.ID)
		require.NoError(t, err)

		trip, err := s.GetTrip(context.Background(), testTripID)
		require.NoError(t, err)
		collab := trip.ActiveCollaborator("user-newbie")
		require.NotNil(t, collab)
		assert.Equal(t, types.RoleEditor, collab.Role)
		assert.Equal(t, "newbie@example.com", collab.Email)

		stored, err := s.GetInvitation(context.Background(), inv.ID)
		require.NoError(t, err)
		assert.Equal(t, types.InvitationStatusAccepted, stored.Status)
		require.NotNil(t, stored.InviteeID)
		assert.Equal(t, "user-newbie", *stored.InviteeID)
	})

	t.Run("email mismatch", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewInvitationService(s, nil, nil, "")
		inv := invite(t, svc, "newbie@example.com", types.RoleViewer)

		err := svc.Accept(identityCtx("user-impostor", "impostor@example.com"), inv.ID)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.InvalidStateError))
	})

	t.Run("second accept fails and leaves membership intact", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewInvitationService(s, nil, nil, "")
		inv := invite(t, svc, "newbie@example.com", types.RoleViewer)
		ctx := identityCtx("user-newbie", "newbie@example.com")

		require.NoError(t, svc.Accept(ctx, inv.ID))
		err := svc.Accept(ctx, inv.ID)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.InvalidStateError))

		trip, err := s.GetTrip(context.Background(), testTripID)
		require.NoError(t, err)
		assert.NotNil(t, trip.ActiveCollaborator("user-newbie"))
	})

	t.Run("owner cannot accept onto their own trip", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewInvitationService(s, nil, nil, "")

		// A stray invitation addressed to the owner must not turn the
		// owner into a collaborator row.
		stray := &types.TripInvitation{
			ID:           "inv-owner",
			TripID:       testTripID,
			InviterID:    ownerID,
			InviteeEmail: ownerEmail,
			Role:         types.RoleViewer,
			Status:       types.InvitationStatusPending,
			SentAt:       time.Now().UTC(),
		}
		require.NoError(t, s.CreateInvitation(context.Background(), stray))

		err := svc.Accept(identityCtx(ownerID, ownerEmail), "inv-owner")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.InvalidStateError))

		trip, err := s.GetTrip(context.Background(), testTripID)
		require.NoError(t, err)
		_, listed := trip.Collaborators[ownerID]
		assert.False(t, listed)

		stored, err := s.GetInvitation(context.Background(), "inv-owner")
		require.NoError(t, err)
		assert.Equal(t, types.InvitationStatusPending, stored.Status)
	})

	t.Run("expired invitation", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewInvitationService(s, nil, nil, "")

		past := time.Now().Add(-time.Hour)
		stale := &types.TripInvitation{
			ID:           "inv-stale",
			TripID:       testTripID,
			InviterID:    ownerID,
			InviteeEmail: "newbie@example.com",
			Role:         types.RoleViewer,
			Status:       types.InvitationStatusPending,
			SentAt:       past.Add(-defaultInvitationTTL),
			ExpiresAt:    &past,
		}
		require.NoError(t, s.CreateInvitation(context.Background(), stale))

		err := svc.Accept(identityCtx("user-newbie", "newbie@example.com"), "inv-stale")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.InvalidStateError))

		trip, err := s.GetTrip(context.Background(), testTripID)
		require.NoError(t, err)
		assert.Nil(t, trip.ActiveCollaborator("user-newbie"))
	})

	t.Run("unknown invitation", func(t *testing.T) {
		s := newTestStore(t)
		svc := NewInvitationService(s, nil, nil, "")

		err := svc.Accept(identityCtx("user-newbie", "newbie@example.com"), "inv-missing")
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.NotFoundError))
	})
}

func TestDecline(t *testing.T) {
	s := newTestStore(t)
	svc := NewInvitationService(s, nil, nil, "")

	inv, err := svc.Invite(identityCtx(ownerID, ownerEmail), testTripID, "newbie@example.com", types.RoleViewer, "")
	require.NoError(t, err)

	ctx := identityCtx("user-newbie", "newbie@example.com")
	require.NoError(t, svc.Decline(ctx, inv.ID))

	stored, err := s.GetInvitation(context.Background(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, types.InvitationStatusDeclined, stored.Status)
	require.NotNil(t, stored.RespondedAt)

	// Declined is terminal.
	err = svc.Accept(ctx, inv.ID)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.InvalidStateError))

	trip, err := s.GetTrip(context.Background(), testTripID)
	require.NoError(t, err)
	assert.Nil(t, trip.ActiveCollaborator("user-newbie"))
}

func TestListInvitations(t *testing.T) {
	s := newTestStore(t)
	svc := NewInvitationService(s, nil, nil, "")
	ownerCtx := identityCtx(ownerID, ownerEmail)

	_, err := svc.Invite(ownerCtx, testTripID, "a@example.com", types.RoleViewer, "")
	require.NoError(t, err)
	_, err = svc.Invite(ownerCtx, testTripID, "b@example.com", types.RoleEditor, "")
	require.NoError(t, err)

	list, err := svc.ListInvitations(ownerCtx, testTripID)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	_, err = svc.ListInvitations(identityCtx(editorID, editorEmail), testTripID)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ForbiddenError))
}
