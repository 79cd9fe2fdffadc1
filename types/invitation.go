package types

import "time"

// InvitationStatus represents the status of a trip invitation.
type InvitationStatus string

const (
	InvitationStatusPending  InvitationStatus = "PENDING"
	InvitationStatusAccepted InvitationStatus = "ACCEPTED"
	InvitationStatusDeclined InvitationStatus = "DECLINED"
)

// IsTerminal reports whether the status permits no further transitions.
func (s InvitationStatus) IsTerminal() bool {
	return s == InvitationStatusAccepted || s == InvitationStatusDeclined
}

// TripInvitation invites a user, addressed by email, to join a trip with a
// requested permission level. pending -> accepted | declined, both terminal;
// an invitation is never revived.
type TripInvitation struct {
	ID           string           `json:"id"`
	TripID       string           `json:"tripId"`
	InviterID    string           `json:"inviterId"`
	InviteeEmail string           `json:"inviteeEmail"`
	InviteeID    *string          `json:"inviteeId,omitempty"` // resolved on acceptance
	Role         CollaboratorRole `json:"role"`                // EDITOR or VIEWER
	Status       InvitationStatus `json:"status"`
	Message      string           `json:"message,omitempty"`
	SentAt       time.Time        `json:"sentAt"`
	RespondedAt  *time.Time       `json:"respondedAt,omitempty"`
	ExpiresAt    *time.Time       `json:"expiresAt,omitempty"`
}

// IsExpired reports whether the invitation can no longer be accepted due to
// its optional expiry.
func (i *TripInvitation) IsExpired(now time.Time) bool {
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}
