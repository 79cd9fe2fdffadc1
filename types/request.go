package types

import "time"

// RequestStatus is shared by permission requests and activity edit requests.
// pending -> approved | rejected, both terminal.
type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "PENDING"
	RequestStatusApproved RequestStatus = "APPROVED"
	RequestStatusRejected RequestStatus = "REJECTED"
)

// IsTerminal reports whether the status permits no further transitions.
func (s RequestStatus) IsTerminal() bool {
	return s == RequestStatusApproved || s == RequestStatusRejected
}

// RequestDecision is the owner's verdict when resolving a request.
type RequestDecision string

const (
	DecisionApproved RequestDecision = "APPROVED"
	DecisionRejected RequestDecision = "REJECTED"
)

// EditRequest asks the trip owner to promote the requesting viewer to
// editor. Terminal once resolved.
type EditRequest struct {
	ID              string        `json:"id"`
	TripID          string        `json:"tripId"`
	RequesterID     string        `json:"requesterId"`
	RequesterEmail  string        `json:"requesterEmail,omitempty"`
	OwnerID         string        `json:"ownerId"`
	Status          RequestStatus `json:"status"`
	Message         string        `json:"message,omitempty"`
	RequestedAt     time.Time     `json:"requestedAt"`
	RespondedAt     *time.Time    `json:"respondedAt,omitempty"`
	RespondedBy     *string       `json:"respondedBy,omitempty"`
	ResponseMessage *string       `json:"responseMessage,omitempty"`
}

// ActivityRequestType identifies the kind of activity mutation proposed.
type ActivityRequestType string

const (
	RequestTypeAddActivity    ActivityRequestType = "ADD_ACTIVITY"
	RequestTypeEditActivity   ActivityRequestType = "EDIT_ACTIVITY"
	RequestTypeDeleteActivity ActivityRequestType = "DELETE_ACTIVITY"
)

// IsValid checks if the request type is known.
func (t ActivityRequestType) IsValid() bool {
	switch t {
	case RequestTypeAddActivity, RequestTypeEditActivity, RequestTypeDeleteActivity:
		return true
	default:
		return false
	}
}

// RequiresActivityID reports whether the request type targets an existing
// activity. Only add-activity requests carry no target.
func (t ActivityRequestType) RequiresActivityID() bool {
	return t == RequestTypeEditActivity || t == RequestTypeDeleteActivity
}

// ActivityEditRequest is a non-owner's proposed add/edit/delete of an
// activity, awaiting owner approval. Terminal once resolved; an approved
// change is applied to the canonical activity list exactly once.
type ActivityEditRequest struct {
	ID              string              `json:"id"`
	TripID          string              `json:"tripId"`
	RequesterID     string              `json:"requesterId"`
	OwnerID         string              `json:"ownerId"`
	RequestType     ActivityRequestType `json:"requestType"`
	ActivityID      *string             `json:"activityId,omitempty"` // absent only for add
	Changes         ActivityChange      `json:"changes"`
	Status          RequestStatus       `json:"status"`
	Message         string              `json:"message,omitempty"`
	RequestedAt     time.Time           `json:"requestedAt"`
	RespondedAt     *time.Time          `json:"respondedAt,omitempty"`
	RespondedBy     *string             `json:"respondedBy,omitempty"`
	ResponseMessage *string             `json:"responseMessage,omitempty"`
}
