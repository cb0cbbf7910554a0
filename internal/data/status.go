package data

import "golang.org/x/exp/slices"

type RequestStatus string

const (
	StatusUnderReview RequestStatus = "UNDER_REVIEW"
	StatusApproved    RequestStatus = "APPROVED"
	StatusInProgress  RequestStatus = "IN_PROGRESS"
	StatusCompleted   RequestStatus = "COMPLETED"
	StatusRejected    RequestStatus = "REJECTED"
	StatusCancelled   RequestStatus = "CANCELLED"
)

func AllStatuses() []RequestStatus {
	return []RequestStatus{
		StatusUnderReview,
		StatusApproved,
		StatusInProgress,
		StatusCompleted,
		StatusRejected,
		StatusCancelled,
	}
}

func (s RequestStatus) Valid() bool {
	return slices.Contains(AllStatuses(), s)
}

func (s RequestStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether a manager may move a request from s to
// next. The pipeline only moves forward; REJECTED is only reachable
// during review. Cancellation is a submitter action and is checked
// separately with CanCancel.
func (s RequestStatus) CanTransition(next RequestStatus) bool {
	switch s {
	case StatusUnderReview:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved:
		return next == StatusInProgress
	case StatusInProgress:
		return next == StatusCompleted
	}
	return false
}

// CanCancel reports whether the submitting user may still cancel.
func (s RequestStatus) CanCancel() bool {
	return s == StatusUnderReview || s == StatusApproved
}
