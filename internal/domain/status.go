package domain

// CanonicalStatus is the fixed taxonomy raw tracker statuses are mapped
// into. The numeric order is the display order in a digest.
type CanonicalStatus int

const (
	StatusNew CanonicalStatus = iota
	StatusInProgress
	StatusInReview
	StatusDone
	StatusCancelled
)

// CanonicalStatuses lists every canonical status in display order.
var CanonicalStatuses = []CanonicalStatus{
	StatusNew,
	StatusInProgress,
	StatusInReview,
	StatusDone,
	StatusCancelled,
}

func (s CanonicalStatus) String() string {
	switch s {
	case StatusNew:
		return "New"
	case StatusInProgress:
		return "In Progress"
	case StatusInReview:
		return "In Review"
	case StatusDone:
		return "Done"
	case StatusCancelled:
		return "Cancelled"
	}
	return "New"
}

// ParseCanonicalStatus maps a classifier label back to a canonical status.
// Unrecognized labels degrade to StatusNew.
func ParseCanonicalStatus(label string) (CanonicalStatus, bool) {
	switch label {
	case "New":
		return StatusNew, true
	case "In Progress":
		return StatusInProgress, true
	case "In Review":
		return StatusInReview, true
	case "Done":
		return StatusDone, true
	case "Cancelled":
		return StatusCancelled, true
	}
	return StatusNew, false
}
