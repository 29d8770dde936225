package matching

// Status is the outcome of an order request. Matching never returns errors;
// rejections are reported through these codes.
type Status int

const (
	OK Status = iota
	EmptyOrder
	InvalidOrder
	InvalidSize
	DuplicateOrder
	UnknownOrder
	AlreadyCancelled
	AlreadyFilled
)

var statusNames = map[Status]string{
	OK:               "OK",
	EmptyOrder:       "EMPTY_ORDER",
	InvalidOrder:     "INVALID_ORDER",
	InvalidSize:      "INVALID_SIZE",
	DuplicateOrder:   "DUPLICATE_ORDER",
	UnknownOrder:     "UNKNOWN_ORDER",
	AlreadyCancelled: "ALREADY_CANCELLED",
	AlreadyFilled:    "ALREADY_FILLED",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "UNKNOWN_STATUS"
}
