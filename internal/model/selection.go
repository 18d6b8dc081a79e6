package model

// SelectionState is the guided two-step city/category selection. Free text
// is forwarded to the backend only once both fields are set.
type SelectionState struct {
	City      string
	EventType string
}

func (s SelectionState) Completed() bool {
	return s.City != "" && s.EventType != ""
}
