package models

// ValidationError represents an invalid input supplied by a caller
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}
