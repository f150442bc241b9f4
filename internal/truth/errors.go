package truth

import "fmt"

// DataCorruptionError reports truth data that failed to parse or validate.
// A load that fails this way leaves any previously built index in service.
type DataCorruptionError struct {
	// Family is the truth-data family that failed to load.
	Family string
	// Err is the underlying parse or validation failure.
	Err error
}

// Error implements the error interface.
func (e *DataCorruptionError) Error() string {
	return fmt.Sprintf("truth data for family %q is corrupt: %v", e.Family, e.Err)
}

// Unwrap returns the underlying failure.
func (e *DataCorruptionError) Unwrap() error {
	return e.Err
}
