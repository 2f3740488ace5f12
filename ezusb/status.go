package ezusb

import "fmt"

// Status is the Win32 error code returned from a translated request.
type Status uint32

const (
	StatusSuccess          Status = 0  // ERROR_SUCCESS
	StatusGenFailure       Status = 31 // ERROR_GEN_FAILURE
	StatusInvalidParameter Status = 87 // ERROR_INVALID_PARAMETER
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusGenFailure:
		return "general-failure"
	case StatusInvalidParameter:
		return "invalid-parameter"
	default:
		return fmt.Sprintf("status(%d)", uint32(s))
	}
}

// OK reports whether s is StatusSuccess.
func (s Status) OK() bool { return s == StatusSuccess }

// Error makes a failed status usable as a Go error.
func (s Status) Error() string { return "ezusb: " + s.String() }
