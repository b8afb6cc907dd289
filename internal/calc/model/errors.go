package model

import "fmt"

// ErrorKind classifies a malformed structure.
type ErrorKind string

const (
	DanglingJoint    ErrorKind = "dangling joint reference"
	SelfMember       ErrorKind = "member joins a joint to itself"
	ZeroLength       ErrorKind = "zero-length member"
	DuplicateMember  ErrorKind = "duplicate member"
	DuplicateJoint   ErrorKind = "duplicate joint"
	UnknownSupport   ErrorKind = "unknown support type"
	UnknownStock     ErrorKind = "unknown stock"
	MissingDeckJoint ErrorKind = "missing deck joint"
	TooLarge         ErrorKind = "structure too large"
)

// ModelError reports a structure that cannot be analyzed. It is never
// repaired silently.
type ModelError struct {
	Kind   ErrorKind
	Member int // member ID, 0 when not applicable
	Joint  int // joint ID, 0 when not applicable
	Detail string
}

func (e *ModelError) Error() string {
	msg := "model: " + string(e.Kind)
	if e.Member != 0 {
		msg += fmt.Sprintf(" (member %d)", e.Member)
	}
	if e.Joint != 0 {
		msg += fmt.Sprintf(" (joint %d)", e.Joint)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}
