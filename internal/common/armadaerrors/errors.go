// Package armadaerrors contains generic errors returned by resource queries.
// Callers look for the error types defined in this file with errors.As
// to decide how a failed query is reported.
//
// If multiple errors occur in some function (e.g., if several nodes of a snapshot are invalid), that
// function should return an error of type multierror.Error from package
// github.com/hashicorp/go-multierror that encapsulates those individual errors.
package armadaerrors

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrNoPermission represents an error that occurs when a principal tries to use a profile
// or reservation for which it does not have permissions.
type ErrNoPermission struct {
	// Principal that attempted the action
	Principal string
	// The missing permission
	Permission string
	// The attempted action
	Action string
	// Optional message included with the error message
	Message string
}

func (err *ErrNoPermission) Error() (s string) {
	if err.Action != "" {
		s = fmt.Sprintf("%s lacks permission %s required for action %s", err.Principal, err.Permission, err.Action)
	} else {
		s = fmt.Sprintf("%s lacks permission %s", err.Principal, err.Permission)
	}
	if err.Message != "" {
		s = s + fmt.Sprintf("; %s", err.Message)
	}
	return
}

// ErrAlreadyExists is a generic error to be returned whenever some resource already exists.
// Type and Message are optional and are omitted from the error message if not provided.
type ErrAlreadyExists struct {
	Type    string // Resource type, e.g., "profile" or "partition"
	Value   string // Resource name, e.g., "gpu-small"
	Message string // An optional message to include in the error message
}

func (err *ErrAlreadyExists) Error() (s string) {
	if err.Type != "" {
		s = fmt.Sprintf("resource %q of type %q already exists", err.Value, err.Type)
	} else {
		s = fmt.Sprintf("resource %q already exists", err.Value)
	}
	if err.Message != "" {
		return s + fmt.Sprintf("; %s", err.Message)
	} else {
		return s
	}
}

// ErrNotFound is a generic error to be returned whenever some resource isn't found.
// Type and Message are optional and are omitted from the error message if not provided.
//
// See ErrAlreadyExists for more info.
type ErrNotFound struct {
	Type    string
	Value   string
	Message string
}

func (err *ErrNotFound) Error() (s string) {
	if err.Type != "" {
		s = fmt.Sprintf("resource %q of type %q does not exist", err.Value, err.Type)
	} else {
		s = fmt.Sprintf("resource %q does not exist", err.Value)
	}
	if err.Message != "" {
		return s + fmt.Sprintf("; %s", err.Message)
	} else {
		return s
	}
}

// ErrInvalidArgument is a generic error to be returned on invalid argument.
// Message is optional and is omitted from the error message if not provided.
type ErrInvalidArgument struct {
	Name    string      // Name of the field referred to, e.g., "taskCount"
	Value   interface{} // The invalid value that was provided
	Message string      // An optional message to include with the error message, e.g., explaining why the value is invalid
}

func (err *ErrInvalidArgument) Error() string {
	if err.Message == "" {
		return fmt.Sprintf("value %v is invalid for field %q", err.Value, err.Name)
	} else {
		return fmt.Sprintf("value %v is invalid for field %q; %s", err.Value, err.Name, err.Message)
	}
}

// ErrResourcesUnavailable is returned when a query has been evaluated against every eligible
// partition and no range satisfying any request was found.
type ErrResourcesUnavailable struct {
	// Number of partitions that were searched
	PartitionsSearched int
	// Optional message included with the error message
	Message string
}

func (err *ErrResourcesUnavailable) Error() (s string) {
	s = fmt.Sprintf("resources not available (%d partitions searched)", err.PartitionsSearched)
	if err.Message != "" {
		s = s + fmt.Sprintf("; %s", err.Message)
	}
	return
}

// IsResourcesUnavailable returns true if any error in the chain of err is an ErrResourcesUnavailable.
func IsResourcesUnavailable(err error) bool {
	var e *ErrResourcesUnavailable
	return errors.As(err, &e)
}

// IsInvalidArgument returns true if any error in the chain of err is an ErrInvalidArgument.
func IsInvalidArgument(err error) bool {
	var e *ErrInvalidArgument
	return errors.As(err, &e)
}
