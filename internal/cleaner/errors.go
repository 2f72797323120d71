package cleaner

import (
	"errors"
	"fmt"
	"os"

	"github.com/alibenameur/dupfinder/internal/trash"
)

// ErrorReason categorizes why a deletion failed.
type ErrorReason int

const (
	ErrorPermissionDenied ErrorReason = iota
	ErrorFileNotFound
	ErrorTrashUnavailable
	ErrorInvalidPath
	ErrorUnknown
)

// String returns a human-readable error reason.
func (e ErrorReason) String() string {
	switch e {
	case ErrorPermissionDenied:
		return "Permission denied"
	case ErrorFileNotFound:
		return "File not found"
	case ErrorTrashUnavailable:
		return "Trash unavailable"
	case ErrorInvalidPath:
		return "Invalid path"
	default:
		return "Unknown error"
	}
}

// DeletionError records one failed deletion: which file, why, and the
// underlying cause. Failures are per-file and never abort the run.
type DeletionError struct {
	Path     string
	Reason   ErrorReason
	Original error
}

// Error implements the error interface.
func (e *DeletionError) Error() string {
	return fmt.Sprintf("%s: %s (%v)", e.Path, e.Reason, e.Original)
}

func (e *DeletionError) Unwrap() error {
	return e.Original
}

// UserMessage returns a user-friendly description of the failure.
func (e *DeletionError) UserMessage() string {
	switch e.Reason {
	case ErrorPermissionDenied:
		return fmt.Sprintf("Permission denied: %s", e.Path)
	case ErrorFileNotFound:
		return fmt.Sprintf("Already gone: %s", e.Path)
	case ErrorTrashUnavailable:
		return fmt.Sprintf("No trash facility and permanent deletion disabled: %s", e.Path)
	case ErrorInvalidPath:
		return fmt.Sprintf("Not a deletable file: %s", e.Path)
	default:
		return fmt.Sprintf("Error deleting %s: %v", e.Path, e.Original)
	}
}

// CategorizeError wraps a deletion failure with its reason.
func CategorizeError(path string, err error) *DeletionError {
	if err == nil {
		return nil
	}

	delErr := &DeletionError{Path: path, Original: err, Reason: ErrorUnknown}

	switch {
	case os.IsNotExist(err):
		delErr.Reason = ErrorFileNotFound
	case os.IsPermission(err):
		delErr.Reason = ErrorPermissionDenied
	case errors.Is(err, trash.ErrTrashUnavailable):
		delErr.Reason = ErrorTrashUnavailable
	case errors.Is(err, trash.ErrNotRegular):
		delErr.Reason = ErrorInvalidPath
	}
	return delErr
}

// GroupErrors groups deletion errors by reason.
func GroupErrors(errs []*DeletionError) map[ErrorReason][]*DeletionError {
	grouped := make(map[ErrorReason][]*DeletionError)
	for _, err := range errs {
		grouped[err.Reason] = append(grouped[err.Reason], err)
	}
	return grouped
}

// FormatErrorSummary creates a user-friendly summary of deletion errors.
func FormatErrorSummary(errs []*DeletionError) string {
	if len(errs) == 0 {
		return ""
	}

	grouped := GroupErrors(errs)
	summary := "Issues encountered:\n"

	if perms, ok := grouped[ErrorPermissionDenied]; ok {
		summary += fmt.Sprintf("  permission denied: %d file(s)\n", len(perms))
	}
	if gone, ok := grouped[ErrorFileNotFound]; ok {
		summary += fmt.Sprintf("  already deleted: %d file(s)\n", len(gone))
	}
	if noTrash, ok := grouped[ErrorTrashUnavailable]; ok {
		summary += fmt.Sprintf("  trash unavailable: %d file(s) (permanent deletion is disabled)\n", len(noTrash))
	}
	if invalid, ok := grouped[ErrorInvalidPath]; ok {
		summary += fmt.Sprintf("  not deletable: %d file(s)\n", len(invalid))
	}
	if unknown, ok := grouped[ErrorUnknown]; ok {
		summary += fmt.Sprintf("  other errors: %d file(s)\n", len(unknown))
	}
	return summary
}
