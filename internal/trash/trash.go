// Package trash implements reversible file deletion: files are moved
// into the platform trash location so the user can recover them, with
// an explicit, observable fallback to permanent removal when no trash
// facility exists.
package trash

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"time"
)

// Method says how a file was actually deleted. Callers must surface
// MethodPermanent distinctly, since it changes the recoverability
// guarantee.
type Method int

const (
	MethodNone Method = iota
	MethodTrash
	MethodPermanent
)

func (m Method) String() string {
	switch m {
	case MethodTrash:
		return "trash"
	case MethodPermanent:
		return "permanent"
	default:
		return "none"
	}
}

// ErrTrashUnavailable is returned when no trash facility exists and
// permanent deletion is not allowed.
var ErrTrashUnavailable = errors.New("trash facility unavailable")

// ErrNotRegular is returned when the path is a directory, symlink, or
// other non-regular entry.
var ErrNotRegular = errors.New("not a regular file")

// Trash moves files into a recoverable location.
type Trash struct {
	dir            string // override; empty means resolve per platform
	allowPermanent bool
	now            func() time.Time
}

// Option customizes a Trash.
type Option func(*Trash)

// WithDirectory forces a specific trash directory instead of the
// platform default. Used by tests and the XDG override.
func WithDirectory(dir string) Option {
	return func(t *Trash) { t.dir = dir }
}

// AllowPermanent controls whether Move may fall back to permanent
// removal when the trash facility is unavailable.
func AllowPermanent(on bool) Option {
	return func(t *Trash) { t.allowPermanent = on }
}

// New creates a Trash. Permanent fallback defaults to on, matching the
// historical behavior; callers disable it with AllowPermanent(false).
func New(opts ...Option) *Trash {
	t := &Trash{allowPermanent: true, now: time.Now}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Move deletes path reversibly. It tries the trash location first and
// only falls back to os.Remove when that fails and permanent deletion
// is allowed; the returned Method records which happened. Only regular
// files are accepted.
func (t *Trash) Move(path string) (Method, error) {
	info, err := os.Lstat(path)
	if err != nil {
		return MethodNone, err
	}
	if !info.Mode().IsRegular() {
		return MethodNone, fmt.Errorf("%w: %s", ErrNotRegular, path)
	}

	filesDir, infoDir, err := t.resolveDirs()
	if err != nil {
		return t.fallback(path, err)
	}

	dest := uniqueDest(filesDir, filepath.Base(path))
	if err := os.Rename(path, dest); err != nil {
		// Cross-device roots land here too; moving the content through
		// a copy would break the "no partial states" expectation, so
		// treat it the same as a missing facility.
		return t.fallback(path, err)
	}

	if infoDir != "" {
		t.writeTrashInfo(infoDir, filepath.Base(dest), path)
	}
	return MethodTrash, nil
}

// fallback performs the permanent-removal degradation, or refuses when
// the caller opted out of it.
func (t *Trash) fallback(path string, cause error) (Method, error) {
	if !t.allowPermanent {
		return MethodNone, fmt.Errorf("%w: %v", ErrTrashUnavailable, cause)
	}
	if err := os.Remove(path); err != nil {
		return MethodNone, err
	}
	return MethodPermanent, nil
}

// resolveDirs returns the trash files directory and, for XDG layouts,
// the sibling info directory.
func (t *Trash) resolveDirs() (filesDir, infoDir string, err error) {
	if t.dir != "" {
		if err := os.MkdirAll(t.dir, 0700); err != nil {
			return "", "", err
		}
		return t.dir, "", nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", "", err
	}

	switch runtime.GOOS {
	case "darwin":
		dir := filepath.Join(home, ".Trash")
		if _, err := os.Stat(dir); err != nil {
			return "", "", err
		}
		return dir, "", nil
	case "windows":
		// There is no per-user recycle directory that can be written
		// directly; shell integration is out of reach here, so report
		// the facility as unavailable and let the caller decide.
		return "", "", ErrTrashUnavailable
	default:
		dataHome := os.Getenv("XDG_DATA_HOME")
		if dataHome == "" {
			dataHome = filepath.Join(home, ".local", "share")
		}
		filesDir = filepath.Join(dataHome, "Trash", "files")
		infoDir = filepath.Join(dataHome, "Trash", "info")
		if err := os.MkdirAll(filesDir, 0700); err != nil {
			return "", "", err
		}
		if err := os.MkdirAll(infoDir, 0700); err != nil {
			return "", "", err
		}
		return filesDir, infoDir, nil
	}
}

// writeTrashInfo records the original location per the XDG trash spec
// so desktop environments can restore the file. Best effort: a failure
// here does not undo the move.
func (t *Trash) writeTrashInfo(infoDir, trashedName, originalPath string) {
	// The spec wants each path segment percent-encoded with separators
	// kept literal; escaping the whole string would turn "/" into "%2F"
	// and leave restore tools with a nonsense location.
	escaped := (&url.URL{Path: originalPath}).EscapedPath()
	content := fmt.Sprintf("[Trash Info]\nPath=%s\nDeletionDate=%s\n",
		escaped, t.now().Format("2006-01-02T15:04:05"))
	_ = os.WriteFile(filepath.Join(infoDir, trashedName+".trashinfo"), []byte(content), 0600)
}

// uniqueDest picks a destination name that does not collide with
// anything already in the trash.
func uniqueDest(dir, base string) string {
	dest := filepath.Join(dir, base)
	for n := 2; ; n++ {
		if _, err := os.Lstat(dest); os.IsNotExist(err) {
			return dest
		}
		dest = filepath.Join(dir, base+"."+strconv.Itoa(n))
	}
}
