package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Owner describes the daemon holding a profile lock, as recorded in the
// lock file.
type Owner struct {
	PID     int
	Profile string
	Started time.Time
}

// LockHeldError is returned when another process holds the profile lock.
type LockHeldError struct {
	Owner Owner
	Path  string
}

func (e *LockHeldError) Error() string {
	return fmt.Sprintf("profile %q is locked by PID %d (%s)", e.Owner.Profile, e.Owner.PID, e.Path)
}

// Lock is an acquired profile lock. The flock lives as long as the file
// stays open.
type Lock struct {
	file  *os.File
	path  string
	owner Owner
}

// Acquire takes the exclusive lock at path for profileName and records the
// calling process as owner. Returns *LockHeldError if another process
// already holds it.
func Acquire(path, profileName string) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create profile dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, &LockHeldError{Owner: readOwner(path), Path: path}
	}

	owner := Owner{
		PID:     os.Getpid(),
		Profile: profileName,
		Started: time.Now().UTC().Truncate(time.Second),
	}
	if err := writeOwner(f, owner); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("write lock file: %w", err)
	}

	return &Lock{file: f, path: path, owner: owner}, nil
}

// Owner returns what this lock recorded about the current process.
func (l *Lock) Owner() Owner {
	return l.owner
}

// Release releases the lock. Safe to call on nil receiver.
func (l *Lock) Release() error {
	if l == nil || l.file == nil {
		return nil
	}
	// Remove lock file before closing to avoid stale files.
	_ = os.Remove(l.path)
	err := l.file.Close()
	l.file = nil
	return err
}

// Holder reports whether some process currently holds the lock at path and,
// if so, who.
func Holder(path string) (Owner, bool) {
	f, err := os.OpenFile(path, os.O_RDWR, 0600)
	if err != nil {
		return Owner{}, false
	}
	defer func() { _ = f.Close() }()

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		return readOwner(path), true
	}
	_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	return Owner{}, false
}

func writeOwner(f *os.File, o Owner) error {
	if err := f.Truncate(0); err != nil {
		return err
	}
	if _, err := f.Seek(0, 0); err != nil {
		return err
	}
	_, err := fmt.Fprintf(f, "pid=%d\nprofile=%s\ntime=%s\n", o.PID, o.Profile, o.Started.Format(time.RFC3339))
	return err
}

func readOwner(path string) Owner {
	data, _ := os.ReadFile(path)
	return parseOwner(string(data))
}

// parseOwner reads key=value lines; unknown keys and bad values are
// skipped.
func parseOwner(content string) Owner {
	var o Owner
	for _, line := range strings.Split(content, "\n") {
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		switch key {
		case "pid":
			o.PID, _ = strconv.Atoi(value)
		case "profile":
			o.Profile = value
		case "time":
			o.Started, _ = time.Parse(time.RFC3339, value)
		}
	}
	return o
}
