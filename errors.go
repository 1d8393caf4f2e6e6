package psproc

import (
	"fmt"
	"syscall"

	"github.com/pkg/errors"
)

// The failure categories returned by this package. Use errors.Is to match them; process-scoped failures are
// returned as a *ProcessError wrapping one of these.
var (
	ErrProcessGone     = errors.New("process no longer exists")
	ErrAccessDenied    = errors.New("access denied")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnsupported     = errors.New("not supported by this kernel")
	ErrMalformed       = errors.New("malformed kernel output")
)

// A ProcessError records a failure to read some piece of state belonging to a particular process.
type ProcessError struct {
	Pid  int
	Name string // may be empty if the name was never read
	Err  error
}

func (e *ProcessError) Error() string {
	if e.Name == "" {
		return fmt.Sprintf("%s (pid=%d)", e.Err, e.Pid)
	}
	return fmt.Sprintf("%s (pid=%d, name=%q)", e.Err, e.Pid, e.Name)
}

func (e *ProcessError) Unwrap() error { return e.Err }

// isGone reports whether err is the kernel telling us that a /proc entry (and so, usually, the process) is
// gone. ENOENT comes from open; ESRCH can come from read if the process exits in between.
func isGone(err error) bool {
	return errors.Is(err, syscall.ENOENT) || errors.Is(err, syscall.ESRCH)
}

func isPermission(err error) bool {
	return errors.Is(err, syscall.EPERM) || errors.Is(err, syscall.EACCES)
}

// translate maps a low-level failure to ErrProcessGone or ErrAccessDenied. Anything else (including errors
// that were already translated) is returned unchanged.
func (p *Process) translate(err error) error {
	if err == nil {
		return nil
	}
	var perr *ProcessError
	if errors.As(err, &perr) {
		return err
	}
	switch {
	case isGone(err):
		return &ProcessError{Pid: p.Pid, Name: p.cachedName(), Err: ErrProcessGone}
	case isPermission(err):
		return &ProcessError{Pid: p.Pid, Name: p.cachedName(), Err: ErrAccessDenied}
	}
	return err
}

// wrap is deferred by every accessor that touches a pseudo-file or makes a syscall on behalf of p:
//
//	func (p *Process) Foo() (_ Foo, err error) {
//		defer p.wrap(&err)
//		...
//	}
func (p *Process) wrap(errp *error) {
	*errp = p.translate(*errp)
}

func invalidArgf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidArgument, format, args...)
}

func malformedf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrMalformed, format, args...)
}

func unsupportedf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrUnsupported, format, args...)
}
