package surface

import (
	"errors"
	"fmt"
)

// ErrPanic marks errors recovered from a panic inside the render pass or a
// device update.
var ErrPanic = errors.New("panic")

// GroupError reports a group that failed to render. The rest of the frame
// was rendered.
type GroupError struct {
	Group string
	Err   error
}

func (e *GroupError) Error() string { return fmt.Sprintf("render group %q: %v", e.Group, e.Err) }
func (e *GroupError) Unwrap() error { return e.Err }

// DeviceError reports a device whose update failed.
type DeviceError struct {
	Device string
	Err    error
}

func (e *DeviceError) Error() string { return fmt.Sprintf("update device %q: %v", e.Device, e.Err) }
func (e *DeviceError) Unwrap() error { return e.Err }

func recovered(r any) error {
	if err, ok := r.(error); ok {
		return fmt.Errorf("%w: %w", ErrPanic, err)
	}
	return fmt.Errorf("%w: %v", ErrPanic, r)
}
