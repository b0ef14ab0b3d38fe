package scanner

import (
	"errors"
	"fmt"

	"github.com/wolfeidau/kingfisher/internal/camera"
)

// ErrCameraAccess matches every CameraAccessError with errors.Is.
var ErrCameraAccess = errors.New("camera access denied")

// CameraAccessError is returned when no stream could be acquired for the
// requested facing, either because permission was refused or no matching
// device exists.
type CameraAccessError struct {
	Facing camera.Facing
	Err    error
}

func (e *CameraAccessError) Error() string {
	return fmt.Sprintf("could not access %s camera: %v", e.Facing, e.Err)
}

func (e *CameraAccessError) Unwrap() error {
	return e.Err
}

func (e *CameraAccessError) Is(target error) bool {
	return target == ErrCameraAccess
}
