package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrInvalidMode) {
//	    // handle validation failure
//	}
var (
	// ErrInvalidMode is returned when a security mode is not one of the
	// three recognized values.
	ErrInvalidMode = errors.New("device: invalid security mode")

	// ErrUnknownSystemType is returned when a serialized device carries
	// an unrecognized systemType discriminant.
	ErrUnknownSystemType = errors.New("device: unknown system type")

	// ErrInvalidVolume is returned when a car alarm volume is not one of
	// the three recognized levels.
	ErrInvalidVolume = errors.New("device: invalid alarm volume")
)
