package om

import "errors"

var (
	// ErrInvalidDataType is returned when a scalar accessor is used on a
	// non-scalar layout or on a data type without a fixed-width value.
	ErrInvalidDataType = errors.New("invalid data type")

	// ErrInvalidFormat is returned when container framing bytes do not
	// describe an OM file.
	ErrInvalidFormat = errors.New("invalid om file format")
)
