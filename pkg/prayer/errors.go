package prayer

import "errors"

var (
	ErrInvalidCoordinates        = errors.New("invalid coordinates")
	ErrIncompleteOffsets         = errors.New("incomplete offset map")
	ErrUnknownPrayer             = errors.New("unknown prayer")
	ErrUnknownJuristicMethod     = errors.New("unknown juristic method")
	ErrUnknownCalculationMethod  = errors.New("unknown calculation method")
	ErrUnresolvableSolarPosition = errors.New("sun does not reach the required altitude")
)
