package simulation

import "errors"

// ErrInsufficientData is returned when no asset produced any price data for the event window.
// It is a user-facing condition and must not be retried.
var ErrInsufficientData = errors.New("insufficient market data for simulation")
