package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

// ErrNotFound is what every store returns for a missing row, so callers can
// check one error regardless of driver.
var ErrNotFound = pgx.ErrNoRows

// ErrVersionConflict means the order changed since it was read.
var ErrVersionConflict = errors.New("order was modified concurrently")
