package repositories

import "errors"

// ErrNotFound reports a lookup for a row that does not exist. Callers match
// it with errors.Is to separate missing records from storage failures.
var ErrNotFound = errors.New("record not found")
