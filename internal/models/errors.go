package models

import "errors"

// ErrNotFound reports a lookup of a vehicle, driver, event or record that
// does not exist. Distinct from configuration errors.
var ErrNotFound = errors.New("not found")
