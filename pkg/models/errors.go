package models

import "errors"

// ErrInvalidProcess indicates a process identity that is missing its service or
// function, or whose function contains a dot.
var ErrInvalidProcess = errors.New("invalid process")
