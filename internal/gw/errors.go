package gw

import "errors"

// ErrInvalidBackup is returned by ImportData when the payload does not have
// the export shape. Nothing is written when it is returned.
var ErrInvalidBackup = errors.New("invalid backup format")
