package storage

import "errors"

// ErrClientNotFound indicates a write referenced a client id that does
// not exist. Creating a tax return requires an existing parent client.
var ErrClientNotFound = errors.New("referenced client does not exist")
