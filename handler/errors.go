package handler

import "errors"

// ErrHandlerDecode is logged, never returned, when a ChangeEvent's row
// data cannot be deserialized into T.
var ErrHandlerDecode = errors.New("handler: failed to decode row data")
