package adapter

import "github.com/rotisserie/eris"

var (
	errMissingID     = eris.New("adapter: submission note has no id")
	errShapeMismatch = eris.New("adapter: note parses as the other API shape")
)
