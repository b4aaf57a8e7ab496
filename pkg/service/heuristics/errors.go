package heuristics

import "github.com/m-mizutani/goerr/v2"

var (
	ErrInvalidTable = goerr.New("invalid heuristics table")
)
