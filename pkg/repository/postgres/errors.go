package postgres

import "github.com/secmon-lab/coachmem/pkg/domain/interfaces"

// ErrNotFound is returned when a row does not exist
var ErrNotFound = interfaces.ErrNotFound
