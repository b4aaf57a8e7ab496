package memory

import "github.com/secmon-lab/coachmem/pkg/domain/interfaces"

// ErrNotFound is returned when an entity does not exist
var ErrNotFound = interfaces.ErrNotFound
