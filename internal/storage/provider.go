package storage

import "slidecast/internal/ports"

// Store is the object-store contract used across API and worker. It is
// an alias to ports.ObjectStore to keep call-sites simple.
type Store = ports.ObjectStore
