package scene

import "github.com/ajitpratap0/spawnpool/pkg/pool"

// Scene is the object system behind node pools.
var _ pool.Host[*Node] = (*Scene)(nil)
