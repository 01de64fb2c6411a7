// Package pool implements a recycle pool for expensive, externally owned
// objects such as scene nodes, sprites or connection handles.
//
// # Architecture
//
// A RecyclePool keeps deactivated instances of one prototype on a LIFO idle
// store. Acquire pops the most recently released instance (the one most
// likely to still be warm) or, when the store is empty, asks the host to
// create a new one. Release deactivates the instance and pushes it back.
//
// The pool never creates, destroys, moves or toggles objects itself. Those
// operations belong to a Host, which bundles four capabilities:
//
//   - Factory: create a new instance from the prototype at a placement
//   - Activation: toggle the active flag and set position, rotation and parent
//   - Validator: report whether a handle still refers to a live object
//   - Namer: read and assign diagnostic names
//
// # Stale Handles
//
// Objects sitting in the idle store can be destroyed by someone else (a scene
// change, a cleanup pass). The pool checks Validator.IsValid on every popped
// handle and silently drops dead ones, moving on to the next idle entry or to
// creation. A destroyed idle object never surfaces as an error to the caller.
//
// # Usage
//
//	p := pool.New(bulletPrototype, scene, pool.WithReserve(16))
//
//	b, err := p.Acquire(muzzle, aim, nil)
//	if err != nil {
//		return err // factory errors are returned unchanged
//	}
//	...
//	p.Release(b)
//
// For many prototypes, a Set creates one pool per prototype on demand and
// routes released handles back to the pool that created them.
//
// # Concurrency
//
// RecyclePool and Set are not safe for concurrent use. They are meant to be
// driven from a single goroutine, typically a frame or tick loop.
package pool
