package scene

import "github.com/ajitpratap0/spawnpool/pkg/geom"

// Node is an object owned by a Scene. Its accessors are safe for concurrent
// use; mutation goes through the Scene.
type Node struct {
	scene *Scene

	id        uint64
	name      string
	position  geom.Vec3
	rotation  geom.Quat
	parent    *Node
	children  []*Node
	active    bool
	destroyed bool
	prototype bool
	tags      map[string]string
	source    *Node
}

// ID returns the scene-unique node id.
func (n *Node) ID() uint64 {
	return n.id
}

// Name returns the node name.
func (n *Node) Name() string {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	return n.name
}

// Position returns the node position.
func (n *Node) Position() geom.Vec3 {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	return n.position
}

// Rotation returns the node rotation.
func (n *Node) Rotation() geom.Quat {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	return n.rotation
}

// Parent returns the parent node, or nil.
func (n *Node) Parent() *Node {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	return n.parent
}

// Children returns a copy of the child list.
func (n *Node) Children() []*Node {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

// Active reports the node's own active flag.
func (n *Node) Active() bool {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	return n.active
}

// Destroyed reports whether the node has been destroyed.
func (n *Node) Destroyed() bool {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	return n.destroyed
}

// IsPrototype reports whether the node is a template created by NewPrototype.
func (n *Node) IsPrototype() bool {
	return n.prototype
}

// Source returns the prototype the node was cloned from.
func (n *Node) Source() *Node {
	return n.source
}

// Tag returns the value of a tag copied from the prototype.
func (n *Node) Tag(key string) (string, bool) {
	n.scene.mu.RLock()
	defer n.scene.mu.RUnlock()
	v, ok := n.tags[key]
	return v, ok
}

// detach removes n from its parent's child list. Caller holds the scene lock.
func (n *Node) detach() {
	p := n.parent
	if p == nil {
		return
	}
	for i, c := range p.children {
		if c == n {
			p.children = append(p.children[:i:i], p.children[i+1:]...)
			break
		}
	}
	n.parent = nil
}

// isDescendantOf reports whether n is root or below it. Caller holds the
// scene lock.
func (n *Node) isDescendantOf(root *Node) bool {
	for cur := n; cur != nil; cur = cur.parent {
		if cur == root {
			return true
		}
	}
	return false
}

// String implements fmt.Stringer for log output.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	return n.Name()
}
