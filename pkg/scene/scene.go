// Package scene is an in-memory object system that can host recycle pools.
// It owns nodes with a name, a placement, an optional parent and an active
// flag, and lets any party destroy them at any time, which is exactly the
// situation the pool's stale-handle handling exists for.
package scene

import (
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/ajitpratap0/spawnpool/pkg/errors"
	"github.com/ajitpratap0/spawnpool/pkg/events"
	"github.com/ajitpratap0/spawnpool/pkg/geom"
)

var (
	// ErrNilPrototype is returned when asked to instantiate a nil prototype.
	ErrNilPrototype = errors.Sentinel(errors.ErrorTypeValidation, "prototype is nil")
	// ErrDestroyed is returned when instantiating a destroyed prototype.
	ErrDestroyed = errors.Sentinel(errors.ErrorTypeDestroyed, "prototype destroyed")
	// ErrSceneClosed is returned by CreateInstance after Close.
	ErrSceneClosed = errors.Sentinel(errors.ErrorTypeDestroyed, "scene closed")
	// ErrCapacity is returned when the scene already holds MaxNodes live nodes.
	ErrCapacity = errors.Sentinel(errors.ErrorTypeCapacity, "scene node limit reached")
)

// Scene owns a set of live nodes. It is safe for concurrent use.
type Scene struct {
	name     string
	maxNodes int
	logger   *zap.Logger

	mu     sync.RWMutex
	nodes  map[uint64]*Node
	nextID uint64
	closed bool

	destroyed *events.Bus[*Node]
}

// Option configures a Scene.
type Option func(*Scene)

// WithMaxNodes limits the number of live instances. Zero means unlimited.
func WithMaxNodes(n int) Option {
	return func(s *Scene) {
		if n < 0 {
			n = 0
		}
		s.maxNodes = n
	}
}

// WithLogger sets the scene logger.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Scene) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates an empty scene.
func New(name string, opts ...Option) *Scene {
	s := &Scene{
		name:      name,
		logger:    zap.NewNop(),
		nodes:     make(map[uint64]*Node),
		destroyed: events.NewBus[*Node](),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("scene", name))
	return s
}

// OnDestroy registers fn to be called with every node destroyed from now on.
// fn runs after the scene lock is released and may call back into the scene.
func (s *Scene) OnDestroy(fn func(*Node)) *events.Subscription {
	return s.destroyed.Subscribe(fn)
}

// NewPrototype creates a detached, inactive template node. Prototypes do not
// count as live nodes and are never returned by Live.
func (s *Scene) NewPrototype(name string, tags map[string]string) *Node {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return &Node{
		scene:     s,
		id:        s.nextID,
		name:      name,
		rotation:  geom.Identity(),
		tags:      copyTags(tags),
		prototype: true,
	}
}

// CreateInstance clones prototype at the given placement. The clone is active,
// has no parent and is named "<prototype> (Clone)" until renamed.
func (s *Scene) CreateInstance(prototype *Node, position geom.Vec3, rotation geom.Quat) (*Node, error) {
	if prototype == nil {
		return nil, ErrNilPrototype
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, fmt.Errorf("instantiate %q: %w", prototype.name, ErrSceneClosed)
	}
	if prototype.destroyed {
		return nil, fmt.Errorf("instantiate %q: %w", prototype.name, ErrDestroyed)
	}
	if s.maxNodes > 0 && len(s.nodes) >= s.maxNodes {
		return nil, fmt.Errorf("instantiate %q: %w (%d)", prototype.name, ErrCapacity, s.maxNodes)
	}

	s.nextID++
	n := &Node{
		scene:    s,
		id:       s.nextID,
		name:     prototype.name + " (Clone)",
		position: position,
		rotation: rotation,
		active:   true,
		tags:     copyTags(prototype.tags),
		source:   prototype,
	}
	s.nodes[n.id] = n
	return n, nil
}

// SetActive toggles n. Invalid nodes are ignored.
func (s *Scene) SetActive(n *Node, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live(n) {
		return
	}
	n.active = active
}

// SetTransform places n and re-parents it under parent (nil detaches). A
// parent that is invalid or would create a cycle leaves n detached.
func (s *Scene) SetTransform(n *Node, position geom.Vec3, rotation geom.Quat, parent *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.live(n) {
		return
	}
	n.position = position
	n.rotation = rotation

	if n.parent == parent {
		return
	}
	n.detach()
	if parent == nil {
		return
	}
	if !s.live(parent) || parent.isDescendantOf(n) {
		s.logger.Warn("refusing parent",
			zap.String("node", n.name),
			zap.String("parent", parent.name))
		return
	}
	n.parent = parent
	parent.children = append(parent.children, n)
}

// IsValid reports whether n is a live, non-destroyed node or prototype.
func (s *Scene) IsValid(n *Node) bool {
	if n == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return !n.destroyed && n.scene == s
}

// Name returns the node's name, or "" for nil.
func (s *Scene) Name(n *Node) string {
	if n == nil {
		return ""
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return n.name
}

// SetName renames n.
func (s *Scene) SetName(n *Node, name string) {
	if n == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	n.name = name
}

// Destroy destroys n and all of its descendants. Destroying an already
// destroyed node does nothing.
func (s *Scene) Destroy(n *Node) {
	if n == nil {
		return
	}
	s.mu.Lock()
	if n.destroyed || n.scene != s {
		s.mu.Unlock()
		return
	}
	n.detach()
	gone := s.destroyTree(n, nil)
	s.mu.Unlock()

	s.notify(gone)
}

// DestroyAll destroys every live node, the way a scene change would.
// Prototypes survive.
func (s *Scene) DestroyAll() int {
	s.mu.Lock()
	var gone []*Node
	for _, n := range s.sortedLive() {
		if n.destroyed {
			continue
		}
		n.detach()
		gone = s.destroyTree(n, gone)
	}
	s.mu.Unlock()

	s.notify(gone)
	if len(gone) > 0 {
		s.logger.Debug("destroyed all nodes", zap.Int("count", len(gone)))
	}
	return len(gone)
}

// Close destroys every node and rejects further instantiation.
func (s *Scene) Close() error {
	s.DestroyAll()
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	s.destroyed.Close()
	return nil
}

// Len returns the number of live nodes.
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Live returns the live nodes ordered by creation.
func (s *Scene) Live() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedLive()
}

// Inactive returns the live nodes whose active flag is off, ordered by
// creation.
func (s *Scene) Inactive() []*Node {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Node
	for _, n := range s.sortedLive() {
		if !n.active {
			out = append(out, n)
		}
	}
	return out
}

// Find returns the first live node, in creation order, with the given name.
func (s *Scene) Find(name string) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.sortedLive() {
		if n.name == name {
			return n, true
		}
	}
	return nil, false
}

func (s *Scene) live(n *Node) bool {
	return n != nil && !n.destroyed && n.scene == s
}

func (s *Scene) sortedLive() []*Node {
	out := make([]*Node, 0, len(s.nodes))
	for _, n := range s.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].id < out[j].id })
	return out
}

// destroyTree marks n and its subtree destroyed. Caller holds s.mu.
func (s *Scene) destroyTree(n *Node, gone []*Node) []*Node {
	for _, c := range n.children {
		c.parent = nil
		gone = s.destroyTree(c, gone)
	}
	n.children = nil
	n.destroyed = true
	n.active = false
	delete(s.nodes, n.id)
	return append(gone, n)
}

func (s *Scene) notify(gone []*Node) {
	for _, n := range gone {
		s.destroyed.Publish(n)
	}
}

func copyTags(tags map[string]string) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	out := make(map[string]string, len(tags))
	for k, v := range tags {
		out[k] = v
	}
	return out
}
