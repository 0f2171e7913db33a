package chain

import (
	"container/heap"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/soccer-proxy/pkg/field"
)

// Default search limits.
const (
	DefaultMaxDepth = 4
	DefaultMaxNodes = 500
)

// Params selects generators and bounds the search.
type Params struct {
	MaxDepth      int
	MaxNodes      int
	DirectPass    bool
	LeadPass      bool
	ThroughPass   bool
	Cross         bool
	ShortDribble  bool
	LongDribble   bool
	SimplePass    bool
	SimpleDribble bool
	SimpleShoot   bool
}

// DefaultParams is the generator set used when no planner action configures
// one: strict passes, cross and dribbles at the first layer, shoot below it.
func DefaultParams() Params {
	return Params{
		MaxDepth:     DefaultMaxDepth,
		MaxNodes:     DefaultMaxNodes,
		DirectPass:   true,
		LeadPass:     true,
		ThroughPass:  true,
		Cross:        true,
		ShortDribble: true,
		LongDribble:  true,
		SimpleShoot:  true,
	}
}

func (p Params) normalized() Params {
	if p.MaxDepth <= 0 {
		p.MaxDepth = DefaultMaxDepth
	}
	if p.MaxNodes <= 0 {
		p.MaxNodes = DefaultMaxNodes
	}
	return p
}

// Predictor computes the state that follows an action.
type Predictor interface {
	Predict(w *field.World, parent State, a Action) (State, bool)
}

// Evaluator scores a predicted state reached through path. path[0] is the
// first-layer node and the last element is the node being scored; an empty
// path scores the current state.
type Evaluator interface {
	Evaluate(w *field.World, s State, path []*Node) float64
}

// Builder enumerates graphs. One Builder belongs to one agent; its index
// counter keeps node indices unique across that agent's cycles.
type Builder struct {
	registry  []Registration
	predictor Predictor
	next      atomic.Int64
	log       zerolog.Logger
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithRegistry replaces the default generator set.
func WithRegistry(r []Registration) BuilderOption {
	return func(b *Builder) { b.registry = r }
}

// WithLogger sets the builder's logger.
func WithLogger(l zerolog.Logger) BuilderOption {
	return func(b *Builder) { b.log = l }
}

// NewBuilder creates a Builder.
func NewBuilder(p Predictor, opts ...BuilderOption) *Builder {
	b := &Builder{registry: DefaultRegistry(), predictor: p, log: log.Logger}
	for _, o := range opts {
		o(b)
	}
	return b
}

func (b *Builder) nextIndex() int { return int(b.next.Add(1)) }

// Build enumerates the graph for w. First-layer generators run
// concurrently; deeper layers expand best-first until the node budget or
// depth limit is reached.
func (b *Builder) Build(w *field.World, params Params, eval Evaluator) *Graph {
	params = params.normalized()
	root := RootState(w)
	g := newGraph(root, params)
	g.rootEval = eval.Evaluate(w, root, nil)
	if root.BallHolder == 0 {
		return g
	}

	active := make([]Registration, 0, len(b.registry))
	for _, r := range b.registry {
		if r.Enabled == nil || r.Enabled(params) {
			active = append(active, r)
		}
	}

	first := make([][]*Node, len(active))
	var wg sync.WaitGroup
	for i, r := range active {
		if !r.allows(1) {
			continue
		}
		wg.Add(1)
		go func(i int, r Registration) {
			defer wg.Done()
			first[i] = b.expand(w, r, root, nil, params, eval)
		}(i, r)
	}
	wg.Wait()

	frontier := &nodeHeap{}
	for _, cands := range first {
		for _, n := range cands {
			if !g.add(b, n) {
				break
			}
			if expandable(n, params) {
				heap.Push(frontier, n)
			}
		}
	}

	for frontier.Len() > 0 && len(g.nodes) < params.MaxNodes {
		parent := heap.Pop(frontier).(*Node)
		path := g.pathTo(parent)
		for _, r := range active {
			if !r.allows(parent.Depth + 1) {
				continue
			}
			for _, n := range b.expand(w, r, parent.State, path, params, eval) {
				n.Parent = parent.Index
				if !g.add(b, n) {
					break
				}
				if expandable(n, params) {
					heap.Push(frontier, n)
				}
			}
		}
	}

	b.log.Debug().
		Int("cycle", w.Cycle).
		Int("nodes", len(g.nodes)).
		Float64("rootEval", g.rootEval).
		Msg("Chain graph built")
	return g
}

func (b *Builder) expand(w *field.World, r Registration, parent State, path []*Node, params Params, eval Evaluator) []*Node {
	actions := r.Gen(Input{World: w, Parent: parent, Path: path, Params: params})
	out := make([]*Node, 0, len(actions))
	for _, a := range actions {
		st, ok := b.predictor.Predict(w, parent, a)
		if !ok {
			continue
		}
		n := &Node{Parent: RootParent, Depth: len(path) + 1, Action: a, State: st}
		chainPath := make([]*Node, len(path), len(path)+1)
		copy(chainPath, path)
		n.Eval = eval.Evaluate(w, st, append(chainPath, n))
		out = append(out, n)
	}
	return out
}

func expandable(n *Node, p Params) bool {
	return !n.Action.Final && n.State.BallHolder != 0 && n.Depth < p.MaxDepth
}

// Graph is the node set of one cycle. It is built once and then only read,
// apart from the committed path.
type Graph struct {
	root      State
	rootEval  float64
	params    Params
	nodes     []*Node
	byIndex   map[int]*Node
	children  map[int]int
	committed []*Node
}

func newGraph(root State, params Params) *Graph {
	return &Graph{
		root:     root,
		params:   params,
		byIndex:  make(map[int]*Node),
		children: make(map[int]int),
	}
}

func (g *Graph) add(b *Builder, n *Node) bool {
	if len(g.nodes) >= g.params.MaxNodes {
		return false
	}
	n.Index = b.nextIndex()
	g.nodes = append(g.nodes, n)
	g.byIndex[n.Index] = n
	g.children[n.Parent]++
	return true
}

// Root is the state the graph grew from.
func (g *Graph) Root() State { return g.root }

// RootEval is the score of the current state with no action taken.
func (g *Graph) RootEval() float64 { return g.rootEval }

// Params returns the limits the graph was built with.
func (g *Graph) Params() Params { return g.params }

// Len returns the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }

// Nodes returns every node in ascending index order.
func (g *Graph) Nodes() []*Node { return g.nodes }

// Node looks up a node by index.
func (g *Graph) Node(index int) (*Node, bool) {
	n, ok := g.byIndex[index]
	return n, ok
}

// IsLeaf reports whether the node has no enumerated children.
func (g *Graph) IsLeaf(index int) bool { return g.children[index] == 0 }

// Path returns the nodes from the first layer down to index.
func (g *Graph) Path(index int) ([]*Node, error) {
	n, ok := g.byIndex[index]
	if !ok {
		return nil, fmt.Errorf("path to %d: %w", index, ErrUnknownNode)
	}
	return g.pathTo(n), nil
}

func (g *Graph) pathTo(n *Node) []*Node {
	var path []*Node
	for cur := n; cur != nil; cur = g.byIndex[cur.Parent] {
		path = append(path, cur)
		if cur.Parent == RootParent {
			break
		}
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// FirstLayer walks up from index to its first-layer ancestor.
func (g *Graph) FirstLayer(index int) (*Node, error) {
	path, err := g.Path(index)
	if err != nil {
		return nil, err
	}
	return path[0], nil
}

// Best returns the highest scored leaf, lowest index first on ties.
func (g *Graph) Best() (*Node, bool) {
	var best *Node
	for _, n := range g.nodes {
		if !g.IsLeaf(n.Index) {
			continue
		}
		if best == nil || n.Eval > best.Eval {
			best = n
		}
	}
	return best, best != nil
}

// SelectWinner commits the path ending at index. Selecting the same index
// twice leaves the graph unchanged.
func (g *Graph) SelectWinner(index int) error {
	path, err := g.Path(index)
	if err != nil {
		return err
	}
	g.committed = path
	return nil
}

// Committed returns the committed path, first layer first.
func (g *Graph) Committed() []*Node { return g.committed }

// FirstAction returns the first action of the committed path.
func (g *Graph) FirstAction() (Action, bool) {
	if len(g.committed) == 0 {
		return Action{}, false
	}
	return g.committed[0].Action, true
}

// Replay adopts the tail of a previous cycle's committed path when this
// graph enumerated nothing. The replayed nodes are re-indexed and committed.
func (g *Graph) Replay(b *Builder, prev []*Node) bool {
	if len(g.nodes) > 0 || len(prev) < 2 {
		return false
	}
	parent := RootParent
	for i, old := range prev[1:] {
		n := &Node{Parent: parent, Depth: i + 1, Action: old.Action, State: old.State, Eval: old.Eval}
		if !g.add(b, n) {
			break
		}
		parent = n.Index
	}
	if len(g.nodes) == 0 {
		return false
	}
	g.committed = g.pathTo(g.nodes[len(g.nodes)-1])
	return true
}

// Sorted returns the nodes ordered by score, best first.
func (g *Graph) Sorted() []*Node {
	out := make([]*Node, len(g.nodes))
	copy(out, g.nodes)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Eval > out[j].Eval })
	return out
}

type nodeHeap []*Node

func (h nodeHeap) Len() int { return len(h) }
func (h nodeHeap) Less(i, j int) bool {
	if h[i].Eval == h[j].Eval {
		return h[i].Index < h[j].Index
	}
	return h[i].Eval > h[j].Eval
}
func (h nodeHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x any) { *h = append(*h, x.(*Node)) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}
