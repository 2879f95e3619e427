package graph

import (
	"context"
	"time"

	"github.com/NFrozeCLAWDBOT/bastion/internal/registry"
	"go.uber.org/zap"
)

// MaxDepth bounds how deep the resolver will recurse below a direct
// dependency, per the data model's depth invariant.
const MaxDepth = 5

// Budget tracks the resolver's single wall-clock deadline. New
// resolutions stop being issued once the deadline passes; work already
// in flight is never force-cancelled.
type Budget struct {
	deadline time.Time
}

// NewBudget starts a budget that expires after timeout.
func NewBudget(timeout time.Duration) *Budget {
	return &Budget{deadline: time.Now().Add(timeout)}
}

// Exhausted reports whether the deadline has passed.
func (b *Budget) Exhausted() bool {
	return time.Now().After(b.deadline)
}

// Resolver performs bounded-depth memoised traversal of a dependency
// tree, one registry adapter per ecosystem.
type Resolver struct {
	adapters map[Ecosystem]registry.Adapter
	logger   *zap.Logger
}

// NewResolver builds a resolver over the given per-ecosystem adapters.
func NewResolver(adapters map[Ecosystem]registry.Adapter, logger *zap.Logger) *Resolver {
	return &Resolver{adapters: adapters, logger: logger}
}

// Resolve walks every direct dependency depth-first into set, honouring
// budget. It returns after the last direct dependency has either been
// fully resolved or skipped because the budget ran out.
func (r *Resolver) Resolve(ctx context.Context, ecosystem Ecosystem, direct []registry.DependencyRef, set *Set, budget *Budget) {
	for _, dep := range direct {
		if budget.Exhausted() {
			if r.logger != nil {
				r.logger.Info("wall-clock budget exhausted, skipping remaining direct dependencies")
			}
			break
		}
		r.resolveNode(ctx, ecosystem, dep.Name, dep.Version, 0, true, set, budget, "")
	}
}

// resolveNode implements the resolve-one-node algorithm: abort on
// budget/depth, memoise on the package map, fetch from the adapter,
// record edges, recurse.
func (r *Resolver) resolveNode(ctx context.Context, ecosystem Ecosystem, name, version string, depth int, isDirect bool, set *Set, budget *Budget, parentKey Key) {
	if budget.Exhausted() || depth > MaxDepth {
		return
	}

	key := NewKey(name, version)
	if existing, ok := set.Get(key); ok {
		if parentKey != "" {
			appendDependedOnBy(existing, parentKey)
		}
		return
	}

	node := &Node{
		Name:       name,
		Version:    DisplayVersion(version),
		RawVersion: version,
		Depth:      depth,
		IsDirect:   isDirect,
	}
	set.Insert(key, node)
	if parentKey != "" {
		appendDependedOnBy(node, parentKey)
	}

	adapter, ok := r.adapters[ecosystem]
	if !ok {
		node.ResolutionError = true
		return
	}

	subDeps, meta, err := adapter.Fetch(ctx, name, version)
	if err != nil {
		node.ResolutionError = true
		if r.logger != nil {
			r.logger.Warn("registry adapter failed", zap.String("package", string(key)), zap.Error(err))
		}
		return
	}

	node.FirstPublished = meta.FirstPublished
	node.LastPublished = meta.LastPublished
	node.WeeklyDownloads = meta.WeeklyDownloads
	node.LicenceRaw = meta.Licence

	for _, sub := range subDeps {
		subKey := NewKey(sub.Name, sub.Version)
		r.resolveNode(ctx, ecosystem, sub.Name, sub.Version, depth+1, false, set, budget, key)
		// Only record the forward edge when the child made it into the
		// set; the depth cap or budget may have stopped it.
		if set.Has(subKey) {
			node.DependsOn = append(node.DependsOn, subKey)
		}
	}
}

func appendDependedOnBy(node *Node, parent Key) {
	for _, existing := range node.DependedOnBy {
		if existing == parent {
			return
		}
	}
	node.DependedOnBy = append(node.DependedOnBy, parent)
}
