// Package sector resolves a sector id into its full subtree: the sector
// itself plus every transitive child in the sector taxonomy.
package sector

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultMaxVisited bounds how many sectors one expansion may touch. The
// taxonomy is a few hundred nodes in practice; hitting the ceiling means
// the data contains a cycle or runaway fan-out.
const DefaultMaxVisited = 10000

// Lookup lists the immediate children of a sector. The Postgres store and
// the sqlite cache both implement it.
type Lookup interface {
	SectorsByParent(ctx context.Context, parentID int64) ([]int64, error)
}

// IDSet is a deduplicated set of sector ids.
type IDSet map[int64]struct{}

// Contains reports set membership.
func (s IDSet) Contains(id int64) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the ids in ascending order.
func (s IDSet) Sorted() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Resolver expands sector subtrees through a Lookup collaborator.
type Resolver struct {
	lookup     Lookup
	maxVisited int
	log        *zap.Logger
}

// NewResolver creates a Resolver. A nil logger falls back to zap.NewNop.
func NewResolver(lookup Lookup, log *zap.Logger) *Resolver {
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{lookup: lookup, maxVisited: DefaultMaxVisited, log: log}
}

// WithMaxVisited overrides the expansion ceiling.
func (r *Resolver) WithMaxVisited(n int) *Resolver {
	if n > 0 {
		r.maxVisited = n
	}
	return r
}

// Expand returns the sector plus all transitive children. Non-numeric
// input yields an empty set and no error; bad ids from callers drop the
// sector filter rather than failing the report.
//
// Traversal is an iterative worklist with a visited set, so a taxonomy
// that accidentally contains a cycle or a shared subtree still
// terminates with correct set semantics. Exceeding the visit ceiling
// returns the partial set together with an error so callers can decide
// whether to reject the data.
func (r *Resolver) Expand(ctx context.Context, sectorID string) (IDSet, error) {
	root, ok := parseID(sectorID)
	if !ok {
		r.log.Debug("sector: unparsable sector id, expanding to empty set",
			zap.String("sectorId", sectorID))
		return IDSet{}, nil
	}
	return r.ExpandID(ctx, root)
}

// ExpandID is Expand for an already-numeric id.
func (r *Resolver) ExpandID(ctx context.Context, root int64) (IDSet, error) {
	visited := IDSet{root: {}}
	queue := []int64{root}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return visited, eris.Wrap(err, "sector: expand cancelled")
		}

		id := queue[0]
		queue = queue[1:]

		children, err := r.lookup.SectorsByParent(ctx, id)
		if err != nil {
			return visited, eris.Wrapf(err, "sector: children of %d", id)
		}
		for _, child := range children {
			if visited.Contains(child) {
				continue
			}
			visited[child] = struct{}{}
			queue = append(queue, child)
			if len(visited) > r.maxVisited {
				return visited, eris.Errorf(
					"sector: expansion of %d exceeded %d sectors, taxonomy may be cyclic",
					root, r.maxVisited)
			}
		}
	}

	return visited, nil
}

func parseID(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}
