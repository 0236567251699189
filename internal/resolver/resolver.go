package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/papyrus-app/papyrus/internal/catalog"
	"github.com/papyrus-app/papyrus/internal/document"
	"github.com/papyrus-app/papyrus/internal/storage"
)

var (
	// ErrUnknownPath reports a population path that does not name a
	// declared reference field. It aborts the whole call: a bad path is a
	// programming error, not a data condition.
	ErrUnknownPath = errors.New("resolver: unknown path")
	// ErrBadField reports a stored value that is not a reference
	// identifier where the catalog declares one.
	ErrBadField = errors.New("resolver: field is not a reference value")
	// ErrResolutionTimeout is returned in all-or-nothing mode when any
	// lookup exceeds the caller-supplied bound.
	ErrResolutionTimeout = errors.New("resolver: resolution timed out")
)

// Options control a single Resolve call.
type Options struct {
	// LookupTimeout bounds every storage lookup issued by the call.
	// Zero means no per-lookup bound beyond the caller's context.
	LookupTimeout time.Duration
	// AllOrNothing escalates any timed-out lookup to ErrResolutionTimeout
	// instead of splicing TimedOut markers.
	AllOrNothing bool
}

// Resolver expands reference fields of a document into the referenced
// documents. It is stateless: every call works only on its inputs and the
// read-only catalog, so a single Resolver is safe for concurrent use.
type Resolver struct {
	cat   *catalog.Catalog
	store storage.Reader
}

// New builds a resolver over the given catalog and storage collaborator.
func New(cat *catalog.Catalog, store storage.Reader) *Resolver {
	return &Resolver{cat: cat, store: store}
}

// Resolve returns an expanded deep copy of doc in which every requested
// path is replaced by Resolution values. The input document is never
// mutated and fields outside the requested paths are copied verbatim.
//
// Each path level issues one batched lookup per target collection over
// the distinct identifiers gathered across every document at that level;
// independent paths run concurrently and results are merged in declared
// path order. A missing target becomes a Missing marker, a lookup that
// exceeds Options.LookupTimeout becomes a TimedOut marker (or fails the
// call in all-or-nothing mode), and a nested path that revisits a
// (collection, id) pair already being expanded along the same chain stops
// with an AlreadyExpanding marker.
func (r *Resolver) Resolve(ctx context.Context, collection string, doc document.Document, paths []document.Path, opts Options) (document.Document, error) {
	if _, ok := r.cat.Collection(collection); !ok {
		return nil, fmt.Errorf("%w: %q", catalog.ErrUnknownCollection, collection)
	}
	out := doc.Clone()
	if len(paths) == 0 {
		return out, nil
	}
	for _, p := range paths {
		if err := r.validatePath(collection, p); err != nil {
			return nil, err
		}
	}
	chain := map[chainKey]struct{}{}
	if id := doc.ID(); id != "" {
		chain[chainKey{collection, id}] = struct{}{}
	}
	if err := r.expand(ctx, collection, []host{{doc: out, chain: chain}}, buildTree(paths), opts); err != nil {
		return nil, err
	}
	return out, nil
}

// host pairs a document under expansion with the chain of (collection, id)
// pairs that produced it.
type host struct {
	doc   document.Document
	chain map[chainKey]struct{}
}

type chainKey struct {
	collection string
	id         string
}

func (r *Resolver) validatePath(collection string, p document.Path) error {
	col := collection
	for _, seg := range p.Segments {
		rf, ok := r.cat.RefField(col, seg.Field)
		if !ok {
			return fmt.Errorf("%w: %s.%s in %q", ErrUnknownPath, col, seg.Field, p.String())
		}
		col = rf.Target
	}
	return nil
}

// expand resolves one tree level across every host document at once: per
// node the reference identifiers of all hosts are gathered, deduped and
// fetched in a single batch, markers are spliced per host, and nested
// nodes recurse with the resolved targets as the next level's hosts. Every
// host doc is already a private copy.
func (r *Resolver) expand(ctx context.Context, collection string, hosts []host, nodes []*node, opts Options) error {
	type occurrence struct {
		host    int
		ids     []string
		isSlice bool
	}
	type work struct {
		node  *node
		rf    catalog.RefField
		occ   []occurrence
		fetch []string
	}
	pending := make([]work, 0, len(nodes))
	for _, n := range nodes {
		rf, _ := r.cat.RefField(collection, n.field)
		w := work{node: n, rf: rf}
		seen := map[string]struct{}{}
		for hi, h := range hosts {
			raw, ok := h.doc[n.field]
			if !ok || raw == nil {
				continue
			}
			ids, isSlice, err := fieldIDs(collection, n.field, rf, raw)
			if err != nil {
				return err
			}
			w.occ = append(w.occ, occurrence{host: hi, ids: ids, isSlice: isSlice})
			// ids already being expanded along a host's chain are never
			// fetched for that host, but another host may still need them
			for _, id := range ids {
				if chainHas(h.chain, rf.Target, id) {
					continue
				}
				if _, dup := seen[id]; dup {
					continue
				}
				seen[id] = struct{}{}
				w.fetch = append(w.fetch, id)
			}
		}
		if len(w.occ) > 0 {
			pending = append(pending, w)
		}
	}

	type result struct {
		fetched  map[string]document.Document
		timedOut bool
	}
	results := make([]result, len(pending))
	g, gctx := errgroup.WithContext(ctx)
	for i, w := range pending {
		if len(w.fetch) == 0 {
			continue
		}
		i, w := i, w
		g.Go(func() error {
			fetched, timedOut, err := r.lookup(gctx, w.rf.Target, w.fetch, opts)
			if err != nil {
				return err
			}
			results[i] = result{fetched: fetched, timedOut: timedOut}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// splice in declared order, independent of lookup completion order
	for i, w := range pending {
		var next []host
		for _, oc := range w.occ {
			h := hosts[oc.host]
			vals := make([]any, len(oc.ids))
			for j, id := range oc.ids {
				res := &document.Resolution{Ref: document.Ref{Collection: w.rf.Target, ID: id}}
				switch {
				case chainHas(h.chain, w.rf.Target, id):
					res.State = document.StateAlreadyExpanding
				case results[i].timedOut:
					res.State = document.StateTimedOut
				default:
					target, ok := results[i].fetched[id]
					if !ok {
						res.State = document.StateMissing
						break
					}
					res.State = document.StateResolved
					res.Doc = w.node.projectDoc(target)
					if len(w.node.children) > 0 {
						nc := make(map[chainKey]struct{}, len(h.chain)+1)
						for k := range h.chain {
							nc[k] = struct{}{}
						}
						nc[chainKey{w.rf.Target, id}] = struct{}{}
						next = append(next, host{doc: res.Doc, chain: nc})
					}
				}
				vals[j] = res
			}
			if oc.isSlice {
				h.doc[w.node.field] = vals
			} else {
				h.doc[w.node.field] = vals[0]
			}
		}
		if len(next) > 0 {
			if err := r.expand(ctx, w.rf.Target, next, w.node.children, opts); err != nil {
				return err
			}
		}
	}
	return nil
}

func chainHas(chain map[chainKey]struct{}, collection, id string) bool {
	_, ok := chain[chainKey{collection, id}]
	return ok
}

// lookup issues one batched read bounded by the per-lookup timeout. The
// second return value reports a timeout that should become markers; parent
// cancellation and upstream failures come back as errors.
func (r *Resolver) lookup(ctx context.Context, collection string, ids []string, opts Options) (map[string]document.Document, bool, error) {
	lctx := ctx
	if opts.LookupTimeout > 0 {
		var cancel context.CancelFunc
		lctx, cancel = context.WithTimeout(ctx, opts.LookupTimeout)
		defer cancel()
	}
	docs, err := r.store.GetBatch(lctx, collection, ids)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			if opts.AllOrNothing {
				return nil, false, fmt.Errorf("%w: collection %q", ErrResolutionTimeout, collection)
			}
			return nil, true, nil
		}
		return nil, false, err
	}
	return docs, false, nil
}

func fieldIDs(collection, field string, rf catalog.RefField, raw any) ([]string, bool, error) {
	if rf.Slice {
		switch t := raw.(type) {
		case []string:
			return append([]string(nil), t...), true, nil
		case []any:
			ids := make([]string, len(t))
			for i, e := range t {
				s, ok := e.(string)
				if !ok {
					return nil, false, fmt.Errorf("%w: %s.%s[%d] holds %T", ErrBadField, collection, field, i, e)
				}
				ids[i] = s
			}
			return ids, true, nil
		default:
			return nil, false, fmt.Errorf("%w: %s.%s holds %T, want identifier list", ErrBadField, collection, field, raw)
		}
	}
	s, ok := raw.(string)
	if !ok {
		return nil, false, fmt.Errorf("%w: %s.%s holds %T, want identifier", ErrBadField, collection, field, raw)
	}
	if s == "" {
		return nil, false, fmt.Errorf("%w: %s.%s holds empty identifier", ErrBadField, collection, field)
	}
	return []string{s}, false, nil
}

