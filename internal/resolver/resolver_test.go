package resolver

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/papyrus-app/papyrus/internal/catalog"
	"github.com/papyrus-app/papyrus/internal/document"
	"github.com/papyrus-app/papyrus/internal/storage"
)

func testCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Default()
	if err != nil {
		t.Fatalf("default catalog: %v", err)
	}
	return c
}

func seed(t *testing.T, store *storage.Memory, collection string, docs ...document.Document) {
	t.Helper()
	for _, d := range docs {
		if _, err := store.Insert(context.Background(), collection, d); err != nil {
			t.Fatalf("seed %s: %v", collection, err)
		}
	}
}

func mustPaths(t *testing.T, raw string) []document.Path {
	t.Helper()
	paths, err := document.ParsePaths(raw)
	if err != nil {
		t.Fatalf("parse paths %q: %v", raw, err)
	}
	return paths
}

// countingStore records batched reads so tests can assert the batching
// property: one lookup per distinct identifier set, not per reference.
type countingStore struct {
	inner   storage.Reader
	batches atomic.Int32
	lastIDs []string
}

func (s *countingStore) GetByID(ctx context.Context, collection, id string) (document.Document, error) {
	return s.inner.GetByID(ctx, collection, id)
}

func (s *countingStore) GetBatch(ctx context.Context, collection string, ids []string) (map[string]document.Document, error) {
	s.batches.Add(1)
	s.lastIDs = ids
	return s.inner.GetBatch(ctx, collection, ids)
}

// slowStore delays every batched read, respecting cancellation.
type slowStore struct {
	inner storage.Reader
	delay time.Duration
}

func (s *slowStore) GetByID(ctx context.Context, collection, id string) (document.Document, error) {
	return s.inner.GetByID(ctx, collection, id)
}

func (s *slowStore) GetBatch(ctx context.Context, collection string, ids []string) (map[string]document.Document, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(s.delay):
	}
	return s.inner.GetBatch(ctx, collection, ids)
}

func TestResolveEndToEnd(t *testing.T) {
	cat := testCatalog(t)
	mem := storage.NewMemory()
	seed(t, mem, "users", document.Document{"_id": "1", "name": "Alice", "posts": []any{"10", "11"}})
	seed(t, mem, "posts", document.Document{"_id": "10", "title": "first"})
	// post 11 was deleted after the reference was created

	r := New(cat, mem)
	alice, err := mem.GetByID(context.Background(), "users", "1")
	if err != nil {
		t.Fatalf("get alice: %v", err)
	}
	out, err := r.Resolve(context.Background(), "users", alice, mustPaths(t, "posts"), Options{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	posts, ok := out["posts"].([]any)
	if !ok || len(posts) != 2 {
		t.Fatalf("unexpected posts value: %#v", out["posts"])
	}
	first := posts[0].(*document.Resolution)
	if first.State != document.StateResolved || first.Doc["title"] != "first" {
		t.Fatalf("unexpected first resolution: %+v", first)
	}
	second := posts[1].(*document.Resolution)
	if second.State != document.StateMissing {
		t.Fatalf("expected missing marker, got %+v", second)
	}
	if second.Ref != (document.Ref{Collection: "posts", ID: "11"}) {
		t.Fatalf("missing marker keeps the ref: %+v", second.Ref)
	}
	if second.Doc != nil {
		t.Fatalf("missing marker must not carry a document: %+v", second.Doc)
	}
}

func TestResolveDoesNotMutateInput(t *testing.T) {
	cat := testCatalog(t)
	mem := storage.NewMemory()
	seed(t, mem, "users", document.Document{"_id": "u1", "name": "Bob"})

	doc := document.Document{
		"_id":    "p1",
		"title":  "post",
		"status": "draft",
		"author": "u1",
	}
	r := New(cat, mem)
	out, err := r.Resolve(context.Background(), "posts", doc, mustPaths(t, "author"), Options{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if doc["author"] != "u1" {
		t.Fatalf("input mutated: %#v", doc["author"])
	}
	// fields outside the requested paths are copied verbatim
	if out["title"] != "post" || out["status"] != "draft" || out["_id"] != "p1" {
		t.Fatalf("untouched fields changed: %#v", out)
	}
	res := out["author"].(*document.Resolution)
	if res.State != document.StateResolved || res.Doc["name"] != "Bob" {
		t.Fatalf("unexpected resolution: %+v", res)
	}
}

func TestResolveBatchesDistinctIDs(t *testing.T) {
	cat := testCatalog(t)
	mem := storage.NewMemory()
	seed(t, mem, "posts", document.Document{"_id": "10", "title": "a"})
	seed(t, mem, "posts", document.Document{"_id": "11", "title": "b"})
	cs := &countingStore{inner: mem}

	doc := document.Document{"_id": "u1", "name": "x", "posts": []any{"10", "11", "10"}}
	r := New(cat, cs)
	out, err := r.Resolve(context.Background(), "users", doc, mustPaths(t, "posts"), Options{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got := cs.batches.Load(); got != 1 {
		t.Fatalf("expected 1 batched lookup, got %d", got)
	}
	if len(cs.lastIDs) != 2 {
		t.Fatalf("expected 2 distinct ids, got %v", cs.lastIDs)
	}
	// the duplicate reference still occupies its position
	posts := out["posts"].([]any)
	if len(posts) != 3 {
		t.Fatalf("expected 3 positions, got %d", len(posts))
	}
	if posts[0].(*document.Resolution).Ref.ID != "10" || posts[2].(*document.Resolution).Ref.ID != "10" {
		t.Fatalf("positions lost: %v", posts)
	}
}

func TestResolveNestedLevelBatchesAcrossSiblings(t *testing.T) {
	cat := testCatalog(t)
	mem := storage.NewMemory()
	seed(t, mem, "users", document.Document{"_id": "u1", "name": "Bob"})
	seed(t, mem, "posts",
		document.Document{"_id": "10", "title": "a", "author": "u1"},
		document.Document{"_id": "11", "title": "b", "author": "u1"},
		document.Document{"_id": "12", "title": "c", "author": "u1"})
	cs := &countingStore{inner: mem}

	doc := document.Document{"_id": "x", "name": "y", "posts": []any{"10", "11", "12"}}
	r := New(cat, cs)
	out, err := r.Resolve(context.Background(), "users", doc, mustPaths(t, "posts.author"), Options{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	// one posts batch plus one users batch: the author shared by all three
	// posts costs a single lookup, not one per post
	if got := cs.batches.Load(); got != 2 {
		t.Fatalf("expected 2 batched lookups, got %d", got)
	}
	if len(cs.lastIDs) != 1 {
		t.Fatalf("expected the shared author deduped to 1 id, got %v", cs.lastIDs)
	}
	for _, v := range out["posts"].([]any) {
		post := v.(*document.Resolution)
		author := post.Doc["author"].(*document.Resolution)
		if author.State != document.StateResolved || author.Doc["name"] != "Bob" {
			t.Fatalf("nested author not resolved: %+v", author)
		}
	}
}

func TestResolveUnknownPathAborts(t *testing.T) {
	cat := testCatalog(t)
	r := New(cat, storage.NewMemory())
	doc := document.Document{"_id": "u1", "name": "x"}

	_, err := r.Resolve(context.Background(), "users", doc, mustPaths(t, "nope"), Options{})
	if !errors.Is(err, ErrUnknownPath) {
		t.Fatalf("expected ErrUnknownPath, got %v", err)
	}
	// nested segment that is not a declared reference aborts too
	_, err = r.Resolve(context.Background(), "users", doc, mustPaths(t, "posts.title"), Options{})
	if !errors.Is(err, ErrUnknownPath) {
		t.Fatalf("expected ErrUnknownPath, got %v", err)
	}
}

func TestResolveBadFieldValue(t *testing.T) {
	cat := testCatalog(t)
	r := New(cat, storage.NewMemory())

	doc := document.Document{"_id": "p1", "title": "t", "author": 42}
	_, err := r.Resolve(context.Background(), "posts", doc, mustPaths(t, "author"), Options{})
	if !errors.Is(err, ErrBadField) {
		t.Fatalf("expected ErrBadField, got %v", err)
	}

	doc = document.Document{"_id": "p1", "title": "t", "comments": []any{"c1", 7}}
	_, err = r.Resolve(context.Background(), "posts", doc, mustPaths(t, "comments"), Options{})
	if !errors.Is(err, ErrBadField) {
		t.Fatalf("expected ErrBadField, got %v", err)
	}
}

func TestResolveEmptyAndAbsentFields(t *testing.T) {
	cat := testCatalog(t)
	r := New(cat, storage.NewMemory())

	doc := document.Document{"_id": "u1", "name": "x", "posts": []any{}}
	out, err := r.Resolve(context.Background(), "users", doc, mustPaths(t, "posts,bestFriend"), Options{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	posts, ok := out["posts"].([]any)
	if !ok || len(posts) != 0 {
		t.Fatalf("empty list should stay an empty list: %#v", out["posts"])
	}
	if _, present := out["bestFriend"]; present {
		t.Fatalf("absent field must stay absent: %#v", out["bestFriend"])
	}
}

func TestResolveCycleStopsWithMarker(t *testing.T) {
	cat := testCatalog(t)
	mem := storage.NewMemory()
	seed(t, mem, "users", document.Document{"_id": "A", "name": "a", "bestFriend": "B"})
	seed(t, mem, "users", document.Document{"_id": "B", "name": "b", "bestFriend": "A"})

	r := New(cat, mem)
	a, _ := mem.GetByID(context.Background(), "users", "A")
	out, err := r.Resolve(context.Background(), "users", a, mustPaths(t, "bestFriend.bestFriend"), Options{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	outer := out["bestFriend"].(*document.Resolution)
	if outer.State != document.StateResolved || outer.Ref.ID != "B" {
		t.Fatalf("unexpected outer resolution: %+v", outer)
	}
	inner := outer.Doc["bestFriend"].(*document.Resolution)
	if inner.State != document.StateAlreadyExpanding {
		t.Fatalf("expected already-expanding marker, got %+v", inner)
	}
	if inner.Ref != (document.Ref{Collection: "users", ID: "A"}) {
		t.Fatalf("marker ref: %+v", inner.Ref)
	}
	if inner.Doc != nil {
		t.Fatalf("marker must not carry a document: %+v", inner.Doc)
	}
}

func TestResolveTimeoutBecomesMarker(t *testing.T) {
	cat := testCatalog(t)
	mem := storage.NewMemory()
	seed(t, mem, "users", document.Document{"_id": "u1", "name": "x"})
	slow := &slowStore{inner: mem, delay: 200 * time.Millisecond}

	doc := document.Document{"_id": "p1", "title": "t", "author": "u1"}
	r := New(cat, slow)
	out, err := r.Resolve(context.Background(), "posts", doc, mustPaths(t, "author"), Options{LookupTimeout: 10 * time.Millisecond})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	res := out["author"].(*document.Resolution)
	if res.State != document.StateTimedOut {
		t.Fatalf("expected timed-out marker, got %+v", res)
	}
}

func TestResolveAllOrNothingEscalatesTimeout(t *testing.T) {
	cat := testCatalog(t)
	mem := storage.NewMemory()
	seed(t, mem, "users", document.Document{"_id": "u1", "name": "x"})
	slow := &slowStore{inner: mem, delay: 200 * time.Millisecond}

	doc := document.Document{"_id": "p1", "title": "t", "author": "u1"}
	r := New(cat, slow)
	_, err := r.Resolve(context.Background(), "posts", doc, mustPaths(t, "author"), Options{
		LookupTimeout: 10 * time.Millisecond,
		AllOrNothing:  true,
	})
	if !errors.Is(err, ErrResolutionTimeout) {
		t.Fatalf("expected ErrResolutionTimeout, got %v", err)
	}
}

func TestResolveCancellationPropagates(t *testing.T) {
	cat := testCatalog(t)
	mem := storage.NewMemory()
	seed(t, mem, "users", document.Document{"_id": "u1", "name": "x"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	doc := document.Document{"_id": "p1", "title": "t", "author": "u1"}
	r := New(cat, mem)
	_, err := r.Resolve(ctx, "posts", doc, mustPaths(t, "author"), Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestResolveProjection(t *testing.T) {
	cat := testCatalog(t)
	mem := storage.NewMemory()
	seed(t, mem, "users", document.Document{"_id": "u1", "name": "Bob", "email": "b@example.com", "role": "author"})

	doc := document.Document{"_id": "p1", "title": "t", "author": "u1"}
	r := New(cat, mem)
	out, err := r.Resolve(context.Background(), "posts", doc, mustPaths(t, "author(name)"), Options{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	res := out["author"].(*document.Resolution)
	if res.State != document.StateResolved {
		t.Fatalf("unexpected state: %+v", res)
	}
	if res.Doc["name"] != "Bob" || res.Doc["_id"] != "u1" {
		t.Fatalf("projection dropped kept fields: %#v", res.Doc)
	}
	if _, ok := res.Doc["email"]; ok {
		t.Fatalf("projection leaked fields: %#v", res.Doc)
	}
}

func TestResolveSharedPrefixPaths(t *testing.T) {
	cat := testCatalog(t)
	mem := storage.NewMemory()
	seed(t, mem, "users", document.Document{"_id": "u1", "name": "Bob"})
	seed(t, mem, "posts", document.Document{"_id": "10", "title": "a", "author": "u1"})
	cs := &countingStore{inner: mem}

	doc := document.Document{"_id": "x", "name": "y", "posts": []any{"10"}}
	r := New(cat, cs)
	out, err := r.Resolve(context.Background(), "users", doc, mustPaths(t, "posts,posts.author"), Options{})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	posts := out["posts"].([]any)
	post := posts[0].(*document.Resolution)
	if post.State != document.StateResolved {
		t.Fatalf("unexpected post state: %+v", post)
	}
	author := post.Doc["author"].(*document.Resolution)
	if author.State != document.StateResolved || author.Doc["name"] != "Bob" {
		t.Fatalf("nested author not resolved: %+v", author)
	}
	// one posts batch plus one users batch: shared prefixes collapse
	if got := cs.batches.Load(); got != 2 {
		t.Fatalf("expected 2 batched lookups, got %d", got)
	}
}
