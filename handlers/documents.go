package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/papyrus-app/papyrus/internal/authz"
	"github.com/papyrus-app/papyrus/internal/catalog"
	"github.com/papyrus-app/papyrus/internal/document"
	"github.com/papyrus-app/papyrus/internal/resolver"
	"github.com/papyrus-app/papyrus/internal/storage"
	"github.com/papyrus-app/papyrus/pkg/logger"
	"github.com/papyrus-app/papyrus/pkg/metrics"
	"github.com/papyrus-app/papyrus/pkg/middleware"
)

// ownerField is the document field consulted for owner-only permission
// rules. It is set from the creating principal and not overridable through
// the API.
const ownerField = "owner"

// DocumentHandler serves the generic document API: CRUD on declared
// collections plus reference population on reads. Every mutating route
// passes through the authorization gate first.
type DocumentHandler struct {
	cat           *catalog.Catalog
	store         storage.Storage
	res           *resolver.Resolver
	gate          *authz.Gate
	lookupTimeout time.Duration
}

func NewDocumentHandler(cat *catalog.Catalog, store storage.Storage, res *resolver.Resolver, gate *authz.Gate, lookupTimeout time.Duration) *DocumentHandler {
	return &DocumentHandler{cat: cat, store: store, res: res, gate: gate, lookupTimeout: lookupTimeout}
}

// Register mounts the document routes on the given (authenticated) group.
func (h *DocumentHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/docs")
	g.GET("/:collection/:id", h.Get)
	g.POST("/:collection", h.Create)
	g.PATCH("/:collection/:id", h.Update)
	g.DELETE("/:collection/:id", h.Delete)
}

// Get fetches one document, optionally expanding reference paths:
//
//	GET /api/v1/docs/posts/123?populate=author(name),comments.author
//
// strict=true switches population to all-or-nothing semantics. Owner-only
// read rules are checked against the stored document's owner, like the
// mutating routes.
func (h *DocumentHandler) Get(c *gin.Context) {
	collection := c.Param("collection")
	doc, ok := h.fetchExisting(c, collection, c.Param("id"))
	if !ok {
		return
	}
	p, decision := h.authorize(c, authz.OpRead, hintFor(doc))
	if !decision.Allowed {
		h.deny(c, p, authz.OpRead, decision)
		return
	}

	rawPaths := c.Query("populate")
	if rawPaths == "" {
		c.JSON(http.StatusOK, doc)
		return
	}
	paths, err := document.ParsePaths(rawPaths)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	opts := resolver.Options{
		LookupTimeout: h.lookupTimeout,
		AllOrNothing:  c.Query("strict") == "true",
	}
	expanded, err := h.res.Resolve(c.Request.Context(), collection, doc, paths, opts)
	if err != nil {
		switch {
		case errors.Is(err, resolver.ErrUnknownPath), errors.Is(err, resolver.ErrBadField):
			metrics.ResolveOutcomes.WithLabelValues("bad_request").Inc()
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, resolver.ErrResolutionTimeout):
			metrics.ResolveOutcomes.WithLabelValues("timeout").Inc()
			c.JSON(http.StatusGatewayTimeout, gin.H{"error": "resolution timed out"})
		default:
			metrics.ResolveOutcomes.WithLabelValues("error").Inc()
			logger.Errorf("resolve %s/%s: %v", collection, c.Param("id"), err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "resolution failed"})
		}
		return
	}
	metrics.ResolveOutcomes.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, expanded)
}

// Create inserts a new document. The owner field is forced to the caller.
func (h *DocumentHandler) Create(c *gin.Context) {
	p, decision := h.authorize(c, authz.OpCreate, nil)
	if !decision.Allowed {
		h.deny(c, p, authz.OpCreate, decision)
		return
	}
	collection := c.Param("collection")
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	doc := document.Document(body)
	delete(doc, document.FieldID)
	doc[ownerField] = p.Subject
	if err := h.cat.Validate(collection, doc); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, catalog.ErrUnknownCollection) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	id, err := h.store.Insert(c.Request.Context(), collection, doc)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": id})
}

// Update applies a partial update. Owner-only rules are checked against
// the stored document's owner, and the identifier and owner fields stay
// immutable.
func (h *DocumentHandler) Update(c *gin.Context) {
	collection, id := c.Param("collection"), c.Param("id")
	existing, ok := h.fetchExisting(c, collection, id)
	if !ok {
		return
	}
	p, decision := h.authorize(c, authz.OpUpdate, hintFor(existing))
	if !decision.Allowed {
		h.deny(c, p, authz.OpUpdate, decision)
		return
	}
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	set := document.Document(body)
	delete(set, document.FieldID)
	delete(set, ownerField)
	merged := existing.Clone()
	for k, v := range set {
		merged[k] = v
	}
	if err := h.cat.Validate(collection, merged); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.store.Update(c.Request.Context(), collection, id, set); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	c.Status(http.StatusNoContent)
}

// Delete removes a document, honoring owner-only rules.
func (h *DocumentHandler) Delete(c *gin.Context) {
	collection, id := c.Param("collection"), c.Param("id")
	existing, ok := h.fetchExisting(c, collection, id)
	if !ok {
		return
	}
	p, decision := h.authorize(c, authz.OpDelete, hintFor(existing))
	if !decision.Allowed {
		h.deny(c, p, authz.OpDelete, decision)
		return
	}
	if err := h.store.Delete(c.Request.Context(), collection, id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DocumentHandler) fetchExisting(c *gin.Context, collection, id string) (document.Document, bool) {
	if _, ok := h.cat.Collection(collection); !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown collection"})
		return nil, false
	}
	doc, err := h.store.GetByID(c.Request.Context(), collection, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "document not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "storage failure"})
		return nil, false
	}
	return doc, true
}

func (h *DocumentHandler) authorize(c *gin.Context, op authz.Operation, hint *authz.ResourceHint) (authz.Principal, authz.Decision) {
	p, ok := middleware.PrincipalFrom(c)
	if !ok {
		return authz.Principal{}, authz.Deny(authz.ReasonNoRuleDefined)
	}
	d := h.gate.Authorize(p, op, hint)
	if d.Allowed {
		metrics.AuthzDecisions.WithLabelValues("allow", "").Inc()
	} else {
		metrics.AuthzDecisions.WithLabelValues("deny", string(d.Reason)).Inc()
	}
	return p, d
}

func (h *DocumentHandler) deny(c *gin.Context, p authz.Principal, op authz.Operation, d authz.Decision) {
	if d.Reason == authz.ReasonNoRuleDefined {
		// likely a deployment misconfiguration, not a user mistake
		logger.Warnf("no permission rule for role=%q op=%s", p.Role, op)
	}
	c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden", "reason": string(d.Reason)})
}

func hintFor(doc document.Document) *authz.ResourceHint {
	owner, _ := doc[ownerField].(string)
	return &authz.ResourceHint{Owner: owner}
}
