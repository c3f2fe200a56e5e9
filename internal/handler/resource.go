package handler

import (
	"errors"
	"net/http"
	"sort"

	"github.com/GoPolymarket/panelgate/internal/middleware"
	"github.com/GoPolymarket/panelgate/internal/model"
	"github.com/GoPolymarket/panelgate/internal/pkg/apperrors"
	"github.com/GoPolymarket/panelgate/internal/policy"
	"github.com/GoPolymarket/panelgate/internal/ratelimit"
	"github.com/GoPolymarket/panelgate/internal/sanitize"
	"github.com/GoPolymarket/panelgate/internal/storage"
	"github.com/gin-gonic/gin"
)

// Limits holds the three rate-limit tiers.
type Limits struct {
	Read  ratelimit.Rule
	Write ratelimit.Rule
	User  ratelimit.Rule
}

// Deps are the collaborators shared by every resource route.
type Deps struct {
	Store      storage.Store
	Audit      middleware.Recorder
	Auth       middleware.Authenticator
	Limiter    ratelimit.Store
	Limits     Limits
	MaxPayload int64
	ReadOnly   bool
	Sanitizer  *sanitize.Sanitizer
	Validator  *sanitize.Validator
}

// ResourceHandler runs the read/update/delete pipeline for one descriptor.
type ResourceHandler struct {
	desc       model.Descriptor
	store      storage.Store
	sanitizer  *sanitize.Sanitizer
	validator  *sanitize.Validator
	maxPayload int64
}

func NewResourceHandler(desc model.Descriptor, deps Deps) *ResourceHandler {
	h := &ResourceHandler{
		desc:       desc,
		store:      deps.Store,
		sanitizer:  deps.Sanitizer,
		validator:  deps.Validator,
		maxPayload: deps.MaxPayload,
	}
	if h.sanitizer == nil {
		h.sanitizer = sanitize.New()
	}
	if h.validator == nil {
		h.validator = sanitize.NewValidator()
	}
	if h.maxPayload <= 0 {
		h.maxPayload = 1 << 20
	}
	return h
}

// Register mounts GET/PATCH/DELETE /{resource}/:id on r.
func Register(r gin.IRouter, desc model.Descriptor, deps Deps) *ResourceHandler {
	h := NewResourceHandler(desc, deps)

	readLimit := middleware.RateLimit(deps.Limiter, deps.Limits.Read, middleware.ByClientIP)
	writeLimit := middleware.RateLimit(deps.Limiter, deps.Limits.Write, middleware.ByClientIP)
	userLimit := middleware.RateLimit(deps.Limiter, deps.Limits.User, middleware.ByActor)
	authn := middleware.Authenticate(deps.Auth)
	frozen := middleware.ReadOnly(deps.ReadOnly)

	g := r.Group("/" + desc.Name)
	g.GET("/:id", readLimit, middleware.Audit(deps.Audit, desc.Name, model.ActionRead), authn, h.Read)
	g.PATCH("/:id", writeLimit, middleware.Audit(deps.Audit, desc.Name, model.ActionUpdate), frozen, authn, userLimit, h.Update)
	g.DELETE("/:id", writeLimit, middleware.Audit(deps.Audit, desc.Name, model.ActionDelete), frozen, authn, userLimit, h.Delete)
	return h
}

func (h *ResourceHandler) Read(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	own, err := h.store.FetchOwnership(ctx, h.desc.Table, id)
	if err != nil {
		fail(c, storageError(err, "fetch_ownership"))
		return
	}
	if !h.authorize(c, model.ActionRead, actor, own) {
		return
	}

	rec, err := h.store.Get(ctx, h.desc.Table, id)
	if err != nil {
		fail(c, storageError(err, "get"))
		return
	}
	middleware.SetAuditMessage(c, h.desc.Name+" read")
	c.JSON(http.StatusOK, model.OK(rec))
}

func (h *ResourceHandler) Update(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}

	body, err := sanitize.ReadBody(c.Request.Body, h.maxPayload)
	if err != nil {
		fail(c, err)
		return
	}
	obj, err := sanitize.ParseObject(body)
	if err != nil {
		fail(c, err)
		return
	}
	clean := h.sanitizer.Map(obj)

	// 特权字段在 schema 校验之前拦截
	if field, found := h.privilegedField(clean); found {
		middleware.AddAuditDetail(c, "field", field)
		if d := policy.CanChangePrivileged(actor); !d.Allowed {
			fail(c, apperrors.NewForbidden(d.Reason).WithDetail("field", field))
			return
		}
	}

	// 非 owner 无论 payload 是否合法都返回 403，所以鉴权先于 schema 校验
	ctx := c.Request.Context()
	own, err := h.store.FetchOwnership(ctx, h.desc.Table, id)
	if err != nil {
		fail(c, storageError(err, "fetch_ownership"))
		return
	}
	if !h.authorize(c, model.ActionUpdate, actor, own) {
		return
	}

	payload, err := h.validator.Decode(clean, h.desc.NewUpdate())
	if err != nil {
		fail(c, err)
		return
	}
	fields := payload.Fields()
	middleware.AddAuditDetail(c, "fields", sortedKeys(fields))

	updated, err := h.store.Update(ctx, h.desc.Table, id, fields)
	if err != nil {
		fail(c, storageError(err, "update"))
		return
	}
	middleware.SetAuditMessage(c, h.desc.Name+" updated")
	c.JSON(http.StatusOK, model.OK(updated))
}

func (h *ResourceHandler) Delete(c *gin.Context) {
	actor, id, ok := h.target(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	own, err := h.store.FetchOwnership(ctx, h.desc.Table, id)
	if err != nil {
		fail(c, storageError(err, "fetch_ownership"))
		return
	}
	if !h.authorize(c, model.ActionDelete, actor, own) {
		return
	}

	if err := h.store.Delete(ctx, h.desc.Table, id); err != nil {
		fail(c, storageError(err, "delete"))
		return
	}
	middleware.SetAuditMessage(c, h.desc.Name+" deleted")
	c.JSON(http.StatusOK, model.OK(gin.H{"id": id, "message": "deleted successfully"}))
}

// target returns the actor and the validated path id. No storage access
// happens before the id passes validation.
func (h *ResourceHandler) target(c *gin.Context) (model.Actor, string, bool) {
	actor, ok := middleware.ActorFrom(c)
	if !ok {
		fail(c, apperrors.NewUnauthenticated(nil))
		return model.Actor{}, "", false
	}
	id := c.Param("id")
	if err := sanitize.ValidateID(id); err != nil {
		fail(c, err)
		return model.Actor{}, "", false
	}
	middleware.SetResourceID(c, id)
	return actor, id, true
}

func (h *ResourceHandler) authorize(c *gin.Context, action model.Action, actor model.Actor, own model.Ownership) bool {
	d := policy.ForAction(h.desc.Access, action, actor, own)
	if d.Allowed {
		return true
	}
	fail(c, apperrors.NewForbidden(d.Reason).WithDetail("owner_id", own.OwnerID))
	return false
}

func (h *ResourceHandler) privilegedField(obj map[string]any) (string, bool) {
	for key := range obj {
		if field, ok := h.desc.Privileged(key); ok {
			return field, true
		}
	}
	return "", false
}

func fail(c *gin.Context, err error) {
	_ = c.Error(apperrors.Wrap(err))
	c.Abort()
}

func storageError(err error, op string) *apperrors.AppError {
	if errors.Is(err, storage.ErrNotFound) {
		return apperrors.NewNotFound("record").WithDetail("operation", op)
	}
	return apperrors.NewStorage(err).WithDetail("operation", op)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
