package component

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/recipebox/internal/auth"
	"github.com/yanizio/recipebox/internal/backend"
	"github.com/yanizio/recipebox/internal/checkout"
	"github.com/yanizio/recipebox/internal/config"
	"github.com/yanizio/recipebox/internal/form"
	"github.com/yanizio/recipebox/internal/idem"
	"github.com/yanizio/recipebox/internal/logger"
	"github.com/yanizio/recipebox/internal/querycache"
	"github.com/yanizio/recipebox/internal/realtime"
	"github.com/yanizio/recipebox/internal/respond"
	"github.com/yanizio/recipebox/internal/session"
	"github.com/yanizio/recipebox/internal/view"
)

// Deps are the process-wide services handed to every component.
type Deps struct {
	Config   *config.Config
	Backend  *backend.Client
	Sessions *session.Store
	Cache    *querycache.Cache
	Guard    *idem.Guard
	Views    *view.Engine
	Respond  *respond.Responder
	Checkout *checkout.Flow
	Hub      *realtime.Hub
	Log      *zap.SugaredLogger
}

// Token returns the request's session token.  Behind the gate it is always
// present on protected routes.
func (d *Deps) Token(r *http.Request) string {
	tok, _ := d.Sessions.Token(r)
	return tok
}

// Namespace is the query-cache namespace of the request's session.
func (d *Deps) Namespace(r *http.Request) string {
	return querycache.Namespace(d.Token(r))
}

// Invalidate drops cached queries of the request's session.
func (d *Deps) Invalidate(r *http.Request, keys ...string) {
	ns := d.Namespace(r)
	for _, k := range keys {
		d.Cache.Invalidate(ns, k)
	}
}

// Cached reads key through the session's query cache.
func Cached[T any](r *http.Request, d *Deps, key string, load func(ctx context.Context, token string) (T, error)) (T, error) {
	tok := d.Token(r)
	return querycache.Get(r.Context(), d.Cache, querycache.Namespace(tok), key, 0,
		func(ctx context.Context) (T, error) { return load(ctx, tok) })
}

// Install registers c's templates and forms, then runs its Init.
func Install(c Component, d *Deps) error {
	if tp, ok := c.(TemplateProvider); ok && d.Views != nil {
		d.Views.Register(c.Name(), tp.Templates())
	}
	if fp, ok := c.(FormProvider); ok {
		if err := form.RegisterFS(fp.Forms()); err != nil {
			return err
		}
	}
	if in, ok := c.(Initializer); ok {
		return in.Init(d)
	}
	return nil
}

// Sub returns fsys rooted at dir, for components embedding
// “templates/*.html” or “forms/*.yaml”.
func Sub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// Once runs fn under the double-submit guard.  The guard key binds the
// rendered idempotency key to what was posted and where: the path, the field
// values, and (outside the public auth pages) the session.  A replayed key
// with other credentials, another body, or another session runs fn afresh.
func (d *Deps) Once(r *http.Request, formID string, v form.Values, fn func() (any, error)) (any, bool, error) {
	key := v.IdempotencyKey()
	if key != "" {
		key = formID + ":" + key + ":" + d.submission(r, v)
	}
	return d.Guard.Do(key, fn)
}

func (d *Deps) submission(r *http.Request, v form.Values) string {
	h := sha256.New()
	io.WriteString(h, r.URL.Path)
	h.Write([]byte{0})
	if auth.AccessFrom(r.Context()).Class != auth.ClassPublic {
		io.WriteString(h, d.Namespace(r))
	}
	h.Write([]byte{0})
	io.WriteString(h, v.Fingerprint())
	return hex.EncodeToString(h.Sum(nil)[:16])
}

// Invalid re-renders a posted form with its field errors.  Errors that are
// not validation errors mean the body could not be parsed.
func (d *Deps) Invalid(w http.ResponseWriter, r *http.Request, comp, tpl string, p view.Page, err error) {
	if !form.IsValidationError(err) {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}
	p.Form = form.Resubmit(r, form.FieldErrors(err)...)
	d.Views.RenderStatus(w, r, http.StatusUnprocessableEntity, comp, tpl, p)
}

// Reject re-renders a posted form with a form-level message.
func (d *Deps) Reject(w http.ResponseWriter, r *http.Request, comp, tpl string, p view.Page, msg string) {
	p.Form = form.Fail(r, msg)
	d.Views.RenderStatus(w, r, http.StatusUnprocessableEntity, comp, tpl, p)
}

// Unavailable answers a page whose data could not be loaded.  A rejected
// session ends it; a missing resource is a 404; anything else renders the
// site's "unavailable" page.
func (d *Deps) Unavailable(w http.ResponseWriter, r *http.Request, err error) {
	if d.Respond.Unauthorized(w, r, err) {
		return
	}
	var ae *backend.APIError
	if errors.As(err, &ae) && ae.Status == http.StatusNotFound {
		d.Views.RenderStatus(w, r, http.StatusNotFound, "site", "notfound", view.Page{Title: "Not found"})
		return
	}
	logger.FromContext(r.Context()).Warnw("page data unavailable", "path", r.URL.Path, "err", err)
	d.Views.RenderStatus(w, r, http.StatusBadGateway, "site", "unavailable", view.Page{
		Title: "Unavailable",
		Data:  respond.Message(err, "We could not load this page.  Please try again shortly."),
	})
}

// Back returns the posted "next" path when it is local, else fallback.
func Back(r *http.Request, fallback string) string {
	next := r.PostFormValue("next")
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.Contains(next, "\\") {
		return next
	}
	return fallback
}
