// components/community/community.go
//
// Community component: shared posts and the chat thread under each post.
//
//------------------------------------------------------------------------------

package community

import (
	"embed"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/recipebox/internal/backend"
	"github.com/yanizio/recipebox/internal/component"
	"github.com/yanizio/recipebox/internal/form"
	"github.com/yanizio/recipebox/internal/logger"
	"github.com/yanizio/recipebox/internal/querycache"
	"github.com/yanizio/recipebox/internal/respond"
	"github.com/yanizio/recipebox/internal/routing"
	"github.com/yanizio/recipebox/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed forms/*.yaml
var formFS embed.FS

var _ component.Component = (*Component)(nil)

const (
	formPost = "community/post"
	formChat = "community/chat"

	msgPostFailed = "We could not publish your post.  Please try again."
	msgChatFailed = "Your message was not sent.  Please try again."
	msgPosted     = "Your post is live."
)

type Component struct {
	d *component.Deps
}

func (c *Component) Name() string     { return "community" }
func (c *Component) Templates() fs.FS { return component.Sub(templateFS, "templates") }
func (c *Component) Forms() fs.FS     { return formFS }

func (c *Component) Init(d *component.Deps) error {
	c.d = d
	return nil
}

func (c *Component) Routes(r chi.Router) {
	r.Get("/community", c.getPosts)
	r.Post("/community", c.postPost)
	r.Get("/community/{id}", c.getPost)
	r.Get("/community/{id}/{slug}", c.getPost)
	r.Post("/community/{id}/chat", c.postChat)
}

func init() { component.Register(&Component{}) }

type threadView struct {
	Post     *backend.Post
	Messages []backend.ChatMessage
}

/*──────────────────────────── posts ────────────────────────────────────────*/

func (c *Component) getPosts(w http.ResponseWriter, r *http.Request) {
	page, err := c.postsPage(r)
	if err != nil {
		c.d.Unavailable(w, r, err)
		return
	}
	c.d.Views.Render(w, r, c.Name(), "posts", page)
}

func (c *Component) postsPage(r *http.Request) (view.Page, error) {
	posts, err := component.Cached(r, c.d, querycache.KeyPosts, c.d.Backend.Posts)
	if err != nil {
		return view.Page{}, err
	}
	return view.Page{Title: "Community", Data: posts}, nil
}

func (c *Component) postPost(w http.ResponseWriter, r *http.Request) {
	v, err := form.HandleSubmit(formPost, r)
	if err != nil {
		if page, perr := c.postsPage(r); perr != nil {
			c.d.Unavailable(w, r, perr)
		} else {
			c.d.Invalid(w, r, c.Name(), "posts", page, err)
		}
		return
	}

	val, replayed, err := c.d.Once(r, formPost, v, func() (any, error) {
		return c.d.Backend.CreatePost(r.Context(), c.d.Token(r), v.IdempotencyKey(), backend.NewPost{
			Title:    v.String("title"),
			Body:     v.String("content"),
			ImageURL: v.String("image_url"),
		})
	})
	if err != nil {
		if c.d.Respond.Unauthorized(w, r, err) {
			return
		}
		logger.FromContext(r.Context()).Infow("create post failed", "err", err)
		if page, perr := c.postsPage(r); perr != nil {
			c.d.Unavailable(w, r, perr)
		} else {
			c.d.Reject(w, r, c.Name(), "posts", page, respond.Message(err, msgPostFailed))
		}
		return
	}

	p := val.(*backend.Post)
	if replayed {
		http.Redirect(w, r, routing.PostPath(p.ID, p.Title), http.StatusSeeOther)
		return
	}
	c.d.Invalidate(r, querycache.KeyPosts)
	c.d.Respond.Success(w, r, msgPosted, routing.PostPath(p.ID, p.Title))
}

/*──────────────────────────── thread ───────────────────────────────────────*/

// threadPage loads a post with its chat.  Chat is never cached.
func (c *Component) threadPage(r *http.Request, id string) (view.Page, error) {
	tok := c.d.Token(r)
	p, err := c.d.Backend.Post(r.Context(), tok, id)
	if err != nil {
		return view.Page{}, err
	}
	msgs, err := c.d.Backend.Chat(r.Context(), tok, id)
	if err != nil {
		return view.Page{}, err
	}
	return view.Page{Title: p.Title, Data: threadView{Post: p, Messages: msgs}}, nil
}

func (c *Component) getPost(w http.ResponseWriter, r *http.Request) {
	page, err := c.threadPage(r, chi.URLParam(r, "id"))
	if err != nil {
		c.d.Unavailable(w, r, err)
		return
	}
	p := page.Data.(threadView).Post
	if !routing.Canonical(chi.URLParam(r, "slug"), p.Title) {
		http.Redirect(w, r, routing.PostPath(p.ID, p.Title), http.StatusMovedPermanently)
		return
	}
	c.d.Views.Render(w, r, c.Name(), "thread", page)
}

func (c *Component) postChat(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	v, err := form.HandleSubmit(formChat, r)
	if err != nil {
		if page, perr := c.threadPage(r, id); perr != nil {
			c.d.Unavailable(w, r, perr)
		} else {
			c.d.Invalid(w, r, c.Name(), "thread", page, err)
		}
		return
	}

	_, _, err = c.d.Once(r, formChat, v, func() (any, error) {
		return nil, c.d.Backend.SendChat(r.Context(), c.d.Token(r), v.IdempotencyKey(), id, v.String("message"))
	})
	if err != nil {
		c.d.Respond.Error(w, r, err, msgChatFailed, "/community/"+id)
		return
	}
	http.Redirect(w, r, "/community/"+id+"#chat", http.StatusSeeOther)
}
