package view

import (
	"crypto/sha256"
	"encoding/hex"
	"html/template"
	"io/fs"
	"sync"

	"github.com/yanizio/recipebox/internal/form"
	"github.com/yanizio/recipebox/internal/requestinfo"
	"github.com/yanizio/recipebox/internal/routing"
	"go.uber.org/zap"
)

func funcMap() template.FuncMap {
	return template.FuncMap{
		"form":       formFunc,
		"csrf":       form.CSRFField,
		"dict":       dict,
		"slug":       routing.Slug,
		"recipePath": routing.RecipePath,
		"postPath":   routing.PostPath,
		"asset":      asset,
		"isBot":      func(ri *requestinfo.RequestInfo) bool { return ri.IsBot() },
	}
}

// formFunc renders a registered form.  A broken definition degrades to an
// HTML comment so the rest of the page still renders.
func formFunc(id string, st form.State) template.HTML {
	out, err := form.RenderForm(id, st)
	if err != nil {
		zap.S().Errorw("form render failed", "form", id, "err", err)
		return template.HTML("<!-- form unavailable -->")
	}
	return out
}

// dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}

var (
	assetOnce sync.Once
	assetSums map[string]string
)

// asset returns the URL of an embedded static file with a content hash, so
// browsers refetch it after a deploy.
func asset(name string) string {
	assetOnce.Do(func() {
		assetSums = map[string]string{}
		_ = fs.WalkDir(staticFS, "static", func(p string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return err
			}
			raw, err := fs.ReadFile(staticFS, p)
			if err != nil {
				return err
			}
			sum := sha256.Sum256(raw)
			assetSums[p[len("static/"):]] = hex.EncodeToString(sum[:4])
			return nil
		})
	})
	if v, ok := assetSums[name]; ok {
		return "/static/" + name + "?v=" + v
	}
	return "/static/" + name
}
