package httpserver

import (
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/csrf"
)

//go:embed views
var viewsFS embed.FS

//go:embed static
var staticFS embed.FS

func loadTemplates() (*template.Template, error) {
	return template.New("").Funcs(template.FuncMap{
		"dict": dict,
	}).ParseFS(viewsFS, "views/*.html", "views/*/*.html")
}

func staticFiles() (http.FileSystem, error) {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, err
	}
	return http.FS(sub), nil
}

func dict(pairs ...any) (map[string]any, error) {
	if len(pairs)%2 != 0 {
		return nil, errors.New("dict expects key/value pairs")
	}
	out := make(map[string]any, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, errors.New("dict keys must be strings")
		}
		out[key] = pairs[i+1]
	}
	return out, nil
}

// view adds the fields every page layout reads.
func view(c *gin.Context, path, title string, data gin.H) gin.H {
	if data == nil {
		data = gin.H{}
	}
	data["path"] = path
	data["pageTitle"] = title
	data["csrfToken"] = csrf.Token(c.Request)
	_, data["isAuthenticated"] = currentUser(c)
	return data
}
