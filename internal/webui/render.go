package webui

import (
	"embed"
	"html/template"
	"io"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/talkincode/auctions/pkg/common"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer executes the embedded page templates by file name
type Renderer struct {
	tpl *template.Template
}

func NewRenderer() (*Renderer, error) {
	tpl, err := template.New("pages").Funcs(template.FuncMap{
		"money": common.FormatMoney,
		"elapsed": func(t time.Time) string {
			return common.Elapsed(t, time.Now())
		},
		"pluralize": func(n int64, word string) string {
			if n == 1 {
				return word
			}
			return word + "s"
		},
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Renderer{tpl: tpl}, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return r.tpl.ExecuteTemplate(w, name, data)
}
