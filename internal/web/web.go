// Package web serves the embedded single-page upload console.
package web

import (
	"embed"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/gin-gonic/gin"

	"siteinspect/internal/config"
)

//go:embed templates/*.html static/*
var assets embed.FS

type pageData struct {
	Categories []string
}

func Register(engine *gin.Engine, _ *config.AppConfig) {
	tmpl := template.Must(template.ParseFS(assets, "templates/*.html"))
	engine.SetHTMLTemplate(tmpl)

	engine.GET("/", func(c *gin.Context) {
		c.HTML(http.StatusOK, "index.html", pageData{
			Categories: []string{"general", "dresscode", "dustbin", "lights"},
		})
	})

	static, err := fs.Sub(assets, "static")
	if err != nil {
		panic(err)
	}
	engine.StaticFS("/static", http.FS(static))
}
