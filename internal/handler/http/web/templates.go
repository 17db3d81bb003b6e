package web_http

import (
	"embed"
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplates = map[string]*template.Template{
	"home":    parsePage("home.html"),
	"login":   parsePage("login.html"),
	"signup":  parsePage("signup.html"),
	"profile": parsePage("profile.html"),
	"wallet":  parsePage("wallet.html"),
}

func parsePage(page string) *template.Template {
	return template.Must(template.ParseFS(templateFS, "templates/layout.html", "templates/"+page))
}

type pageData struct {
	Title    string
	Username string
	Flash    string
	Data     any
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, page, title, username string, data any) {
	tmpl, ok := pageTemplates[page]
	if !ok {
		h.logger.Error("Unknown page template", zap.String("page", page))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	pd := pageData{
		Title:    title,
		Username: username,
		Flash:    popFlash(w, r),
		Data:     data,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.ExecuteTemplate(w, "layout.html", pd); err != nil {
		h.logger.Error("Failed to render template", zap.String("page", page), zap.Error(err))
	}
}
