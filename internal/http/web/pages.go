// Package web renders the static error pages shown when an access link
// can't be redeemed. Copy differs by failure class; detail never does.
package web

import (
	"html/template"
	"net/http"

	"github.com/sctbrt/bertrandbrands.com/pkg/logger"
)

var errorPage = template.Must(template.New("error").Parse(`<!DOCTYPE html>
<html lang="en" data-theme="dark">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.Title}} — Bertrand Brands</title>
  <meta name="robots" content="noindex">
  <style>
    * { box-sizing: border-box; margin: 0; padding: 0; }
    body {
      font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
      background: #0a0a0a;
      color: #ffffff;
      min-height: 100vh;
      display: flex;
      align-items: center;
      justify-content: center;
      padding: 20px;
    }
    .container { max-width: 420px; text-align: center; }
    h1 { font-size: 1.5rem; font-weight: 500; margin-bottom: 16px; }
    p { font-size: 0.95rem; color: #999999; line-height: 1.6; margin-bottom: 24px; }
    a {
      display: inline-block;
      border: 1px solid #333333;
      color: #ffffff;
      padding: 12px 24px;
      text-decoration: none;
      border-radius: 6px;
      font-size: 0.9rem;
    }
    a:hover { border-color: #555555; background: rgba(255, 255, 255, 0.05); }
  </style>
</head>
<body>
  <div class="container">
    <h1>{{.Title}}</h1>
    <p>{{.Message}}</p>
    <a href="{{.BackHref}}">{{.BackLabel}}</a>
  </div>
</body>
</html>
`))

type errorPageData struct {
	Title     string
	Message   string
	BackHref  string
	BackLabel string
}

// RenderError writes an HTML error page with the given status.
func RenderError(w http.ResponseWriter, status int, title, message, backHref, backLabel string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	err := errorPage.Execute(w, errorPageData{
		Title:     title,
		Message:   message,
		BackHref:  backHref,
		BackLabel: backLabel,
	})
	if err != nil {
		logger.Error("failed to render error page", "error", err)
	}
}
