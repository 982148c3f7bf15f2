package httpapi

import (
	_ "embed"
	"html/template"
	"net/http"
)

//go:embed openapi.yaml
var openAPISpec []byte

const openAPIPath = "/openapi.yaml"

var swaggerPage = template.Must(template.New("swagger").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<link rel="stylesheet" href="{{.AssetBase}}/swagger-ui.css">
</head>
<body style="margin:0">
<div id="swagger-ui"></div>
<script src="{{.AssetBase}}/swagger-ui-bundle.js"></script>
<script>
SwaggerUIBundle({url: {{.SpecURL}}, dom_id: "#swagger-ui", deepLinking: true});
</script>
</body>
</html>
`))

type swaggerPageData struct {
	Title     string
	AssetBase string
	SpecURL   string
}

func (h *Handler) OpenAPI(w http.ResponseWriter, r *http.Request) {
	_, span := startSpan(r.Context(), "httpapi.Handler.OpenAPI")
	defer span.End()

	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(openAPISpec)
}

func (h *Handler) SwaggerUI(w http.ResponseWriter, r *http.Request) {
	ctx, span := startSpan(r.Context(), "httpapi.Handler.SwaggerUI")
	defer span.End()

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := swaggerPage.Execute(w, swaggerPageData{
		Title:     "Contest Feed API Docs",
		AssetBase: "https://unpkg.com/swagger-ui-dist@5",
		SpecURL:   openAPIPath,
	})
	if err != nil {
		h.logger.WarnContext(ctx, "render swagger ui", "error", err)
	}
}
