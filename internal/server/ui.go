package server

import (
	"html/template"
	"net/http"
)

type endpoint struct {
	Path string
	Doc  string
}

var endpoints = []endpoint{
	{"/api/health", "Health check"},
	{"/api/stats", "Entry counts per kind"},
	{"/api/lookup?id=M:os/exec.Command", "Look up a canonical ID"},
	{"/api/lookup?raw=T:os/exec-Cmd", "Look up a raw list line"},
	{"/api/parse?raw=M:strings-Title%20O", "Parse a raw list line"},
	{"/metrics", "Prometheus metrics"},
}

var indexPage = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
    <title>compatlens</title>
    <style>
        body {
            font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif;
            max-width: 800px;
            margin: 50px auto;
            padding: 20px;
            background: #1a1a1a;
            color: #e5e5e5;
        }
        h1 { color: #60a5fa; }
        .api-list { background: #2a2a2a; padding: 20px; border-radius: 8px; }
        .api-list a { display: block; margin: 10px 0; color: #60a5fa; }
    </style>
</head>
<body>
    <h1>compatlens lookup server</h1>
    <p>Serving {{.Source}}</p>
    <div class="api-list">
        <h3>Available API Endpoints:</h3>
        {{- range .Endpoints}}
        <a href="{{.Path}}">GET {{.Path}}</a> {{.Doc}}
        {{- end}}
    </div>
</body>
</html>
`))

// handleIndex lists the API endpoints.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		s.writeError(w, http.StatusNotFound, "not found")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	data := struct {
		Source    string
		Endpoints []endpoint
	}{s.lists.Source(), endpoints}
	if err := indexPage.Execute(w, data); err != nil {
		s.logger.Error("rendering index", "error", err)
	}
}
