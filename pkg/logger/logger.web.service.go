// Copyright (C) 2025 Josh Simonot
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with this program.  If not, see <https://www.gnu.org/licenses/>.

package logger

import (
	"html/template"
	"net/http"
	"strings"
)

type Service struct{}

func WebService() *Service {
	return &Service{}
}

var page = template.Must(template.New("page").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <title>Node Log</title>
  <style>
    body { font-family: Arial, sans-serif; margin: 2em; background: #f9f9f9; color: #333; }
    .btn { display:inline-block; padding:0.5em 1em; margin:0.2em; font-size:0.9em;
           background:#007bff; color:white; border:none; border-radius:4px; cursor:pointer; }
    .btn-danger { background:#dc3545; }
    pre.log { background:#222; color:#eee; padding:1em; border-radius:6px; max-height:500px; overflow:auto; }
  </style>
</head>
<body>
  <h1>Log</h1>
  <div>
    <b>Debug:</b> {{if .Debug}}<span style="color:green;">ON</span>{{else}}<span style="color:red;">OFF</span>{{end}}
  </div>
  <form method="POST" action="/logger/toggle" style="display:inline;">
    <button class="btn" type="submit">Toggle Debug</button>
  </form>
  <form method="POST" action="/logger/clear" style="display:inline;">
    <button class="btn btn-danger" type="submit">Clear</button>
  </form>
  <h2>Last {{.N}} log lines</h2>
  <pre class="log">{{.Log}}</pre>
</body>
</html>
`))

func (s *Service) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/toggle":
		EnableDebug(!IsDebug())
		http.Redirect(w, r, "/logger", http.StatusSeeOther)

	case "/clear":
		tail.reset()
		http.Redirect(w, r, "/logger", http.StatusSeeOther)

	case "/raw":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte(strings.Join(tail.snapshot(tail.max), "\n")))

	default:
		lines := tail.snapshot(tail.max)
		_ = page.Execute(w, map[string]any{
			"Debug": IsDebug(),
			"N":     tail.max,
			"Log":   strings.Join(lines, "\n"),
		})
	}
}
