// ABOUTME: Login page template and rendering
// ABOUTME: One self-contained page, parsed from a string constant

package loginwall

import (
	"html/template"
	"net/http"
)

const loginPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Login</title>
  <style>
    body { font-family: system-ui, sans-serif; display: flex; justify-content: center;
      align-items: center; min-height: 100vh; margin: 0; background: #f5f5f5; }
    form { background: #fff; padding: 2rem; border-radius: 4px; min-width: 18rem;
      box-shadow: 0 1px 4px rgba(0,0,0,0.15); }
    h1 { margin-top: 0; font-size: 1.2rem; }
    label { display: block; margin: 0.8rem 0 0.25rem; font-weight: 600; }
    input { width: 100%; padding: 0.4rem; box-sizing: border-box; }
    button { margin-top: 1.2rem; width: 100%; background: #2c3e50; color: #fff;
      border: 0; padding: 0.5rem; border-radius: 3px; cursor: pointer; }
    .error { color: #a33; margin: 0 0 0.5rem; }
  </style>
</head>
<body>
  <form method="post" action="/login/">
    <h1>Sign in</h1>
    {{if .Error}}<p class="error">{{.Error}}</p>{{end}}
    <label for="username">Username</label>
    <input type="text" id="username" name="username" autocomplete="username">
    <label for="password">Password</label>
    <input type="password" id="password" name="password" autocomplete="current-password">
    <input type="hidden" name="next" value="{{.Next}}">
    <button type="submit">Sign in</button>
  </form>
</body>
</html>
`

var loginTemplate = template.Must(template.New("login").Parse(loginPage))

type loginData struct {
	Error string
	Next  string
}

func (wall *Wall) renderLoginPage(w http.ResponseWriter, errorMsg, next string) {
	data := loginData{Error: errorMsg, Next: next}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := loginTemplate.Execute(w, data); err != nil {
		wall.logger.Error("failed to render login page", "error", err)
	}
}
