package authserver

import "html/template"

// authPageData feeds the identity-confirmation form. The OAuth
// parameters are embedded as hidden fields so they survive the POST
// round-trip unchanged.
type authPageData struct {
	ServerName          string
	Error               string
	ClientID            string
	RedirectURI         string
	State               string
	CodeChallenge       string
	CodeChallengeMethod string
	Scope               string
}

var authPageTmpl = template.Must(template.New("authorize").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
  <title>{{.ServerName}} - Sign in</title>
  <style>
    body { font-family: -apple-system, BlinkMacSystemFont, sans-serif; background: #1a1a2e; color: #e0e0e0; display: flex; justify-content: center; align-items: center; min-height: 100vh; margin: 0; }
    .card { background: #16213e; border-radius: 12px; padding: 2rem; max-width: 400px; width: 90%; box-shadow: 0 4px 20px rgba(0,0,0,0.3); }
    h1 { text-align: center; color: #7bc8a4; margin-bottom: 0.5rem; }
    p { text-align: center; color: #9b9b9b; font-size: 0.9rem; }
    .error { color: #e74c3c; text-align: center; margin: 1rem 0; }
    input[type="email"] { width: 100%; padding: 0.8rem; border: 1px solid #333; border-radius: 8px; background: #0f3460; color: #e0e0e0; font-size: 1rem; margin: 1rem 0; box-sizing: border-box; }
    button { width: 100%; padding: 0.8rem; background: #7bc8a4; color: #1a1a2e; border: none; border-radius: 8px; font-size: 1rem; font-weight: 600; cursor: pointer; }
    button:hover { background: #5fb88a; }
  </style>
</head>
<body>
  <div class="card">
    <h1>{{.ServerName}}</h1>
    <p>Confirm your identity to access your tasks</p>
    {{if .Error}}<div class="error">{{.Error}}</div>{{end}}
    <form method="POST" action="/authorize">
      <input type="email" name="email" placeholder="Email address" required autofocus>
      <input type="hidden" name="client_id" value="{{.ClientID}}">
      <input type="hidden" name="redirect_uri" value="{{.RedirectURI}}">
      <input type="hidden" name="state" value="{{.State}}">
      <input type="hidden" name="code_challenge" value="{{.CodeChallenge}}">
      <input type="hidden" name="code_challenge_method" value="{{.CodeChallengeMethod}}">
      <input type="hidden" name="scope" value="{{.Scope}}">
      <button type="submit">Sign in</button>
    </form>
  </div>
</body>
</html>`))
