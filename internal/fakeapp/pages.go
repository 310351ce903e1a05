package fakeapp

import (
	"html/template"
	"io"
)

const layout = `{{define "head"}}<!DOCTYPE html>
<html lang="en"><head><meta charset="utf-8"><title>{{.Title}} | DB Admin</title></head>
<body>
{{if .Flash}}<div class="alert">{{.Flash}}</div>{{end}}{{end}}
{{define "csrf"}}<input type="hidden" name="_csrf" value="{{.CSRF}}"/>{{end}}
{{define "foot"}}</body></html>{{end}}
`

var pages = template.Must(template.New("layout").Parse(layout + `
{{define "registration"}}{{template "head" .}}
<h1>Registration</h1>
<form method="post" action="/registration">
{{template "csrf" .}}
<input name="login" type="email"/>
<input name="password" type="password"/>
<input name="conformation" type="password"/>
<button type="submit">Sign up</button>
</form>
{{template "foot" .}}{{end}}

{{define "registered"}}{{template "head" .}}
<h1>Welcome</h1>
<p>Account <b>{{.Login}}</b> registered.</p>
<a href="/profile">Go to profile</a>
{{template "foot" .}}{{end}}

{{define "profile"}}{{template "head" .}}
<h1>Profile of {{.Login}}</h1>
<section><h2>User Preset</h2>
{{if .Upgraded}}<p>It's your {{.Role}} plan.</p>{{else}}<form method="post" action="/profile/upgrade">{{template "csrf" .}}<input type="hidden" name="role" value="BASIC_USER"/><button>Upgrade</button></form>{{end}}
</section>
<section><h2>API's keys</h2><p>No keys yet.</p></section>
<section><h2>Database user</h2><p>{{.Login}}</p></section>
{{template "foot" .}}{{end}}

{{define "dashboard"}}{{template "head" .}}
<h1>Dashboard</h1>
<div class="stat">Total Space: {{len .Databases}} MB</div>
<div class="stat">Bases: {{len .Databases}}</div>
<h2>Databases</h2>
{{range .Databases}}<div class="card"><h6>
  {{.}}
</h6><a href="/database/{{.}}">open</a></div>
{{end}}<form method="post" action="/database">{{template "csrf" .}}<button>Create database</button></form>
{{template "foot" .}}{{end}}

{{define "database"}}{{template "head" .}}
<h1>{{.Database}}</h1>
<p>Investigate your database. Look to your data from browser.</p>
<p>Seed yor database with your or shared scripts</p>
<nav><a href="/database/{{.Database}}/table">Tables</a> <a href="/database/{{.Database}}/sql">SQL</a> <a href="/database/{{.Database}}/point">Backups</a></nav>
{{template "foot" .}}{{end}}

{{define "points"}}{{template "head" .}}
<h1>{{.Database}} Backup</h1>
<h2>New backup</h2>
<form method="post" action="/database/{{.Database}}/point/">{{template "csrf" .}}<input name="point"/><button>Create new backup</button></form>
<ul>{{range .Points}}<li>{{.}}</li>{{end}}</ul>
{{template "foot" .}}{{end}}

{{define "sql"}}{{template "head" .}}
<h1>{{.Database}} SQL</h1>
<form method="post" action="/database/{{.Database}}/sql">{{template "csrf" .}}<textarea name="query"></textarea></form>
<p>Press Ctrl+Enter to run current query.</p>
<p>Press Ctrl+Shift+Enter to run all query.</p>
{{if .Result}}<pre class="result">{{.Result}}</pre>{{end}}
{{template "foot" .}}{{end}}

{{define "tables"}}{{template "head" .}}
<h1>{{.Database}} tables</h1>
<table><thead><tr><th>Table name</th><th>Rows</th></tr></thead><tbody>
{{range .Tables}}<tr><td><a href="/database/{{$.Database}}/table/{{.Name}}">{{.Name}}</a></td><td>{{.Rows}}</td></tr>
{{end}}</tbody></table>
{{template "foot" .}}{{end}}

{{define "table"}}{{template "head" .}}
<h1>{{.Database}}.{{.Table}}</h1>
<table><thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead><tbody>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody></table>
{{template "foot" .}}{{end}}
`))

type tableSummary struct {
	Name string
	Rows int
}

type page struct {
	Title     string
	Flash     string
	CSRF      string
	Login     string
	Role      string
	Upgraded  bool
	Databases []string
	Database  string
	Points    []string
	Result    string
	Tables    []tableSummary
	Table     string
	Columns   []string
	Rows      [][]string
}

func render(w io.Writer, name string, p page) error {
	if p.Title == "" {
		p.Title = name
	}
	return pages.ExecuteTemplate(w, name, p)
}
