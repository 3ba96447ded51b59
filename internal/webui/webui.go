// Package webui renders the built-in browser chat shell. Pages are plain
// server-rendered HTML forms; every action is a POST that redirects back to
// the page, so the shell works without JavaScript.
package webui

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"

	"github.com/54b3r/kscan/internal/chat"
	"github.com/54b3r/kscan/internal/search"
	"github.com/54b3r/kscan/internal/version"
)

//go:embed templates/*.html static/*
var content embed.FS

// Card is one entry on the landing view.
type Card struct {
	Title string
	Text  string
}

// LandingCards are shown before the first query.
var LandingCards = []Card{
	{Title: "Retrieve Documents", Text: "Ask a question and get the most relevant document chunks from the index."},
	{Title: "Create Annotated Bibliographies", Text: "Pick the documents that matter and get a citation for each source."},
	{Title: "Generate Knowledge Scans", Text: "Combine the selection into per-document and overall summaries."},
}

// Page is the data passed to the page template.
type Page struct {
	State chat.State
	Cards []Card
	// Base is the path prefix the shell is mounted on, e.g. "/chat".
	Base    string
	Version string
}

// UI renders the chat shell.
type UI struct {
	tmpl *template.Template
	base string
}

// New parses the embedded templates. base is the mount path without a
// trailing slash.
func New(base string) (*UI, error) {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"displayName": func(d search.Document) string { return d.DisplayName() },
		"relevanceClass": func(r search.Relevance) string { return r.Class() },
	}).ParseFS(content, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("webui: parse templates: %w", err)
	}
	return &UI{tmpl: tmpl, base: base}, nil
}

// Render writes the page for st. Output is buffered so a template error
// never leaves a half-written page.
func (u *UI) Render(w io.Writer, st chat.State) error {
	var buf bytes.Buffer
	page := Page{State: st, Cards: LandingCards, Base: u.base, Version: version.Version}
	if err := u.tmpl.ExecuteTemplate(&buf, "page.html", page); err != nil {
		return fmt.Errorf("webui: render: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Static serves the embedded stylesheet and script. Mount it with the
// prefix stripped, e.g. under "/chat/static/".
func Static() http.Handler {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServerFS(sub)
}
