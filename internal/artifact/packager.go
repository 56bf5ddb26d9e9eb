package artifact

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/weftlabs/weft/pkg/resource"
)

// Formats the packager produces.
const (
	FormatHTML   = "html"
	FormatScript = "script"
)

// Packager implements resource.Packager: it wraps generated widget
// source into a distributable artifact.
type Packager struct {
	htmlTmpl *template.Template
}

// NewPackager builds a Packager with the HTML shell parsed once.
func NewPackager() (*Packager, error) {
	tmpl, err := template.New("artifact").Parse(htmlShell)
	if err != nil {
		return nil, fmt.Errorf("parse artifact shell: %w", err)
	}
	return &Packager{htmlTmpl: tmpl}, nil
}

// Package produces the artifact bytes for the given format.
func (p *Packager) Package(format string, sourceText string, requirements []string, imports []string) ([]byte, error) {
	switch format {
	case FormatHTML:
		return p.packageHTML(sourceText, requirements, imports)
	case FormatScript:
		return p.packageScript(sourceText, requirements)
	default:
		return nil, resource.NewErrorf(resource.ErrCodeConfiguration,
			"unknown artifact format %q (want %s or %s)", format, FormatHTML, FormatScript)
	}
}

// packageScript emits the source as-is, with the requirements recorded
// in a header comment so the recipient knows what to install.
func (p *Packager) packageScript(sourceText string, requirements []string) ([]byte, error) {
	var b strings.Builder
	if len(requirements) > 0 {
		b.WriteString("// requires: ")
		b.WriteString(strings.Join(requirements, ", "))
		b.WriteString("\n\n")
	}
	b.WriteString(sourceText)
	if !strings.HasSuffix(sourceText, "\n") {
		b.WriteByte('\n')
	}
	return []byte(b.String()), nil
}

// packageHTML wraps the source in a self-contained viewer page.
func (p *Packager) packageHTML(sourceText string, requirements []string, imports []string) ([]byte, error) {
	var buf bytes.Buffer
	err := p.htmlTmpl.Execute(&buf, map[string]any{
		"Title":        widgetTitle(sourceText),
		"Source":       sourceText,
		"Requirements": requirements,
		"Imports":      imports,
	})
	if err != nil {
		return nil, fmt.Errorf("render artifact shell: %w", err)
	}
	return buf.Bytes(), nil
}

// widgetTitle names the page after the root declaration. Generated
// files declare exactly one top-level var, the root itself; kind
// definitions are funcs and their vars sit indented, so a "var " at
// column zero is the widget name.
func widgetTitle(sourceText string) string {
	for _, line := range strings.Split(sourceText, "\n") {
		if !strings.HasPrefix(line, "var ") {
			continue
		}
		rest := strings.TrimPrefix(line, "var ")
		if name, _, ok := strings.Cut(rest, " "); ok && name != "" {
			return name
		}
	}
	return "weft widget"
}

// htmlShell is the self-contained artifact page: the generated source
// plus its requirements, with a copy button and no external assets.
const htmlShell = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { margin: 0; background: #11151a; color: #dbe2ea; font: 15px/1.5 -apple-system, "Segoe UI", sans-serif; }
main { max-width: 860px; margin: 0 auto; padding: 32px 24px; }
h1 { font-size: 22px; }
h2 { font-size: 15px; color: #8494a6; margin-top: 28px; }
pre { background: #1a2027; border: 1px solid #2b333d; border-radius: 8px; padding: 16px; overflow-x: auto; font-size: 13px; }
code { font-family: ui-monospace, Menlo, monospace; }
ul { padding-left: 20px; }
button { background: #1a2027; color: #dbe2ea; border: 1px solid #2b333d; border-radius: 6px; padding: 6px 14px; cursor: pointer; }
button:hover { border-color: #4fa3ff; }
</style>
</head>
<body>
<main>
<h1>{{.Title}}</h1>
{{if .Requirements}}<h2>Requirements</h2>
<ul>{{range .Requirements}}<li><code>{{.}}</code></li>{{end}}</ul>{{end}}
{{if .Imports}}<h2>Imports</h2>
<ul>{{range .Imports}}<li><code>{{.}}</code></li>{{end}}</ul>{{end}}
<h2>Source</h2>
<button onclick="navigator.clipboard.writeText(document.getElementById('src').textContent)">Copy</button>
<pre><code id="src">{{.Source}}</code></pre>
</main>
</body>
</html>
`
