package page

import (
	"fmt"
	"html/template"
	"io"
)

var (
	indicatorTmpl = template.Must(template.New("indicator").Parse(`<h1>{{.}}</h1>`))
	listingTmpl   = template.Must(template.New("listing").Parse(
		`<div class="listing">
{{- range .}}
<div class="card"><h1>{{.Name}}</h1><section><p>{{.City}}</p><p>{{.Country}}</p></section></div>
{{- end}}
</div>`))
)

// Render writes the HTML fragment for s.
func Render(w io.Writer, s State) error {
	switch s := s.(type) {
	case Loading:
		return indicatorTmpl.Execute(w, "Loading...")
	case Failed:
		return indicatorTmpl.Execute(w, "Error")
	case Missing:
		return indicatorTmpl.Execute(w, "No data")
	case Ready:
		return listingTmpl.Execute(w, s.Places)
	default:
		return fmt.Errorf("page: unknown state %T", s)
	}
}
