package services

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/ochairo/pgbrew/internal/domain/entities"
)

const defaultCaveats = `Thank you for installing {{.Name}}!

Run ` + "`{{.Installer}}`" + ` to finish installation on {{.Formula}}

After that you can enable the {{.Name}} extension from psql:
  CREATE EXTENSION {{.Name}};
`

// CaveatsData is the template data available to recipe caveats.
type CaveatsData struct {
	Name      string
	Version   string
	Installer string
	Formula   string
}

// RenderCaveats renders the recipe caveats (or the default text) for the
// formula the resolution picked.
func RenderCaveats(r *entities.Recipe, res entities.Resolution) (string, error) {
	text := r.Caveats
	if text == "" {
		text = defaultCaveats
	}
	tmpl, err := template.New(r.Name).Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("failed to parse caveats: %w", err)
	}
	data := CaveatsData{
		Name:      r.Name,
		Version:   r.Version,
		Installer: r.Install.Installer,
		Formula:   res.Formula(r.Postgres.DefaultFormula()),
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render caveats: %w", err)
	}
	return buf.String(), nil
}
