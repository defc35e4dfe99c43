package views

import (
	"embed"
	"errors"
	"html/template"
	"io"
	"io/fs"
	"time"
)

//go:embed templates
var viewsFS embed.FS

var boardTmpl *template.Template

// loadTemplatesFromFS loads board templates from the given fs and dir.
// Used by LoadTemplates and by tests to simulate failure scenarios.
func loadTemplatesFromFS(fsys fs.FS, dir string) error {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		return err
	}
	boardTmpl, err = template.ParseFS(sub, "*.html")
	if err != nil {
		return err
	}
	return nil
}

// LoadTemplates loads the embedded board templates. Call during startup
// before serving requests; if it returns an error, do not start the server.
func LoadTemplates() error {
	return loadTemplatesFromFS(viewsFS, "templates")
}

// BoardDeparture is one row of a stop's upcoming list.
type BoardDeparture struct {
	Time        string
	Route       string
	Destination string
	Realtime    bool
}

// BoardStop is the view model for one stop on the departure board.
type BoardStop struct {
	StopID   string
	Code     string
	Name     string
	State    string
	PolledAt time.Time
	Upcoming []BoardDeparture
}

type BoardData struct {
	Stops []BoardStop
}

func RenderBoard(w io.Writer, data BoardData) error {
	if boardTmpl == nil {
		return errors.New("board template not loaded: call views.LoadTemplates during startup")
	}
	return boardTmpl.ExecuteTemplate(w, "board.html", data)
}
