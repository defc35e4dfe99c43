package views

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

func TestLoadTemplates_success(t *testing.T) {
	err := LoadTemplates()
	if err != nil {
		t.Fatalf("LoadTemplates() = %v; want nil", err)
	}
	if boardTmpl == nil {
		t.Fatal("LoadTemplates() left boardTmpl nil")
	}
}

func TestLoadTemplates_failure_sub(t *testing.T) {
	// Empty FS has no "templates" directory; fs.Sub fails.
	emptyFS := fstest.MapFS{}
	err := loadTemplatesFromFS(emptyFS, "templates")
	if err == nil {
		t.Fatal("loadTemplatesFromFS(emptyFS, \"templates\") = nil; want error")
	}
}

func TestLoadTemplates_failure_parse(t *testing.T) {
	// FS with invalid template syntax; ParseFS fails.
	badFS := fstest.MapFS{
		"templates/board.html": {Data: []byte("{{ .")},
	}
	err := loadTemplatesFromFS(badFS, "templates")
	if err == nil {
		t.Fatal("loadTemplatesFromFS(badFS, \"templates\") = nil; want error")
	}
}

func TestRenderBoard_notLoaded(t *testing.T) {
	prev := boardTmpl
	boardTmpl = nil
	t.Cleanup(func() { boardTmpl = prev })

	var buf bytes.Buffer
	err := RenderBoard(&buf, BoardData{})
	if err == nil {
		t.Fatal("RenderBoard() = nil; want error when templates not loaded")
	}
	if !strings.Contains(err.Error(), "not loaded") {
		t.Errorf("err = %q; want message containing \"not loaded\"", err.Error())
	}
}

func TestRenderBoard_emptyData(t *testing.T) {
	if err := LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates(): %v", err)
	}

	var buf bytes.Buffer
	err := RenderBoard(&buf, BoardData{})
	if err != nil {
		t.Fatalf("RenderBoard(empty data) = %v; want nil", err)
	}
	out := buf.String()
	if !strings.Contains(out, "<!DOCTYPE html>") {
		t.Errorf("output missing DOCTYPE; got %q", out)
	}
	if !strings.Contains(out, "Auckland Transport Departures") {
		t.Errorf("output missing page title; got %q", out)
	}
	if !strings.Contains(out, "No poll results yet") {
		t.Errorf("output missing empty-board message; got %q", out)
	}
}

func TestRenderBoard_withData(t *testing.T) {
	if err := LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates(): %v", err)
	}

	data := BoardData{
		Stops: []BoardStop{
			{
				StopID:   "133-56c57897",
				Code:     "133",
				Name:     "Kingsland Train Station",
				State:    "17:42:00",
				PolledAt: time.Date(2026, 8, 21, 17, 30, 0, 0, time.UTC),
				Upcoming: []BoardDeparture{
					{Time: "17:42:00", Route: "WEST", Destination: "Swanson", Realtime: true},
					{Time: "18:10:00", Route: "WEST", Destination: "Swanson"},
				},
			},
		},
	}

	var buf bytes.Buffer
	err := RenderBoard(&buf, data)
	if err != nil {
		t.Fatalf("RenderBoard(data) = %v; want nil", err)
	}
	out := buf.String()
	if !strings.Contains(out, "Kingsland Train Station") {
		t.Errorf("output missing stop name; got %q", out)
	}
	if !strings.Contains(out, "17:42:00") {
		t.Errorf("output missing state; got %q", out)
	}
	if !strings.Contains(out, "Swanson") {
		t.Errorf("output missing destination; got %q", out)
	}
	if !strings.Contains(out, `class="rt"`) {
		t.Errorf("output missing realtime marker; got %q", out)
	}
	if strings.Contains(out, "No poll results yet") {
		t.Errorf("output shows empty-board message with data; got %q", out)
	}
}

// Ensure RenderBoard propagates write errors (e.g. closed writer).
func TestRenderBoard_writeError(t *testing.T) {
	if err := LoadTemplates(); err != nil {
		t.Fatalf("LoadTemplates(): %v", err)
	}

	w := &failingWriter{err: io.ErrClosedPipe}
	err := RenderBoard(w, BoardData{})
	if err == nil {
		t.Fatal("RenderBoard(failingWriter) = nil; want error")
	}
}

type failingWriter struct{ err error }

func (f *failingWriter) Write([]byte) (int, error) { return 0, f.err }
