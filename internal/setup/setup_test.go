package setup

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/SeitzDaniel/auckland-transport/internal/at"
	"github.com/SeitzDaniel/auckland-transport/internal/config"
)

type fakeLister struct {
	stops []at.Stop
	err   error
}

func (f *fakeLister) ListStops(context.Context) ([]at.Stop, error) {
	return f.stops, f.err
}

func directory() []at.Stop {
	return []at.Stop{
		{ID: "133-56c57897", Code: "133", Name: "Kingsland Train Station"},
		{ID: "7149-a3cb5e4e", Code: "7149", Name: "Dominion Rd/View Rd"},
		{ID: "21797-dabeea9a", Code: "21797", Name: "Half Moon Bay Ferry Terminal"},
		{ID: "9001-00000000", Code: "900100", Name: "Oddly Coded Stop"},
	}
}

func TestValidateResolvesSensors(t *testing.T) {
	lister := &fakeLister{stops: directory()}
	stops := []config.Stop{
		{ID: "133-56c57897"},
		{ID: "7149-a3cb5e4e"},
		{ID: "21797-dabeea9a"},
	}

	sensors, dir, err := Validate(context.Background(), lister, stops)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(dir) != 4 {
		t.Errorf("directory = %d stops", len(dir))
	}
	if len(sensors) != 3 {
		t.Fatalf("sensors = %d", len(sensors))
	}

	cases := []struct {
		code string
		name string
		typ  string
	}{
		{"133", "Kingsland Train Station", "train"},
		{"7149", "Dominion Rd/View Rd", "bus"},
		{"21797", "Half Moon Bay Ferry Terminal", "ferry"},
	}
	for i, want := range cases {
		s := sensors[i]
		if s.Code != want.code || s.Name != want.name || s.Type != want.typ {
			t.Errorf("sensor %d = %+v, want %+v", i, s, want)
		}
	}
}

func TestValidateConfigOverrides(t *testing.T) {
	lister := &fakeLister{stops: directory()}
	stops := []config.Stop{
		{ID: "133-56c57897", Name: "Home Station", Type: "bus"},
	}

	sensors, _, err := Validate(context.Background(), lister, stops)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if sensors[0].Name != "Home Station" {
		t.Errorf("name = %q, want config override", sensors[0].Name)
	}
	if sensors[0].Type != "bus" {
		t.Errorf("type = %q, want config override", sensors[0].Type)
	}
}

func TestValidateNameFallsBackToID(t *testing.T) {
	lister := &fakeLister{stops: []at.Stop{{ID: "no-name", Code: "12"}}}

	sensors, _, err := Validate(context.Background(), lister, []config.Stop{{ID: "no-name"}})
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if sensors[0].Name != "no-name" {
		t.Errorf("name = %q, want stop id fallback", sensors[0].Name)
	}
	if sensors[0].Type != "" {
		t.Errorf("type = %q, want no inference for a 2-digit code", sensors[0].Type)
	}
}

func TestValidateUnknownStops(t *testing.T) {
	lister := &fakeLister{stops: directory()}
	stops := []config.Stop{
		{ID: "133-56c57897"},
		{ID: "does-not-exist"},
		{ID: "also-missing"},
	}

	_, _, err := Validate(context.Background(), lister, stops)
	if err == nil {
		t.Fatal("expected error for unknown stops")
	}
	for _, id := range []string{"does-not-exist", "also-missing"} {
		if !strings.Contains(err.Error(), id) {
			t.Errorf("error %q does not name %s", err, id)
		}
	}
	if strings.Contains(err.Error(), "133-56c57897") {
		t.Errorf("error %q names a stop that resolved fine", err)
	}
}

func TestValidateUnauthorized(t *testing.T) {
	lister := &fakeLister{err: at.ErrUnauthorized}

	_, _, err := Validate(context.Background(), lister, []config.Stop{{ID: "133-56c57897"}})
	if !errors.Is(err, at.ErrUnauthorized) {
		t.Fatalf("err = %v, want ErrUnauthorized preserved", err)
	}
	if !strings.Contains(err.Error(), "api key") {
		t.Errorf("error %q does not mention the api key", err)
	}
}

func TestValidateDirectoryError(t *testing.T) {
	lister := &fakeLister{err: errors.New("connection refused")}

	_, _, err := Validate(context.Background(), lister, []config.Stop{{ID: "133-56c57897"}})
	if err == nil || !strings.Contains(err.Error(), "stops directory") {
		t.Fatalf("err = %v", err)
	}
}

func TestInferType(t *testing.T) {
	cases := []struct {
		code string
		want string
	}{
		{"133", "train"},
		{"7149", "bus"},
		{"21797", "ferry"},
		{"", ""},
		{"12", ""},
		{"900100", ""},
	}
	for _, tc := range cases {
		if got := inferType(tc.code); got != tc.want {
			t.Errorf("inferType(%q) = %q, want %q", tc.code, got, tc.want)
		}
	}
}
