package departures

import (
	"testing"
	"time"
)

func TestServiceDate(t *testing.T) {
	loc := time.FixedZone("NZST", 12*3600)
	now := time.Date(2025, 7, 14, 18, 45, 12, 0, loc)

	got := ServiceDate(now)

	want := time.Date(2025, 7, 14, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("ServiceDate(%v) = %v, want %v", now, got, want)
	}
}

func TestParseServiceTime(t *testing.T) {
	sd := time.Date(2025, 7, 14, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		clock   string
		want    time.Time
		wantErr bool
	}{
		{
			name:  "morning",
			clock: "08:15:00",
			want:  time.Date(2025, 7, 14, 8, 15, 0, 0, time.UTC),
		},
		{
			name:  "after midnight service rolls to next day",
			clock: "25:10:00",
			want:  time.Date(2025, 7, 15, 1, 10, 0, 0, time.UTC),
		},
		{
			name:  "exactly midnight next day",
			clock: "24:00:00",
			want:  time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC),
		},
		{name: "minutes out of range", clock: "08:61:00", wantErr: true},
		{name: "not a clock", clock: "soon", wantErr: true},
		{name: "empty", clock: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseServiceTime(tt.clock, sd)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseServiceTime(%q) error = nil, want non-nil", tt.clock)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseServiceTime(%q): %v", tt.clock, err)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseServiceTime(%q) = %v, want %v", tt.clock, got, tt.want)
			}
		})
	}
}
