package calendar

import (
	"testing"
	"time"
)

func TestCalculatePascha(t *testing.T) {
	tests := []struct {
		year int
		want string
	}{
		{2020, "2020-04-19"},
		{2021, "2021-05-02"},
		{2022, "2022-04-24"},
		{2023, "2023-04-16"},
		{2024, "2024-05-05"},
		{2025, "2025-04-20"},
		{2026, "2026-04-12"},
		{2027, "2027-05-02"},
	}

	for _, tt := range tests {
		got := CalculatePascha(tt.year).Format(DateLayout)
		if got != tt.want {
			t.Errorf("CalculatePascha(%d) = %s, want %s", tt.year, got, tt.want)
		}
		if CalculatePascha(tt.year).Weekday() != time.Sunday {
			t.Errorf("CalculatePascha(%d) is not a Sunday", tt.year)
		}
	}
}

func TestMovableFeasts(t *testing.T) {
	if got := CalculateGreatLent(2024).Format(DateLayout); got != "2024-03-18" {
		t.Errorf("CalculateGreatLent(2024) = %s, want 2024-03-18", got)
	}
	if got := CalculateAscension(2024).Format(DateLayout); got != "2024-06-13" {
		t.Errorf("CalculateAscension(2024) = %s, want 2024-06-13", got)
	}
	if got := CalculatePentecost(2024).Format(DateLayout); got != "2024-06-23" {
		t.Errorf("CalculatePentecost(2024) = %s, want 2024-06-23", got)
	}
}

func TestPaschalionFor(t *testing.T) {
	p, err := PaschalionFor(2025)
	if err != nil {
		t.Fatalf("PaschalionFor() error = %v", err)
	}
	if p.Pascha != "2025-04-20" {
		t.Errorf("Pascha = %s, want 2025-04-20", p.Pascha)
	}

	byKey := make(map[string]MovableFeast)
	for _, f := range p.Feasts {
		byKey[f.Key] = f
	}
	checks := map[string]string{
		"palm_sunday": "2025-04-13",
		"great_lent":  "2025-03-03",
		"pentecost":   "2025-06-08",
		"pascha":      "2025-04-20",
	}
	for key, want := range checks {
		if got := byKey[key].Date; got != want {
			t.Errorf("%s = %s, want %s", key, got, want)
		}
	}

	if _, err := PaschalionFor(1200); err == nil {
		t.Error("PaschalionFor(1200) should fail")
	}
}

func TestWeekAfterPascha(t *testing.T) {
	tests := []struct {
		date string
		want int
	}{
		{"2024-05-04", 0},
		{"2024-05-05", 1},
		{"2024-05-11", 1},
		{"2024-05-12", 2},
		{"2024-06-23", 8},
	}
	for _, tt := range tests {
		d, _ := time.Parse(DateLayout, tt.date)
		if got := WeekAfterPascha(d); got != tt.want {
			t.Errorf("WeekAfterPascha(%s) = %d, want %d", tt.date, got, tt.want)
		}
	}
}
