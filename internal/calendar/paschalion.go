package calendar

import (
	"fmt"
	"time"
)

// CalculatePascha returns the civil (Gregorian) date of Orthodox Pascha for
// a given year.
//
// The date is found on the Julian calendar with the Meeus algorithm and then
// shifted by the Julian-Gregorian gap of that century. Valid for 1583-4099.
func CalculatePascha(year int) time.Time {
	a := year % 4
	b := year % 7
	c := year % 19
	d := (19*c + 15) % 30
	e := (2*a + 4*b - d + 34) % 7
	month := (d + e + 114) / 31
	day := ((d + e + 114) % 31) + 1

	julian := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return julian.AddDate(0, 0, julianOffset(year))
}

// julianOffset is the number of days the Julian calendar lags behind the
// Gregorian one in March-May of the given year.
func julianOffset(year int) int {
	return year/100 - year/400 - 2
}

// MovableFeast is a day whose date follows Pascha.
type MovableFeast struct {
	Key    string `json:"key"`
	Name   string `json:"name"`
	Date   string `json:"date"`
	Offset int    `json:"offset"` // days from Pascha
}

// movableCycle lists the movable feasts by offset from Pascha.
var movableCycle = []struct {
	key    string
	name   string
	offset int
}{
	{"publican_pharisee", "Sunday of the Publican and the Pharisee", -70},
	{"meatfare", "Meatfare Sunday", -56},
	{"cheesefare", "Cheesefare Sunday (Forgiveness Sunday)", -49},
	{"great_lent", "Clean Monday, start of Great Lent", -48},
	{"lazarus_saturday", "Lazarus Saturday", -8},
	{"palm_sunday", "Entry of the Lord into Jerusalem", -7},
	{"holy_friday", "Great and Holy Friday", -2},
	{"pascha", "Pascha", 0},
	{"mid_pentecost", "Mid-Pentecost", 24},
	{"ascension", "Ascension of the Lord", 39},
	{"pentecost", "Holy Trinity (Pentecost)", 49},
	{"all_saints", "Sunday of All Saints", 56},
	{"apostles_fast", "Start of the Apostles' Fast", 57},
}

// Paschalion is the movable cycle of one year.
type Paschalion struct {
	Year   int            `json:"year"`
	Pascha string         `json:"pascha"`
	Feasts []MovableFeast `json:"feasts"`
}

// PaschalionFor computes Pascha and the movable feasts of a year.
func PaschalionFor(year int) (*Paschalion, error) {
	if year < 1583 || year > 4099 {
		return nil, fmt.Errorf("year %d out of supported range 1583-4099", year)
	}

	pascha := CalculatePascha(year)
	p := &Paschalion{
		Year:   year,
		Pascha: pascha.Format(DateLayout),
		Feasts: make([]MovableFeast, 0, len(movableCycle)),
	}
	for _, f := range movableCycle {
		p.Feasts = append(p.Feasts, MovableFeast{
			Key:    f.key,
			Name:   f.name,
			Date:   pascha.AddDate(0, 0, f.offset).Format(DateLayout),
			Offset: f.offset,
		})
	}
	return p, nil
}

// CalculateGreatLent returns Clean Monday, the first day of Great Lent.
func CalculateGreatLent(year int) time.Time {
	return CalculatePascha(year).AddDate(0, 0, -48)
}

// CalculateAscension returns Ascension, 39 days after Pascha (always a Thursday).
func CalculateAscension(year int) time.Time {
	return CalculatePascha(year).AddDate(0, 0, 39)
}

// CalculatePentecost returns Holy Trinity Sunday, 49 days after Pascha.
func CalculatePentecost(year int) time.Time {
	return CalculatePascha(year).AddDate(0, 0, 49)
}

// WeekAfterPascha returns which week of the Pentecostarion date falls in,
// counting Bright Week as 1. Dates before Pascha return 0.
func WeekAfterPascha(date time.Time) int {
	pascha := CalculatePascha(date.Year())
	civil := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	if civil.Before(pascha) {
		return 0
	}
	daysDiff := int(civil.Sub(pascha).Hours() / 24)
	return (daysDiff / 7) + 1
}
