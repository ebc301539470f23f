package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// =============================================================================
// Response Types - Match the actual API response structure
// =============================================================================

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// CalendarDay is the response for /api/calendar/{date}
type CalendarDay struct {
	ID          int64     `json:"id"`
	Date        string    `json:"date"`
	Priority    string    `json:"priority"`
	FastingType string    `json:"fastingType"`
	IsHoliday   bool      `json:"isHoliday"`
	Saints      []Saint   `json:"saints"`
	Readings    []Reading `json:"readings"`
}

type Saint struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Reading struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	Reference string `json:"reference"`
}

// Paschalion is the response for /api/calendar/paschalion/{year}
type Paschalion struct {
	Year   int    `json:"year"`
	Pascha string `json:"pascha"`
}

// HealthResponse is the response for /health
type HealthResponse struct {
	Status string `json:"status"`
}

// invalidDateMessage is the exact text the API answers malformed dates with.
const invalidDateMessage = "Invalid date format, expected YYYY-MM-DD"

// =============================================================================
// Test Runner
// =============================================================================

type TestRunner struct {
	baseURL      string
	client       *http.Client
	verbose      bool
	successCount int
	errorCount   int
	errors       []string
}

func NewTestRunner(baseURL string, verbose bool) *TestRunner {
	return &TestRunner{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		verbose: verbose,
	}
}

func (tr *TestRunner) Run(month string) {
	fmt.Println("==============================================")
	fmt.Println("Parish API Smoke Test")
	fmt.Println("==============================================")
	fmt.Printf("Base URL: %s\n", tr.baseURL)
	fmt.Println()

	// Run test groups
	tr.testHealth()
	tr.testToday()
	tr.testSpecificDates()
	tr.testInvalidDates()
	tr.testMonthListing()
	tr.testPaschalion()
	tr.testPublicContent()
	tr.testMonthSweep(month)

	// Print summary
	tr.printSummary()
}

// =============================================================================
// Test Groups
// =============================================================================

func (tr *TestRunner) testHealth() {
	tr.printSection("Health Check")

	var health HealthResponse
	if err := tr.getJSON("/health", &health); err != nil {
		tr.recordError("Health", err.Error())
		return
	}

	if health.Status == "healthy" {
		tr.recordSuccess("Health check passed")
	} else {
		tr.recordError("Health", fmt.Sprintf("Unexpected status: %s", health.Status))
	}
}

func (tr *TestRunner) testToday() {
	tr.printSection("Today")

	today := time.Now().Format("2006-01-02")
	var day CalendarDay
	if err := tr.getJSON("/api/calendar/"+today, &day); err != nil {
		tr.recordError("Today", err.Error())
		return
	}
	tr.recordSuccess(fmt.Sprintf("Today (%s): %s, %d saint(s), %d reading(s)",
		day.Date, day.Priority, len(day.Saints), len(day.Readings)))
	tr.printDayDetail(&day)
}

// testSpecificDates checks that each requested date comes back labelled with
// itself, including the days around month and year boundaries.
func (tr *TestRunner) testSpecificDates() {
	tr.printSection("Specific Date Tests")

	testCases := []struct {
		date        string
		description string
	}{
		{"2024-01-07", "Nativity of Christ"},
		{"2024-02-29", "Leap day"},
		{"2024-03-01", "Day after leap day"},
		{"2024-12-31", "Last day of the year"},
		{"2025-01-01", "First day of the year"},
		{"2025-04-20", "Pascha 2025"},
		{"2025-08-28", "Dormition"},
	}

	for _, tc := range testCases {
		var day CalendarDay
		if err := tr.getJSON("/api/calendar/"+tc.date, &day); err != nil {
			tr.recordError(tc.description, err.Error())
			continue
		}
		if day.Date != tc.date {
			tr.recordError(tc.description, fmt.Sprintf("asked for %s, got %s", tc.date, day.Date))
			continue
		}
		tr.recordSuccess(fmt.Sprintf("%s (%s): %s", tc.description, tc.date, day.Priority))
		if tr.verbose {
			tr.printDayDetail(&day)
		}
	}
}

func (tr *TestRunner) testInvalidDates() {
	tr.printSection("Invalid Dates")

	for _, date := range []string{"2024-13-01", "2023-02-29", "2024-04-31", "20240101", "tomorrow"} {
		status, msg, err := tr.getError("/api/calendar/" + date)
		if err != nil {
			tr.recordError(date, err.Error())
			continue
		}
		if status != http.StatusBadRequest || msg != invalidDateMessage {
			tr.recordError(date, fmt.Sprintf("HTTP %d %q", status, msg))
			continue
		}
		tr.recordSuccess(fmt.Sprintf("%s rejected", date))
	}
}

func (tr *TestRunner) testMonthListing() {
	tr.printSection("Month Listing")

	var days []CalendarDay
	if err := tr.getJSON("/api/calendar/month/2024/2", &days); err != nil {
		tr.recordError("February 2024", err.Error())
		return
	}
	for _, d := range days {
		if !strings.HasPrefix(d.Date, "2024-02-") {
			tr.recordError("February 2024", fmt.Sprintf("day %s outside the month", d.Date))
			return
		}
	}
	tr.recordSuccess(fmt.Sprintf("February 2024: %d stored day(s), all inside the month", len(days)))

	status, _, err := tr.getError("/api/calendar/month/2024/13")
	if err != nil || status != http.StatusBadRequest {
		tr.recordError("Month 13", fmt.Sprintf("HTTP %d %v", status, err))
		return
	}
	tr.recordSuccess("Month 13 rejected")
}

func (tr *TestRunner) testPaschalion() {
	tr.printSection("Paschalion")

	known := map[int]string{
		2024: "2024-05-05",
		2025: "2025-04-20",
		2026: "2026-04-12",
		2027: "2027-05-02",
	}
	for year := 2024; year <= 2027; year++ {
		var p Paschalion
		if err := tr.getJSON(fmt.Sprintf("/api/calendar/paschalion/%d", year), &p); err != nil {
			tr.recordError(fmt.Sprint(year), err.Error())
			continue
		}
		if p.Pascha != known[year] {
			tr.recordError(fmt.Sprint(year), fmt.Sprintf("Pascha %s, expected %s", p.Pascha, known[year]))
			continue
		}
		tr.recordSuccess(fmt.Sprintf("Pascha %d: %s", year, p.Pascha))
	}
}

func (tr *TestRunner) testPublicContent() {
	tr.printSection("Public Content")

	for _, path := range []string{"/api/menu", "/api/news", "/api/pages", "/api/carousel", "/api/sitemap", "/api/schedule"} {
		var v interface{}
		if err := tr.getJSON(path, &v); err != nil {
			tr.recordError(path, err.Error())
			continue
		}
		tr.recordSuccess(path)
	}

	resp, err := tr.getRaw("/api/schedule/ical")
	if err != nil {
		tr.recordError("iCal feed", err.Error())
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.HasPrefix(string(body), "BEGIN:VCALENDAR") {
		tr.recordError("iCal feed", fmt.Sprintf("HTTP %d, %d bytes", resp.StatusCode, len(body)))
		return
	}
	tr.recordSuccess("iCal feed")
}

// testMonthSweep requests every day of month (YYYY-MM) one by one.
func (tr *TestRunner) testMonthSweep(month string) {
	start, err := time.Parse("2006-01", month)
	if err != nil {
		tr.recordError("Sweep", fmt.Sprintf("bad -month %q", month))
		return
	}
	tr.printSection("Full " + start.Format("January 2006"))

	for d := start; d.Month() == start.Month(); d = d.AddDate(0, 0, 1) {
		date := d.Format("2006-01-02")
		var day CalendarDay
		if err := tr.getJSON("/api/calendar/"+date, &day); err != nil {
			tr.recordError(date, err.Error())
			continue
		}
		if day.Date != date {
			tr.recordError(date, "labelled "+day.Date)
			continue
		}

		tr.recordSuccess(fmt.Sprintf("%s: %s [%d saints, %d readings]",
			date, day.Priority, len(day.Saints), len(day.Readings)))

		if tr.verbose {
			tr.printDayDetail(&day)
		}
	}
}

// =============================================================================
// Helper Methods
// =============================================================================

// getJSON expects a 200 and decodes the body into target.
func (tr *TestRunner) getJSON(path string, target interface{}) error {
	resp, err := tr.getRaw(path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read error: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr ErrorResponse
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("API error %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("parse error: %w", err)
	}
	return nil
}

// getError returns the status and error message of a request expected to fail.
func (tr *TestRunner) getError(path string) (int, string, error) {
	resp, err := tr.getRaw(path)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	var apiErr ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil {
		return resp.StatusCode, "", fmt.Errorf("parse error: %w", err)
	}
	return resp.StatusCode, apiErr.Error, nil
}

func (tr *TestRunner) getRaw(path string) (*http.Response, error) {
	url := tr.baseURL + path
	return tr.client.Get(url)
}

func (tr *TestRunner) printSection(name string) {
	fmt.Println()
	fmt.Printf("--- %s ---\n", name)
	fmt.Println()
}

func (tr *TestRunner) printDayDetail(d *CalendarDay) {
	if d == nil {
		return
	}
	for _, s := range d.Saints {
		fmt.Printf("    Saint: %s\n", s.Name)
	}
	if len(d.Readings) > 0 {
		fmt.Printf("    Readings:\n")
		for _, reading := range d.Readings {
			fmt.Printf("      - %s: %s\n", reading.Type, reading.Reference)
		}
	}
	fmt.Println()
}

func (tr *TestRunner) recordSuccess(msg string) {
	tr.successCount++
	fmt.Printf("  ✓ %s\n", msg)
}

func (tr *TestRunner) recordError(context, msg string) {
	tr.errorCount++
	errStr := fmt.Sprintf("%s: %s", context, msg)
	tr.errors = append(tr.errors, errStr)
	fmt.Printf("  ✗ %s\n", errStr)
}

func (tr *TestRunner) printSummary() {
	fmt.Println()
	fmt.Println("==============================================")
	fmt.Println("Summary")
	fmt.Println("==============================================")
	fmt.Printf("  Passed: %d\n", tr.successCount)
	fmt.Printf("  Failed: %d\n", tr.errorCount)
	fmt.Println()

	if tr.errorCount > 0 {
		fmt.Println("Failures:")
		for _, err := range tr.errors {
			fmt.Printf("  • %s\n", err)
		}
		fmt.Println()
	}

	if tr.errorCount == 0 {
		fmt.Println("All tests passed! ✓")
	} else {
		fmt.Printf("Tests completed with %d failure(s)\n", tr.errorCount)
	}
}

// =============================================================================
// Main
// =============================================================================

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "Base URL of the API")
	month := flag.String("month", time.Now().Format("2006-01"), "Month to sweep day by day (YYYY-MM)")
	verbose := flag.Bool("v", false, "Verbose output (show saints and readings)")
	flag.Parse()

	// Check if server is reachable
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(*baseURL + "/health")
	if err != nil {
		fmt.Printf("Error: Cannot connect to %s\n", *baseURL)
		fmt.Println("Make sure the API server is running.")
		os.Exit(1)
	}
	resp.Body.Close()

	runner := NewTestRunner(*baseURL, *verbose)
	runner.Run(*month)

	// Exit with error code if tests failed
	if runner.errorCount > 0 {
		os.Exit(1)
	}
}
