// Package main runs end-to-end checks of the reservation flow against a
// running API.
//
// Scenarios cover:
//   - Public catalog browsing (departments, doctors, availability)
//   - Patient registration, login and cookie sessions
//   - Booking, double-booking rejection and cancellation
//   - Admin-only routes rejecting patients
//   - Admin reservation search (when admin credentials are provided)
//
// Usage:
//
//	API_BASE_URL=http://localhost:8080 go run scripts/e2e/run_e2e.go              # runs all
//	API_BASE_URL=http://localhost:8080 go run scripts/e2e/run_e2e.go book-cancel  # runs one
//
// ADMIN_EMAIL and ADMIN_PASSWORD enable the admin scenarios.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"time"
)

// ---------------------------------------------------------------------------
// Constants
// ---------------------------------------------------------------------------

const (
	apiPrefix     = "/api/v1"
	searchDays    = 14
	testPassword  = "e2e-password-1"
	testPatient   = "E2E Patient"
	testPhone     = "090-1234-5678"
	clientTimeout = 10 * time.Second
)

var (
	apiBase       string
	adminEmail    string
	adminPassword string
)

// ---------------------------------------------------------------------------
// Scenario definition
// ---------------------------------------------------------------------------

type scenario struct {
	Name string
	Fn   func(t *T)
}

// T is a lightweight test context for a single scenario.
type T struct {
	passed int
	failed int
	name   string
}

func (t *T) check(name string, ok bool) {
	if ok {
		fmt.Printf("    PASS: %s\n", name)
		t.passed++
	} else {
		fmt.Printf("    FAIL: %s\n", name)
		t.failed++
	}
}

func (t *T) fatalf(format string, args ...interface{}) {
	fmt.Printf("    FATAL: "+format+"\n", args...)
	t.failed++
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type session struct {
	client *http.Client
}

func newSession() *session {
	jar, _ := cookiejar.New(nil)
	return &session{client: &http.Client{Jar: jar, Timeout: clientTimeout}}
}

func (s *session) do(method, path string, body interface{}, out interface{}) (int, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, apiBase+path, reader)
	if err != nil {
		return 0, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, err
		}
	}
	return resp.StatusCode, nil
}

func (s *session) login(email, password string) (int, error) {
	return s.do(http.MethodPost, apiPrefix+"/auth/login", map[string]string{"username": email, "password": password}, nil)
}

// patientSession registers a fresh patient and logs in.
func patientSession(t *T) *session {
	s := newSession()
	email := fmt.Sprintf("e2e-%d@example.com", time.Now().UnixNano())
	code, err := s.do(http.MethodPost, apiPrefix+"/auth/register", map[string]string{"email": email, "password": testPassword}, nil)
	if err != nil || code != http.StatusNoContent {
		t.fatalf("register returned %d: %v", code, err)
		return nil
	}
	code, err = s.login(email, testPassword)
	if err != nil || code != http.StatusNoContent {
		t.fatalf("login returned %d: %v", code, err)
		return nil
	}
	return s
}

type department struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type doctor struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	DepartmentID int64  `json:"departmentId"`
}

type slot struct {
	TimeSlotID int64  `json:"timeSlotId"`
	StartTime  string `json:"startTime"`
}

type reservation struct {
	ID     int64  `json:"reservationId"`
	Status string `json:"status"`
}

func firstDoctor(s *session) (doctor, error) {
	var doctors []doctor
	if code, err := s.do(http.MethodGet, apiPrefix+"/doctors", nil, &doctors); err != nil || code != http.StatusOK {
		return doctor{}, fmt.Errorf("list doctors returned %d: %v", code, err)
	}
	if len(doctors) == 0 {
		return doctor{}, fmt.Errorf("no doctors configured")
	}
	return doctors[0], nil
}

// findOpenSlot scans forward from today for the doctor's first bookable slot.
func findOpenSlot(s *session, doctorID int64) (string, slot, error) {
	day := time.Now()
	for i := 0; i < searchDays; i++ {
		date := day.AddDate(0, 0, i).Format("2006-01-02")
		var slots []slot
		path := fmt.Sprintf("%s/timeslots?doctorId=%d&date=%s", apiPrefix, doctorID, date)
		if code, err := s.do(http.MethodGet, path, nil, &slots); err != nil || code != http.StatusOK {
			continue
		}
		if len(slots) > 0 {
			return date, slots[len(slots)-1], nil
		}
	}
	return "", slot{}, fmt.Errorf("no open slot within %d days", searchDays)
}

// ---------------------------------------------------------------------------
// Scenarios
// ---------------------------------------------------------------------------

func scenarioHealth(t *T) {
	code, err := newSession().do(http.MethodGet, "/health", nil, nil)
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	t.check("health returns 200", code == http.StatusOK)
}

func scenarioCatalog(t *T) {
	s := newSession()
	var depts []department
	code, err := s.do(http.MethodGet, apiPrefix+"/departments", nil, &depts)
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	t.check("departments are public", code == http.StatusOK)
	t.check("at least one department", len(depts) > 0)
	if len(depts) == 0 {
		return
	}

	var doctors []doctor
	code, err = s.do(http.MethodGet, fmt.Sprintf("%s/doctors/%d", apiPrefix, depts[0].ID), nil, &doctors)
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	t.check("doctors by department returns 200", code == http.StatusOK)
	for _, d := range doctors {
		if d.DepartmentID != depts[0].ID {
			t.check("doctor belongs to requested department", false)
			return
		}
	}
	t.check("doctors filtered by department", true)
}

func scenarioBookAndCancel(t *T) {
	s := patientSession(t)
	if s == nil {
		return
	}
	doc, err := firstDoctor(s)
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	date, open, err := findOpenSlot(s, doc.ID)
	if err != nil {
		t.fatalf("%v", err)
		return
	}

	body := map[string]interface{}{"timeSlotId": open.TimeSlotID, "name": testPatient, "phoneNumber": testPhone}
	var created reservation
	code, err := s.do(http.MethodPost, apiPrefix+"/reservations", body, &created)
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	t.check("booking returns 201", code == http.StatusCreated)
	t.check("booking is confirmed", created.Status == "CONFIRMED")

	code, _ = s.do(http.MethodPost, apiPrefix+"/reservations", body, nil)
	t.check("second booking of the slot returns 409", code == http.StatusConflict)

	var slots []slot
	path := fmt.Sprintf("%s/timeslots?doctorId=%d&date=%s", apiPrefix, doc.ID, date)
	_, _ = s.do(http.MethodGet, path, nil, &slots)
	t.check("booked slot no longer listed", !containsSlot(slots, open.TimeSlotID))

	var canceled reservation
	code, err = s.do(http.MethodPatch, fmt.Sprintf("%s/reservations/%d/cancel", apiPrefix, created.ID), nil, &canceled)
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	t.check("cancel returns 200", code == http.StatusOK)
	t.check("reservation is canceled", canceled.Status == "CANCELED")

	slots = nil
	_, _ = s.do(http.MethodGet, path, nil, &slots)
	t.check("canceled slot is bookable again", containsSlot(slots, open.TimeSlotID))
}

func scenarioPatientForbidden(t *T) {
	s := patientSession(t)
	if s == nil {
		return
	}
	code, _ := s.do(http.MethodGet, apiPrefix+"/admin/reservations", nil, nil)
	t.check("patient cannot search reservations", code == http.StatusForbidden)
	code, _ = s.do(http.MethodPost, apiPrefix+"/departments", map[string]string{"name": "E2E"}, nil)
	t.check("patient cannot create departments", code == http.StatusForbidden)

	code, _ = newSession().do(http.MethodGet, apiPrefix+"/reservations", nil, nil)
	t.check("anonymous reservations list returns 401", code == http.StatusUnauthorized)
}

func scenarioAdminSearch(t *T) {
	if adminEmail == "" || adminPassword == "" {
		fmt.Println("    SKIP: ADMIN_EMAIL/ADMIN_PASSWORD not set")
		return
	}
	s := newSession()
	if code, err := s.login(adminEmail, adminPassword); err != nil || code != http.StatusNoContent {
		t.fatalf("admin login returned %d: %v", code, err)
		return
	}
	var page struct {
		Reservations []reservation `json:"reservations"`
		Count        int           `json:"count"`
	}
	code, err := s.do(http.MethodGet, apiPrefix+"/admin/reservations?limit=5", nil, &page)
	if err != nil {
		t.fatalf("%v", err)
		return
	}
	t.check("admin search returns 200", code == http.StatusOK)
	t.check("page respects limit", len(page.Reservations) <= 5)
	t.check("count covers the page", page.Count >= len(page.Reservations))
}

func containsSlot(slots []slot, id int64) bool {
	for _, s := range slots {
		if s.TimeSlotID == id {
			return true
		}
	}
	return false
}

// ---------------------------------------------------------------------------
// Main
// ---------------------------------------------------------------------------

func main() {
	apiBase = os.Getenv("API_BASE_URL")
	if apiBase == "" {
		fmt.Fprintln(os.Stderr, "ERROR: API_BASE_URL required")
		os.Exit(1)
	}
	adminEmail = os.Getenv("ADMIN_EMAIL")
	adminPassword = os.Getenv("ADMIN_PASSWORD")

	scenarios := []scenario{
		{"health", scenarioHealth},
		{"catalog", scenarioCatalog},
		{"book-cancel", scenarioBookAndCancel},
		{"patient-forbidden", scenarioPatientForbidden},
		{"admin-search", scenarioAdminSearch},
	}

	// Filter by name if argument provided
	filter := ""
	if len(os.Args) > 1 {
		filter = os.Args[1]
	}

	totalPassed := 0
	totalFailed := 0
	scenarioResults := make([]string, 0)

	for _, s := range scenarios {
		if filter != "" && s.Name != filter {
			continue
		}

		fmt.Printf("\n========================================\n")
		fmt.Printf("SCENARIO: %s\n", s.Name)
		fmt.Printf("========================================\n")

		t := &T{name: s.Name}
		s.Fn(t)

		totalPassed += t.passed
		totalFailed += t.failed

		status := "PASS"
		if t.failed > 0 {
			status = "FAIL"
		}
		scenarioResults = append(scenarioResults, fmt.Sprintf("  %s %s (%d passed, %d failed)", status, s.Name, t.passed, t.failed))
	}

	fmt.Printf("\n========================================\n")
	fmt.Println("SUMMARY")
	fmt.Printf("========================================\n")
	for _, r := range scenarioResults {
		fmt.Println(r)
	}
	fmt.Printf("\nTotal: %d passed, %d failed\n", totalPassed, totalFailed)

	if totalFailed > 0 {
		fmt.Println("\nSOME CHECKS FAILED")
		os.Exit(1)
	}
	fmt.Println("\nALL CHECKS PASSED")
}
