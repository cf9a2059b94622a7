package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DayLayout is the calendar day wire format. ISO dates in this layout sort
// lexicographically in chronological order, so day ranges are compared as
// plain strings throughout.
const DayLayout = "2006-01-02"

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// ValidDay reports whether s is a valid DayLayout calendar day.
func ValidDay(s string) bool {
	t, err := time.Parse(DayLayout, s)
	return err == nil && t.Format(DayLayout) == s
}

// Today returns the current calendar day in UTC.
func Today() string {
	return time.Now().UTC().Format(DayLayout)
}

// MonthBounds returns the first and last day of a calendar month.
func MonthBounds(year int, month time.Month) (first, last string) {
	f := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	l := f.AddDate(0, 1, -1)
	return f.Format(DayLayout), l.Format(DayLayout)
}

// Getwd finds the project root by walking up from the working directory
// until a go.mod is found.
// go-test changes the working directory to the test package being run,
// see: https://stackoverflow.com/questions/23847003/golang-tests-and-working-directory
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	currDir := wd
	for {
		if _, err := os.Stat(filepath.Join(currDir, "go.mod")); err == nil {
			return currDir
		}
		newDir := filepath.Dir(currDir)
		if newDir == string(os.PathSeparator) || newDir == currDir {
			return wd // fall back to the raw working directory
		}
		currDir = newDir
	}
}
