package exporter

import (
	"math"
	"strconv"
)

// formatFloat formats a float64 value for tabular output with at most six
// decimals and no trailing zeros. NaN is written as NA.
func formatFloat(f float64) string {
	if math.IsNaN(f) {
		return "NA"
	}
	if math.IsInf(f, 0) {
		if f > 0 {
			return "Inf"
		}
		return "-Inf"
	}
	s := strconv.FormatFloat(f, 'f', 6, 64)
	s = trimZeros(s)
	if s == "-0" {
		return "0"
	}
	return s
}

func trimZeros(s string) string {
	dot := -1
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			dot = i
			break
		}
	}
	if dot < 0 {
		return s
	}
	end := len(s)
	for end > dot+1 && s[end-1] == '0' {
		end--
	}
	if end == dot+1 {
		end = dot
	}
	return s[:end]
}

// formatInt formats an int value for tabular output
func formatInt(i int) string {
	return strconv.Itoa(i)
}

// parseCell returns the numeric value of a formatted cell, if it has one.
func parseCell(s string) (float64, bool) {
	if s == "" || s == "NA" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
