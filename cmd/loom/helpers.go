package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

func parseDocID(arg string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid document id %q", arg)
	}
	return id, nil
}

// formatTimestamp renders an RFC 3339 wire timestamp in local time for
// display, falling back to the raw value if it does not parse.
func formatTimestamp(value string) string {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return value
	}
	return ts.Local().Format("2006-01-02 15:04")
}

func formatStageState(state string) string {
	switch state {
	case "locked":
		return "Locked"
	case "available":
		return "Available"
	case "executing":
		return "Executing"
	case "completed":
		return "Completed"
	default:
		return state
	}
}

func truncate(value string, max int) string {
	if max <= 3 || len(value) <= max {
		return value
	}
	return value[:max-3] + "..."
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
