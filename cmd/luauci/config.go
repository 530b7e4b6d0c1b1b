package main

import (
	"fmt"
	"strconv"
	"strings"
)

const SERVICENAME = "luauci"
const APIKEYENV = "API_KEY"

// parsePlaceIDs splits a comma-separated flag value into place IDs.
func parsePlaceIDs(s string) ([]int64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, fmt.Errorf("at least one place ID is required")
	}
	parts := strings.Split(s, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid place ID %q: %w", part, err)
		}
		if id <= 0 {
			return nil, fmt.Errorf("place ID must be positive, got %d", id)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
