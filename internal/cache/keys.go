package cache

import "fmt"

const (
	// KeyVolunteerStats holds the aggregate statistics snapshot.
	KeyVolunteerStats = "volunteer_stats"
	// KeyDistrictStats is an older per-district aggregate, still cleared on invalidation.
	KeyDistrictStats = "district_stats"
	// PatternVolunteerPages matches every cached unfiltered list page.
	PatternVolunteerPages = "volunteers:*"

	rateLimitPrefix = "rate_limit:"
)

// VolunteerPageKey is the cache key for an unfiltered list page.
func VolunteerPageKey(page, limit int) string {
	return fmt.Sprintf("volunteers:page:%d:limit:%d", page, limit)
}

// RateLimitKey is the counter key for a rate-limit identifier.
func RateLimitKey(identifier string) string {
	return rateLimitPrefix + identifier
}
