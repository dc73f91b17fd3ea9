package domain

const (
	MinPaginationLimit     = 1
	MaxPaginationLimit     = 100
	DefaultPaginationLimit = 32
)

// ClampPaginationLimit bounds n to [MinPaginationLimit, MaxPaginationLimit].
func ClampPaginationLimit(n int) int {
	return min(max(n, MinPaginationLimit), MaxPaginationLimit)
}

// RefreshLimit returns the page size for a refresh that must cover at least
// held already-loaded messages.
func RefreshLimit(limit, held int) int {
	return ClampPaginationLimit(max(limit, held))
}
