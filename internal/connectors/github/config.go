package github

// Config holds GitHub source configuration.
type Config struct {
	// PageSize is the per-page item count for API requests.
	PageSize int

	// IncludeArchived includes archived repositories as sync scopes.
	IncludeArchived bool

	// IncludeForks includes forked repositories as sync scopes.
	IncludeForks bool
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		PageSize: 100,
	}
}
