package shared

// Credentials represents a set of exchange api credentials.
type Credentials struct {
	// APIKey is the exchange api key.
	APIKey string
	// APISecret is the exchange api secret.
	APISecret string
}

// Configured asserts both credential components are set.
func (c *Credentials) Configured() bool {
	return c.APIKey != "" && c.APISecret != ""
}
