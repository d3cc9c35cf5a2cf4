package generator

// Config drives the synthetic data generator.
type Config struct {
	NumClients       int
	ReturnsPerClient int
	Seed             int64
}

// DefaultConfig returns baseline settings for a small demo dataset.
func DefaultConfig() Config {
	return Config{
		NumClients:       25,
		ReturnsPerClient: 3,
		Seed:             42,
	}
}
