package sysward

// Option configures a Client at creation time.
type Option func(*clientConfig)

type clientConfig struct {
	rulesPath string
}

// WithRules sets the path to a rules YAML overlay file.
func WithRules(path string) Option {
	return func(c *clientConfig) { c.rulesPath = path }
}
