package config

const (
	DefaultFile         = "requests.yml"
	DefaultMaxRedirects = 10

	OutputConsole = "console"
	OutputJSON    = "json"
	OutputJUnit   = "junit"
)

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		File:            DefaultFile,
		Parallel:        0,
		FollowRedirects: BoolPtr(true),
		MaxRedirects:    DefaultMaxRedirects,
		ValidateSSL:     BoolPtr(true),
		Output:          OutputConsole,
	}
}
