package config

// Settings is what a run needs from the command line: which file to read,
// how many requests may be in flight and which requests to select.
type Settings struct {
	ConfigPath   string
	Parallel     int
	RequestNames []string
}

// NewSettings fills in the conventional request file when path is empty.
func NewSettings(path string, parallel int, names []string) Settings {
	if path == "" {
		path = DefaultFile
	}
	if parallel < 0 {
		parallel = 0
	}
	return Settings{
		ConfigPath:   path,
		Parallel:     parallel,
		RequestNames: names,
	}
}

// Settings derives run settings from the tool configuration.
func (c *Config) Settings(names []string) Settings {
	return NewSettings(c.File, c.Parallel, names)
}

// Sequential reports whether requests are dispatched one at a time.
func (s Settings) Sequential() bool {
	return s.Parallel <= 1
}
