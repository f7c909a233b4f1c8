package recurrence

// Config holds configuration options for the recurrence engine
type Config struct {
	// MaxIterations caps the number of recurrence periods walked for one
	// schedule. Zero keeps only the bound derived from the window length.
	MaxIterations int
}

// DefaultConfig relies on the window-derived bound alone
var DefaultConfig = Config{
	MaxIterations: 0,
}

// DefaultEngine backs the package level Expand and ExpandForRange
var DefaultEngine = NewEngine(DefaultConfig)

// NewEngine creates a new recurrence engine with the given configuration
func NewEngine(config Config) *Engine {
	if config.MaxIterations < 0 {
		config.MaxIterations = 0
	}
	return &Engine{config: config}
}
