package config

// this holds the resolved configuration values from CLI
var (
	LogLevel     string // sets the log level (zap log level values)
	Steps        int    // overrides the sample count from the input file when > 0
	IterationCap int    // overrides the solver iteration cap when > 0
	Output       string // path to write the result JSON; empty = stdout
)
