package config

// NewGeminiForTest creates a Gemini config for testing purposes
func NewGeminiForTest(projectID, location string) *Gemini {
	return &Gemini{
		projectID: projectID,
		location:  location,
	}
}

// NewRepositoryForTest creates a Repository config for testing purposes
func NewRepositoryForTest(backend, projectID, databaseURL string) *Repository {
	return &Repository{
		backend:     backend,
		projectID:   projectID,
		databaseURL: databaseURL,
	}
}

// NewModelForTest creates a Model config for testing purposes
func NewModelForTest(provider, embedder string, cacheBytes int) *Model {
	return &Model{
		provider:   provider,
		embedder:   embedder,
		cacheBytes: cacheBytes,
	}
}

// NewLoggerForTest creates a Logger config for testing purposes
func NewLoggerForTest(level, format, output string) *Logger {
	return &Logger{
		level:  level,
		format: format,
		output: output,
	}
}

var ParseLogLevel = parseLogLevel
