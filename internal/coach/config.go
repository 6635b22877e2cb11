package coach

// Config tunes coach note generation.
type Config struct {
	MaxTokens   int
	Temperature float64

	// MaxMistakes caps how many wrong answers are quoted in the prompt.
	MaxMistakes int

	// MaxNoteLen truncates notes longer than this many runes.
	MaxNoteLen int
}

// DefaultConfig returns the settings used by the server and CLI.
func DefaultConfig() Config {
	return Config{
		MaxTokens:   256,
		Temperature: 0.4,
		MaxMistakes: 5,
		MaxNoteLen:  400,
	}
}
