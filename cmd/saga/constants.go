package main

// Default limits for CLI commands.
const (
	DefaultListLimit        = 50
	DefaultSuggestionsLimit = 20
)
