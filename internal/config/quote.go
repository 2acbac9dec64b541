package config

import "fmt"

// QuoteReplacement selects how straight double quotes are rewritten.
type QuoteReplacement uint8

const (
	QuoteOff QuoteReplacement = iota
	// QuoteLigatures uses `` and ''.
	QuoteLigatures
	// QuoteCommands uses \textquotedblleft and \textquotedblright.
	QuoteCommands
)

func (q QuoteReplacement) String() string {
	switch q {
	case QuoteOff:
		return "off"
	case QuoteLigatures:
		return "ligatures"
	case QuoteCommands:
		return "commands"
	}
	return "unknown"
}

func (q QuoteReplacement) MarshalText() ([]byte, error) {
	return []byte(q.String()), nil
}

func (q *QuoteReplacement) UnmarshalText(b []byte) error {
	switch string(b) {
	case "off", "":
		*q = QuoteOff
	case "ligatures":
		*q = QuoteLigatures
	case "commands":
		*q = QuoteCommands
	default:
		return fmt.Errorf("quote_replacement must be off, ligatures or commands, got %q", string(b))
	}
	return nil
}
