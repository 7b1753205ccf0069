package policies

import (
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts and truncates text in model tokens.
type TokenCounter interface {
	Count(text string) int
	// Truncate returns the longest prefix of text within max tokens.
	Truncate(text string, max int) string
}

// TiktokenCounter uses a BPE encoding for exact counts.
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter resolves the encoding for model, falling back to
// cl100k_base when the model is unknown to tiktoken.
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	encoding, err := tiktoken.EncodingForModel(model)
	if err != nil {
		encoding, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, err
		}
	}
	return &TiktokenCounter{encoding: encoding}, nil
}

func (c *TiktokenCounter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

func (c *TiktokenCounter) Truncate(text string, max int) string {
	tokens := c.encoding.Encode(text, nil, nil)
	if len(tokens) <= max {
		return text
	}
	return c.encoding.Decode(tokens[:max])
}

// EstimateCounter approximates four characters per token. Used when no
// encoding can be loaded.
type EstimateCounter struct{}

func (EstimateCounter) Count(text string) int {
	return (utf8.RuneCountInString(text) + 3) / 4
}

func (EstimateCounter) Truncate(text string, max int) string {
	limit := max * 4
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	runes := []rune(text)
	return string(runes[:limit])
}

var (
	_ TokenCounter = (*TiktokenCounter)(nil)
	_ TokenCounter = EstimateCounter{}
)
