package toolsim

import (
	"math/rand"
	"sort"
	"strings"
)

// NamingStrategy decides which catalog tools a simulated invocation should
// use. Tool naming and selection is deliberately pluggable; KeywordStrategy
// is the stock implementation, but callers can substitute an LLM-backed
// strategy without touching the simulator.
type NamingStrategy interface {
	SelectTools(rng *rand.Rand, topic string, lastUserMessage string, max int) []string
}

// KeywordStrategy picks tools whose catalog keywords appear in the topic or
// the user's last message, falling back to the catalog's fallback tool when
// nothing matches.
type KeywordStrategy struct {
	catalog *Catalog
}

func NewKeywordStrategy(catalog *Catalog) *KeywordStrategy {
	return &KeywordStrategy{catalog: catalog}
}

func (s *KeywordStrategy) SelectTools(rng *rand.Rand, topic string, lastUserMessage string, max int) []string {
	if max < 1 {
		return nil
	}

	haystack := strings.ToLower(topic + " " + lastUserMessage)

	matched := map[string]bool{}
	for keyword, tools := range s.catalog.TopicTools {
		if strings.Contains(haystack, strings.ToLower(keyword)) {
			for _, name := range tools {
				matched[name] = true
			}
		}
	}
	if len(matched) == 0 {
		matched[s.catalog.FallbackTool] = true
	}

	// Sorted before shuffling so the rng draw sequence is reproducible.
	names := make([]string, 0, len(matched))
	for name := range matched {
		names = append(names, name)
	}
	sort.Strings(names)
	rng.Shuffle(len(names), func(i, j int) {
		names[i], names[j] = names[j], names[i]
	})

	if len(names) > max {
		names = names[:max]
	}
	return names
}

var _ NamingStrategy = (*KeywordStrategy)(nil)
