package broker

import (
	"sort"

	"github.com/Marcel-Kempel/Trading-Simulator/internal/model"
)

// sortedSymbols returns a position map's keys sorted lexicographically, so
// iteration order (and therefore tie-breaking) is reproducible across runs.
func sortedSymbols(positions map[string]*model.Position) []string {
	symbols := make([]string, 0, len(positions))
	for symbol := range positions {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)
	return symbols
}
