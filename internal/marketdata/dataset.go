package marketdata

import (
	"encoding/json"
	"fmt"
	"os"
)

// LoadDataset reads the replay dataset format from a JSON file:
// {"AAPL": {"series": [190.1, 190.4, ...], "spreadBps": 2}, ...}.
// It is loaded once at startup, per spec.
func LoadDataset(path string) (map[string]SeriesConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("marketdata: reading dataset %s: %w", path, err)
	}

	var dataset map[string]SeriesConfig
	if err := json.Unmarshal(raw, &dataset); err != nil {
		return nil, fmt.Errorf("marketdata: parsing dataset %s: %w", path, err)
	}

	for symbol, sc := range dataset {
		if len(sc.Series) == 0 {
			return nil, fmt.Errorf("marketdata: symbol %s has an empty series", symbol)
		}
	}
	return dataset, nil
}
