package cockpit

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strconv"
)

// logFile is the serialized form of one run's diagnostics.
type logFile struct {
	Metadata map[string]any            `json:"metadata,omitempty"`
	Steps    map[string]map[string]any `json:"steps"`
	Epochs   map[string]EpochInfo      `json:"epochs,omitempty"`
}

// Output merges all quantities' outputs into one per-step mapping.
//
// Two quantities emitting the same key at the same step is accepted when
// the values agree and rejected otherwise; diagnostics silently
// overwriting each other would poison every consumer downstream.
func (c *Cockpit) Output() (map[int]map[string]any, error) {
	merged := make(map[int]map[string]any)
	owner := make(map[int]map[string]string)

	for _, q := range c.quantities {
		for step, values := range q.Output() {
			stepValues, ok := merged[step]
			if !ok {
				stepValues = make(map[string]any)
				merged[step] = stepValues
				owner[step] = make(map[string]string)
			}
			for key, value := range values {
				if prev, exists := stepValues[key]; exists {
					if !reflect.DeepEqual(prev, value) {
						return nil, fmt.Errorf(
							"cockpit: step %d key %q emitted by both %q and %q with different values: %w",
							step, key, owner[step][key], q.Name(), ErrLogKeyConflict)
					}
					continue
				}
				stepValues[key] = value
				owner[step][key] = q.Name()
			}
		}
	}
	return merged, nil
}

// Write serializes the merged quantity outputs, the epoch records, and
// the given metadata to logPath + ".json". Map keys serialize sorted, so
// consecutive runs diff cleanly.
func (c *Cockpit) Write(logPath string, metadata map[string]any) error {
	merged, err := c.Output()
	if err != nil {
		return err
	}

	file := logFile{
		Metadata: metadata,
		Steps:    make(map[string]map[string]any, len(merged)),
	}
	for step, values := range merged {
		file.Steps[strconv.Itoa(step)] = values
	}
	if len(c.epochLogs) > 0 {
		file.Epochs = make(map[string]EpochInfo, len(c.epochLogs))
		for _, rec := range c.epochLogs {
			file.Epochs[strconv.Itoa(rec.step)] = rec.info
		}
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("cockpit: encoding log: %w", err)
	}
	path := logPath + ".json"
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("cockpit: writing log: %w", err)
	}
	c.log.WithField("path", path).Info("wrote diagnostics log")
	return nil
}
