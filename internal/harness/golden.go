package harness

import (
	"bytes"
	"testing"

	"github.com/sebdah/goldie/v2"
)

// Snapshot renders a result for golden comparison: every run report
// followed by the canonical JSON of the final database.
func Snapshot(result *Result) ([]byte, error) {
	var buf bytes.Buffer
	for _, r := range result.Reports {
		if r != nil {
			r.Write(&buf)
		}
	}
	db, err := result.Snapshot.MarshalCanonical()
	if err != nil {
		return nil, err
	}
	buf.Write(db)
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
func RunWithGolden(t *testing.T, scenario *Scenario) (*Result, error) {
	t.Helper()

	result, err := Run(t.Context(), scenario)
	if err != nil {
		return nil, err
	}
	data, err := Snapshot(result)
	if err != nil {
		return nil, err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, scenario.Name, data)
	return result, nil
}
