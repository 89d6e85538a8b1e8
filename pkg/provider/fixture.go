package provider

import (
	"context"
	"sync"

	"github.com/dukex/teamflow/pkg/models"
)

// Fixture returns canned analyses per process name. Processes listed in
// Errors fail with that error; processes without a result fall back to Default.
type Fixture struct {
	mu      sync.Mutex
	Results map[string]models.Analysis
	Errors  map[string]error
	Default models.Analysis
	calls   map[string]int
}

func NewFixture(defaultAnalysis models.Analysis) *Fixture {
	return &Fixture{
		Results: make(map[string]models.Analysis),
		Errors:  make(map[string]error),
		Default: defaultAnalysis,
		calls:   make(map[string]int),
	}
}

func (f *Fixture) Set(process string, analysis models.Analysis) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Results[process] = analysis
}

func (f *Fixture) Fail(process string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Errors[process] = err
}

func (f *Fixture) Recover(process string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	delete(f.Errors, process)
}

func (f *Fixture) Calls(process string) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.calls[process]
}

func (f *Fixture) Analyze(_ context.Context, process string, _ Input) (models.Analysis, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls[process]++

	if err, ok := f.Errors[process]; ok {
		return models.Analysis{}, err
	}

	if analysis, ok := f.Results[process]; ok {
		return analysis, nil
	}

	return f.Default, nil
}
