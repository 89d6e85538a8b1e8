package provider

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"math"

	"github.com/dukex/teamflow/pkg/models"
)

var recommendationCatalogue = []struct {
	format   string
	priority models.Priority
}{
	{"Automate manual steps in %s", models.PriorityHigh},
	{"Streamline approvals for %s", models.PriorityMedium},
	{"Add real-time monitoring to %s", models.PriorityMedium},
	{"Rebalance workload across %s owners", models.PriorityLow},
	{"Introduce predictive scoring in %s", models.PriorityCritical},
}

// Deterministic derives reproducible scores from a hash of the seed, team,
// process and run number. Identical inputs always yield identical analyses.
type Deterministic struct {
	Seed int64
}

func NewDeterministic(seed int64) *Deterministic {
	return &Deterministic{Seed: seed}
}

func (d *Deterministic) Analyze(ctx context.Context, process string, input Input) (models.Analysis, error) {
	if err := ctx.Err(); err != nil {
		return models.Analysis{}, err
	}

	stream := newHashStream(fmt.Sprintf("%d|%s|%s|%d", d.Seed, input.Team, process, input.Run))

	analysis := models.Analysis{
		Metrics: models.Metrics{
			Efficiency:           stream.between(0.55, 0.95),
			Effectiveness:        stream.between(0.40, 0.95),
			Satisfaction:         stream.between(0.60, 0.95),
			CostOrResolutionTime: stream.between(1, 120),
		},
		Confidence: stream.between(0.5, 0.95),
	}

	count := 1 + int(stream.next()%3)
	offset := int(stream.next() % uint64(len(recommendationCatalogue)))

	for i := range count {
		entry := recommendationCatalogue[(offset+i)%len(recommendationCatalogue)]
		analysis.Recommendations = append(analysis.Recommendations, models.Recommendation{
			Action:         fmt.Sprintf(entry.format, process),
			Priority:       entry.priority,
			ExpectedImpact: stream.between(0.05, 0.35),
		})
	}

	return analysis, nil
}

// hashStream expands an FNV-1a digest into a sequence of pseudo random values.
type hashStream struct {
	state uint64
}

func newHashStream(key string) *hashStream {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))

	return &hashStream{state: h.Sum64()}
}

func (s *hashStream) next() uint64 {
	h := fnv.New64a()

	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], s.state)
	_, _ = h.Write(buf[:])
	s.state = h.Sum64()

	return s.state
}

func (s *hashStream) between(low, high float64) float64 {
	fraction := float64(s.next()>>11) / float64(1<<53)

	return math.Round((low+fraction*(high-low))*1000) / 1000
}
