package registry

import (
	"math"
	"sync"
	"testing"

	"github.com/atbabers/axiomguard/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DefaultWeights(t *testing.T) {
	r := New(DefaultLearningRate, nil)

	snap := r.Snapshot()
	assert.Len(t, snap, len(models.Axioms))
	assert.Equal(t, 1.5, snap[models.AxiomSafety])
	assert.Equal(t, 1.0, snap[models.AxiomConsistency])
	assert.Equal(t, DefaultLearningRate, r.LearningRate())
}

func TestNew_ClampsAndFillsInitial(t *testing.T) {
	r := New(0.1, map[models.Axiom]float64{
		models.AxiomSafety:   50,
		models.AxiomFairness: 0,
	})

	snap := r.Snapshot()
	assert.Equal(t, MaxWeight, snap[models.AxiomSafety])
	assert.Equal(t, MinWeight, snap[models.AxiomFairness])
	assert.Equal(t, 1.0, snap[models.AxiomCompleteness], "missing axioms use defaults")
}

func TestNew_InvalidLearningRate(t *testing.T) {
	assert.Equal(t, DefaultLearningRate, New(0, nil).LearningRate())
	assert.Equal(t, DefaultLearningRate, New(-1, nil).LearningRate())
	assert.Equal(t, DefaultLearningRate, New(math.NaN(), nil).LearningRate())
	assert.Equal(t, DefaultLearningRate, New(math.Inf(1), nil).LearningRate())
	assert.Equal(t, DefaultLearningRate, New(math.Inf(-1), nil).LearningRate())

	// Zero feedback must never knock a weight out of bounds.
	r := New(math.Inf(1), nil)
	w, ok := r.Update(models.AxiomSafety, 0)
	require.True(t, ok)
	assert.Equal(t, 1.5, w)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, MinWeight, Clamp(math.NaN()))
	assert.Equal(t, MinWeight, Clamp(math.Inf(-1)))
	assert.Equal(t, MaxWeight, Clamp(math.Inf(1)))
	assert.Equal(t, 2.5, Clamp(2.5))
}

func TestUpdate(t *testing.T) {
	r := New(0.1, nil)

	w, ok := r.Update(models.AxiomConsistency, 2)
	require.True(t, ok)
	assert.InDelta(t, 1.2, w, 1e-9)

	got, _ := r.Weight(models.AxiomConsistency)
	assert.InDelta(t, 1.2, got, 1e-9)
}

func TestUpdate_Clamps(t *testing.T) {
	tests := []struct {
		name     string
		feedback float64
		want     float64
	}{
		{"huge positive", 1e9, MaxWeight},
		{"huge negative", -1e9, MinWeight},
		{"positive infinity", math.Inf(1), MaxWeight},
		{"negative infinity", math.Inf(-1), MinWeight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(DefaultLearningRate, nil)
			w, ok := r.Update(models.AxiomSafety, tt.feedback)
			require.True(t, ok)
			assert.Equal(t, tt.want, w)
		})
	}
}

func TestUpdate_ZeroFeedbackIsIdempotent(t *testing.T) {
	r := New(DefaultLearningRate, nil)
	before := r.Snapshot()

	for i := 0; i < 100; i++ {
		for _, a := range models.Axioms {
			r.Update(a, 0)
		}
	}

	assert.Equal(t, before, r.Snapshot())
}

func TestUpdate_UnknownAxiomIsNoop(t *testing.T) {
	r := New(DefaultLearningRate, nil)

	_, ok := r.Update(models.Axiom("honesty"), 5)
	assert.False(t, ok)

	_, exists := r.Weight(models.Axiom("honesty"))
	assert.False(t, exists, "unknown axioms must never be inserted")
	assert.Len(t, r.Snapshot(), len(models.Axioms))
}

func TestUpdate_NaNFeedbackIsNoop(t *testing.T) {
	r := New(DefaultLearningRate, nil)
	_, ok := r.Update(models.AxiomSafety, math.NaN())
	assert.False(t, ok)

	w, _ := r.Weight(models.AxiomSafety)
	assert.Equal(t, 1.5, w)
}

func TestUpdate_ConcurrentSameAxiom(t *testing.T) {
	r := New(0.001, nil)

	const workers = 64
	const perWorker = 50
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				r.Update(models.AxiomConsistency, 1)
			}
		}()
	}
	wg.Wait()

	// 1.0 + 0.001 * 3200 = 4.2, never reaching a bound, so no update is lost.
	w, _ := r.Weight(models.AxiomConsistency)
	assert.InDelta(t, 4.2, w, 1e-9)
}

func TestUpdate_ConcurrentSaturates(t *testing.T) {
	tests := []struct {
		name     string
		feedback float64
		want     float64
	}{
		{"upper bound", 10, MaxWeight},
		{"lower bound", -10, MinWeight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(0.01, nil)

			const workers = 64
			const perWorker = 50
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for j := 0; j < perWorker; j++ {
						w, ok := r.Update(models.AxiomConsistency, tt.feedback)
						assert.True(t, ok)
						assert.GreaterOrEqual(t, w, MinWeight)
						assert.LessOrEqual(t, w, MaxWeight)
					}
				}()
			}
			wg.Wait()

			w, _ := r.Weight(models.AxiomConsistency)
			assert.Equal(t, tt.want, w)
		})
	}
}

func TestUpdate_ConcurrentDifferentAxioms(t *testing.T) {
	r := New(0.01, nil)

	var wg sync.WaitGroup
	for _, a := range models.Axioms {
		wg.Add(1)
		go func(a models.Axiom) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.Update(a, -1)
			}
		}(a)
	}
	wg.Wait()

	snap := r.Snapshot()
	assert.InDelta(t, 0.5, snap[models.AxiomSafety], 1e-9)
	assert.InDelta(t, MinWeight, snap[models.AxiomConsistency], 1e-9)
}
