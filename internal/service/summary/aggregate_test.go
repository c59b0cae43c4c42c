package summary

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"

	"detectboard/internal/model"
)

var labels = model.LabelTable{0: "person", 1: "car", 2: "dog", 3: "bicycle"}

func det(classID int, conf float64) model.Detection {
	return model.Detection{ClassID: classID, Confidence: conf}
}

func TestAggregate_Scenario(t *testing.T) {
	got, err := Aggregate([]model.Detection{det(0, 0.9), det(0, 0.7), det(1, 0.5)},
		model.LabelTable{0: "person", 1: "car"})
	require.NoError(t, err)

	want := []model.ClassSummary{
		{Label: "person", ClassID: 0, Count: 2, MeanConfidence: 0.80},
		{Label: "car", ClassID: 1, Count: 1, MeanConfidence: 0.50},
	}
	if diff := cmp.Diff(want, got, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Aggregate() mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregate_Empty(t *testing.T) {
	got, err := Aggregate(nil, labels)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Zero(t, Total(got))
}

func TestAggregate_UnknownClass(t *testing.T) {
	got, err := Aggregate([]model.Detection{det(0, 0.9), det(5, 0.8)}, labels)
	assert.True(t, errors.Is(err, model.ErrUnknownClass), "got %v", err)
	assert.Contains(t, err.Error(), "5")
	assert.Nil(t, got)
}

func TestAggregate_FirstSeenOrder(t *testing.T) {
	got, err := Aggregate([]model.Detection{det(2, 0.4), det(0, 0.9), det(2, 0.6), det(3, 0.3), det(0, 0.5)}, labels)
	require.NoError(t, err)

	var order []string
	for _, s := range got {
		order = append(order, s.Label)
	}
	assert.Equal(t, []string{"dog", "person", "bicycle"}, order)
}

func TestAggregate_DoesNotMutateInput(t *testing.T) {
	input := []model.Detection{det(1, 0.7), det(0, 0.2), det(1, 0.9)}
	snapshot := append([]model.Detection(nil), input...)

	_, err := Aggregate(input, labels)
	require.NoError(t, err)
	assert.Equal(t, snapshot, input)
}

func randomBatch(r *rand.Rand, n int) []model.Detection {
	batch := make([]model.Detection, n)
	for i := range batch {
		batch[i] = det(r.Intn(len(labels)), r.Float64())
	}
	return batch
}

func TestAggregate_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		batch := randomBatch(r, r.Intn(60))

		got, err := Aggregate(batch, labels)
		require.NoError(t, err)

		// Counts add up to the batch size.
		assert.Equal(t, len(batch), Total(got))

		// Each mean stays within the min/max of its class.
		for _, s := range got {
			var confs []float64
			for _, d := range batch {
				if d.ClassID == s.ClassID {
					confs = append(confs, d.Confidence)
				}
			}
			require.Len(t, confs, s.Count)
			assert.GreaterOrEqual(t, s.MeanConfidence, floats.Min(confs)-1e-12)
			assert.LessOrEqual(t, s.MeanConfidence, floats.Max(confs)+1e-12)
		}

		// Deterministic.
		again, err := Aggregate(batch, labels)
		require.NoError(t, err)
		assert.Equal(t, got, again)
	}
}

func TestAggregate_PermutationWithinClass(t *testing.T) {
	batch := []model.Detection{det(0, 0.91), det(1, 0.33), det(0, 0.47), det(0, 0.12), det(1, 0.88)}
	// Swap the person detections among themselves; class first-seen order is unchanged.
	permuted := []model.Detection{det(0, 0.12), det(1, 0.88), det(0, 0.91), det(0, 0.47), det(1, 0.33)}

	a, err := Aggregate(batch, labels)
	require.NoError(t, err)
	b, err := Aggregate(permuted, labels)
	require.NoError(t, err)

	if diff := cmp.Diff(a, b, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("permutation changed summaries (-a +b):\n%s", diff)
	}
}

func TestFromStored(t *testing.T) {
	stored := []model.StoredDetection{
		{Sequence: 0, Label: "truck", Detection: det(7, 0.6)},
		{Sequence: 1, Label: "person", Detection: det(0, 0.8)},
		{Sequence: 2, Label: "truck", Detection: det(7, 0.4)},
	}

	got, err := FromStored(stored)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "truck", got[0].Label)
	assert.Equal(t, 2, got[0].Count)
	assert.InDelta(t, 0.5, got[0].MeanConfidence, 1e-9)
	assert.Equal(t, "person", got[1].Label)
}
