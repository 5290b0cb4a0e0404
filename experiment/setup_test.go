package experiment_test

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/caretstudio/automl/automltest"
	"github.com/YuminosukeSato/caretstudio/dataset"
	"github.com/YuminosukeSato/caretstudio/experiment"
	"github.com/YuminosukeSato/caretstudio/pkg/errors"
)

const peopleCSV = `age,income,city,target
34,52000.5,Oslo,yes
51,61000.25,Bergen,no
29,48000.75,Lima,yes
`

func loadPeople(t *testing.T) *dataset.Table {
	t.Helper()
	table, err := dataset.Load("people.csv", strings.NewReader(peopleCSV))
	require.NoError(t, err)
	return table
}

func TestSetupSelectsVariantByTag(t *testing.T) {
	data := loadPeople(t)
	tests := []struct {
		problem experiment.ProblemType
		want    experiment.ProblemType
	}{
		{experiment.Classification, experiment.Classification},
		{experiment.Regression, experiment.Regression},
		{experiment.ProblemType("anything else"), experiment.Regression},
	}
	for _, tt := range tests {
		t.Run(string(tt.problem), func(t *testing.T) {
			rec := automltest.New()

			exp, err := experiment.Setup(context.Background(), rec, data, "target", tt.problem)
			require.NoError(t, err)

			assert.Equal(t, tt.want, exp.Variant())
			calls := rec.Calls()
			require.Len(t, calls, 1)
			assert.Equal(t, "setup", calls[0].Op)
			assert.Equal(t, tt.want, calls[0].Variant)
		})
	}
}

func TestSetupForwardsDefaults(t *testing.T) {
	rec := automltest.New()
	data := loadPeople(t)

	_, err := experiment.Setup(context.Background(), rec, data, "target", experiment.Classification)
	require.NoError(t, err)

	setups := rec.Setups()
	require.Len(t, setups, 1)
	got := setups[0]

	assert.Same(t, data, got.Data)
	assert.Equal(t, "target", got.Target)
	assert.Equal(t, experiment.DefaultConfig(), got.Config)

	strategy, ok := got.NumericImputation.Strategy()
	assert.True(t, ok)
	assert.Equal(t, experiment.NumericMean, strategy)
	cat, ok := got.CategoricalImputation.Strategy()
	assert.True(t, ok)
	assert.Equal(t, experiment.CategoricalMode, cat)
	assert.Equal(t, 25, got.MaxEncodingOHE)
	assert.False(t, got.RemoveOutliers)
	assert.Equal(t, experiment.OutlierIForest, got.OutliersMethod)
	assert.Equal(t, 0.05, got.OutliersThreshold)
}

func TestSetupIsIdempotent(t *testing.T) {
	rec := automltest.New()
	data := loadPeople(t)
	opts := []experiment.Option{
		experiment.WithNumericImputation(experiment.NumericValue(0)),
		experiment.WithCategoricalImputation(experiment.CategoricalValue("missing")),
		experiment.WithIgnoreFeatures("city"),
		experiment.WithMaxEncodingOHE(10),
	}

	for i := 0; i < 2; i++ {
		_, err := experiment.Setup(context.Background(), rec, data, "target", experiment.Classification, opts...)
		require.NoError(t, err)
	}

	setups := rec.Setups()
	require.Len(t, setups, 2)
	assert.Equal(t, setups[0], setups[1])
}

func TestSetupForwardsOutlierOptionsWhenRemovalIsOff(t *testing.T) {
	rec := automltest.New()

	_, err := experiment.Setup(context.Background(), rec, loadPeople(t), "income", experiment.Regression,
		experiment.WithRemoveOutliers(false),
		experiment.WithOutliersMethod(experiment.OutlierLOF),
		experiment.WithOutliersThreshold(0.1),
	)
	require.NoError(t, err)

	got := rec.Setups()[0]
	assert.False(t, got.RemoveOutliers)
	assert.Equal(t, experiment.OutlierLOF, got.OutliersMethod)
	assert.Equal(t, 0.1, got.OutliersThreshold)
}

func TestSetupForwardsEmptyFeatureListsAsEmpty(t *testing.T) {
	rec := automltest.New()

	_, err := experiment.Setup(context.Background(), rec, loadPeople(t), "target", experiment.Classification,
		experiment.WithNumericFeatures(),
		experiment.WithCategoricalFeatures("city"),
	)
	require.NoError(t, err)

	got := rec.Setups()[0]
	assert.Empty(t, got.NumericFeatures)
	assert.Equal(t, []string{"city"}, got.CategoricalFeatures)
	assert.Empty(t, got.DateFeatures)

	b, err := json.Marshal(experiment.DefaultConfig())
	require.NoError(t, err)
	assert.Contains(t, string(b), `"numeric_features":[]`)
}

func TestSetupForwardsEveryField(t *testing.T) {
	rec := automltest.New()
	cfg := experiment.Config{
		NumericImputation:     experiment.ImputeNumeric(experiment.NumericKNN),
		CategoricalImputation: experiment.ImputeCategorical(experiment.CategoricalDrop),
		NumericFeatures:       []string{"age"},
		CategoricalFeatures:   []string{"city"},
		DateFeatures:          []string{},
		IgnoreFeatures:        []string{"income"},
		KeepFeatures:          []string{"age"},
		OrdinalFeatures:       map[string][]string{"city": {"Lima", "Oslo", "Bergen"}},
		MaxEncodingOHE:        5,
		RemoveOutliers:        true,
		OutliersMethod:        experiment.OutlierEllipticEnvelope,
		OutliersThreshold:     0.2,
	}

	_, err := experiment.Setup(context.Background(), rec, loadPeople(t), "target", experiment.Classification,
		experiment.WithConfig(cfg))
	require.NoError(t, err)

	assert.Equal(t, cfg, rec.Setups()[0].Config)
}

func TestSetupReturnsCollaboratorErrorUnchanged(t *testing.T) {
	rec := automltest.New()
	want := errors.NewCollaboratorError("setup", 422, "Target column 'nope' not found")
	rec.Fail("setup", want)

	exp, err := experiment.Setup(context.Background(), rec, loadPeople(t), "nope", experiment.Classification,
		experiment.WithNumericImputation(experiment.ImputeNumeric("bogus")))

	assert.Nil(t, exp)
	assert.Same(t, want, err)
	assert.Len(t, rec.Calls(), 1)
}

func TestProblemTypeFor(t *testing.T) {
	data := loadPeople(t)

	p, err := experiment.ProblemTypeFor(data, "target")
	require.NoError(t, err)
	assert.Equal(t, experiment.Classification, p)

	p, err = experiment.ProblemTypeFor(data, "income")
	require.NoError(t, err)
	assert.Equal(t, experiment.Regression, p)

	p, err = experiment.ProblemTypeFor(data, "age")
	require.NoError(t, err)
	assert.Equal(t, experiment.Regression, p)

	_, err = experiment.ProblemTypeFor(data, "missing")
	var colErr *errors.ColumnNotFoundError
	assert.True(t, errors.As(err, &colErr))
}

func TestProblemTypeForBoolTarget(t *testing.T) {
	data, err := dataset.Load("churn.csv", strings.NewReader("tenure,churned\n3,true\n40,false\n12,true\n"))
	require.NoError(t, err)
	col, ok := data.Column("churned")
	require.True(t, ok)
	require.Equal(t, dataset.Bool, col.DType)

	p, err := experiment.ProblemTypeFor(data, "churned")
	require.NoError(t, err)
	assert.Equal(t, experiment.Classification, p)
}

func TestParseProblemType(t *testing.T) {
	p, err := experiment.ParseProblemType("classification")
	require.NoError(t, err)
	assert.Equal(t, experiment.Classification, p)

	p, err = experiment.ParseProblemType(" Regression ")
	require.NoError(t, err)
	assert.Equal(t, experiment.Regression, p)

	_, err = experiment.ParseProblemType("clustering")
	assert.Error(t, err)
}
