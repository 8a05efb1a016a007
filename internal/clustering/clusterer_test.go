package clustering

import (
	"fmt"
	"testing"

	"github.com/spacesedan/narratives/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

func itemsFromTexts(texts ...string) []models.Item {
	items := make([]models.Item, len(texts))
	for i, text := range texts {
		items[i] = models.Item{Source: models.SourceNews, Text: text, URL: fmt.Sprintf("https://example.com/%d", i)}
	}
	return items
}

func TestClusterSmallBatches(t *testing.T) {
	c := NewClusterer(DefaultConfig(), nil)

	empty := c.Cluster(nil)
	require.Len(t, empty.Clusters, 1)
	assert.Equal(t, 0, empty.Clusters[0].Label)
	assert.Empty(t, empty.Clusters[0].Items)
	assert.False(t, empty.Fallback)

	single := c.Cluster(itemsFromTexts("only one item here"))
	require.Len(t, single.Clusters, 1)
	assert.Equal(t, 0, single.Clusters[0].Label)
	assert.Len(t, single.Clusters[0].Items, 1)
	assert.False(t, single.Fallback)
}

func TestClusterGroupsNearIdenticalItems(t *testing.T) {
	c := NewClusterer(Config{MinSamples: 3}, nil)
	items := itemsFromTexts(
		"Central bank raises interest rates amid inflation fears",
		"central bank raises interest rates amid inflation fears!",
		"CENTRAL BANK RAISES INTEREST RATES AMID INFLATION FEARS.",
		"Local team wins championship in overtime thriller",
		"local team wins championship in overtime thriller",
		"Local Team Wins Championship In Overtime Thriller!!",
		"Volcano eruption grounds flights across northern region",
	)

	res := c.Cluster(items)
	require.False(t, res.Fallback)
	require.Len(t, res.Clusters, 2)
	assert.Equal(t, 1, res.Noise)

	assert.Equal(t, 0, res.Clusters[0].Label)
	assert.Equal(t, 1, res.Clusters[1].Label)
	assert.Equal(t, items[:3], res.Clusters[0].Items)
	assert.Equal(t, items[3:6], res.Clusters[1].Items)
}

func TestClusterDropsNoise(t *testing.T) {
	c := NewClusterer(DefaultConfig(), nil)
	res := c.Cluster(itemsFromTexts(
		"apples oranges bananas",
		"rockets satellites orbit",
		"violin cello orchestra",
	))

	assert.False(t, res.Fallback)
	assert.Empty(t, res.Clusters)
	assert.Equal(t, 3, res.Noise)
}

func TestClusterFallsBackOnEmptyVocabulary(t *testing.T) {
	c := NewClusterer(DefaultConfig(), nil)
	items := itemsFromTexts("the and of", "is it a", "to be or not to be")

	res := c.Cluster(items)
	require.True(t, res.Fallback)
	require.ErrorIs(t, res.Err, ErrEmptyVocabulary)
	require.Len(t, res.Clusters, 1)
	assert.Equal(t, 0, res.Clusters[0].Label)
	assert.Equal(t, items, res.Clusters[0].Items)
}

func TestClusterMembershipIsSubsetOfInput(t *testing.T) {
	c := NewClusterer(Config{MaxFeatures: 5, Eps: 0.5, MinSamples: 2}, nil)
	items := itemsFromTexts(
		"oil prices surge after supply cut",
		"oil prices surge again after supply cut",
		"markets rally as oil prices surge",
		"new smartphone launch breaks sales records",
		"smartphone sales records broken by launch",
	)

	res := c.Cluster(items)
	seen := 0
	for _, cl := range res.Clusters {
		assert.NotEmpty(t, cl.Items)
		for _, it := range cl.Items {
			assert.Contains(t, items, it)
		}
		seen += len(cl.Items)
	}
	assert.Equal(t, len(items), seen+res.Noise)
}

func TestVectorizerCapsVocabulary(t *testing.T) {
	vs, err := Vectorizer{MaxFeatures: 2}.FitTransform([]string{
		"alpha alpha alpha beta",
		"alpha beta gamma",
		"delta",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "beta"}, vs.Vocabulary)

	rows, cols := vs.Matrix.Dims()
	assert.Equal(t, 3, rows)
	assert.Equal(t, 2, cols)
	assert.InDelta(t, 1.0, floats.Norm(vs.Matrix.RawRowView(0), 2), 1e-9)
	assert.Equal(t, 0.0, floats.Norm(vs.Matrix.RawRowView(2), 2))
}

func TestDBSCANBorderPointJoinsFirstCluster(t *testing.T) {
	// 0-3 and 4-7 are tight groups, 8 sits between 3 and 4, 9 is alone.
	n := 10
	dist := mat.NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if i != j {
				dist.Set(i, j, 0.9)
			}
		}
	}
	near := func(a, b int) {
		dist.Set(a, b, 0.1)
		dist.Set(b, a, 0.1)
	}
	for _, group := range [][]int{{0, 1, 2, 3}, {4, 5, 6, 7}} {
		for _, a := range group {
			for _, b := range group {
				if a != b {
					near(a, b)
				}
			}
		}
	}
	near(8, 3)
	near(8, 4)

	labels := DBSCAN(dist, 0.25, 4)
	assert.Equal(t, []int{0, 0, 0, 0, 1, 1, 1, 1, 0, Noise}, labels)
}
