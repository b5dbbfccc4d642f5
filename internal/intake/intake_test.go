package intake

import (
	"assembly-line/internal/config"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func catalog() *Catalog {
	return NewCatalog([]config.ModelConfig{
		{Name: "B", PhaseMinutes: 70, Categories: []string{"body", "color", "engine"}},
		{Name: "A", PhaseMinutes: 50, Categories: []string{"body", "engine"}},
	})
}

func TestBuild(t *testing.T) {
	o, err := catalog().Build(Request{Model: "B", Choices: map[string]string{"color": "red", "wheels": "ignored"}})
	require.NoError(t, err)

	_, err = uuid.Parse(o.ID)
	assert.NoError(t, err, "generated id is a uuid")
	assert.Equal(t, "B", o.Model)
	assert.Equal(t, 70*time.Minute, o.PhaseDuration())
	assert.False(t, o.HasDeadline())
	require.Len(t, o.Tasks, 3)
	assert.Equal(t, "standard", o.Tasks[0].Choice)
	assert.Equal(t, "red", o.Tasks[1].Choice)
	assert.NotEqual(t, o.Tasks[0].ID, o.Tasks[1].ID)
}

func TestBuild_SameChoicesSameConfiguration(t *testing.T) {
	c := catalog()
	a, err := c.Build(Request{ID: "o1", Model: "A"})
	require.NoError(t, err)
	b, err := c.Build(Request{ID: "o2", Model: "A", Choices: map[string]string{"body": "standard"}})
	require.NoError(t, err)

	assert.Equal(t, "o1", a.ID)
	assert.True(t, a.SameConfiguration(&b))
}

func TestBuild_Deadline(t *testing.T) {
	o, err := catalog().Build(Request{Model: "A", Deadline: "2014-01-01T12:00:00Z"})
	require.NoError(t, err)
	require.True(t, o.HasDeadline())
	assert.Equal(t, time.Date(2014, 1, 1, 12, 0, 0, 0, time.UTC), *o.Deadline)

	_, err = catalog().Build(Request{Model: "A", Deadline: "noon"})
	assert.ErrorIs(t, err, ErrBadDeadline)
}

func TestBuild_UnknownModel(t *testing.T) {
	_, err := catalog().Build(Request{Model: "Z"})
	assert.ErrorIs(t, err, ErrUnknownModel)
}

func TestModelsSorted(t *testing.T) {
	models := catalog().Models()
	require.Len(t, models, 2)
	assert.Equal(t, "A", models[0].Name)
	assert.Equal(t, "B", models[1].Name)
}
