package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nayanika2304/multi-agent-orchestration/pkg/a2awire"
)

func mathCard() a2awire.AgentCard {
	return a2awire.AgentCard{
		Name:        "math_agent",
		Description: "Performs arithmetic calculations",
		URL:         "http://localhost:8001",
		Skills: []a2awire.Skill{
			{
				ID:          "arith",
				Name:        "Arithmetic Calculation",
				Description: "Evaluates mathematical expressions",
				Tags:        []string{"calculate", "+", "compute"},
				Examples:    []string{"2 + 2"},
			},
		},
	}
}

func weatherCard() a2awire.AgentCard {
	return a2awire.AgentCard{
		Name:        "weather_rag",
		Description: "Retrieves weather data",
		URL:         "http://localhost:8002",
		Skills: []a2awire.Skill{
			{
				ID:          "weather",
				Name:        "Weather RAG",
				Description: "Answers questions about weather and temperature",
				Tags:        []string{"weather", "temperature"},
			},
		},
	}
}

func TestAgentRegistry_AddAndList(t *testing.T) {
	r := NewAgentRegistry()
	r.Add(mathCard())
	r.Add(weatherCard())

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "math_agent", list[0].ID)
	assert.Equal(t, "weather_rag", list[1].ID)
}

func TestAgentRegistry_ReplaceByName(t *testing.T) {
	r := NewAgentRegistry()
	r.Add(mathCard())

	replacement := mathCard()
	replacement.Description = "updated description"
	r.Add(replacement)

	require.Equal(t, 1, r.Count())
	card, err := r.LookupByID("math_agent")
	require.NoError(t, err)
	assert.Equal(t, "updated description", card.Description)
}

func TestAgentRegistry_RemoveByURLSubstring(t *testing.T) {
	r := NewAgentRegistry()
	r.Add(weatherCard())

	card, err := r.Remove("localhost:8002")
	require.NoError(t, err)
	assert.Equal(t, "weather_rag", card.Name)
	assert.Equal(t, 0, r.Count())

	snap := r.Snapshot()
	_, ok := snap.SkillKeywords["Weather RAG"]
	assert.False(t, ok)
}

func TestAgentRegistry_RemoveNotFound(t *testing.T) {
	r := NewAgentRegistry()
	_, err := r.Remove("nonexistent")
	require.Error(t, err)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestAgentRegistry_RemovePriority(t *testing.T) {
	r := NewAgentRegistry()
	r.Add(mathCard())
	r.Add(weatherCard())

	// Case-insensitive name match should find math_agent even though an
	// exact-name match doesn't exist.
	card, err := r.Remove("MATH_AGENT")
	require.NoError(t, err)
	assert.Equal(t, "math_agent", card.Name)
}

func TestSkillKeywords_Recomputed(t *testing.T) {
	r := NewAgentRegistry()
	r.Add(mathCard())

	snap := r.Snapshot()
	kws, ok := snap.SkillKeywords["Arithmetic Calculation"]
	require.True(t, ok)
	assert.Contains(t, kws, "calculate")
	// The skill name is split on underscores only, so a space-separated
	// name stays one keyword; description tokens are added individually.
	assert.Contains(t, kws, "arithmetic calculation")
	assert.Contains(t, kws, "mathematical")
}

func TestAgentCapabilities_Domains(t *testing.T) {
	r := NewAgentRegistry()
	r.Add(weatherCard())

	snap := r.Snapshot()
	caps := snap.Capabilities["weather_rag"]
	_, hasWeather := caps.Domains["weather"]
	assert.True(t, hasWeather)
	_, hasTemperature := caps.Domains["temperature"]
	assert.True(t, hasTemperature)
}
