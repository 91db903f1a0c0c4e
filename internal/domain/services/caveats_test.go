package services

import (
	"testing"

	"github.com/ochairo/pgbrew/internal/domain/entities"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func caveatsRecipe() *entities.Recipe {
	return &entities.Recipe{
		Name:    "lantern",
		Version: "0.5.0",
		Postgres: entities.PostgresConfig{
			Formula: "postgresql",
			Default: "15",
		},
		Install: entities.RecipeInstall{Installer: "lantern_install"},
	}
}

func TestRenderCaveats_Default(t *testing.T) {
	res := entities.Resolution{
		Tier:      entities.TierCandidate,
		Candidate: &entities.Candidate{Tag: "16", Formula: "postgresql@16"},
		Found:     true,
	}
	text, err := RenderCaveats(caveatsRecipe(), res)
	require.NoError(t, err)
	assert.Contains(t, text, "Run `lantern_install` to finish installation on postgresql@16")
	assert.Contains(t, text, "CREATE EXTENSION lantern;")
}

func TestRenderCaveats_FallsBackToDefaultFormula(t *testing.T) {
	text, err := RenderCaveats(caveatsRecipe(), entities.Resolution{Tier: entities.TierSearchPath, Found: true})
	require.NoError(t, err)
	assert.Contains(t, text, "postgresql@15")
}

func TestRenderCaveats_Custom(t *testing.T) {
	r := caveatsRecipe()
	r.Caveats = "{{.Name}} {{.Version}} via {{.Installer}}"
	text, err := RenderCaveats(r, entities.Resolution{})
	require.NoError(t, err)
	assert.Equal(t, "lantern 0.5.0 via lantern_install", text)

	r.Caveats = "{{.Missing}}"
	_, err = RenderCaveats(r, entities.Resolution{})
	assert.Error(t, err)
}

func TestEffectiveBuildDependencies(t *testing.T) {
	r := caveatsRecipe()
	r.BuildDependencies = []string{"cmake", "gcc", "make"}

	assert.Equal(t, []string{"cmake", "gcc", "make", "postgresql@15"},
		r.EffectiveBuildDependencies(entities.Resolution{Tier: entities.TierFallback}))
	assert.Equal(t, []string{"cmake", "gcc", "make"},
		r.EffectiveBuildDependencies(entities.Resolution{Candidate: &entities.Candidate{Formula: "postgresql@14"}}))
}
