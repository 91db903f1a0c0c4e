package yaml

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ochairo/pgbrew/internal/domain/entities"
	"github.com/ochairo/pgbrew/internal/domain/interfaces"
)

// RecipeRepository implements repositories.RecipeRepository using YAML files
type RecipeRepository struct {
	recipesDir string
	parser     *RecipeParser
	logger     interfaces.Logger
}

// NewRecipeRepository creates a new YAML-based recipe repository
func NewRecipeRepository(recipesDir string, logger interfaces.Logger) *RecipeRepository {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	return &RecipeRepository{
		recipesDir: recipesDir,
		parser:     NewRecipeParser(),
		logger:     logger,
	}
}

// GetRecipe retrieves a recipe by name, or by path when name ends in .yml
func (r *RecipeRepository) GetRecipe(_ context.Context, name string) (*entities.Recipe, error) {
	filePath := filepath.Join(r.recipesDir, name+".yml")
	if strings.HasSuffix(name, ".yml") || strings.HasSuffix(name, ".yaml") {
		filePath = name
	}

	if _, err := os.Stat(filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("recipe not found: %s", name)
	}

	return r.parser.ParseFile(filePath)
}

// ListRecipes returns all parseable recipes; broken files are logged and skipped
func (r *RecipeRepository) ListRecipes(_ context.Context) ([]*entities.Recipe, error) {
	entries, err := os.ReadDir(r.recipesDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read recipes directory: %w", err)
	}

	recipes := make([]*entities.Recipe, 0)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yml") {
			continue
		}

		def, err := r.parser.ParseFile(filepath.Join(r.recipesDir, entry.Name()))
		if err != nil {
			r.logger.Warn("Skipping unparseable recipe", interfaces.F("file", entry.Name()), interfaces.Err(err))
			continue
		}

		recipes = append(recipes, def)
	}

	return recipes, nil
}
