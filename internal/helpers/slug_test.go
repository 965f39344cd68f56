package helpers

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	t.Run("should join words with dashes", func(t *testing.T) {
		assert.Equal(t, "alfa-romeo", Slugify("Alfa Romeo"))
		assert.Equal(t, "suv-crossover", Slugify("  SUV / Crossover  "))
		assert.Equal(t, "mercedes-benz", Slugify("Mercedes-Benz"))
	})

	t.Run("should fold accented letters", func(t *testing.T) {
		assert.Equal(t, "skoda", Slugify("Škoda"))
		assert.Equal(t, "citroen", Slugify("Citroën"))
		assert.Equal(t, "alfa-romeo", Slugify("Alfa Roméo"))
		assert.Equal(t, "nissan-qashqai-e-power", Slugify("Nissan Qashqai e-Power"))
		assert.Equal(t, "grosse-limousine", Slugify("Große Limousine"))
	})

	t.Run("should return an empty slug without latin letters", func(t *testing.T) {
		assert.Empty(t, Slugify("Лада"))
		assert.Empty(t, Slugify(" - / "))
	})
}
