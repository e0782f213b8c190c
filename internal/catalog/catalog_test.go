package catalog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := Default()

	assert.Equal(t, 3, c.Version())
	assert.Equal(t, []string{"Vías", "Botaderos", "Cargue", "Bahías", "Isla"}, c.Categories())
	assert.Len(t, c.Questions("Vías"), 7)
	assert.Len(t, c.Questions("Isla"), 11)
	assert.Nil(t, c.Questions("Unknown"))
}

func TestLabel(t *testing.T) {
	c := Default()

	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{name: "exact id", key: "seatbelt", expected: "¿Usa el cinturón de seguridad?"},
		{name: "upper case", key: "SEATBELT", expected: "¿Usa el cinturón de seguridad?"},
		{name: "padded", key: "  gloves ", expected: "¿Usa los guantes?"},
		{name: "first label wins for shared ids", key: "distance", expected: "¿Mantiene distancia segura de seguimiento?"},
		{name: "unknown falls back to raw key", key: "Custom_Item", expected: "Custom_Item"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, c.Label(tt.key))
		})
	}
}

func TestAllIsDeduplicated(t *testing.T) {
	c := Default()

	seen := make(map[string]bool)
	for _, q := range c.All() {
		require.False(t, seen[q.ID], "duplicate id %s", q.ID)
		seen[q.ID] = true
	}

	assert.Equal(t, "distractions", c.All()[0].ID)
	assert.True(t, seen["safe_spot"])
}

func TestLoadRejectsInvalidCatalogs(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		err  error
	}{
		{name: "empty", yaml: "version: 1\n", err: ErrEmptyCatalog},
		{
			name: "duplicate category",
			yaml: "categories:\n  - name: A\n    questions: []\n  - name: A\n    questions: []\n",
			err:  ErrDuplicateCategory,
		},
		{
			name: "question without label",
			yaml: "categories:\n  - name: A\n    questions:\n      - id: q1\n",
			err:  ErrInvalidQuestion,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(strings.NewReader(tt.yaml))
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	c := Default()

	snap := c.Snapshot()
	snap.Categories[0].Questions[0].Label = "changed"

	assert.Equal(t, "¿Opera sin distracciones?", c.Questions("Vías")[0].Label)
}
