package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "crane-scale-5t", Slugify("Crane Scale 5T"))
	assert.Equal(t, "jewellery-weighing-scales", Slugify("  Jewellery  Weighing Scales "))
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		name string
		in   string
		n    int
		want string
	}{
		{"short", "Platform scale", 40, "Platform scale"},
		{"word boundary", "Heavy duty platform scale for warehouses", 20, "Heavy duty platform…"},
		{"trailing punctuation", "Rugged, accurate, reliable", 9, "Rugged…"},
		{"zero", "anything", 0, ""},
		{"no space", "Weighbridge", 5, "Weigh…"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Truncate(tt.in, tt.n))
		})
	}
}

func TestInitials(t *testing.T) {
	assert.Equal(t, "HD", Initials("heavy duty platform scale"))
	assert.Equal(t, "C5", Initials("Crane 5T"))
	assert.Equal(t, "G", Initials("Gold"))
	assert.Equal(t, "GS", Initials("& gold scale"))
	assert.Equal(t, "", Initials(""))
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "Jewellery Weighing Scales", Humanize("jewellery-weighing-scales"))
	assert.Equal(t, "Old Stock", Humanize("old_stock"))
	assert.Equal(t, "", Humanize(""))
}
