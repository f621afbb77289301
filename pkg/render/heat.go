package render

import (
	"image/color"
	"math"
)

// MaxDisplayHeat is the heat drawn with the hottest glyph and color.
const MaxDisplayHeat = 5.0

var glyphRamp = []rune{'o', '*', 'O', '@'}

// HeatLevel maps heat onto [0, 1]. Non-finite or negative heat is cold.
func HeatLevel(heat float64) float64 {
	if math.IsNaN(heat) || heat <= 0 {
		return 0
	}
	if heat >= MaxDisplayHeat {
		return 1
	}
	return heat / MaxDisplayHeat
}

// Glyph returns the terminal glyph for a body with the given heat.
func Glyph(heat float64) rune {
	i := int(HeatLevel(heat) * float64(len(glyphRamp)))
	if i >= len(glyphRamp) {
		i = len(glyphRamp) - 1
	}
	return glyphRamp[i]
}

// HeatColor fades from white through yellow to red as heat rises.
func HeatColor(heat float64) color.RGBA {
	t := HeatLevel(heat)
	if t <= 0.5 {
		return color.RGBA{R: 255, G: 255, B: channel(255 - 510*t), A: 255}
	}
	return color.RGBA{R: 255, G: channel(255 - 430*(t-0.5)), B: 0, A: 255}
}

func channel(v float64) uint8 {
	return uint8(math.Round(math.Max(0, math.Min(255, v))))
}
