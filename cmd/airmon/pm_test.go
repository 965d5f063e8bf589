package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mklimuk/airmon/air"
)

func TestNewParticulateView(t *testing.T) {
	r := air.ParticulateReading{1, 2, 3, 4, 5, 6, 600, 500, 100, 10, 5, 1, 0}
	v := newParticulateView(r)

	assert.Equal(t, concentrations{PM1: 4, PM25: 5, PM10: 6}, v.Atmospheric)
	assert.Equal(t, concentrations{PM1: 1, PM25: 2, PM10: 3}, v.Standard)
	assert.Equal(t, uint16(600), v.Particles.Over03)
	assert.Equal(t, uint16(10), v.Particles.Over25)
	assert.Equal(t, uint16(1), v.Particles.Over100)
}
