package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResources_Arithmetic(t *testing.T) {
	a := Resources{CPU: 10, RAM: 20, HDD: 30, Net: 40}
	b := Resources{CPU: 5, RAM: 25, HDD: 10, Net: 40}

	assert.Equal(t, Resources{CPU: 15, RAM: 45, HDD: 40, Net: 80}, a.Add(b))
	// Sub clamps at zero per dimension.
	assert.Equal(t, Resources{CPU: 5, RAM: 0, HDD: 20, Net: 0}, a.Sub(b))
}

func TestResources_Fits(t *testing.T) {
	limit := Resources{CPU: 100, RAM: 512, HDD: 50, Net: 50}
	assert.True(t, Resources{CPU: 100, RAM: 512, HDD: 50, Net: 50}.Fits(limit))
	assert.True(t, Resources{}.Fits(limit))
	// One dimension over the limit fails the whole check.
	assert.False(t, Resources{CPU: 1, RAM: 513}.Fits(limit))
}

func TestResources_Get(t *testing.T) {
	r := Resources{CPU: 1, RAM: 2, HDD: 3, Net: 4}
	for i, dim := range Dimensions() {
		assert.Equal(t, uint64(i+1), r.Get(dim))
	}
	assert.Zero(t, r.Get("unknown"))
}
