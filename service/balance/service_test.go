package balance

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gopkg.in/yaml.v3"

	"github.com/hexsim/hexsim/model"
)

func TestService_Duration(t *testing.T) {
	svc, err := New(&Config{Types: map[model.Type]Entry{
		model.TypeBruteforce: {
			BaseSeconds:   100,
			MinSeconds:    10,
			DefenseWeight: 0.1,
			SkillWeight:   0.05,
		},
	}})
	assert.Nil(t, err)

	testCases := []struct {
		name   string
		bctx   Context
		expect time.Duration
	}{
		{name: "no scaling", bctx: Context{}, expect: 100 * time.Second},
		{name: "defense slows", bctx: Context{TargetDefense: 10}, expect: 200 * time.Second},
		{name: "skill speeds up", bctx: Context{PlayerLevel: 20}, expect: 50 * time.Second},
		{name: "clamped at minimum", bctx: Context{PlayerLevel: 1000}, expect: 10 * time.Second},
	}
	for _, tc := range testCases {
		actual := svc.Duration(model.TypeBruteforce, model.Resources{}, tc.bctx)
		assert.Equal(t, tc.expect, actual, tc.name)
	}

	// Unknown types yield zero; the caller falls back to its own default.
	assert.Zero(t, svc.Duration(model.TypeLogForger, model.Resources{}, Context{}))
}

func TestService_DurationIsPure(t *testing.T) {
	svc := Default()
	bctx := Context{PlayerLevel: 3, TargetDefense: 7}
	demand, err := svc.Demand(model.TypeBruteforce)
	assert.Nil(t, err)
	first := svc.Duration(model.TypeBruteforce, demand, bctx)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, svc.Duration(model.TypeBruteforce, demand, bctx))
	}
}

func TestService_Cancellable(t *testing.T) {
	svc := Default()
	assert.True(t, svc.Cancellable(model.TypeBruteforce))
	// Wire transfers are irrevocable once running.
	assert.False(t, svc.Cancellable(model.TypeWireTransfer))
	// Types absent from the table default to cancellable.
	assert.True(t, svc.Cancellable(model.Type("unknown")))
}

func TestConfig_YAML(t *testing.T) {
	data := `
types:
  file_upload:
    baseSeconds: 60
    minSeconds: 5
    demand:
      cpu: 5
      ram: 64
      hdd: 40
      net: 50
  wire_transfer:
    baseSeconds: 150
    cancellable: false
    demand:
      cpu: 30
`
	config := &Config{}
	assert.Nil(t, yaml.Unmarshal([]byte(data), config))

	svc, err := New(config)
	assert.Nil(t, err)

	demand, err := svc.Demand(model.TypeFileUpload)
	assert.Nil(t, err)
	assert.Equal(t, model.Resources{CPU: 5, RAM: 64, HDD: 40, Net: 50}, demand)
	assert.False(t, svc.Cancellable(model.TypeWireTransfer))

	_, err = svc.Demand(model.TypeBruteforce)
	assert.NotNil(t, err)
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil)
	assert.NotNil(t, err)
	_, err = New(&Config{Types: map[model.Type]Entry{"bogus": {}}})
	assert.NotNil(t, err)
}

func TestDefault_CoversAllTypes(t *testing.T) {
	svc := Default()
	for _, processType := range model.AllTypes() {
		demand, err := svc.Demand(processType)
		assert.Nil(t, err, processType)
		assert.False(t, demand.IsZero(), processType)
		assert.NotZero(t, svc.Duration(processType, demand, Context{}), processType)
	}
}
