package processor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestImputeUsesGroupMedian(t *testing.T) {
	rows := []FlightRecord{
		{Destination: "Bremen", DistanceKm: Some(10)},
		{Destination: "Bremen"},
		{Destination: "Bremen", DistanceKm: Some(30)},
		{Destination: "Billund", DistanceKm: Some(1000)},
		{Destination: "Billund", DistanceKm: Some(2000)},
	}

	out := imputeByDestination(rows)
	assert.Equal(t, Some(20), out[1].DistanceKm)
	assert.False(t, rows[1].DistanceKm.Valid, "input must stay untouched")
}

func TestImputeLeavesAllMissingGroup(t *testing.T) {
	rows := []FlightRecord{
		{Destination: "Paris"},
		{Destination: "Paris"},
		{Destination: "London", CO2PerPaxKm: Some(0.1), EngineModel: "V2527-A5"},
	}

	out := imputeByDestination(rows)
	assert.False(t, out[0].CO2PerPaxKm.Valid)
	assert.False(t, out[1].CO2PerPaxKm.Valid)
	assert.Equal(t, "", out[0].EngineModel)
}

func TestImputeModeTieTakesSmallest(t *testing.T) {
	rows := []FlightRecord{
		{Destination: "London", AircraftVariant: "A320neo"},
		{Destination: "London", AircraftVariant: "A220-300"},
		{Destination: "London", AircraftVariant: "A320neo"},
		{Destination: "London", AircraftVariant: "A220-300"},
		{Destination: "London"},
		{Destination: "London", OperatorCode: "KLM"},
	}

	out := imputeByDestination(rows)
	assert.Equal(t, "A220-300", out[4].AircraftVariant)
	assert.Equal(t, "A220-300", out[5].AircraftVariant)
	assert.Equal(t, "KLM", out[0].OperatorCode)
}

func TestImputeSkipsRowsWithoutDestination(t *testing.T) {
	rows := []FlightRecord{
		{Destination: "", EngineModel: ""},
		{Destination: "", EngineModel: "PW1127G"},
	}

	out := imputeByDestination(rows)
	assert.Equal(t, "", out[0].EngineModel)
}

func TestModeOf(t *testing.T) {
	assert.Equal(t, "B", modeOf(map[string]int{"A": 1, "B": 3, "C": 2}))
	assert.Equal(t, "Unknown", modeOf(map[string]int{"Unknown": 2, "V2527-A5": 2}))
}

func TestFieldDeclarationsCoverDistinctColumns(t *testing.T) {
	seen := make(map[string]bool)
	for _, f := range numericFields {
		assert.False(t, seen[f.name], f.name)
		seen[f.name] = true
	}
	for _, f := range categoricalFields {
		assert.False(t, seen[f.name], f.name)
		seen[f.name] = true
	}
	assert.True(t, seen[ColDistance])
	assert.True(t, seen[ColEngine])
}
