package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	cfg := Default()
	assert.Equal(t, DefaultDBSizeGiB, cfg.DBSizeGiB)
	assert.Equal(t, DefaultEfSearch, cfg.EfSearch)
	assert.Equal(t, DefaultBM25AccumulatorCap, cfg.BM25AccumulatorCap)
	assert.Equal(t, DefaultMaxTraversalDepth, cfg.MaxTraversalDepth)
}

func TestHNSWParamsClamp(t *testing.T) {
	p := HNSWParams{M: 1000, EfConstruction: 1, EfSearch: 1}.Clamp()
	assert.Equal(t, MaxM, p.M)
	assert.Equal(t, MinEfConstruction, p.EfConstruction)
	assert.Equal(t, MinEfSearch, p.EfSearch)
	assert.Equal(t, 2*MaxM, p.MMax0())
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HELIX_DATA_DIR", "/tmp/helix-data")
	t.Setenv("HELIX_DB_SIZE_GIB", "4")
	t.Setenv("HELIX_EF_SEARCH", "200")
	t.Setenv("HELIX_PORT", "6969")

	cfg := Load(nil)
	assert.Equal(t, "/tmp/helix-data", cfg.DataDir)
	assert.Equal(t, 4, cfg.DBSizeGiB)
	assert.Equal(t, 200, cfg.EfSearch)
	assert.Equal(t, 6969, cfg.Port)
}

func TestEnvOverrideOutOfRangeIgnored(t *testing.T) {
	t.Setenv("HELIX_EF_SEARCH", "99999")
	cfg := Load(nil)
	assert.Equal(t, DefaultEfSearch, cfg.EfSearch)
}

func TestHNSWParamsForFallsBackToDefault(t *testing.T) {
	cfg := Default()
	p := cfg.HNSWParamsFor("Chunk")
	assert.Equal(t, DefaultM, p.M)
}

func TestHNSWParamsForUsesOverride(t *testing.T) {
	cfg := Default()
	cfg.HNSW["Chunk"] = HNSWParams{M: 32, EfConstruction: 200, EfSearch: 100}
	p := cfg.HNSWParamsFor("Chunk")
	assert.Equal(t, 32, p.M)
	assert.Equal(t, 64, p.MMax0())
}
