package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 2, cfg.OptLevel)
	assert.False(t, cfg.SaveUnoptIR)
	assert.Equal(t, "build", cfg.BuildDir)
	assert.EqualValues(t, 4, cfg.MaxParallelGroups)
	assert.Equal(t, "cc", cfg.Linker)
}

func TestLoad_MissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_OverlaysFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pythoc.yaml")
	contents := "opt_level: 0\nsave_unopt_ir: true\nlinker: clang\nlink_libraries: [m, pthread]\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.OptLevel)
	assert.True(t, cfg.SaveUnoptIR)
	assert.Equal(t, "clang", cfg.Linker)
	assert.Equal(t, []string{"m", "pthread"}, cfg.LinkLibraries)
	// Fields absent from the file keep Default()'s values.
	assert.Equal(t, "build", cfg.BuildDir)
}

func TestLoad_RejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pythoc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("opt_level: [this is not an int"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestApplyEnv_OptLevel(t *testing.T) {
	cfg := Default()
	t.Setenv("PC_OPT_LEVEL", "3")
	t.Setenv("PC_SAVE_UNOPT_IR", "")
	cfg.ApplyEnv()
	assert.Equal(t, 3, cfg.OptLevel)
	assert.False(t, cfg.SaveUnoptIR)
}

func TestApplyEnv_SaveUnoptIRTruthy(t *testing.T) {
	cfg := Default()
	t.Setenv("PC_OPT_LEVEL", "")
	t.Setenv("PC_SAVE_UNOPT_IR", "1")
	cfg.ApplyEnv()
	assert.True(t, cfg.SaveUnoptIR)
}

func TestApplyEnv_SaveUnoptIRFalsy(t *testing.T) {
	cfg := Default()
	t.Setenv("PC_OPT_LEVEL", "")
	t.Setenv("PC_SAVE_UNOPT_IR", "false")
	cfg.ApplyEnv()
	assert.False(t, cfg.SaveUnoptIR)
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"", "0", "false", "False", "FALSE"} {
		assert.False(t, isTruthy(v), "expected %q to be falsy", v)
	}
	for _, v := range []string{"1", "true", "yes", "anything"} {
		assert.True(t, isTruthy(v), "expected %q to be truthy", v)
	}
}
