package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/core/v3/common"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "Test Renderer", cfg.Window.Title)
	assert.Equal(t, 1280, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height)
	assert.Equal(t, [4]float32{0.9, 0.3, 0.1, 1.0}, cfg.Render.ClearColor)
	assert.Equal(t, []string{"VK_KHR_swapchain"}, cfg.Vulkan.DeviceExtensions)

	version, err := cfg.Vulkan.Version()
	require.NoError(t, err)
	assert.Equal(t, common.Vulkan1_2, version)
}

func TestParseOverlaysDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
[window]
width = 800

[vulkan]
validation = true

[assets]
mesh = "meshes/room.obj"
`))
	require.NoError(t, err)

	assert.Equal(t, 800, cfg.Window.Width)
	assert.Equal(t, 720, cfg.Window.Height)
	assert.Equal(t, "Test Renderer", cfg.Window.Title)
	assert.True(t, cfg.Vulkan.Validation)
	assert.NotEmpty(t, cfg.Vulkan.InstanceLayers())
	assert.Equal(t, "meshes/room.obj", cfg.Assets.Mesh)
	assert.Equal(t, "shaders/triangle.vert.spv", cfg.Assets.VertexShader)
}

func TestParseRejects(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown key", "[window]\ncolour = 1\n"},
		{"zero width", "[window]\nwidth = 0\n"},
		{"bad version", "[vulkan]\napi_version = \"1\"\n"},
		{"non numeric version", "[vulkan]\napi_version = \"one.two\"\n"},
		{"no shader", "[assets]\nvertex_shader = \"\"\n"},
		{"material without mesh", "[assets]\nmaterial = \"a.mtl\"\n"},
		{"log format", "[log]\nformat = \"xml\"\n"},
		{"negative stats", "[render]\nstats_interval = -1\n"},
		{"syntax", "[window\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}

func TestInstanceLayersFollowValidation(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.Vulkan.Validation)
	assert.Nil(t, cfg.Vulkan.InstanceLayers())

	cfg.Vulkan.Validation = true
	assert.Equal(t, []string{"VK_LAYER_KHRONOS_validation"}, cfg.Vulkan.InstanceLayers())
}

func TestDeviceLayersAreSeparate(t *testing.T) {
	cfg := Default()
	assert.Empty(t, cfg.Vulkan.DeviceLayers)

	cfg, err := Parse([]byte(`
[vulkan]
validation = true
device_layers = ["VK_LAYER_example_device"]
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"VK_LAYER_KHRONOS_validation"}, cfg.Vulkan.InstanceLayers())
	assert.Equal(t, []string{"VK_LAYER_example_device"}, cfg.Vulkan.DeviceLayers)
}

func TestLoadFromEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "presenter.toml")
	require.NoError(t, os.WriteFile(path, []byte("[window]\ntitle = \"From Env\"\n"), 0o644))
	t.Setenv(EnvPath, path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "From Env", cfg.Window.Title)
}

func TestLoadExplicitMissingFileFails(t *testing.T) {
	t.Setenv(EnvPath, filepath.Join(t.TempDir(), "missing.toml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	t.Setenv(EnvPath, "")
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}
