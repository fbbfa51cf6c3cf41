// Package config holds the presenter's settings. Every field has a default;
// an optional TOML file overrides any subset of them.
package config

import (
	"bytes"
	"os"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pelletier/go-toml/v2"
	"github.com/vkngwrapper/core/v3/common"
)

// EnvPath names the environment variable that points at the config file.
const EnvPath = "PRESENTER_CONFIG"

// DefaultPath is read when EnvPath is unset. It may be absent.
const DefaultPath = "presenter.toml"

type Config struct {
	Window WindowConfig `toml:"window"`
	Vulkan VulkanConfig `toml:"vulkan"`
	Render RenderConfig `toml:"render"`
	Assets AssetsConfig `toml:"assets"`
	Log    LogConfig    `toml:"log"`
}

type WindowConfig struct {
	Title  string `toml:"title"`
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
}

type VulkanConfig struct {
	// APIVersion is "major.minor", the lowest version the instance and the
	// physical device must support.
	APIVersion string `toml:"api_version"`

	// Validation enables ValidationLayers and the debug messenger. Off by
	// default; the layers come with the Vulkan SDK.
	Validation       bool     `toml:"validation"`
	ValidationLayers []string `toml:"validation_layers"`

	// DeviceLayers must be reported by the physical device itself.
	DeviceLayers     []string `toml:"device_layers"`
	DeviceExtensions []string `toml:"device_extensions"`
}

type RenderConfig struct {
	ClearColor [4]float32 `toml:"clear_color"`

	// PipelineCache is where pipeline cache data is kept between runs.
	// Empty disables it.
	PipelineCache string `toml:"pipeline_cache"`

	// StatsInterval is how many frames pass between two frame stat log
	// lines. Zero disables them.
	StatsInterval int `toml:"stats_interval"`
}

type AssetsConfig struct {
	VertexShader   string `toml:"vertex_shader"`
	FragmentShader string `toml:"fragment_shader"`

	// Mesh is an OBJ file. Empty draws the built-in triangle.
	Mesh     string `toml:"mesh"`
	Material string `toml:"material"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

func Default() Config {
	return Config{
		Window: WindowConfig{
			Title:  "Test Renderer",
			Width:  1280,
			Height: 720,
		},
		Vulkan: VulkanConfig{
			APIVersion:       "1.2",
			Validation:       false,
			ValidationLayers: []string{"VK_LAYER_KHRONOS_validation"},
			DeviceExtensions: []string{"VK_KHR_swapchain"},
		},
		Render: RenderConfig{
			ClearColor:    [4]float32{0.9, 0.3, 0.1, 1.0},
			PipelineCache: "pipeline_cache.bin",
			StatsInterval: 600,
		},
		Assets: AssetsConfig{
			VertexShader:   "shaders/triangle.vert.spv",
			FragmentShader: "shaders/triangle.frag.spv",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load returns the defaults overlaid with the file named by EnvPath, or by
// DefaultPath when that is unset. Only a missing DefaultPath is tolerated.
func Load() (Config, error) {
	path, explicit := os.LookupEnv(EnvPath)
	if !explicit || path == "" {
		path = DefaultPath
		explicit = false
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) && !explicit {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	if err != nil {
		return Default(), errors.Wrapf(err, "read config %s", path)
	}

	cfg, err := Parse(data)
	if err != nil {
		return cfg, errors.Wrapf(err, "config %s", path)
	}

	return cfg, nil
}

// Parse overlays the TOML document data on the defaults. Unknown keys are
// rejected.
func Parse(data []byte) (Config, error) {
	cfg := Default()

	err := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&cfg)
	if err != nil {
		return cfg, errors.Wrap(err, "decode")
	}

	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	if c.Window.Width <= 0 || c.Window.Height <= 0 {
		return errors.Newf("window size %dx%d must be positive", c.Window.Width, c.Window.Height)
	}

	_, err := c.Vulkan.Version()
	if err != nil {
		return err
	}

	if c.Assets.VertexShader == "" || c.Assets.FragmentShader == "" {
		return errors.New("vertex and fragment shader paths are required")
	}

	if c.Assets.Material != "" && c.Assets.Mesh == "" {
		return errors.New("a material needs a mesh")
	}

	if c.Render.StatsInterval < 0 {
		return errors.Newf("stats interval %d is negative", c.Render.StatsInterval)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return errors.Newf("unknown log format %q", c.Log.Format)
	}

	return nil
}

// Version parses APIVersion.
func (c VulkanConfig) Version() (common.APIVersion, error) {
	parts := strings.Split(c.APIVersion, ".")
	if len(parts) != 2 {
		return 0, errors.Newf("api version %q is not major.minor", c.APIVersion)
	}

	major, err := strconv.ParseUint(parts[0], 10, 8)
	if err != nil {
		return 0, errors.Wrapf(err, "api version %q", c.APIVersion)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil {
		return 0, errors.Wrapf(err, "api version %q", c.APIVersion)
	}

	return common.APIVersion(common.CreateVersion(uint32(major), uint32(minor), 0)), nil
}

// InstanceLayers are the layers the instance must enable.
func (c VulkanConfig) InstanceLayers() []string {
	if !c.Validation {
		return nil
	}
	return c.ValidationLayers
}
