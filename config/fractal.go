package config

import (
	"io"
	"math"
	"os"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/mogaika/fractal_browser/utils"
)

const (
	DefaultListen      = ":8000"
	DefaultFPS         = 60
	DefaultDepth       = 4
	DefaultMesh        = "cube"
	DefaultMaterial    = "default"
	DefaultScaleFactor = 0.5
	DefaultSpinRate    = 0.125 * math.Pi // radians per second
	DefaultBatchSize   = 5
)

// Fractal is everything the fractal core needs on activation.
// Mesh and Material are opaque handles passed through to the renderer.
type Fractal struct {
	Name        string  `yaml:"name" json:"name"`
	Depth       int     `yaml:"depth" json:"depth"`
	Mesh        string  `yaml:"mesh" json:"mesh"`
	Material    string  `yaml:"material" json:"material"`
	ScaleFactor float32 `yaml:"scale_factor" json:"scale_factor"`
	SpinRate    float32 `yaml:"spin_rate" json:"spin_rate"`
	BatchSize   int     `yaml:"batch_size" json:"batch_size"`
	Workers     int     `yaml:"workers" json:"workers"`
	MaxNodes    int     `yaml:"max_nodes" json:"max_nodes"`
}

// Owner describes the transform of the object that owns the fractal
type Owner struct {
	Position [3]float32 `yaml:"position" json:"position"`
	Rotation [3]float32 `yaml:"rotation" json:"rotation"` // euler, degrees
	Scale    float32    `yaml:"scale" json:"scale"`
	YawRate  float32    `yaml:"yaw_rate" json:"yaw_rate"` // degrees per second
}

type Config struct {
	Listen  string  `yaml:"listen" json:"listen"`
	FPS     int     `yaml:"fps" json:"fps"`
	Fractal Fractal `yaml:"fractal" json:"fractal"`
	Owner   Owner   `yaml:"owner" json:"owner"`
}

var (
	names   utils.RandomNameGenerator
	namesMu sync.Mutex
)

func DefaultFractal() Fractal {
	return Fractal{
		Depth:       DefaultDepth,
		Mesh:        DefaultMesh,
		Material:    DefaultMaterial,
		ScaleFactor: DefaultScaleFactor,
		SpinRate:    DefaultSpinRate,
		BatchSize:   DefaultBatchSize,
	}
}

func Default() *Config {
	return &Config{
		Listen:  DefaultListen,
		FPS:     DefaultFPS,
		Fractal: DefaultFractal(),
		Owner:   Owner{Scale: 1},
	}
}

// Load reads yaml config on top of defaults
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to open config %q", path)
	}
	defer f.Close()

	c, err := Decode(f)
	if err != nil {
		return nil, errors.Wrapf(err, "Failed to load config %q", path)
	}
	return c, nil
}

func Decode(r io.Reader) (*Config, error) {
	c := Default()
	if err := yaml.NewDecoder(r).Decode(c); err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "Failed to unmarshal yaml")
	}
	c.Fractal.FillName()
	return c, nil
}

// DecodeFractal reads a single fractal section on top of defaults.
// Name stays empty when not given, the caller fills it once accepted.
func DecodeFractal(r io.Reader) (Fractal, error) {
	f := DefaultFractal()
	if err := yaml.NewDecoder(r).Decode(&f); err != nil && err != io.EOF {
		return f, errors.Wrapf(err, "Failed to unmarshal yaml")
	}
	return f, nil
}

func (c *Config) Encode(w io.Writer) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)

	if err := enc.Encode(c); err != nil {
		return errors.Wrapf(err, "Failed to marshal yaml")
	}
	if err := enc.Close(); err != nil {
		return errors.Wrapf(err, "Failed to close yaml encoder")
	}
	return nil
}

// FillName assigns a random name when none is configured.
// Names come from a fixed seed, so runs are reproducible.
func (f *Fractal) FillName() {
	if f.Name == "" {
		namesMu.Lock()
		f.Name = names.RandomName()
		namesMu.Unlock()
	}
}

// GeneratedNames is how many default names were handed out so far
func GeneratedNames() int {
	namesMu.Lock()
	defer namesMu.Unlock()
	return names.Used()
}
