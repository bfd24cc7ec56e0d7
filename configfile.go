package omchunk

import (
	"os"

	"gopkg.in/yaml.v3"
)

// ConfigFile is the on-disk description of an array used by the command line
// tool. Field names follow the container header.
type ConfigFile struct {
	Name                 string            `yaml:"name"`
	DataType             string            `yaml:"data_type"`
	Method               string            `yaml:"method"`
	Dimensions           []uint64          `yaml:"dimensions"`
	Chunks               []uint64          `yaml:"chunks"`
	ScaleFactor          *float64          `yaml:"scale_factor"`
	AddOffset            float64           `yaml:"add_offset"`
	LutChunkElementCount uint64            `yaml:"lut_chunk_element_count"`
	Attributes           map[string]string `yaml:"attributes"`
}

// DefaultLutChunkElementCount is used when a config file doesn't set
// `lut_chunk_element_count`.
const DefaultLutChunkElementCount = 256

// LoadConfigFile reads and validates a YAML array description.
func LoadConfigFile(path string) (*Config, *ConfigFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, ErrIOFailed.Wrap(err)
	}
	return ParseConfigYAML(data)
}

// ParseConfigYAML parses and validates a YAML array description. The raw file
// contents are returned alongside the configuration so callers can get at the
// name and attributes.
func ParseConfigYAML(data []byte) (*Config, *ConfigFile, error) {
	var file ConfigFile
	err := yaml.Unmarshal(data, &file)
	if err != nil {
		return nil, nil, ErrInvalidConfiguration.Wrap(err)
	}

	dataType, err := ParseDataType(file.DataType)
	if err != nil {
		return nil, nil, err
	}

	method := DeltaBitpack
	if file.Method != "" {
		method, err = ParseMethod(file.Method)
		if err != nil {
			return nil, nil, err
		}
	}

	scaleFactor := 1.0
	if file.ScaleFactor != nil {
		scaleFactor = *file.ScaleFactor
	}

	lutCount := file.LutChunkElementCount
	if lutCount == 0 {
		lutCount = DefaultLutChunkElementCount
	}

	cfg, err := NewConfig(Config{
		DataType:             dataType,
		Method:               method,
		Dimensions:           file.Dimensions,
		Chunks:               file.Chunks,
		ScaleFactor:          scaleFactor,
		AddOffset:            file.AddOffset,
		LutChunkElementCount: lutCount,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, &file, nil
}
