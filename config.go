package itemstore

import (
	"fmt"
	"os"

	json "github.com/goccy/go-json"
	"github.com/tailscale/hujson"
	"go.uber.org/zap"
)

// Config holds all recognized store configuration options (spec §6).
type Config struct {
	// StoreName is both the directory name and file-stem within BasePath.
	StoreName string `json:"store_name"`
	// BasePath is the parent directory containing StoreName's directory.
	BasePath string `json:"base_path"`

	// DataFileSuffix is the payload file extension. Default "daf".
	DataFileSuffix string `json:"data_file_suffix,omitempty"`
	// DescriptionFileSuffix is the slot file extension. Default "def".
	DescriptionFileSuffix string `json:"description_file_suffix,omitempty"`
	// IDFileSuffix is the counter file extension. Default "id".
	IDFileSuffix string `json:"id_file_suffix,omitempty"`

	// ByteBufferSize is the initial staging Buffer capacity. Default 512.
	ByteBufferSize int `json:"byte_buffer_size,omitempty"`
	// MinimumDataFileSize is the minimum growth step of the data file.
	// Default 1024.
	MinimumDataFileSize int `json:"minimum_data_file_size,omitempty"`

	// Logger receives structured diagnostics from the store and its
	// subsystems. Defaults to a no-op logger — logging is opt-in and never
	// a startup requirement. Not serialized to/from JSON config files.
	Logger *zap.SugaredLogger `json:"-"`
}

// DefaultConfig returns a Config with every optional field at its spec §6
// default. StoreName and BasePath are required and left empty.
func DefaultConfig() Config {
	return Config{
		DataFileSuffix:        "daf",
		DescriptionFileSuffix: "def",
		IDFileSuffix:          "id",
		ByteBufferSize:        512,
		MinimumDataFileSize:   1024,
	}
}

// withDefaults fills any zero-valued optional field with its default,
// leaving explicitly-set fields untouched.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.DataFileSuffix == "" {
		c.DataFileSuffix = d.DataFileSuffix
	}
	if c.DescriptionFileSuffix == "" {
		c.DescriptionFileSuffix = d.DescriptionFileSuffix
	}
	if c.IDFileSuffix == "" {
		c.IDFileSuffix = d.IDFileSuffix
	}
	if c.ByteBufferSize == 0 {
		c.ByteBufferSize = d.ByteBufferSize
	}
	if c.MinimumDataFileSize == 0 {
		c.MinimumDataFileSize = d.MinimumDataFileSize
	}
	if c.Logger == nil {
		c.Logger = newNopLogger()
	}
	return c
}

// Validate checks that every recognized option holds a legal value. Empty
// required strings and non-positive sizes fail with ErrInvalidArgument.
func (c Config) Validate() error {
	if c.StoreName == "" {
		return fmt.Errorf("%w: storeName must not be empty", ErrInvalidArgument)
	}
	if c.BasePath == "" {
		return fmt.Errorf("%w: basePath must not be empty", ErrInvalidArgument)
	}
	if c.DataFileSuffix == "" {
		return fmt.Errorf("%w: dataFileSuffix must not be empty", ErrInvalidArgument)
	}
	if c.DescriptionFileSuffix == "" {
		return fmt.Errorf("%w: descriptionFileSuffix must not be empty", ErrInvalidArgument)
	}
	if c.IDFileSuffix == "" {
		return fmt.Errorf("%w: idFileSuffix must not be empty", ErrInvalidArgument)
	}
	if c.ByteBufferSize <= 0 {
		return fmt.Errorf("%w: byteBufferSize must be positive", ErrInvalidArgument)
	}
	if c.MinimumDataFileSize <= 0 {
		return fmt.Errorf("%w: minimumDataFileSize must be positive", ErrInvalidArgument)
	}
	return nil
}

// LoadConfigFile reads a JSON-with-comments configuration file (trailing
// commas and // or /* */ comments allowed) and decodes it into a Config.
// StoreName/BasePath/Logger are expected to still be supplied by the
// caller on top of the returned value, since they are deployment-specific.
//
// hujson normalizes the forgiving on-disk format to strict JSON; goccy's
// decoder then does the actual unmarshal, mirroring the two-stage pattern
// used for config files elsewhere in the retrieved corpus.
func LoadConfigFile(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("%w: reading %s: %w", ErrIo, path, err)
	}

	standard, err := hujson.Standardize(raw)
	if err != nil {
		return Config{}, fmt.Errorf("itemstore: parsing %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(standard, &cfg); err != nil {
		return Config{}, fmt.Errorf("itemstore: decoding %s: %w", path, err)
	}
	return cfg, nil
}
