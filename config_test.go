package itemstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestConfigWithDefaultsFillsOptionalFields(t *testing.T) {
	c := Config{StoreName: "s", BasePath: "/tmp"}.withDefaults()

	if c.DataFileSuffix != "daf" || c.DescriptionFileSuffix != "def" || c.IDFileSuffix != "id" {
		t.Fatalf("suffixes = %+v", c)
	}
	if c.ByteBufferSize != 512 || c.MinimumDataFileSize != 1024 {
		t.Fatalf("sizes = %+v", c)
	}
	if c.Logger == nil {
		t.Fatalf("Logger = nil, want non-nil default")
	}
}

func TestConfigWithDefaultsPreservesExplicitValues(t *testing.T) {
	c := Config{
		StoreName:      "s",
		BasePath:       "/tmp",
		ByteBufferSize: 4096,
	}.withDefaults()

	if c.ByteBufferSize != 4096 {
		t.Fatalf("ByteBufferSize = %d, want 4096 preserved", c.ByteBufferSize)
	}
	if c.MinimumDataFileSize != 1024 {
		t.Fatalf("MinimumDataFileSize = %d, want default 1024", c.MinimumDataFileSize)
	}
}

func TestConfigValidateRejectsMissingOrInvalidFields(t *testing.T) {
	cases := []Config{
		{BasePath: "/tmp"},
		{StoreName: "s"},
		{StoreName: "s", BasePath: "/tmp", ByteBufferSize: -1}.withDefaults(),
	}
	for i, c := range cases {
		if err := c.Validate(); !errors.Is(err, ErrInvalidArgument) {
			t.Fatalf("case %d: Validate() = %v, want ErrInvalidArgument", i, err)
		}
	}
}

func TestConfigValidateAcceptsDefaulted(t *testing.T) {
	c := Config{StoreName: "s", BasePath: "/tmp"}.withDefaults()
	if err := c.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadConfigFileParsesCommentedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.jsonc")
	content := `{
		// trailing comments and commas are allowed
		"byte_buffer_size": 2048,
		"minimum_data_file_size": 4096,
	}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile: %v", err)
	}
	if cfg.ByteBufferSize != 2048 {
		t.Fatalf("ByteBufferSize = %d, want 2048", cfg.ByteBufferSize)
	}
	if cfg.MinimumDataFileSize != 4096 {
		t.Fatalf("MinimumDataFileSize = %d, want 4096", cfg.MinimumDataFileSize)
	}
}
