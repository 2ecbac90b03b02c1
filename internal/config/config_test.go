package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.DBPath)
}

func TestLoadConfig(t *testing.T) {
	tests := []struct {
		name      string
		content   string
		wantDB    string
		wantLevel string
		wantErr   bool
	}{
		{
			name:      "all fields",
			content:   "db_path: /data/bench.sqlite\nlog_level: debug\n",
			wantDB:    "/data/bench.sqlite",
			wantLevel: "debug",
		},
		{
			name:      "partial file keeps defaults",
			content:   "log_level: WARN\n",
			wantDB:    "",
			wantLevel: "warn",
		},
		{
			name:      "empty file",
			content:   "",
			wantLevel: "info",
		},
		{
			name:    "malformed yaml",
			content: "db_path: [unclosed\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := LoadConfig(writeConfig(t, tt.content))
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantDB, cfg.DBPath)
			assert.Equal(t, tt.wantLevel, cfg.LogLevel)
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_ExpandsHome(t *testing.T) {
	userHome, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg, err := LoadConfig(writeConfig(t, "db_path: ~/bench/db.sqlite\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(userHome, "bench", "db.sqlite"), cfg.DBPath)
}

func TestMergeWithFlags(t *testing.T) {
	cfg := &Config{DBPath: "/from/file.sqlite", LogLevel: "warn"}

	cfg.MergeWithFlags(nil, nil)
	assert.Equal(t, "/from/file.sqlite", cfg.DBPath)
	assert.Equal(t, "warn", cfg.LogLevel)

	db := "/from/flag.sqlite"
	level := "Trace"
	cfg.MergeWithFlags(&db, &level)
	assert.Equal(t, "/from/flag.sqlite", cfg.DBPath)
	assert.Equal(t, "trace", cfg.LogLevel)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{name: "valid", cfg: Config{DBPath: "/tmp/x.sqlite", LogLevel: "info"}},
		{name: "memory database", cfg: Config{DBPath: ":memory:", LogLevel: "error"}},
		{name: "bad level", cfg: Config{DBPath: "/tmp/x.sqlite", LogLevel: "loud"}, wantErr: "invalid log_level"},
		{name: "empty db path", cfg: Config{DBPath: " ", LogLevel: "info"}, wantErr: "db_path cannot be empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestResolveDBPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnv, home)

	cfg := DefaultConfig()
	require.NoError(t, cfg.ResolveDBPath())
	assert.Equal(t, filepath.Join(home, "benchmaker.sqlite"), cfg.DBPath)

	cfg.DBPath = "/explicit.sqlite"
	require.NoError(t, cfg.ResolveDBPath())
	assert.Equal(t, "/explicit.sqlite", cfg.DBPath)
}
