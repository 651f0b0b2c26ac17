// 配置加载器与默认配置测试。
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- 默认配置测试 ---

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// 验证服务器默认值
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 150*time.Second, cfg.Server.WriteTimeout)

	// 验证 Editor 默认值
	assert.Equal(t, "gemini", cfg.Editor.Provider)
	assert.Equal(t, "gemini-3-pro-image-preview", cfg.Editor.Model)
	assert.Equal(t, 2*time.Minute, cfg.Editor.Timeout)

	// 验证 Session 默认值
	assert.Equal(t, "memory", cfg.Session.Store)
	assert.Equal(t, 30*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 8<<20, cfg.Session.MaxPayloadBytes)

	// 验证 Redis 默认值
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, 0, cfg.Redis.DB)

	// 验证 Database 默认值
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)

	// 验证 History 默认值（默认关闭）
	assert.False(t, cfg.History.Enabled)
	assert.Equal(t, 30*24*time.Hour, cfg.History.Retention)

	// 验证 Log 默认值
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

// --- Loader 测试 ---

func TestLoader_LoadDefaults(t *testing.T) {
	// 不指定配置文件，应该返回默认值
	cfg, err := NewLoader().Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, "gemini", cfg.Editor.Provider)
}

func TestLoader_LoadFromYAML(t *testing.T) {
	// 创建临时配置文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  http_port: 8888
  read_timeout: 60s

editor:
  provider: "openai"
  api_key: "sk-test"
  model: "gpt-image-1"
  timeout: 90s

session:
  store: "redis"
  ttl: 45m
  max_payload_bytes: 1048576

redis:
  addr: "redis.example.com:6379"
  password: "secret"
  db: 1

log:
  level: "debug"
  format: "console"
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	// 加载配置
	cfg, err := NewLoader().
		WithConfigFile(configPath).
		Load()
	require.NoError(t, err)

	// 验证 YAML 值覆盖了默认值
	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)

	assert.Equal(t, "openai", cfg.Editor.Provider)
	assert.Equal(t, "sk-test", cfg.Editor.APIKey)
	assert.Equal(t, "gpt-image-1", cfg.Editor.Model)
	assert.Equal(t, 90*time.Second, cfg.Editor.Timeout)

	assert.Equal(t, "redis", cfg.Session.Store)
	assert.Equal(t, 45*time.Minute, cfg.Session.TTL)
	assert.Equal(t, 1048576, cfg.Session.MaxPayloadBytes)

	assert.Equal(t, "redis.example.com:6379", cfg.Redis.Addr)
	assert.Equal(t, "secret", cfg.Redis.Password)
	assert.Equal(t, 1, cfg.Redis.DB)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)

	// 未覆盖的值应保留默认
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
}

func TestLoader_LoadFromEnv(t *testing.T) {
	// 设置环境变量
	envVars := map[string]string{
		"IMAGEFLOW_SERVER_HTTP_PORT":  "7777",
		"IMAGEFLOW_EDITOR_PROVIDER":   "openai",
		"IMAGEFLOW_EDITOR_API_KEY":    "sk-env",
		"IMAGEFLOW_EDITOR_MODEL":      "env-model",
		"IMAGEFLOW_EDITOR_TIMEOUT":    "45s",
		"IMAGEFLOW_SESSION_TTL":       "15m",
		"IMAGEFLOW_REDIS_ADDR":        "env-redis:6379",
		"IMAGEFLOW_HISTORY_ENABLED":   "true",
		"IMAGEFLOW_LOG_LEVEL":         "warn",
		"IMAGEFLOW_TELEMETRY_SAMPLE_RATE": "0.5",
	}

	// 设置环境变量
	for k, v := range envVars {
		os.Setenv(k, v)
	}
	// 清理环境变量
	defer func() {
		for k := range envVars {
			os.Unsetenv(k)
		}
	}()

	// 加载配置
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	// 验证环境变量覆盖了默认值
	assert.Equal(t, 7777, cfg.Server.HTTPPort)
	assert.Equal(t, "openai", cfg.Editor.Provider)
	assert.Equal(t, "sk-env", cfg.Editor.APIKey)
	assert.Equal(t, "env-model", cfg.Editor.Model)
	assert.Equal(t, 45*time.Second, cfg.Editor.Timeout)
	assert.Equal(t, 15*time.Minute, cfg.Session.TTL)
	assert.Equal(t, "env-redis:6379", cfg.Redis.Addr)
	assert.True(t, cfg.History.Enabled)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, 0.5, cfg.Telemetry.SampleRate)
}

func TestLoader_EnvOverridesYAML(t *testing.T) {
	// 创建临时配置文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  http_port: 8888
editor:
  provider: "gemini"
  model: "yaml-model"
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	// 设置环境变量（应该覆盖 YAML）
	os.Setenv("IMAGEFLOW_SERVER_HTTP_PORT", "9999")
	os.Setenv("IMAGEFLOW_EDITOR_PROVIDER", "openai")
	defer func() {
		os.Unsetenv("IMAGEFLOW_SERVER_HTTP_PORT")
		os.Unsetenv("IMAGEFLOW_EDITOR_PROVIDER")
	}()

	// 加载配置
	cfg, err := NewLoader().
		WithConfigFile(configPath).
		Load()
	require.NoError(t, err)

	// 环境变量应该覆盖 YAML
	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	assert.Equal(t, "openai", cfg.Editor.Provider)
	// YAML 值应该保留（没有被环境变量覆盖）
	assert.Equal(t, "yaml-model", cfg.Editor.Model)
}

func TestLoader_CustomEnvPrefix(t *testing.T) {
	// 设置自定义前缀的环境变量
	os.Setenv("MYAPP_SERVER_HTTP_PORT", "6666")
	os.Setenv("MYAPP_EDITOR_MODEL", "custom-prefix-model")
	defer func() {
		os.Unsetenv("MYAPP_SERVER_HTTP_PORT")
		os.Unsetenv("MYAPP_EDITOR_MODEL")
	}()

	// 使用自定义前缀加载
	cfg, err := NewLoader().
		WithEnvPrefix("MYAPP").
		Load()
	require.NoError(t, err)

	assert.Equal(t, 6666, cfg.Server.HTTPPort)
	assert.Equal(t, "custom-prefix-model", cfg.Editor.Model)
}

func TestLoader_WithValidator(t *testing.T) {
	// 添加验证器
	validator := func(cfg *Config) error {
		if cfg.Server.HTTPPort < 1024 {
			return assert.AnError
		}
		return nil
	}

	// 设置无效端口
	os.Setenv("IMAGEFLOW_SERVER_HTTP_PORT", "80")
	defer os.Unsetenv("IMAGEFLOW_SERVER_HTTP_PORT")

	// 加载应该失败
	_, err := NewLoader().
		WithValidator(validator).
		Load()
	assert.Error(t, err)
}

func TestLoader_NonExistentFile(t *testing.T) {
	// 指定不存在的文件，应该使用默认值（不报错）
	cfg, err := NewLoader().
		WithConfigFile("/non/existent/path/config.yaml").
		Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	// 应该返回默认值
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoader_InvalidYAML(t *testing.T) {
	// 创建无效的 YAML 文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	invalidYAML := `
server:
  http_port: [invalid
  this is not valid yaml
`
	err := os.WriteFile(configPath, []byte(invalidYAML), 0644)
	require.NoError(t, err)

	// 加载应该失败
	_, err = NewLoader().
		WithConfigFile(configPath).
		Load()
	assert.Error(t, err)
}

// --- Config 方法测试 ---

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name: "valid config",
			modify: func(c *Config) {
				c.Editor.APIKey = "test-key"
			},
			wantErr: false,
		},
		{
			name: "missing editor API key",
			modify: func(c *Config) {
				c.Editor.APIKey = ""
			},
			wantErr: true,
		},
		{
			name: "invalid HTTP port (negative)",
			modify: func(c *Config) {
				c.Editor.APIKey = "test-key"
				c.Server.HTTPPort = -1
			},
			wantErr: true,
		},
		{
			name: "invalid HTTP port (too large)",
			modify: func(c *Config) {
				c.Editor.APIKey = "test-key"
				c.Server.HTTPPort = 70000
			},
			wantErr: true,
		},
		{
			name: "unknown editor provider",
			modify: func(c *Config) {
				c.Editor.APIKey = "test-key"
				c.Editor.Provider = "dalle"
			},
			wantErr: true,
		},
		{
			name: "non-positive editor timeout",
			modify: func(c *Config) {
				c.Editor.APIKey = "test-key"
				c.Editor.Timeout = 0
			},
			wantErr: true,
		},
		{
			name: "unknown session store",
			modify: func(c *Config) {
				c.Editor.APIKey = "test-key"
				c.Session.Store = "etcd"
			},
			wantErr: true,
		},
		{
			name: "non-positive payload limit",
			modify: func(c *Config) {
				c.Editor.APIKey = "test-key"
				c.Session.MaxPayloadBytes = 0
			},
			wantErr: true,
		},
		{
			name: "invalid database driver with history enabled",
			modify: func(c *Config) {
				c.Editor.APIKey = "test-key"
				c.History.Enabled = true
				c.Database.Driver = "oracle"
			},
			wantErr: true,
		},
		{
			name: "invalid database driver ignored when history disabled",
			modify: func(c *Config) {
				c.Editor.APIKey = "test-key"
				c.History.Enabled = false
				c.Database.Driver = "oracle"
			},
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	tests := []struct {
		name     string
		config   DatabaseConfig
		expected string
	}{
		{
			name: "postgres DSN",
			config: DatabaseConfig{
				Driver:   "postgres",
				Host:     "localhost",
				Port:     5432,
				User:     "user",
				Password: "pass",
				Name:     "dbname",
				SSLMode:  "disable",
			},
			expected: "host=localhost port=5432 user=user password=pass dbname=dbname sslmode=disable",
		},
		{
			name: "mysql DSN",
			config: DatabaseConfig{
				Driver:   "mysql",
				Host:     "localhost",
				Port:     3306,
				User:     "user",
				Password: "pass",
				Name:     "dbname",
			},
			expected: "user:pass@tcp(localhost:3306)/dbname?parseTime=true",
		},
		{
			name: "sqlite DSN",
			config: DatabaseConfig{
				Driver: "sqlite",
				Name:   "/path/to/db.sqlite",
			},
			expected: "/path/to/db.sqlite",
		},
		{
			name: "unknown driver",
			config: DatabaseConfig{
				Driver: "unknown",
			},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.config.DSN())
		})
	}
}

// --- MustLoad 测试 ---

func TestMustLoad_Success(t *testing.T) {
	// 创建有效配置文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	yamlContent := `
server:
  http_port: 8080
`
	err := os.WriteFile(configPath, []byte(yamlContent), 0644)
	require.NoError(t, err)

	// 不应该 panic
	assert.NotPanics(t, func() {
		cfg := MustLoad(configPath)
		assert.Equal(t, 8080, cfg.Server.HTTPPort)
	})
}

func TestMustLoad_InvalidFile(t *testing.T) {
	// 创建无效配置文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "invalid.yaml")

	err := os.WriteFile(configPath, []byte("invalid: [yaml"), 0644)
	require.NoError(t, err)

	// 应该 panic
	assert.Panics(t, func() {
		MustLoad(configPath)
	})
}

func TestLoadFromEnv_Function(t *testing.T) {
	os.Setenv("IMAGEFLOW_EDITOR_MODEL", "env-only-model")
	defer os.Unsetenv("IMAGEFLOW_EDITOR_MODEL")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "env-only-model", cfg.Editor.Model)
}
