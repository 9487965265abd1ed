package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestLoadFromFile 测试从文件加载配置
func TestLoadFromFile(t *testing.T) {
	// 创建临时配置文件
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := `
server:
  addr: ":9090"
  mode: "release"
  read_timeout: "15s"
  write_timeout: "15s"

database:
  driver: "postgres"
  postgres:
    host: "testhost"
    port: 5433
    user: "testuser"
    password: "testpass"
    dbname: "testdb"
    sslmode: "require"

redis:
  addr: "testredis:6380"
  password: "redispass"
  db: 1

rbac:
  cache_ttl: "5m"

ai:
  enabled: false
  daily_quota: 50
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("创建测试配置文件失败: %v", err)
	}

	// 测试从文件加载配置
	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	// 验证服务器配置
	if cfg.Server.Addr != ":9090" {
		t.Errorf("Server.Addr 期望 :9090, 实际 %s", cfg.Server.Addr)
	}
	if cfg.Server.Mode != "release" {
		t.Errorf("Server.Mode 期望 release, 实际 %s", cfg.Server.Mode)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("Server.ReadTimeout 期望 15s, 实际 %v", cfg.Server.ReadTimeout)
	}

	// 验证数据库配置
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Database.Driver 期望 postgres, 实际 %s", cfg.Database.Driver)
	}
	if cfg.Database.Postgres.Host != "testhost" {
		t.Errorf("Postgres.Host 期望 testhost, 实际 %s", cfg.Database.Postgres.Host)
	}
	if cfg.Database.Postgres.Port != 5433 {
		t.Errorf("Postgres.Port 期望 5433, 实际 %d", cfg.Database.Postgres.Port)
	}

	// 验证 Redis 配置
	if cfg.Redis.Addr != "testredis:6380" {
		t.Errorf("Redis.Addr 期望 testredis:6380, 实际 %s", cfg.Redis.Addr)
	}
	if cfg.Redis.DB != 1 {
		t.Errorf("Redis.DB 期望 1, 实际 %d", cfg.Redis.DB)
	}

	// 验证权限系统配置
	if cfg.RBAC.CacheTTL != 5*time.Minute {
		t.Errorf("RBAC.CacheTTL 期望 5m, 实际 %v", cfg.RBAC.CacheTTL)
	}

	// 验证 AI 配置
	if cfg.AI.Enabled {
		t.Error("AI.Enabled 期望 false")
	}
	if cfg.AI.DailyQuota != 50 {
		t.Errorf("AI.DailyQuota 期望 50, 实际 %d", cfg.AI.DailyQuota)
	}
}

// TestLoadDefaults 测试默认值
func TestLoadDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	// 空配置文件，全部走默认值
	if err := os.WriteFile(configPath, []byte("server:\n  mode: debug\n"), 0644); err != nil {
		t.Fatalf("创建测试配置文件失败: %v", err)
	}

	cfg, err := LoadFromFile(configPath)
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Errorf("Server.Addr 默认值期望 :8080, 实际 %s", cfg.Server.Addr)
	}
	if cfg.Database.Postgres.DBName != "pm_backend" {
		t.Errorf("Postgres.DBName 默认值期望 pm_backend, 实际 %s", cfg.Database.Postgres.DBName)
	}
	if cfg.RBAC.CacheTTL != 10*time.Minute {
		t.Errorf("RBAC.CacheTTL 默认值期望 10m, 实际 %v", cfg.RBAC.CacheTTL)
	}
	if cfg.AI.DailyQuota != 200 {
		t.Errorf("AI.DailyQuota 默认值期望 200, 实际 %d", cfg.AI.DailyQuota)
	}
}
