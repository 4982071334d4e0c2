// Package config 统一配置管理
//
// 配置加载策略：
//  1. 从 .env 加载敏感信息（密码、密钥）和 APP_ENV
//  2. 根据 APP_ENV 加载对应的 configs/{env}.yaml 配置文件
//  3. 环境变量可覆盖 YAML 配置
//
// 使用方式：
//   - 开发环境: APP_ENV=dev (默认)
//   - 测试环境: APP_ENV=test
//   - 生产环境: APP_ENV=prod
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment 环境类型
type Environment string

const (
	EnvProduction  Environment = "prod"
	EnvTest        Environment = "test"
	EnvDevelopment Environment = "dev"
)

// YAMLConfig YAML 配置文件结构
type YAMLConfig struct {
	Server ServerConfig `yaml:"server"`
	Mongo  MongoConfig  `yaml:"mongo"`
	MinIO  MinIOConfig  `yaml:"minio"`
	Log    LogConfig    `yaml:"log"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

type MongoConfig struct {
	URI      string `yaml:"uri"`
	Database string `yaml:"database"`
}

// MinIOConfig MinIO 配置（AccessKey/SecretKey 只从环境变量读取）
type MinIOConfig struct {
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
	AccessKey string `yaml:"-"`
	SecretKey string `yaml:"-"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config 应用配置（最终使用的配置）
type Config struct {
	Env      Environment
	APIPort  string
	MongoURI string
	MongoDB  string
	MinIO    MinIOConfig
	Log      LogConfig

	// 认证相关，只从环境变量读取
	JWTSecret     string
	AdminEmail    string
	AdminPassword string
}

var configPaths = []string{
	"configs",
	"../configs",
	"../../configs",
	"../../../configs",
}

var envPaths = []string{
	".env",
	"../.env",
	"../../.env",
	"../../../.env",
}

// Load 加载配置
// 1. 加载 .env（敏感信息 + APP_ENV）
// 2. 根据 APP_ENV 加载 configs/{env}.yaml
// 3. 环境变量覆盖
func Load() *Config {
	for _, p := range envPaths {
		if err := godotenv.Load(p); err == nil {
			break
		}
	}

	env := parseEnv(getEnv("APP_ENV", "dev"))
	yamlCfg := loadYAMLConfig(env)

	cfg := &Config{
		Env:           env,
		APIPort:       getEnv("API_PORT", yamlCfg.Server.Port),
		MongoURI:      getEnv("MONGO_URI", yamlCfg.Mongo.URI),
		MongoDB:       getEnv("MONGO_DB", yamlCfg.Mongo.Database),
		MinIO:         yamlCfg.MinIO,
		Log:           yamlCfg.Log,
		JWTSecret:     os.Getenv("JWT_SECRET"),
		AdminEmail:    os.Getenv("ADMIN_EMAIL"),
		AdminPassword: os.Getenv("ADMIN_PASSWORD"),
	}

	cfg.MinIO.Endpoint = getEnv("MINIO_ENDPOINT", cfg.MinIO.Endpoint)
	cfg.MinIO.Bucket = getEnv("MINIO_BUCKET", cfg.MinIO.Bucket)
	cfg.MinIO.AccessKey = getEnv("MINIO_ACCESS_KEY", "minioadmin")
	cfg.MinIO.SecretKey = getEnv("MINIO_SECRET_KEY", "minioadmin")
	if os.Getenv("MINIO_USE_SSL") == "true" {
		cfg.MinIO.UseSSL = true
	}
	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = getEnv("LOG_FORMAT", cfg.Log.Format)

	// 连接串缺失只告警并退回本地默认，绝不内嵌远端凭据
	if cfg.MongoURI == "" {
		cfg.MongoURI = "mongodb://localhost:27017"
		log.Printf("WARNING: MONGO_URI not set, falling back to %s", cfg.MongoURI)
	}

	return cfg
}

// loadYAMLConfig 加载 YAML 配置文件
// 加载顺序：默认值 → common.yaml → {env}.yaml
func loadYAMLConfig(env Environment) *YAMLConfig {
	cfg := &YAMLConfig{
		Server: ServerConfig{Port: "5000"},
		Mongo:  MongoConfig{URI: "", Database: "covidvax"},
		MinIO:  MinIOConfig{Endpoint: "localhost:9000", Bucket: "vaxcert"},
		Log:    LogConfig{Level: "info", Format: "text"},
	}

	for _, base := range configPaths {
		path := filepath.Join(base, "common.yaml")
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	filename := fmt.Sprintf("%s.yaml", env)
	for _, base := range configPaths {
		path := filepath.Join(base, filename)
		if data, err := os.ReadFile(path); err == nil {
			yaml.Unmarshal(data, cfg)
			break
		}
	}

	return cfg
}

func parseEnv(env string) Environment {
	switch strings.ToLower(env) {
	case "test":
		return EnvTest
	case "prod", "production":
		return EnvProduction
	default:
		return EnvDevelopment
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsTest 是否为测试环境
func (c *Config) IsTest() bool {
	return c.Env == EnvTest
}

// String 返回配置摘要（隐藏密码）
func (c *Config) String() string {
	return fmt.Sprintf("Config{Env: %s, Mongo: %s/%s, MinIO: %s/%s, Port: %s}",
		c.Env, maskPassword(c.MongoURI), c.MongoDB, c.MinIO.Endpoint, c.MinIO.Bucket, c.APIPort)
}

// maskPassword 隐藏连接串中的密码
func maskPassword(url string) string {
	re := regexp.MustCompile(`(://[^:/@]+:)([^@]+)(@)`)
	return re.ReplaceAllString(url, "${1}***${3}")
}
