package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Storage  StorageConfig  `mapstructure:"storage"`
	VectorDB VectorDBConfig `mapstructure:"vectordb"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Embed    EmbedConfig    `mapstructure:"embed"`
	Cache    CacheConfig    `mapstructure:"cache"`
	Database DatabaseConfig `mapstructure:"database"`
	Document DocumentConfig `mapstructure:"document"`
	Search   SearchConfig   `mapstructure:"search"`
	QA       QAConfig       `mapstructure:"qa"`
	Logging  LoggingConfig  `mapstructure:"logging"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"` // 服务器主机
	Port int    `mapstructure:"port"` // 服务器端口
}

// StorageConfig 语料文件存储配置
type StorageConfig struct {
	Type      string `mapstructure:"type"`     // 存储类型：local 或 minio
	Path      string `mapstructure:"path"`     // 本地存储路径
	Bucket    string `mapstructure:"bucket"`   // MinIO桶名称
	Endpoint  string `mapstructure:"endpoint"` // MinIO端点
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"` // 是否使用SSL
}

// VectorDBConfig 向量存储配置
type VectorDBConfig struct {
	Type     string `mapstructure:"type"`      // 向量存储类型：memory 或 mongo
	Path     string `mapstructure:"path"`      // memory类型的快照文件路径
	URI      string `mapstructure:"uri"`       // mongo类型的连接URI
	Database string `mapstructure:"database"`  // mongo数据库名
	Index    string `mapstructure:"index"`     // mongo向量索引名
	Dim      int    `mapstructure:"dim"`       // 向量维度
	Distance string `mapstructure:"distance"`  // 距离度量方式：cosine, l2, dot
}

// LLMConfig 大语言模型配置
type LLMConfig struct {
	Model       string  `mapstructure:"model"`       // 模型名称
	APIKey      string  `mapstructure:"api_key"`     // API密钥
	Endpoint    string  `mapstructure:"endpoint"`    // API端点
	MaxTokens   int     `mapstructure:"max_tokens"`  // 最大生成token数量
	Temperature float32 `mapstructure:"temperature"` // 采样温度
}

// EmbedConfig 向量嵌入模型配置
type EmbedConfig struct {
	Model      string `mapstructure:"model"`      // 模型名称
	APIKey     string `mapstructure:"api_key"`    // API密钥
	Endpoint   string `mapstructure:"endpoint"`   // API端点
	BatchSize  int    `mapstructure:"batch_size"` // 批处理大小
	Dimensions int    `mapstructure:"dimensions"` // 向量维度
}

// CacheConfig 问答缓存配置
type CacheConfig struct {
	Enable   bool   `mapstructure:"enable"`   // 是否启用缓存
	Type     string `mapstructure:"type"`     // 缓存类型：memory 或 redis
	Address  string `mapstructure:"address"`  // Redis地址
	Password string `mapstructure:"password"` // Redis密码
	DB       int    `mapstructure:"db"`       // Redis数据库
	TTL      int    `mapstructure:"ttl"`      // 缓存TTL（秒）
}

// DatabaseConfig 元数据数据库配置
type DatabaseConfig struct {
	Type string `mapstructure:"type"` // 数据库类型，目前支持sqlite
	DSN  string `mapstructure:"dsn"`  // 数据源名称
}

// DocumentConfig 文档切分配置
type DocumentConfig struct {
	ChunkSize    int `mapstructure:"chunk_size"`    // 分块大小
	ChunkOverlap int `mapstructure:"chunk_overlap"` // 分块重叠大小
}

// SearchConfig 检索配置
type SearchConfig struct {
	Limit    int     `mapstructure:"limit"`     // 检索结果数量限制
	MinScore float32 `mapstructure:"min_score"` // 最低相似度分数，0表示不过滤
}

// QAConfig 回答生成配置
type QAConfig struct {
	Policy string `mapstructure:"policy"` // 依据策略：strict 或 lenient
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	File       string `mapstructure:"file"`        // 日志文件路径，为空时只输出到stdout
	MaxSizeMB  int    `mapstructure:"max_size_mb"` // 单个日志文件大小上限（MB）
	MaxBackups int    `mapstructure:"max_backups"` // 保留的旧日志文件数量
	MaxAgeDays int    `mapstructure:"max_age_days"` // 旧日志文件保留天数
}

// Load 从文件和环境变量加载配置
func Load(configPath string) (*Config, error) {
	var config Config

	// 设置默认配置路径
	if configPath == "" {
		configPath = "config.yaml" // 默认在当前目录寻找config.yaml
	}

	// 初始化viper
	v := viper.New()

	// 设置配置文件路径和类型
	v.SetConfigFile(configPath)

	// 尝试读取配置文件
	if err := v.ReadInConfig(); err != nil {
		// 如果找不到配置文件，创建一个默认配置文件
		// SetConfigFile模式下文件缺失报os.PathError而不是ConfigFileNotFoundError
		_, notFound := err.(viper.ConfigFileNotFoundError)
		if notFound || os.IsNotExist(err) {
			log.Printf("Warning: Config file not found at %s, using defaults", configPath)
			setDefaults(v)
			// 创建默认配置文件
			dir := filepath.Dir(configPath)
			if err := os.MkdirAll(dir, 0755); err == nil {
				if err := v.WriteConfigAs(configPath); err != nil {
					log.Printf("Warning: Could not write default config to %s: %v", configPath, err)
				}
			}
		} else {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}
	} else {
		log.Printf("Using config file: %s", v.ConfigFileUsed())
	}

	// 设置默认值
	setDefaults(v)

	// 支持环境变量覆盖
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 解析配置到结构体
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %v", err)
	}

	return processEnvironmentVariables(&config), nil
}

// processEnvironmentVariables 处理配置项中的${VAR}环境变量引用
func processEnvironmentVariables(cfg *Config) *Config {
	cfg.Embed.APIKey = expandEnvRef(cfg.Embed.APIKey)
	cfg.LLM.APIKey = expandEnvRef(cfg.LLM.APIKey)
	cfg.VectorDB.URI = expandEnvRef(cfg.VectorDB.URI)
	cfg.Storage.AccessKey = expandEnvRef(cfg.Storage.AccessKey)
	cfg.Storage.SecretKey = expandEnvRef(cfg.Storage.SecretKey)
	cfg.Cache.Password = expandEnvRef(cfg.Cache.Password)
	return cfg
}

func expandEnvRef(value string) string {
	if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
		envVar := value[2 : len(value)-1]
		if envVal := os.Getenv(envVar); envVal != "" {
			return envVal
		}
	}
	return value
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	// 存储默认配置
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.path", "./uploads")
	v.SetDefault("storage.bucket", "edu-rag")
	v.SetDefault("storage.use_ssl", false)

	// 向量存储默认配置
	v.SetDefault("vectordb.type", "memory")
	v.SetDefault("vectordb.path", "./data/vectors.json")
	v.SetDefault("vectordb.uri", "${MONGODB_URI}")
	v.SetDefault("vectordb.database", "edu_rag")
	v.SetDefault("vectordb.index", "vector_index")
	v.SetDefault("vectordb.dim", 768) // Gemini embedding-001 维度
	v.SetDefault("vectordb.distance", "cosine")

	// LLM默认配置
	v.SetDefault("llm.model", "gemini-pro")
	v.SetDefault("llm.api_key", "${GOOGLE_API_KEY}")
	v.SetDefault("llm.max_tokens", 2048)
	v.SetDefault("llm.temperature", 0.3)

	// Embedding默认配置
	v.SetDefault("embed.model", "models/embedding-001")
	v.SetDefault("embed.api_key", "${GOOGLE_API_KEY}")
	v.SetDefault("embed.batch_size", 16)
	v.SetDefault("embed.dimensions", 768)

	// 缓存默认配置
	v.SetDefault("cache.enable", true)
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.ttl", 3600) // 1小时

	// 数据库默认配置
	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "data/edu_rag.db")

	// 文档切分默认配置
	v.SetDefault("document.chunk_size", 1000)
	v.SetDefault("document.chunk_overlap", 200)

	// 检索默认配置
	v.SetDefault("search.limit", 3)
	v.SetDefault("search.min_score", 0.0)

	// 回答生成默认配置
	v.SetDefault("qa.policy", "strict")

	// 日志默认配置
	v.SetDefault("logging.file", "")
	v.SetDefault("logging.max_size_mb", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age_days", 28)
}
