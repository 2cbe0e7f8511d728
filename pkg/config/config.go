package config

import (
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DefaultAPIAddr    = "127.0.0.1:19090"
	DefaultResyncSpec = "@every 30s"
	DefaultEngineName = "xray"
)

// Config 系统配置
type Config struct {
	DataDir      string
	Debug        bool
	Version      string
	BinDir       string // 存放引擎二进制的目录
	ResourceDir  string // PAC 模板和 GFW 列表
	LogDir       string // 日志目录
	EngineBinary string
	EngineName   string
	ConfigPath   string // 引擎配置文件
	PACPath      string
	GfwListPath  string
	TemplatePath string
	DBPath       string
	TokenPath    string // 本地 API 令牌
	APIAddr      string
	ResyncSpec   string // 状态校正任务的 cron 表达式
	EnvFileError error  // .env 加载失败的原因，文件不存在时为空
}

// Init 初始化配置，优先级：环境变量 > <dataDir>/.env > 默认值
func Init(dataDir string) *Config {
	var envErr error
	envFile := filepath.Join(dataDir, ".env")
	if _, err := os.Stat(envFile); err == nil {
		// godotenv 不覆盖已存在的环境变量
		envErr = godotenv.Load(envFile)
	}

	resourceDir := getEnv("RAYDESK_RESOURCE_DIR", filepath.Join(dataDir, "resources"))
	binDir := filepath.Join(dataDir, "bin")
	engineBin := getEnv("RAYDESK_ENGINE_BIN", filepath.Join(binDir, DefaultEngineName+exeSuffix()))

	cfg := &Config{
		DataDir:      dataDir,
		Debug:        getEnvBool("RAYDESK_DEBUG", false),
		Version:      "1.0.0",
		BinDir:       binDir,
		ResourceDir:  resourceDir,
		LogDir:       filepath.Join(dataDir, "logs"),
		EngineBinary: engineBin,
		EngineName:   engineName(engineBin),
		ConfigPath:   filepath.Join(dataDir, "config.json"),
		PACPath:      filepath.Join(dataDir, "proxy.pac"),
		GfwListPath:  filepath.Join(resourceDir, "pac", "gfwlist.txt"),
		TemplatePath: filepath.Join(resourceDir, "pac", "template.pac"),
		DBPath:       filepath.Join(dataDir, "raydesk.db"),
		TokenPath:    filepath.Join(dataDir, "api.token"),
		APIAddr:      getEnv("RAYDESK_API_ADDR", DefaultAPIAddr),
		ResyncSpec:   getEnv("RAYDESK_RESYNC_SPEC", DefaultResyncSpec),
		EnvFileError: envErr,
	}

	// 创建必要目录
	dirs := []string{cfg.BinDir, cfg.LogDir}
	for _, dir := range dirs {
		os.MkdirAll(dir, 0755)
	}

	return cfg
}

func exeSuffix() string {
	if runtime.GOOS == "windows" {
		return ".exe"
	}
	return ""
}

// engineName 去掉目录和 .exe 后缀，用于匹配残留进程
func engineName(bin string) string {
	base := filepath.Base(bin)
	if strings.EqualFold(filepath.Ext(base), ".exe") {
		base = base[:len(base)-len(".exe")]
	}
	return base
}

func getEnv(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}
