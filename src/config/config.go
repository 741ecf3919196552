package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Config 结构体定义了应用程序的配置结构
type Config struct {
	DataDir       string   `json:"data_dir"`       // 数据文件所在目录
	RouteFiles    []string `json:"route_files"`    // 航线表(parquet/xlsx)，按时间窗口拆分
	ScoreFile     string   `json:"score_file"`     // 可持续性评分表(csv/xlsx)
	ScoreEncoding string   `json:"score_encoding"` // 评分表CSV的字符编码
	SheetName     string   `json:"sheet_name"`     // 评分表为xlsx时读取的工作表
	RatingImage   string   `json:"rating_image"`   // A-G标签说明图片

	OriginCode  string  `json:"origin_code"`   // 出发机场ICAO代码
	OriginLabel string  `json:"origin_label"`  // 出发机场显示名称
	ShortHaulKm float64 `json:"short_haul_km"` // 短途航线距离上限

	LogName        string   `json:"log_name"`
	LogMaxSize     string   `json:"log_max_size"`
	RotateInterval Duration `json:"rotate_interval"` // 日志轮转检查间隔
	WatchSources   bool     `json:"watch_sources"`   // 监控数据文件变化

	Server struct {
		Addr string `json:"addr"` // HTTP监听地址
	} `json:"server"`
}

const (
	DefaultOriginCode  = "EHAM"
	DefaultOriginLabel = "Schiphol"
	DefaultShortHaulKm = 500
)

var (
	once     sync.Once
	instance *Config
	loadErr  error
)

// LoadConfig 只在进程内加载一次配置文件
func LoadConfig(jsonFolder, jsonFile string) (*Config, error) {
	once.Do(func() {
		instance, loadErr = loadConfig(filepath.Join(jsonFolder, jsonFile))
	})
	return instance, loadErr
}

func loadConfig(configFile string) (*Config, error) {
	data, err := readFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	fmt.Println("Config 配置文件加载完毕")
	return cfg, nil
}

func readFile(filePath string) ([]byte, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("无法读取文件 %s: %w", filePath, err)
	}
	return data, nil
}

// Parse 解析JSON配置，补全默认值并校验
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析Config失败: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.OriginCode == "" {
		c.OriginCode = DefaultOriginCode
	}
	if c.OriginLabel == "" {
		c.OriginLabel = DefaultOriginLabel
	}
	if c.ShortHaulKm == 0 {
		c.ShortHaulKm = DefaultShortHaulKm
	}
	if c.ScoreEncoding == "" {
		c.ScoreEncoding = "utf-8"
	}
	if c.LogName == "" {
		c.LogName = "app.log"
	}
	if c.LogMaxSize == "" {
		c.LogMaxSize = "10 * 1024 * 1024"
	}
	if c.RotateInterval == 0 {
		c.RotateInterval = Duration(time.Minute)
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}

// Validate 检查必填项
func (c *Config) Validate() error {
	var errs []error
	if len(c.RouteFiles) == 0 {
		errs = append(errs, fmt.Errorf("route_files 不能为空"))
	}
	if c.ScoreFile == "" {
		errs = append(errs, fmt.Errorf("score_file 不能为空"))
	}
	if c.ShortHaulKm <= 0 {
		errs = append(errs, fmt.Errorf("short_haul_km 必须大于0: %v", c.ShortHaulKm))
	}
	return combineErrors(errs)
}

// RoutePaths 返回航线表的完整路径
func (c *Config) RoutePaths() []string {
	paths := make([]string, 0, len(c.RouteFiles))
	for _, f := range c.RouteFiles {
		paths = append(paths, c.resolve(f))
	}
	return paths
}

// ScorePath 返回评分表的完整路径
func (c *Config) ScorePath() string {
	return c.resolve(c.ScoreFile)
}

// RatingImagePath 返回标签图片路径，未配置时为空
func (c *Config) RatingImagePath() string {
	if c.RatingImage == "" {
		return ""
	}
	return c.resolve(c.RatingImage)
}

func (c *Config) resolve(name string) string {
	if filepath.IsAbs(name) || c.DataDir == "" {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

func combineErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	msg := "配置加载遇到多个错误:"
	for _, err := range errs {
		msg = fmt.Sprintf("%s\n- %v", msg, err)
	}
	return fmt.Errorf("%s", msg)
}

// Duration 是time.Duration的自定义包装类型
// 用于支持JSON序列化和反序列化
type Duration time.Duration

// UnmarshalJSON 实现json.Unmarshaler接口
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	dur, err := time.ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalJSON 实现json.Marshaler接口
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}
