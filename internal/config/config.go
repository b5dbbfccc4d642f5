package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrInvalid 配置内容不合法
var ErrInvalid = errors.New("invalid config")

// StationConfig 定义一个工站：ID 和它能完成的任务类别
type StationConfig struct {
	ID         string   `mapstructure:"id"`
	Categories []string `mapstructure:"categories"`
}

// ModelConfig 定义一个车型：标准工序时长和该车型包含的任务类别
// viper 会把 map 的 key 转成小写，所以车型用列表而不是 map 配置
type ModelConfig struct {
	Name         string   `mapstructure:"name"`
	PhaseMinutes int      `mapstructure:"phase_minutes"`
	Categories   []string `mapstructure:"categories"`
}

// Config 定义应用程序的配置结构
// 使用 mapstructure 标签来映射配置文件中的字段
type Config struct {
	ShiftStartHour      int             `mapstructure:"shift_start_hour"`      // 班次开始（整点）
	ShiftEndHour        int             `mapstructure:"shift_end_hour"`        // 班次结束（整点）
	StartTime           string          `mapstructure:"start_time"`            // 模拟起始时间 RFC3339
	DefaultPhaseMinutes int             `mapstructure:"default_phase_minutes"` // 队列为空时的估算工序时长
	Stations            []StationConfig `mapstructure:"stations"`              // 工站链，按入口到出口排列
	Models              []ModelConfig   `mapstructure:"models"`                // 车型目录
	BackfillRule        string          `mapstructure:"backfill_rule"`         // 可选的回填放行规则 (expr)
	HTTPAddr            string          `mapstructure:"http_addr"`
	JournalPath         string          `mapstructure:"journal_path"` // 生产日志文件，为空时不记录
}

// Start 解析模拟起始时间
func (c *Config) Start() (time.Time, error) {
	t, err := time.Parse(time.RFC3339, c.StartTime)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: start_time: %v", ErrInvalid, err)
	}
	return t, nil
}

// DefaultPhase 返回默认工序时长
func (c *Config) DefaultPhase() time.Duration {
	return time.Duration(c.DefaultPhaseMinutes) * time.Minute
}

// Validate 检查配置的一致性，所有错误都包装 ErrInvalid
func (c *Config) Validate() error {
	if c.ShiftStartHour < 0 || c.ShiftEndHour > 24 || c.ShiftStartHour >= c.ShiftEndHour {
		return fmt.Errorf("%w: shift %d-%d", ErrInvalid, c.ShiftStartHour, c.ShiftEndHour)
	}
	if _, err := c.Start(); err != nil {
		return err
	}
	if c.DefaultPhaseMinutes <= 0 {
		return fmt.Errorf("%w: default_phase_minutes must be positive", ErrInvalid)
	}
	if len(c.Stations) == 0 {
		return fmt.Errorf("%w: no stations", ErrInvalid)
	}

	covered := make(map[string]bool)
	seen := make(map[string]bool)
	for _, s := range c.Stations {
		if s.ID == "" {
			return fmt.Errorf("%w: station without id", ErrInvalid)
		}
		if seen[s.ID] {
			return fmt.Errorf("%w: duplicate station %q", ErrInvalid, s.ID)
		}
		seen[s.ID] = true
		for _, cat := range s.Categories {
			covered[cat] = true
		}
	}

	names := make(map[string]bool)
	for _, m := range c.Models {
		name := m.Name
		if name == "" || names[name] {
			return fmt.Errorf("%w: model name %q missing or duplicated", ErrInvalid, name)
		}
		names[name] = true
		if m.PhaseMinutes <= 0 {
			return fmt.Errorf("%w: model %q: phase_minutes must be positive", ErrInvalid, name)
		}
		// 每个任务类别都必须有工站能完成，否则订单永远走不完
		for _, cat := range m.Categories {
			if !covered[cat] {
				return fmt.Errorf("%w: model %q: no station handles category %q", ErrInvalid, name, cat)
			}
		}
	}
	return nil
}

// SetDefaults 注册默认值
func SetDefaults(v *viper.Viper) {
	v.SetDefault("shift_start_hour", 6)
	v.SetDefault("shift_end_hour", 22)
	v.SetDefault("start_time", "2014-01-01T06:00:00Z")
	v.SetDefault("default_phase_minutes", 50)
	v.SetDefault("http_addr", ":8080")
	v.SetDefault("journal_path", "")
	v.SetDefault("backfill_rule", "")
}

// LoadConfig 从 config.yaml 文件加载配置
// path 为空时在当前目录查找 config.yaml；环境变量 LINE_* 覆盖文件中的值
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config") // 配置文件名称 (不带扩展名)
		v.AddConfigPath(".")      // 查找配置文件的路径 (当前目录)
	}
	v.SetConfigType("yaml")

	v.SetEnvPrefix("LINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 设置默认值
	SetDefaults(v)

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 将配置解析到结构体中
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
