package config

import (
	"fmt"
	"github.com/ilyakaznacheev/cleanenv"
	"log"
	"sync"
)

type Listen struct {
	BindIp string `yaml:"bind_ip" env-default:"0.0.0.0"`
	Port   string `yaml:"port" env-default:"8080"`
	Token  string `yaml:"token" env-default:""`
}

type TelegramConfig struct {
	ApiKey    string  `yaml:"api_key" env:"BOT_TOKEN" env-default:""`
	AdminIds  []int64 `yaml:"admin_ids"`
	ChannelId int64   `yaml:"channel_id" env-default:"0"`
}

type MySqlConfig struct {
	HostName string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"3306"`
	UserName string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"missions"`
}

type MongoConfig struct {
	Enabled  bool   `yaml:"enabled" env-default:"false"`
	Host     string `yaml:"host" env-default:"localhost"`
	Port     string `yaml:"port" env-default:"27017"`
	User     string `yaml:"user" env-default:""`
	Password string `yaml:"password" env-default:""`
	Database string `yaml:"database" env-default:"missions"`
}

type InstagramConfig struct {
	BaseUrl   string `yaml:"base_url" env-default:"https://www.instagram.com"`
	SessionId string `yaml:"session_id" env-default:""`
	UserAgent string `yaml:"user_agent" env-default:"Mozilla/5.0"`
}

type WooCommerceConfig struct {
	ApiUrl string `yaml:"api_url" env-default:""`
	Key    string `yaml:"key" env-default:""`
	Secret string `yaml:"secret" env-default:""`
}

type StripeConfig struct {
	APIKey string `yaml:"api_key" env-default:""`
}

// RewardConfig keeps the tunables the source hardcoded: points per mission,
// discount percent, code expiry. Provider selects the coupon backend.
type RewardConfig struct {
	Provider         string `yaml:"provider" env-default:"woocommerce"`
	Points           int64  `yaml:"points" env-default:"10"`
	DiscountPercent  int64  `yaml:"discount_percent" env-default:"10"`
	CodeExpiryDays   int    `yaml:"code_expiry_days" env-default:"0"`
	VerifyTimeoutSec int    `yaml:"verify_timeout_sec" env-default:"30"`
	IssueTimeoutSec  int    `yaml:"issue_timeout_sec" env-default:"15"`
}

type Config struct {
	Env         string            `yaml:"env" env-default:"local"`
	Telegram    TelegramConfig    `yaml:"telegram"`
	MySql       MySqlConfig       `yaml:"mysql"`
	Mongo       MongoConfig       `yaml:"mongo"`
	Instagram   InstagramConfig   `yaml:"instagram"`
	WooCommerce WooCommerceConfig `yaml:"woocommerce"`
	Stripe      StripeConfig      `yaml:"stripe"`
	Reward      RewardConfig      `yaml:"reward"`
	Listen      Listen            `yaml:"listen"`
}

var instance *Config
var once sync.Once

func MustLoad(path string) *Config {
	var err error
	once.Do(func() {
		instance = &Config{}
		if err = cleanenv.ReadConfig(path, instance); err != nil {
			desc, _ := cleanenv.GetDescription(instance, nil)
			err = fmt.Errorf("config: %s; %s", err, desc)
			instance = nil
			log.Fatal(err)
		}
	})
	return instance
}
