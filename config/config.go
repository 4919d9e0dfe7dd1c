package config

import (
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	Postgres    Postgres
	Telegram    Telegram
	Redis       Redis
	API         API
	Cache       Cache
	Session     Session
	Jobs        Jobs
	GoogleDrive GoogleDrive
	Tracker     Tracker
}

type Postgres struct {
	Host            string `env:"PG_HOST"`
	Port            int    `env:"PG_PORT"`
	DbName          string `env:"PG_DB_NAME"`
	Password        string `env:"PG_PASSWORD"`
	User            string `env:"PG_USER"`
	MaxOpenConns    int    `env:"PG_MAX_OPEN_CONNS" envDefault:"10"`
	ConnMaxLifetime int    `env:"PG_CONN_MAX_LIFETIME" envDefault:"300"`
	MaxIdleConns    int    `env:"PG_MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxIdleTime int    `env:"PG_CONN_MAX_IDLE_TIME" envDefault:"60"`
	MigrationDir    string `env:"PG_MIGRATION_DIR" envDefault:"migrations"`
}

type Telegram struct {
	Token            string        `env:"TELEGRAM_TOKEN"`
	UpdTimeout       time.Duration `env:"TELEGRAM_UPD_TIMEOUT" envDefault:"10s"`
	FileLimitInBytes int           `env:"TELEGRAM_FILE_LIMIT_IN_BYTES" envDefault:"52428800"`
	// пустой список - бот отвечает всем
	AllowedChatIDs []int64 `env:"TELEGRAM_ALLOWED_CHAT_IDS" envSeparator:"," envDefault:""`
}

type Redis struct {
	Host     string `env:"REDIS_HOST"`
	Port     int    `env:"REDIS_PORT"`
	Password string `env:"REDIS_PASSWORD" envDefault:""`
	DB       int    `env:"REDIS_DB" envDefault:"0"`
}

type API struct {
	Debug    bool          `env:"API_DEBUG" envDefault:"false"`
	Timeout  time.Duration `env:"API_TIMEOUT" envDefault:"30s"`
	QuoteApi QuoteApi
}

type QuoteApi struct {
	Url  string `env:"QUOTE_API_URL" envDefault:"https://ms-finance.p.rapidapi.com"`
	Key  string `env:"QUOTE_API_KEY"`
	Host string `env:"QUOTE_API_HOST" envDefault:"ms-finance.p.rapidapi.com"`
}

type Cache struct {
	MoversExpiration time.Duration `env:"CACHE_MOVERS_EXPIRATION" envDefault:"5m"`
}

type Session struct {
	Expiration time.Duration `env:"SESSION_EXPIRATION" envDefault:"24h"`
}

type Jobs struct {
	RefreshPricesInterval   time.Duration `env:"REFRESH_PRICES_JOB_INTERVAL" envDefault:"15m"`
	FillMoversCacheInterval time.Duration `env:"FILL_MOVERS_CACHE_JOB_INTERVAL" envDefault:"5m"`
	DeleteOldReportsCrontab string        `env:"DELETE_OLD_REPORTS_JOB_CRONTAB" envDefault:"0 0 3 * * *"`
}

type GoogleDrive struct {
	// пустое значение отключает загрузку больших выгрузок в облако
	CredentialsFile string        `env:"GOOGLE_DRIVE_CREDENTIALS_FILE" envDefault:""`
	FileTTL         time.Duration `env:"GOOGLE_DRIVE_FILE_TTL" envDefault:"72h"`
}

type Tracker struct {
	// -1 - без ограничения
	PriceRefreshConcurrency int `env:"PRICE_REFRESH_CONCURRENCY" envDefault:"-1"`
	SearchResultsLimit      int `env:"SEARCH_RESULTS_LIMIT" envDefault:"10"`
}

func MustLoad() *Config {
	_ = godotenv.Load(".env")

	cfg, err := Load()
	if err != nil {
		log.Fatalf("parse config error: %s", err)
	}

	return cfg
}

// Load читает конфиг только из переменных окружения
func Load() (*Config, error) {
	cfg := &Config{}

	opts := env.Options{RequiredIfNoDef: true}

	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, err
	}

	return cfg, nil
}
