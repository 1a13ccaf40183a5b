package internal

// Config 對局服務配置
type Config struct {
	// HTTP 服務配置
	HTTPPort string

	// 日誌配置
	LogLevel  string // debug / info / warn / error
	LogFormat string // text / json

	// PostgreSQL 連接字串，空字串表示使用內存後端（開發模式）
	PostgresURL string

	// Redis 連接配置，僅 StreakBackend 為 redis 時使用
	RedisAddr string

	// NATS 連接配置，空字串表示不發佈公告到 NATS
	NATSUrl string

	// 連續紀錄後端：memory / postgres / redis
	StreakBackend string

	// 展演模式：開放 /demo/set_date 以覆寫「今天」
	DemoMode bool
}

// DefaultConfig 返回預設配置
func DefaultConfig() *Config {
	return &Config{
		HTTPPort:      "8080",
		LogLevel:      "info",
		LogFormat:     "text",
		PostgresURL:   "",
		RedisAddr:     "localhost:6379",
		NATSUrl:       "",
		StreakBackend: "memory",
		DemoMode:      false,
	}
}
