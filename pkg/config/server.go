package config

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Host        string
	Port        int
	CORSOrigins []string
	Development bool
}

func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host: getEnv("SERVER_HOST", "0.0.0.0"),
		Port: getEnvInt("SERVER_PORT", 8000),
		CORSOrigins: getEnvStringSlice("CORS_ORIGINS", []string{
			"https://tourtracker.tw-smith.me",
			"https://arcade.tw-smith.me",
			"http://localhost:4200",
			"http://127.0.0.1:8000",
		}),
		Development: getEnvBool("DEVELOPMENT", false),
	}
}
