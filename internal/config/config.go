package config

import "os"

type Config struct {
	Addr         string
	DatabaseURL  string
	JWTSecret    string
	KafkaBrokers string
	MetricsAddr  string
}

func Load() Config {
	return Config{
		Addr:         getenv("ADDR", ":8080"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		KafkaBrokers: os.Getenv("KAFKA_BROKERS"),
		MetricsAddr:  getenv("METRICS_ADDR", ":9100"),
	}
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
