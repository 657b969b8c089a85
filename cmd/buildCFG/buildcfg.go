package buildCFG

import (
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/config"
	"github.com/wb-go/wbf/dbpg"

	"chessreg/internal/mailer"
	"chessreg/internal/service"
)

type ServerConfig struct {
	Port string
}

type RabbitConfig struct {
	Url      string
	Exchange string
	Queue    string
}

func BuildServerConfig(cfg *config.Config, log *zerolog.Logger) ServerConfig {
	port := cfg.GetString("server.port")
	if port == "" {
		port = "8080"
		log.Warn().Msg("server.port not set, defaulting to 8080")
	}
	return ServerConfig{Port: port}
}

func BuildDBConfig(cfg *config.Config, log *zerolog.Logger) (string, []string, *dbpg.Options, error) {
	masterDSN := cfg.GetString("db.master_dsn")
	if masterDSN == "" {
		return "", nil, nil, fmt.Errorf("db.master_dsn is required")
	}
	slaveDSNs := cfg.GetStringSlice("db.slave_dsns")

	maxOpen := cfg.GetInt("db.max_open_conns")
	if maxOpen == 0 {
		maxOpen = 10
	}
	maxIdle := cfg.GetInt("db.max_idle_conns")
	if maxIdle == 0 {
		maxIdle = 5
	}
	opts := &dbpg.Options{
		MaxOpenConns:    maxOpen,
		MaxIdleConns:    maxIdle,
		ConnMaxLifetime: time.Hour,
	}

	log.Info().Int("max_open", maxOpen).Int("max_idle", maxIdle).Msg("DB config built")
	return masterDSN, slaveDSNs, opts, nil
}

func BuildRabbitConfig(cfg *config.Config, log *zerolog.Logger) (RabbitConfig, error) {
	rc := RabbitConfig{
		Url:      cfg.GetString("rabbit.url"),
		Exchange: cfg.GetString("rabbit.exchange"),
		Queue:    cfg.GetString("rabbit.queue"),
	}
	if rc.Url == "" {
		return rc, fmt.Errorf("rabbit.url is required")
	}
	if rc.Exchange == "" {
		rc.Exchange = "registrations"
	}
	if rc.Queue == "" {
		rc.Queue = "registration_created"
	}
	log.Info().Str("exchange", rc.Exchange).Str("queue", rc.Queue).Msg("RabbitMQ config built")
	return rc, nil
}

func BuildAdminConfig(cfg *config.Config, log *zerolog.Logger) (service.AdminConfig, error) {
	ac := service.AdminConfig{
		Password:  cfg.GetString("admin.password"),
		JWTSecret: []byte(cfg.GetString("admin.jwt_secret")),
	}
	if ac.Password == "" {
		return ac, fmt.Errorf("admin.password is required")
	}
	if len(ac.JWTSecret) == 0 {
		return ac, fmt.Errorf("admin.jwt_secret is required")
	}
	log.Info().Msg("admin config built")
	return ac, nil
}

func BuildSMTPConfig(cfg *config.Config, log *zerolog.Logger) (mailer.Config, error) {
	mc := mailer.Config{
		Host:     cfg.GetString("smtp.host"),
		Port:     cfg.GetInt("smtp.port"),
		From:     cfg.GetString("smtp.from"),
		Password: cfg.GetString("smtp.password"),
		To:       cfg.GetStringSlice("smtp.to"),
	}
	if mc.Host == "" || mc.From == "" || len(mc.To) == 0 {
		return mc, fmt.Errorf("smtp.host, smtp.from and smtp.to are required")
	}
	if mc.Port == 0 {
		mc.Port = 587
	}
	log.Info().Str("host", mc.Host).Int("recipients", len(mc.To)).Msg("SMTP config built")
	return mc, nil
}
