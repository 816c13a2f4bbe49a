package config

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	authConfig "github.com/iurnickita/dealership/internal/auth/config"
	handlerConfig "github.com/iurnickita/dealership/internal/handler/config"
	loggerConfig "github.com/iurnickita/dealership/internal/logger/config"
	serviceConfig "github.com/iurnickita/dealership/internal/service/config"
	storeConfig "github.com/iurnickita/dealership/internal/store/config"
)

type Config struct {
	Handler handlerConfig.Config
	Service serviceConfig.Config
	Store   storeConfig.Config
	Logger  loggerConfig.Config
	Auth    authConfig.Config
}

// GetConfig reads flags, then lets the environment (and a .env file, when present)
// override them.
func GetConfig() (Config, error) {
	_ = godotenv.Load()
	return parse(os.Args[0], os.Args[1:], os.LookupEnv)
}

func parse(name string, args []string, lookup func(string) (string, bool)) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.StringVar(&cfg.Handler.ServerAddr, "a", "localhost:8080", "address and port to run server")
	fs.StringVar(&cfg.Store.DBDsn, "d", "", "database connection string, empty keeps sales in memory")
	fs.StringVar(&cfg.Service.DirectoryAddr, "r", "", "address of the client/user/quote directory")
	fs.StringVar(&cfg.Logger.LogLevel, "l", "info", "log level")
	fs.StringVar(&cfg.Auth.JWTKey, "k", "", "operator token signing key, empty disables authentication")
	fs.DurationVar(&cfg.Service.OperationTimeout, "t", 10*time.Second, "timeout of one sale operation")
	fs.BoolVar(&cfg.Store.Migrate, "m", true, "apply database migrations on start")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if v, ok := lookup("RUN_ADDRESS"); ok {
		cfg.Handler.ServerAddr = v
	}
	if v, ok := lookup("DATABASE_URI"); ok {
		cfg.Store.DBDsn = v
	}
	if v, ok := lookup("DIRECTORY_ADDRESS"); ok {
		cfg.Service.DirectoryAddr = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		cfg.Logger.LogLevel = v
	}
	if v, ok := lookup("JWT_KEY"); ok {
		cfg.Auth.JWTKey = v
	}
	if v, ok := lookup("OPERATION_TIMEOUT"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("OPERATION_TIMEOUT: %w", err)
		}
		cfg.Service.OperationTimeout = d
	}
	if v, ok := lookup("MIGRATE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("MIGRATE: %w", err)
		}
		cfg.Store.Migrate = b
	}

	return cfg, nil
}
