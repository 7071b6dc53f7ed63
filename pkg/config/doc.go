// Package config loads application configuration from environment variables.
//
// It wraps github.com/joho/godotenv for .env files, github.com/caarlos0/env/v11 for parsing
// struct tags and github.com/go-playground/validator/v10 for validating the result:
//
//	type Config struct {
//	    URL  string `env:"MONGODB_URL,required" validate:"required"`
//	    Pool uint64 `env:"MONGODB_MAX_POOL_SIZE" envDefault:"100" validate:"gt=0"`
//	}
//
//	if err := config.LoadEnv(); err != nil { // optional ./.env
//	    log.Fatal(err)
//	}
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//	    log.Fatal(err)
//	}
//
// There is no package-level cache: each Load parses the current environment, and the caller
// owns the resulting value.
//
// # Error Handling
//
//   - ErrParsingConfig: env tags could not be satisfied (missing required variable, bad number).
//   - ErrInvalidConfig: validate tags rejected the parsed value.
//   - ErrLoadingEnvFile: an explicitly requested .env file could not be read.
//   - ErrNilPointer: nil pointer passed to Load or MustLoad.
package config
