package utils

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const envFileFlag = "--env-file"

// LoadEnvFile populates the process environment before cobra parses any flags.
// An explicit file wins over the ENV_FILE variable, which wins over a .env in
// the working directory. A missing .env is not an error; a missing explicit
// file is.
func LoadEnvFile() error {
	if path := explicitEnvFilePath(); path != "" {
		if err := godotenv.Load(path); err != nil {
			return fmt.Errorf("loading env file %s: %w", path, err)
		}
		return nil
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("loading .env file: %w", err)
	}
	return nil
}

// explicitEnvFilePath resolves the --env-file argument or the ENV_FILE
// variable to an absolute path. The flag is scanned from os.Args directly
// because env loading happens before flag parsing.
func explicitEnvFilePath() string {
	path := os.Getenv("ENV_FILE")
	for i, arg := range os.Args {
		if arg == envFileFlag && i+1 < len(os.Args) {
			path = os.Args[i+1]
			break
		}
		if strings.HasPrefix(arg, envFileFlag+"=") {
			path = strings.TrimPrefix(arg, envFileFlag+"=")
			break
		}
	}

	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return path
}
