package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// loadDotEnvIfPresent sets variables from path without overriding the real
// environment. A missing file is not an error.
func loadDotEnvIfPresent(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}
