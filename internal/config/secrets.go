package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// loadSecrets reads a dotenv file into the environment. A missing file is not an error.
// Existing variables win.
func loadSecrets(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
}
