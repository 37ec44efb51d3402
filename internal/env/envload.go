// Package env loads process configuration from the nearest .env file so the
// CLI behaves the same from any directory inside a checkout.
package env

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

var (
	once   sync.Once
	path   string
	result error
)

// Ensure locates and loads a .env file once per process, searching from the
// working directory upward. Test binaries skip the search so developer-local
// files cannot leak into test runs; set GOTEST_LOAD_DOTENV=1 to opt back in.
func Ensure() error {
	if underGoTest() && os.Getenv("GOTEST_LOAD_DOTENV") != "1" {
		return nil
	}
	once.Do(load)
	return result
}

// LoadedPath reports which .env file Ensure loaded, or "" when none was.
func LoadedPath() string {
	return path
}

func load() {
	found, err := locateDotEnv()
	if err != nil {
		result = err
		log.Debug().Err(err).Msg("chipwhisperer: search .env failed")
		return
	}
	if found == "" {
		return
	}
	if err := godotenv.Load(found); err != nil {
		result = err
		log.Warn().Err(err).Str("dotenv", found).Msg("chipwhisperer: load .env failed")
		return
	}
	path = found
	log.Debug().Str("dotenv", found).Msg("chipwhisperer: loaded .env")
}

func underGoTest() bool {
	if strings.HasSuffix(os.Args[0], ".test") {
		return true
	}
	for _, arg := range os.Args[1:] {
		if strings.HasPrefix(arg, "-test.") {
			return true
		}
	}
	return false
}

// locateDotEnv walks from the working directory to the filesystem root and
// returns the first .env file found, or "" when the walk exhausts.
func locateDotEnv() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", errors.Wrap(err, "env: resolve working directory failed")
	}
	for {
		candidate := filepath.Join(dir, ".env")
		info, err := os.Stat(candidate)
		switch {
		case err == nil && !info.IsDir():
			return candidate, nil
		case err != nil && !os.IsNotExist(err):
			return "", errors.Wrapf(err, "env: stat %s failed", candidate)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil
		}
		dir = parent
	}
}
