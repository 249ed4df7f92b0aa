package configuration

import (
	"bufio"
	"os"
	"strings"

	"tubequeue/infrastructure/logger"
)

// LoadEnvFromFile loads KEY=VALUE lines (optionally prefixed with "export")
// from each readable file and returns the files it read. Variables already
// present in the environment win.
func LoadEnvFromFile(paths ...string) []string {
	var loaded []string
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			continue
		}
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			key, val, ok := parseEnvLine(scanner.Text())
			if !ok {
				continue
			}
			if _, exists := os.LookupEnv(key); !exists {
				_ = os.Setenv(key, val)
			}
		}
		_ = f.Close()
		loaded = append(loaded, p)
	}
	return loaded
}

func parseEnvLine(line string) (string, string, bool) {
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return "", "", false
	}
	line = strings.TrimPrefix(line, "export ")
	key, val, found := strings.Cut(line, "=")
	key = strings.TrimSpace(key)
	if !found || key == "" {
		return "", "", false
	}
	return key, strings.Trim(strings.TrimSpace(val), "\"'"), true
}

// Reload re-applies environment overrides after env files were loaded.
func Reload() {
	initDatabase(&C)
	initRedis(&C)
	initApp(&C)
	initJukebox(&C)
	logger.SetLevel(firstNonEmpty(os.Getenv("LOG_LEVEL"), C.Logger.Level))
}
