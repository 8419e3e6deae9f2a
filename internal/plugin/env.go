package plugin

import (
	"os"

	"github.com/joho/godotenv"
)

// loadEnvFile parses a plugin-private KEY=VALUE env file (comments with
// '#', quoted values), per spec.md §6. A missing file yields an empty,
// non-nil map rather than an error: plugins with no secrets don't need one.
// Godotenv's Parse is reused here purely as a key=value decoder; its
// Read/Load variants that mutate the process environment are never called,
// matching spec.md §4.3's "not the process environment" requirement.
func loadEnvFile(path string) (map[string]string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, err
	}
	defer f.Close()
	return godotenv.Parse(f)
}
