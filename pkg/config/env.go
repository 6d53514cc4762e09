package config

import "github.com/joho/godotenv"

// godotenvLoad loads the process's .env file into os.Environ, without
// overwriting variables already set: env vars win over the .env file,
// which is godotenv's own default.
func godotenvLoad() error {
	return godotenv.Load()
}
