package config

type Config struct {
	// JWTKey signs operator tokens. Empty disables authentication.
	JWTKey string
}
