package config

type Config struct {
	// DBDsn is the PostgreSQL connection string. Empty selects the in-memory store.
	DBDsn string
	// Migrate applies the embedded schema migrations on start.
	Migrate bool
}
