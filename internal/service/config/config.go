package config

import "time"

type Config struct {
	// DirectoryAddr is the base address of the CRUD service answering client, user
	// and quote lookups. Empty means the lookups go to the sale store.
	DirectoryAddr string
	// OperationTimeout bounds one unit of work; zero disables the bound.
	OperationTimeout time.Duration
}
