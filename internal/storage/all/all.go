// Package all links every storage backend into the binary.
package all

import (
	_ "gridetl/internal/storage/mssql"
	_ "gridetl/internal/storage/postgres"
	_ "gridetl/internal/storage/sqlite"
)
