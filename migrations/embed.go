package migrations

import "embed"

// Files holds the V<version>__<name>.sql migrations shipped with the binaries.
//
//go:embed *.sql
var Files embed.FS
