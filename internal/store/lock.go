package store

import "sync"

// writeMu serializes every write statement issued by this package.
// SQLite permits only one writer at a time even in WAL mode; without
// this, concurrent writers intermittently hit SQLITE_BUSY past the
// busy_timeout under sustained load.
var writeMu sync.Mutex

// WriteMutex exposes the package's write lock so other packages
// sharing the same underlying *sql.DB (internal/sqldata) serialize
// their writes against it too.
func WriteMutex() *sync.Mutex { return &writeMu }
