package docstore

import "fmt"

// Backend names accepted by Open.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
)

// Open returns the named backend rooted at dataDir.
func Open(backend, dataDir string) (Backend, error) {
	switch backend {
	case BackendSQLite, "":
		s, err := OpenSQLite(dataDir)
		if err != nil {
			return nil, err
		}
		return s, nil
	case BackendFile:
		fs, err := NewFileStore(dataDir)
		if err != nil {
			return nil, err
		}
		return fs, nil
	default:
		return nil, fmt.Errorf("docstore: unknown backend %q (want %s or %s)", backend, BackendSQLite, BackendFile)
	}
}
