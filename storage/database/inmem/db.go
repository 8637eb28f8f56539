package inmemdb

import (
	"sync"

	"github.com/trezcool/candidature/core/account"
	"github.com/trezcool/candidature/core/candidature"
)

// DB is an in-memory database for tests and local hacking.
type DB struct {
	mutex        sync.RWMutex
	accounts     map[string]*account.Account
	candidatures map[string]*candidature.Candidature
	remarques    map[string][]candidature.Remarque     // keyed by candidature ID
	historique   map[string][]candidature.HistoryEntry // keyed by candidature ID
}

func NewDB() *DB {
	return &DB{
		accounts:     make(map[string]*account.Account),
		candidatures: make(map[string]*candidature.Candidature),
		remarques:    make(map[string][]candidature.Remarque),
		historique:   make(map[string][]candidature.HistoryEntry),
	}
}
