package postgres

import (
	"database/sql"
	"errors"
	"strings"
	"testing"
)

func TestNewStorePropagatesOpenError(t *testing.T) {
	restore := OverrideSQLOpen(func(driverName, dsn string) (*sql.DB, error) {
		if driverName != defaultDriver {
			t.Fatalf("unexpected driver %q", driverName)
		}
		return nil, errors.New("no database")
	})
	defer restore()

	if _, err := NewStore("postgres://example/flowcore", nil); err == nil || !strings.Contains(err.Error(), "open postgres") {
		t.Fatalf("expected open error, got %v", err)
	}
}

func TestNewStoreDefaultsDSN(t *testing.T) {
	var gotDSN string
	restore := OverrideSQLOpen(func(_, dsn string) (*sql.DB, error) {
		gotDSN = dsn
		return nil, errors.New("stop here")
	})
	defer restore()

	if _, err := NewStore("", nil); err == nil {
		t.Fatal("expected error from stub opener")
	}
	if gotDSN != defaultDSN {
		t.Fatalf("got DSN %q, want %q", gotDSN, defaultDSN)
	}
}
