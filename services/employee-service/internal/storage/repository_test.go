package storage

import (
	"io/fs"
	"testing"

	"github.com/google/uuid"
)

func TestEmployerNullability(t *testing.T) {
	if employerParam(uuid.NullUUID{}) != nil {
		t.Fatal("expected nil param for absent employer")
	}
	got, err := parseEmployer(nil)
	if err != nil || got.Valid {
		t.Fatalf("expected invalid NullUUID, got %+v %v", got, err)
	}

	id := uuid.New()
	got, err = parseEmployer(employerParam(uuid.NullUUID{UUID: id, Valid: true}))
	if err != nil {
		t.Fatalf("parseEmployer: %v", err)
	}
	if !got.Valid || got.UUID != id {
		t.Fatalf("unexpected employer %+v", got)
	}

	bad := "not-a-uuid"
	if _, err := parseEmployer(&bad); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	matches, err := fs.Glob(Migrations, MigrationsDir+"/*.up.sql")
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("expected at least one up migration")
	}
}
