package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadSQLPrefersQueryFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "script.sql")
	if err := os.WriteFile(path, []byte("SELECT 1;"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := loadSQL("SELECT 2", path)
	if err != nil {
		t.Fatal(err)
	}
	if got != "SELECT 1;" {
		t.Fatalf("got %q", got)
	}
}

func TestLoadSQLUsesQueryWhenNoFile(t *testing.T) {
	got, err := loadSQL("SELECT 1", "")
	if err != nil {
		t.Fatal(err)
	}
	if got != "SELECT 1" {
		t.Fatalf("got %q", got)
	}
}

func TestLoadSQLErrorsWithNeither(t *testing.T) {
	if _, err := loadSQL("", ""); err == nil {
		t.Fatal("expected an error")
	}
}

func TestStringArgsSplitsOnComma(t *testing.T) {
	got := stringArgs("a,b,c")
	if len(got) != 3 {
		t.Fatalf("got %d args", len(got))
	}
	for i, want := range []string{"a", "b", "c"} {
		if got[i].String() != "'"+want+"'" {
			t.Fatalf("arg %d: got %q", i, got[i].String())
		}
	}
}

func TestInsertColumnNamesParsesParenList(t *testing.T) {
	got := insertColumnNames("INSERT INTO events (id, name) VALUES")
	want := []string{"id", "name"}
	if len(got) != len(want) {
		t.Fatalf("got %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestInsertColumnNamesNoParensReturnsNil(t *testing.T) {
	if got := insertColumnNames("INSERT INTO events VALUES"); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}

func TestParseRowsSplitsRowsAndGuessesCellKind(t *testing.T) {
	got := parseRows("1, a; 2, b")
	if len(got) != 2 {
		t.Fatalf("got %d rows", len(got))
	}
	if got[0][0].String() != "1" || got[0][1].String() != "'a'" {
		t.Fatalf("row 0 = %v", got[0])
	}
	if got[1][0].String() != "2" || got[1][1].String() != "'b'" {
		t.Fatalf("row 1 = %v", got[1])
	}
}

func TestParseRowsEmptyReturnsNil(t *testing.T) {
	if got := parseRows(""); got != nil {
		t.Fatalf("got %v, want nil", got)
	}
}
