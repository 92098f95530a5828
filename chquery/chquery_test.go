package chquery_test

import (
	"reflect"
	"testing"

	"github.com/mickamy/chnative/chquery"
	"github.com/mickamy/chnative/chvalue"
)

func TestBindSubstitutesPlaceholders(t *testing.T) {
	got := chquery.Bind("SELECT $1, $2", []chvalue.Value{
		chvalue.String("x'y"),
		chvalue.UInt32(7),
	})
	want := "SELECT 'x\\'y', 7"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBindDollarDollarEscapes(t *testing.T) {
	got := chquery.Bind("SELECT $$ + $1", []chvalue.Value{chvalue.Int64(3)})
	if got != "SELECT $ + 3" {
		t.Fatalf("got %q", got)
	}
}

func TestBindIgnoresPlaceholdersInsideStringsAndComments(t *testing.T) {
	got := chquery.Bind("SELECT '$1' -- $2\nFROM t", []chvalue.Value{chvalue.Int64(1), chvalue.Int64(2)})
	if got != "SELECT '$1' -- $2\nFROM t" {
		t.Fatalf("got %q", got)
	}
}

func TestBindIgnoresPlaceholdersInsideHeredoc(t *testing.T) {
	got := chquery.Bind("SELECT $tag$has $1 inside$tag$, $1", []chvalue.Value{chvalue.Int64(9)})
	want := "SELECT $tag$has $1 inside$tag$, 9"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestBindOutOfRangeIndexPassesThrough(t *testing.T) {
	got := chquery.Bind("SELECT $1, $5", []chvalue.Value{chvalue.Int64(1)})
	if got != "SELECT 1, $5" {
		t.Fatalf("got %q", got)
	}
}

func TestBindNullRendersAsNULL(t *testing.T) {
	got := chquery.Bind("SELECT $1", []chvalue.Value{chvalue.Null})
	if got != "SELECT NULL" {
		t.Fatalf("got %q", got)
	}
}

func TestSplitOnTopLevelSemicolons(t *testing.T) {
	got := chquery.Split("X;B;")
	want := []string{"X;", "B;"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSplitIgnoresSemicolonInsideStringLiteral(t *testing.T) {
	got := chquery.Split("SELECT ';'; Y")
	want := []string{"SELECT ';';", "Y"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSplitIgnoresSemicolonInsideBacktickIdentifierAndComment(t *testing.T) {
	got := chquery.Split("SELECT `a;b` FROM t; -- trailing ; comment\nSELECT 2;")
	want := []string{"SELECT `a;b` FROM t;", "-- trailing ; comment\nSELECT 2;"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSplitDropsEmptyStatements(t *testing.T) {
	got := chquery.Split("X;;  ;Y;")
	want := []string{"X;", "Y;"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestSplitNoTrailingSemicolon(t *testing.T) {
	got := chquery.Split("SELECT 1")
	want := []string{"SELECT 1"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}
