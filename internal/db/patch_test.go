package db

import (
	"errors"
	"testing"
)

func TestPatchSQL(t *testing.T) {
	patch := NewPatch("schedule_events", "title", "location", "opponent")
	patch.Set("title", "Scrimmage vs. Eagles").Set("location", nil)

	query, args, err := patch.SQL("id", int64(42))
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	want := "UPDATE schedule_events SET title = ?, location = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?"
	if query != want {
		t.Fatalf("query:\n got %q\nwant %q", query, want)
	}
	if len(args) != 3 {
		t.Fatalf("args: got %d want 3", len(args))
	}
	if args[0] != "Scrimmage vs. Eagles" || args[1] != nil || args[2] != int64(42) {
		t.Fatalf("unexpected args: %#v", args)
	}
}

func TestPatchRejectsUnregisteredColumn(t *testing.T) {
	patch := NewPatch("schedule_events", "title")
	patch.Set("team_id; DROP TABLE teams", 1)

	_, _, err := patch.SQL("id", 1)
	if !errors.Is(err, ErrUnrecognizedField) {
		t.Fatalf("expected ErrUnrecognizedField, got %v", err)
	}
}

func TestPatchEmpty(t *testing.T) {
	patch := NewPatch("players", "first_name")
	if patch.Len() != 0 {
		t.Fatalf("expected empty patch")
	}
	_, _, err := patch.SQL("id", 1)
	if !errors.Is(err, ErrEmptyPatch) {
		t.Fatalf("expected ErrEmptyPatch, got %v", err)
	}
}

func TestPatchRejectsDuplicateField(t *testing.T) {
	patch := NewPatch("players", "first_name")
	patch.Set("first_name", "Kim").Set("first_name", "Lee")
	if _, _, err := patch.SQL("id", 1); err == nil {
		t.Fatal("expected error for duplicate field")
	}
}

func TestNewPatchRejectsBadTableName(t *testing.T) {
	patch := NewPatch("players p", "first_name")
	patch.Set("first_name", "Kim")
	if _, _, err := patch.SQL("id", 1); err == nil {
		t.Fatal("expected error for invalid table name")
	}
}
