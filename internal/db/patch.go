package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	dbgen "github.com/codr1/Sideout/internal/db/generated"
)

var (
	ErrEmptyPatch        = errors.New("patch has no fields to update")
	ErrUnrecognizedField = errors.New("unrecognized patch field")

	identifierPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

// Patch builds a parameterized partial UPDATE for one table. Only columns
// registered in NewPatch may be set; values always travel as placeholders.
type Patch struct {
	table   string
	allowed map[string]struct{}
	sets    []string
	args    []any
	err     error
}

// NewPatch returns a builder for table restricted to the given columns.
func NewPatch(table string, columns ...string) *Patch {
	p := &Patch{
		table:   table,
		allowed: make(map[string]struct{}, len(columns)),
	}
	if !identifierPattern.MatchString(table) {
		p.err = fmt.Errorf("invalid table name %q", table)
	}
	for _, column := range columns {
		if !identifierPattern.MatchString(column) {
			p.err = fmt.Errorf("invalid column name %q", column)
			continue
		}
		p.allowed[column] = struct{}{}
	}
	return p
}

// Set records column = value. Setting an unregistered column poisons the
// patch; the error surfaces from SQL or Exec.
func (p *Patch) Set(column string, value any) *Patch {
	if p.err != nil {
		return p
	}
	if _, ok := p.allowed[column]; !ok {
		p.err = fmt.Errorf("%w: %s", ErrUnrecognizedField, column)
		return p
	}
	for _, existing := range p.sets {
		if existing == column+" = ?" {
			p.err = fmt.Errorf("field %s set twice", column)
			return p
		}
	}
	p.sets = append(p.sets, column+" = ?")
	p.args = append(p.args, value)
	return p
}

// Len reports how many fields have been set.
func (p *Patch) Len() int {
	return len(p.sets)
}

// SQL renders the UPDATE statement. updated_at is always refreshed.
func (p *Patch) SQL(keyColumn string, key any) (string, []any, error) {
	if p.err != nil {
		return "", nil, p.err
	}
	if len(p.sets) == 0 {
		return "", nil, ErrEmptyPatch
	}
	if !identifierPattern.MatchString(keyColumn) {
		return "", nil, fmt.Errorf("invalid key column %q", keyColumn)
	}

	query := fmt.Sprintf(
		"UPDATE %s SET %s, updated_at = CURRENT_TIMESTAMP WHERE %s = ?",
		p.table,
		strings.Join(p.sets, ", "),
		keyColumn,
	)
	args := make([]any, 0, len(p.args)+1)
	args = append(args, p.args...)
	args = append(args, key)
	return query, args, nil
}

// Exec runs the patch against conn and returns the number of rows changed.
func (p *Patch) Exec(ctx context.Context, conn dbgen.DBTX, keyColumn string, key any) (int64, error) {
	query, args, err := p.SQL(keyColumn, key)
	if err != nil {
		return 0, err
	}
	result, err := conn.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
