package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/auditmos/actionkit/event"
	"github.com/oklog/ulid/v2"
	"golang.org/x/text/cases"
)

var ErrRuleNotFound = errors.New("redact rule not found")

var defaultRedactKeys = []string{
	"password",
	"passwd",
	"secret",
	"token",
	"access_token",
	"refresh_token",
	"api_key",
	"apikey",
	"authorization",
	"cookie",
	"private_key",
}

// RedactRule masks the detail Key of every event logged at Scope or below.
// A nil Scope applies everywhere.
type RedactRule struct {
	ID        string
	Key       string
	Scope     event.Path
	CreatedAt int64
}

// Applies reports whether the rule covers events logged at path.
func (r *RedactRule) Applies(path event.Path) bool {
	return path.HasPrefix(r.Scope)
}

func (r *RedactRule) String() string {
	if len(r.Scope) == 0 {
		return r.Key
	}
	return r.Key + "@" + r.Scope.String()
}

// FoldKey is the form detail keys are stored and compared in: trimmed and
// Unicode case-folded, so "Token", "TOKEN" and "token" are one key.
func FoldKey(key string) string {
	return cases.Fold().String(strings.TrimSpace(key))
}

type RedactRuleRepo interface {
	GetAll() ([]*RedactRule, error)
	ForPath(path event.Path) ([]*RedactRule, error)
	Create(key string, scope event.Path) (*RedactRule, error)
	Delete(id string) error
	Seed() error
}

type SQLiteRedactRuleRepo struct {
	db *sql.DB
}

func NewSQLiteRedactRuleRepo(db *sql.DB) *SQLiteRedactRuleRepo {
	return &SQLiteRedactRuleRepo{db: db}
}

const redactRuleColumns = "id, detail_key, path_scope, created_at"

func (r *SQLiteRedactRuleRepo) GetAll() ([]*RedactRule, error) {
	return r.query("SELECT " + redactRuleColumns + " FROM redact_rules ORDER BY path_scope ASC, detail_key ASC")
}

// ForPath returns the rules that cover events logged at path: the global
// ones and those scoped to path or one of its ancestors.
func (r *SQLiteRedactRuleRepo) ForPath(path event.Path) ([]*RedactRule, error) {
	p := path.String()
	return r.query(
		"SELECT "+redactRuleColumns+` FROM redact_rules
		WHERE path_scope = '' OR path_scope = ? OR substr(?, 1, length(path_scope) + 1) = path_scope || '.'
		ORDER BY length(path_scope) DESC, detail_key ASC`,
		p, p,
	)
}

func (r *SQLiteRedactRuleRepo) query(q string, args ...any) ([]*RedactRule, error) {
	rows, err := r.db.Query(q, args...)
	if err != nil {
		return nil, fmt.Errorf("query redact_rules: %w", err)
	}
	defer rows.Close()

	var rules []*RedactRule
	for rows.Next() {
		rule := &RedactRule{}
		var scope string
		if err := rows.Scan(&rule.ID, &rule.Key, &scope, &rule.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan redact_rule: %w", err)
		}
		rule.Scope = event.ParsePath(scope)
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// Create stores a detail key to redact under scope. The key is stored folded;
// the same key may be stored once per scope.
func (r *SQLiteRedactRuleRepo) Create(key string, scope event.Path) (*RedactRule, error) {
	key = FoldKey(key)
	if key == "" {
		return nil, fmt.Errorf("key cannot be empty")
	}

	rule := &RedactRule{
		ID:        ulid.Make().String(),
		Key:       key,
		Scope:     scope.Clone(),
		CreatedAt: time.Now().UnixMilli(),
	}

	_, err := r.db.Exec(
		"INSERT INTO redact_rules ("+redactRuleColumns+") VALUES (?, ?, ?, ?)",
		rule.ID, rule.Key, scope.String(), rule.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert redact_rule %s: %w", rule, err)
	}
	return rule, nil
}

func (r *SQLiteRedactRuleRepo) Delete(id string) error {
	result, err := r.db.Exec("DELETE FROM redact_rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete redact_rule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrRuleNotFound
	}
	return nil
}

// Seed inserts the default keys as global rules. Keys already present are
// left alone.
func (r *SQLiteRedactRuleRepo) Seed() error {
	for _, key := range defaultRedactKeys {
		_, err := r.db.Exec(
			"INSERT OR IGNORE INTO redact_rules ("+redactRuleColumns+") VALUES (?, ?, '', ?)",
			ulid.Make().String(), key, time.Now().UnixMilli(),
		)
		if err != nil {
			return fmt.Errorf("seed redact_rule %s: %w", key, err)
		}
	}
	return nil
}
