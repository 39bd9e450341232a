// Copyright (C) 2026 The Coldmove Authors.
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this file,
// You can obtain one at https://mozilla.org/MPL/2.0/.

// Package journal is the relational store behind the tiering engine: the
// append-only movement history, per-share evaluation log and scan summaries
// used for cooldown. SQLite via sqlx, with the schema kept in embedded
// scripts.
package journal

import (
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/coldmove/coldmove/internal/build"
)

const currentSchemaVersion = 1

//go:embed sql
var embedded embed.FS

// DB is the journal database. All methods are safe for concurrent use.
type DB struct {
	path string
	sql  *sqlx.DB

	updateLock sync.Mutex

	statementsMut sync.RWMutex
	statements    map[string]*sqlx.Stmt
}

// Open opens or creates the journal database at path and brings the schema
// up to date.
func Open(path string) (*DB, error) {
	sqlDB, err := sqlx.Open(dbDriver, "file:"+path+"?"+commonOptions)
	if err != nil {
		return nil, wrap(err)
	}
	sqlDB.SetMaxOpenConns(16)

	db := &DB{
		path:       path,
		sql:        sqlDB,
		statements: make(map[string]*sqlx.Stmt),
	}

	if err := db.runScripts("sql/schema/*.sql"); err != nil {
		_ = sqlDB.Close()
		return nil, wrap(err)
	}

	ver, _ := db.getAppliedSchemaVersion()
	if ver.SchemaVersion > 0 && ver.SchemaVersion < currentSchemaVersion {
		filter := func(scr string) bool {
			nstr, _, ok := strings.Cut(filepath.Base(scr), "-")
			if !ok {
				return false
			}
			n, err := strconv.ParseInt(nstr, 10, 32)
			if err != nil {
				return false
			}
			return int(n) > ver.SchemaVersion
		}
		if err := db.runScripts("sql/migrations/*.sql", filter); err != nil {
			_ = sqlDB.Close()
			return nil, wrap(err)
		}
	}

	if err := db.setAppliedSchemaVersion(currentSchemaVersion); err != nil {
		_ = sqlDB.Close()
		return nil, wrap(err)
	}

	return db, nil
}

// OpenTemp opens a journal in a fresh temporary directory, for tests.
func OpenTemp() (*DB, error) {
	// SQLite has a memory mode, but it behaves differently under WAL and
	// concurrency, so tests get a real file too.
	dir, err := os.MkdirTemp("", "coldmove-journal")
	if err != nil {
		return nil, wrap(err)
	}
	return Open(filepath.Join(dir, "journal.db"))
}

func (s *DB) Close() error {
	s.updateLock.Lock()
	s.statementsMut.Lock()
	defer s.updateLock.Unlock()
	defer s.statementsMut.Unlock()
	for _, stmt := range s.statements {
		stmt.Close()
	}
	return wrap(s.sql.Close())
}

// stmt returns a prepared statement for the given SQL string. The statement
// is cached.
func (s *DB) stmt(tpl string) stmt {
	tpl = strings.TrimSpace(tpl)

	// Fast concurrent lookup of cached statement
	s.statementsMut.RLock()
	stmt, ok := s.statements[tpl]
	s.statementsMut.RUnlock()
	if ok {
		return stmt
	}

	// On miss, take the full lock, check again
	s.statementsMut.Lock()
	defer s.statementsMut.Unlock()
	stmt, ok = s.statements[tpl]
	if ok {
		return stmt
	}

	// Prepare and cache
	stmt, err := s.sql.Preparex(tpl)
	if err != nil {
		return failedStmt{err}
	}
	s.statements[tpl] = stmt
	return stmt
}

type stmt interface {
	Exec(args ...any) (sql.Result, error)
	Get(dest any, args ...any) error
	Queryx(args ...any) (*sqlx.Rows, error)
	Select(dest any, args ...any) error
}

type failedStmt struct {
	err error
}

func (f failedStmt) Exec(_ ...any) (sql.Result, error)   { return nil, f.err }
func (f failedStmt) Get(_ any, _ ...any) error           { return f.err }
func (f failedStmt) Queryx(_ ...any) (*sqlx.Rows, error) { return nil, f.err }
func (f failedStmt) Select(_ any, _ ...any) error        { return f.err }

func (s *DB) runScripts(glob string, filter ...func(s string) bool) error {
	scripts, err := fs.Glob(embedded, glob)
	if err != nil {
		return wrap(err)
	}

	tx, err := s.sql.Begin()
	if err != nil {
		return wrap(err)
	}
	defer tx.Rollback() //nolint:errcheck

nextScript:
	for _, scr := range scripts {
		for _, fn := range filter {
			if !fn(scr) {
				continue nextScript
			}
		}
		bs, err := fs.ReadFile(embedded, scr)
		if err != nil {
			return wrap(err, scr)
		}
		// SQLite requires one statement per exec, so the scripts are split
		// on lines containing only a semicolon and executed separately.
		for _, stmt := range strings.Split(string(bs), "\n;") {
			if strings.TrimSpace(stmt) == "" {
				continue
			}
			if _, err := tx.Exec(stmt); err != nil {
				return wrap(err, stmt)
			}
		}
	}

	return wrap(tx.Commit())
}

func (s *DB) vacuumAndOptimize() error {
	stmts := []string{
		"PRAGMA optimize;",
		"PRAGMA wal_checkpoint(truncate);",
	}
	for _, stmt := range stmts {
		if _, err := s.sql.Exec(stmt); err != nil {
			return wrap(err, stmt)
		}
	}
	return nil
}

type schemaVersion struct {
	SchemaVersion   int
	AppliedAt       int64
	ColdmoveVersion string
}

func (s *schemaVersion) AppliedTime() time.Time {
	return time.Unix(0, s.AppliedAt)
}

func (s *DB) setAppliedSchemaVersion(ver int) error {
	_, err := s.stmt(`
		INSERT OR IGNORE INTO schemamigrations (schema_version, applied_at, coldmove_version)
		VALUES (?, ?, ?)
	`).Exec(ver, time.Now().UnixNano(), build.LongVersion())
	return wrap(err)
}

func (s *DB) getAppliedSchemaVersion() (schemaVersion, error) {
	var v schemaVersion
	err := s.stmt(`
		SELECT schema_version AS schemaversion, applied_at AS appliedat, coldmove_version AS coldmoveversion FROM schemamigrations
		ORDER BY schema_version DESC
		LIMIT 1
	`).Get(&v)
	return v, wrap(err)
}

// wrap returns the error wrapped with the calling function name and
// optional extra context strings as prefix. A nil error wraps to nil.
func wrap(err error, context ...string) error {
	if err == nil {
		return nil
	}

	prefix := "error"
	pc, _, _, ok := runtime.Caller(1)
	details := runtime.FuncForPC(pc)
	if ok && details != nil {
		prefix = strings.ToLower(details.Name())
		if dotIdx := strings.LastIndex(prefix, "."); dotIdx > 0 {
			prefix = prefix[dotIdx+1:]
		}
	}

	if len(context) > 0 {
		for i := range context {
			context[i] = strings.TrimSpace(context[i])
		}
		extra := strings.Join(context, ", ")
		return fmt.Errorf("%s (%s): %w", prefix, extra, err)
	}

	return fmt.Errorf("%s: %w", prefix, err)
}
