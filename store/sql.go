// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/danielhkuo/quickly-elect/models"
)

// Supported database types
const (
	DialectPostgres = "postgres"
	DialectSQLite   = "sqlite"
)

var _ Store = (*SQLStore)(nil)

// SQLStore implements Store on database/sql. The same queries run on
// PostgreSQL (lib/pq) and SQLite (modernc.org/sqlite).
type SQLStore struct {
	db      *sql.DB
	dialect string
}

// Open connects to the database and verifies the connection.
func Open(dialect, url string) (*SQLStore, error) {
	var driver string
	switch dialect {
	case DialectPostgres:
		driver = "postgres"
	case DialectSQLite:
		driver = "sqlite"
	default:
		return nil, fmt.Errorf("unsupported database type %q", dialect)
	}

	conn, err := sql.Open(driver, url)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewSQLStore(conn, dialect), nil
}

// NewSQLStore wraps an open connection.
func NewSQLStore(conn *sql.DB, dialect string) *SQLStore {
	if dialect == DialectSQLite {
		// One writer at a time; transactions queue on the pool instead of
		// failing with SQLITE_BUSY.
		conn.SetMaxOpenConns(1)
	}
	return &SQLStore{db: conn, dialect: dialect}
}

// DB exposes the underlying connection for schema management.
func (s *SQLStore) DB() *sql.DB {
	return s.db
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Elections

func (s *SQLStore) Election(ctx context.Context, id string) (models.Election, error) {
	return scanElection(s.db.QueryRowContext(ctx, `
		SELECT id, name, description, state, public_link, started_at, ended_at, created_at
		FROM election
		WHERE id = $1
	`, id))
}

func (s *SQLStore) ElectionByLink(ctx context.Context, link string) (models.Election, error) {
	return scanElection(s.db.QueryRowContext(ctx, `
		SELECT id, name, description, state, public_link, started_at, ended_at, created_at
		FROM election
		WHERE public_link = $1
	`, link))
}

func scanElection(row *sql.Row) (models.Election, error) {
	var e models.Election
	var link sql.NullString
	var started, ended sql.NullTime
	err := row.Scan(&e.ID, &e.Name, &e.Description, &e.State, &link, &started, &ended, &e.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Election{}, ErrNotFound
	}
	if err != nil {
		return models.Election{}, fmt.Errorf("failed to scan election: %w", err)
	}
	if link.Valid {
		e.PublicLink = &link.String
	}
	if started.Valid {
		e.StartedAt = &started.Time
	}
	if ended.Valid {
		e.EndedAt = &ended.Time
	}
	return e, nil
}

func (s *SQLStore) CreateElection(ctx context.Context, e models.Election) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO election (id, name, description, state, public_link, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, e.ID, e.Name, e.Description, e.State, e.PublicLink, e.CreatedAt)
	return mapWriteError("insert election", err)
}

// SetElectionState moves the election to state, stamping started_at when it
// becomes active and ended_at when it is finalized.
func (s *SQLStore) SetElectionState(ctx context.Context, id, state string, at time.Time) error {
	var res sql.Result
	var err error
	switch state {
	case models.StateActive:
		res, err = s.db.ExecContext(ctx, `
			UPDATE election SET state = $1, started_at = $2 WHERE id = $3
		`, state, at, id)
	case models.StateFinalized:
		res, err = s.db.ExecContext(ctx, `
			UPDATE election SET state = $1, ended_at = $2 WHERE id = $3
		`, state, at, id)
	default:
		res, err = s.db.ExecContext(ctx, `
			UPDATE election SET state = $1 WHERE id = $2
		`, state, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update election state: %w", err)
	}
	return requireRow(res)
}

// Offices

func (s *SQLStore) Office(ctx context.Context, id string) (models.Office, error) {
	var o models.Office
	err := s.db.QueryRowContext(ctx, `
		SELECT id, election_id, name, description FROM office WHERE id = $1
	`, id).Scan(&o.ID, &o.ElectionID, &o.Name, &o.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Office{}, ErrNotFound
	}
	if err != nil {
		return models.Office{}, fmt.Errorf("failed to query office: %w", err)
	}
	return o, nil
}

func (s *SQLStore) OfficesByElection(ctx context.Context, electionID string) ([]models.Office, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, election_id, name, description
		FROM office
		WHERE election_id = $1
		ORDER BY created_at, id
	`, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query offices: %w", err)
	}
	defer rows.Close()

	offices := []models.Office{}
	for rows.Next() {
		var o models.Office
		if err := rows.Scan(&o.ID, &o.ElectionID, &o.Name, &o.Description); err != nil {
			return nil, fmt.Errorf("failed to scan office: %w", err)
		}
		offices = append(offices, o)
	}
	return offices, rows.Err()
}

func (s *SQLStore) CreateOffice(ctx context.Context, o models.Office) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO office (id, election_id, name, description, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, o.ID, o.ElectionID, o.Name, o.Description, time.Now())
	return mapWriteError("insert office", err)
}

// Candidates

func (s *SQLStore) Candidate(ctx context.Context, id string) (models.Candidate, error) {
	var c models.Candidate
	var list sql.NullInt64
	err := s.db.QueryRowContext(ctx, `
		SELECT id, election_id, office_id, name, description, list_number
		FROM candidate
		WHERE id = $1
	`, id).Scan(&c.ID, &c.ElectionID, &c.OfficeID, &c.Name, &c.Description, &list)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Candidate{}, ErrNotFound
	}
	if err != nil {
		return models.Candidate{}, fmt.Errorf("failed to query candidate: %w", err)
	}
	if list.Valid {
		n := int(list.Int64)
		c.ListNumber = &n
	}
	return c, nil
}

func (s *SQLStore) CandidatesByOffice(ctx context.Context, officeID string) ([]models.Candidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, election_id, office_id, name, description, list_number
		FROM candidate
		WHERE office_id = $1
		ORDER BY id
	`, officeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	candidates := []models.Candidate{}
	for rows.Next() {
		var c models.Candidate
		var list sql.NullInt64
		if err := rows.Scan(&c.ID, &c.ElectionID, &c.OfficeID, &c.Name, &c.Description, &list); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		if list.Valid {
			n := int(list.Int64)
			c.ListNumber = &n
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

func (s *SQLStore) CreateCandidate(ctx context.Context, c models.Candidate) error {
	var list sql.NullInt64
	if c.ListNumber != nil {
		list = sql.NullInt64{Int64: int64(*c.ListNumber), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO candidate (id, election_id, office_id, name, description, list_number)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, c.ID, c.ElectionID, c.OfficeID, c.Name, c.Description, list)
	return mapWriteError("insert candidate", err)
}

// Voters

const voterColumns = `id, document_id, full_name, email, base_votes, powers, active, token`

func scanVoter(row interface{ Scan(...any) error }) (models.Voter, error) {
	var v models.Voter
	err := row.Scan(&v.ID, &v.DocumentID, &v.FullName, &v.Email, &v.BaseVotes, &v.Powers, &v.Active, &v.Token)
	return v, err
}

func (s *SQLStore) Voter(ctx context.Context, id string) (models.Voter, error) {
	v, err := scanVoter(s.db.QueryRowContext(ctx, `SELECT `+voterColumns+` FROM voter WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Voter{}, ErrNotFound
	}
	if err != nil {
		return models.Voter{}, fmt.Errorf("failed to query voter: %w", err)
	}
	return v, nil
}

func (s *SQLStore) VoterByToken(ctx context.Context, token string) (models.Voter, error) {
	v, err := scanVoter(s.db.QueryRowContext(ctx, `SELECT `+voterColumns+` FROM voter WHERE token = $1`, token))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Voter{}, ErrNotFound
	}
	if err != nil {
		return models.Voter{}, fmt.Errorf("failed to query voter: %w", err)
	}
	return v, nil
}

func (s *SQLStore) ActiveVoters(ctx context.Context) ([]models.Voter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+voterColumns+`
		FROM voter
		WHERE active = TRUE
		ORDER BY full_name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query voters: %w", err)
	}
	defer rows.Close()

	voters := []models.Voter{}
	for rows.Next() {
		v, err := scanVoter(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan voter: %w", err)
		}
		voters = append(voters, v)
	}
	return voters, rows.Err()
}

func (s *SQLStore) CreateVoter(ctx context.Context, v models.Voter) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO voter (id, document_id, full_name, email, base_votes, powers, active, token, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, v.ID, v.DocumentID, v.FullName, v.Email, v.BaseVotes, v.Powers, v.Active, v.Token, time.Now())
	return mapWriteError("insert voter", err)
}

// GrantPowers increments powers in place and appends the grant to the
// history in one transaction. The increment is conditional on no election
// being active.
func (s *SQLStore) GrantPowers(ctx context.Context, g models.PowerGrant) (models.Voter, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Voter{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		UPDATE voter SET powers = powers + $1
		WHERE id = $2
		  AND NOT EXISTS (SELECT 1 FROM election WHERE state = 'active')
	`, g.Powers, g.VoterID)
	if err != nil {
		return models.Voter{}, fmt.Errorf("failed to update powers: %w", err)
	}
	err = requireRow(res)
	if errors.Is(err, ErrNotFound) {
		// Either the voter is unknown or an election holds the lock.
		var exists bool
		if err := tx.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM voter WHERE id = $1)`, g.VoterID).Scan(&exists); err != nil {
			return models.Voter{}, fmt.Errorf("failed to query voter: %w", err)
		}
		if exists {
			return models.Voter{}, ErrLocked
		}
		return models.Voter{}, ErrNotFound
	}
	if err != nil {
		return models.Voter{}, err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO power_grant (id, voter_id, powers, reason, granted_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, g.ID, g.VoterID, g.Powers, g.Reason, g.GrantedBy, g.CreatedAt)
	if err != nil {
		return models.Voter{}, fmt.Errorf("failed to record power grant: %w", err)
	}

	v, err := scanVoter(tx.QueryRowContext(ctx, `SELECT `+voterColumns+` FROM voter WHERE id = $1`, g.VoterID))
	if err != nil {
		return models.Voter{}, fmt.Errorf("failed to reload voter: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return models.Voter{}, fmt.Errorf("failed to commit power grant: %w", err)
	}
	return v, nil
}

func (s *SQLStore) SetVoterActive(ctx context.Context, id string, active bool) (models.Voter, error) {
	v, err := scanVoter(s.db.QueryRowContext(ctx, `
		UPDATE voter SET active = $1 WHERE id = $2
		RETURNING `+voterColumns, active, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Voter{}, ErrNotFound
	}
	if err != nil {
		return models.Voter{}, fmt.Errorf("failed to update voter: %w", err)
	}
	return v, nil
}

// Participation

func (s *SQLStore) VotesUsed(ctx context.Context, key models.ParticipationKey) (int, error) {
	return votesUsed(ctx, s.db, key)
}

func votesUsed(ctx context.Context, q queryer, key models.ParticipationKey) (int, error) {
	var used int
	err := q.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(votes_used), 0)
		FROM participation
		WHERE election_id = $1 AND voter_id = $2 AND office_id = $3
	`, key.ElectionID, key.VoterID, key.OfficeID).Scan(&used)
	if err != nil {
		return 0, fmt.Errorf("failed to query votes used: %w", err)
	}
	return used, nil
}

func (s *SQLStore) ParticipationByElection(ctx context.Context, electionID string) ([]models.ParticipationRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT election_id, voter_id, office_id, votes_used, voted_at
		FROM participation
		WHERE election_id = $1
	`, electionID)
	if err != nil {
		return nil, fmt.Errorf("failed to query participation: %w", err)
	}
	defer rows.Close()

	records := []models.ParticipationRecord{}
	for rows.Next() {
		var r models.ParticipationRecord
		if err := rows.Scan(&r.ElectionID, &r.VoterID, &r.OfficeID, &r.VotesUsed, &r.VotedAt); err != nil {
			return nil, fmt.Errorf("failed to scan participation: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Tally

func (s *SQLStore) TallyByOffice(ctx context.Context, electionID, officeID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT candidate_id, COALESCE(SUM(quantity), 0)
		FROM tally_entry
		WHERE election_id = $1 AND office_id = $2
		GROUP BY candidate_id
	`, electionID, officeID)
	if err != nil {
		return nil, fmt.Errorf("failed to query tally: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int)
	for rows.Next() {
		var candidateID string
		var votes int
		if err := rows.Scan(&candidateID, &votes); err != nil {
			return nil, fmt.Errorf("failed to scan tally: %w", err)
		}
		totals[candidateID] = votes
	}
	return totals, rows.Err()
}

// Transactions

func (s *SQLStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&sqlTx{tx: tx, dialect: s.dialect}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type sqlTx struct {
	tx      *sql.Tx
	dialect string
}

func (t *sqlTx) ElectionState(ctx context.Context, id string) (string, error) {
	query := `SELECT state FROM election WHERE id = $1`
	if t.dialect == DialectPostgres {
		// SetElectionState's UPDATE blocks on this lock until we finish.
		query += ` FOR SHARE`
	}

	var state string
	err := t.tx.QueryRowContext(ctx, query, id).Scan(&state)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to query election state: %w", err)
	}
	return state, nil
}

func (t *sqlTx) VotesUsed(ctx context.Context, key models.ParticipationKey) (int, error) {
	return votesUsed(ctx, t.tx, key)
}

// RecordUsage is a single conditional upsert. The row lock taken by
// ON CONFLICT DO UPDATE makes the cap check and the increment one step, so
// two racing transactions cannot both pass a stale read.
func (t *sqlTx) RecordUsage(ctx context.Context, key models.ParticipationKey, delta, limit int) (int, error) {
	var used int
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO participation (election_id, voter_id, office_id, votes_used)
		SELECT $1, $2, $3, CAST($4 AS INTEGER)
		WHERE CAST($4 AS INTEGER) <= CAST($5 AS INTEGER)
		ON CONFLICT (election_id, voter_id, office_id) DO UPDATE
		SET votes_used = participation.votes_used + excluded.votes_used,
		    voted_at = CURRENT_TIMESTAMP
		WHERE participation.votes_used + excluded.votes_used <= CAST($5 AS INTEGER)
		RETURNING votes_used
	`, key.ElectionID, key.VoterID, key.OfficeID, delta, limit).Scan(&used)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrConflict
	}
	if err != nil {
		return 0, fmt.Errorf("failed to record usage: %w", err)
	}
	return used, nil
}

func (t *sqlTx) AppendTally(ctx context.Context, entry models.TallyEntry) error {
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO tally_entry (id, election_id, office_id, candidate_id, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, entry.ID, entry.ElectionID, entry.OfficeID, entry.CandidateID, entry.Quantity, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to append tally entry: %w", err)
	}
	return nil
}

// Helpers

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// mapWriteError turns unique violations from either driver into ErrDuplicate.
func mapWriteError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		code := liteErr.Code()
		return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
	}
	return false
}
