// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package db_test

import (
	"testing"

	"github.com/danielhkuo/quickly-elect/db"
	"github.com/danielhkuo/quickly-elect/testutil"
)

func TestCreateSchemaIsIdempotent(t *testing.T) {
	st := testutil.SetupTestStore(t)

	if err := db.CreateSchema(st.DB()); err != nil {
		t.Fatalf("Second CreateSchema failed: %v", err)
	}

	if err := db.DropSchema(st.DB()); err != nil {
		t.Fatalf("DropSchema failed: %v", err)
	}
	if err := db.CreateSchema(st.DB()); err != nil {
		t.Fatalf("CreateSchema after drop failed: %v", err)
	}
}

// TestTallyHasNoVoterColumn guards the secret ballot at the schema level.
func TestTallyHasNoVoterColumn(t *testing.T) {
	st := testutil.SetupTestStore(t)

	rows, err := st.DB().Query(`SELECT name FROM pragma_table_info('tally_entry')`)
	if err != nil {
		t.Fatalf("Failed to read table info: %v", err)
	}
	defer rows.Close()

	columns := 0
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("Failed to scan column: %v", err)
		}
		columns++
		if name == "voter_id" || name == "token" {
			t.Errorf("tally_entry must not carry %s", name)
		}
	}
	if columns == 0 {
		t.Fatal("tally_entry has no columns")
	}
}

func TestParticipationHasNoCandidateColumn(t *testing.T) {
	st := testutil.SetupTestStore(t)

	rows, err := st.DB().Query(`SELECT name FROM pragma_table_info('participation')`)
	if err != nil {
		t.Fatalf("Failed to read table info: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("Failed to scan column: %v", err)
		}
		if name == "candidate_id" {
			t.Error("participation must not carry candidate_id")
		}
	}
}

func TestSchemaConstraints(t *testing.T) {
	st := testutil.SetupTestStore(t)
	conn := st.DB()

	if _, err := conn.Exec(`INSERT INTO election (id, name) VALUES ('e1', 'Election')`); err != nil {
		t.Fatalf("Failed to insert election: %v", err)
	}

	tests := []struct {
		name  string
		query string
	}{
		{"unknown election state", `INSERT INTO election (id, name, state) VALUES ('e2', 'Bad', 'open')`},
		{"zero base votes", `INSERT INTO voter (id, document_id, full_name, base_votes, token) VALUES ('v1', 'd1', 'V', 0, 't1')`},
		{"negative powers", `INSERT INTO voter (id, document_id, full_name, powers, token) VALUES ('v2', 'd2', 'V', -1, 't2')`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := conn.Exec(tt.query); err == nil {
				t.Errorf("Expected constraint violation for %s", tt.name)
			}
		})
	}
}
