package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE books (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				title TEXT NOT NULL CHECK (length(trim(title)) > 0),
				authors TEXT NOT NULL DEFAULT '[]',
				isbn TEXT UNIQUE,
				publisher TEXT,
				publication_year INTEGER CHECK (publication_year IS NULL OR publication_year >= 1000),
				genres TEXT NOT NULL DEFAULT '[]',
				language TEXT CHECK (language IS NULL OR length(language) = 2),
				total_copies INTEGER NOT NULL CHECK (total_copies >= 1),
				available_copies INTEGER NOT NULL,
				location TEXT,
				tags TEXT NOT NULL DEFAULT '[]',
				description TEXT,
				cover_image TEXT,
				status TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'loaned', 'reserved')),
				CONSTRAINT ck_books_available_copies CHECK (available_copies >= 0 AND available_copies <= total_copies)
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_books_title ON books (title COLLATE NOCASE)`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`
			CREATE TABLE members (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				name TEXT NOT NULL CHECK (length(trim(name)) >= 2),
				member_code TEXT NOT NULL UNIQUE CHECK (length(member_code) >= 3),
				email TEXT UNIQUE,
				phone TEXT,
				address TEXT,
				member_type TEXT NOT NULL DEFAULT 'public' CHECK (member_type IN ('student', 'faculty', 'public')),
				notes TEXT
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_members_name ON members (name COLLATE NOCASE)`)
		if err != nil {
			return errors.WithStack(err)
		}

		_, err = db.Exec(`
			CREATE TABLE transactions (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				book_id INTEGER NOT NULL REFERENCES books (id) ON DELETE CASCADE,
				member_id INTEGER NOT NULL REFERENCES members (id) ON DELETE CASCADE,
				type TEXT NOT NULL CHECK (type IN ('lend', 'return')),
				transaction_date TIMESTAMPTZ NOT NULL,
				due_date TIMESTAMPTZ NOT NULL,
				return_date TIMESTAMPTZ,
				fine_amount REAL NOT NULL DEFAULT 0 CHECK (fine_amount >= 0),
				fine_paid BOOLEAN NOT NULL DEFAULT FALSE,
				notes TEXT,
				CONSTRAINT ck_transactions_due_date CHECK (due_date >= transaction_date),
				CONSTRAINT ck_transactions_return_date CHECK (return_date IS NULL OR return_date >= transaction_date)
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_transactions_book_id ON transactions (book_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_transactions_member_id ON transactions (member_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		// Active loans.
		_, err = db.Exec(`CREATE INDEX ix_transactions_open ON transactions (due_date) WHERE type = 'lend' AND return_date IS NULL`)
		if err != nil {
			return errors.WithStack(err)
		}

		return nil
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec("DROP TABLE IF EXISTS transactions")
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec("DROP TABLE IF EXISTS members")
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec("DROP TABLE IF EXISTS books")
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
