package credstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/eprintd/authcore/authz"
	"github.com/eprintd/authcore/taxonomy"
)

// querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres implements Store on a PostgreSQL database via the pgx stdlib
// driver.
type Postgres struct {
	db *sql.DB
}

// NewPostgres wraps an existing connection pool.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// OpenPostgres opens a pool for the given connection URI and verifies
// connectivity.
func OpenPostgres(ctx context.Context, uri string) (*Postgres, error) {
	db, err := sql.Open("pgx", uri)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return &Postgres{db: db}, nil
}

// Close releases the underlying pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

const findAccountColumns = `u.id, n.nickname, u.email, pw.storage,
	       u.flag_approved, u.flag_deleted, u.flag_banned, u.flag_email_verified,
	       u.flag_edit_users, u.flag_edit_system, u.joined_at`

func (p *Postgres) FindAccountByIdentifier(ctx context.Context, identifier string) (*AccountRecord, error) {
	query := `SELECT ` + findAccountColumns + `
		FROM users u
		JOIN nicknames n ON n.user_id = u.id AND n.is_primary
		JOIN passwords pw ON pw.user_id = u.id
		WHERE u.email = $1 OR n.nickname = $1`

	return p.scanAccount(p.db.QueryRowContext(ctx, query, identifier))
}

func (p *Postgres) FindAccountByID(ctx context.Context, userID string) (*AccountRecord, error) {
	query := `SELECT ` + findAccountColumns + `
		FROM users u
		JOIN nicknames n ON n.user_id = u.id AND n.is_primary
		JOIN passwords pw ON pw.user_id = u.id
		WHERE u.id = $1`

	return p.scanAccount(p.db.QueryRowContext(ctx, query, userID))
}

func (p *Postgres) scanAccount(row *sql.Row) (*AccountRecord, error) {
	rec := &AccountRecord{}
	err := row.Scan(
		&rec.ID, &rec.Username, &rec.Email, &rec.PasswordHash,
		&rec.Flags.Approved, &rec.Flags.Deleted, &rec.Flags.Banned, &rec.Flags.EmailVerified,
		&rec.Flags.EditUsers, &rec.Flags.EditSystem, &rec.JoinedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return rec, nil
}

func (p *Postgres) FindProfile(ctx context.Context, userID string) (*ProfileRecord, error) {
	query := `SELECT user_id, forename, surname, suffix, affiliation, country, rank
		FROM profiles
		WHERE user_id = $1`

	pr := &ProfileRecord{}
	err := p.db.QueryRowContext(ctx, query, userID).Scan(
		&pr.UserID, &pr.Forename, &pr.Surname, &pr.Suffix,
		&pr.Affiliation, &pr.Country, &pr.Rank,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return pr, nil
}

func (p *Postgres) FindEndorsements(ctx context.Context, userID string) ([]authz.Endorsement, error) {
	query := `SELECT archive, subject_class, points, type, COALESCE(endorser_id, ''), valid, issued_at
		FROM endorsements
		WHERE endorsee_id = $1
		ORDER BY issued_at`

	rows, err := p.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []authz.Endorsement
	for rows.Next() {
		var (
			e       authz.Endorsement
			archive string
			sc      string
			typ     string
		)
		if err := rows.Scan(&archive, &sc, &e.Points, &typ, &e.EndorserID, &e.Valid, &e.IssuedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		e.Category = taxonomy.Category{Archive: archive, SubjectClass: sc}
		e.Type = authz.Type(typ)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out, nil
}

func (p *Postgres) CreateAccount(ctx context.Context, in NewAccount) (*AccountRecord, error) {
	rec := &AccountRecord{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: in.PasswordHash,
		Flags:        in.Flags,
		JoinedAt:     time.Now().UTC(),
	}

	err := p.withTx(ctx, func(tx querier) error {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO users (id, email, flag_approved, flag_deleted, flag_banned,
				flag_email_verified, flag_edit_users, flag_edit_system, joined_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			rec.ID, rec.Email, rec.Flags.Approved, rec.Flags.Deleted, rec.Flags.Banned,
			rec.Flags.EmailVerified, rec.Flags.EditUsers, rec.Flags.EditSystem, rec.JoinedAt)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO nicknames (user_id, nickname, is_primary) VALUES ($1, $2, TRUE)`,
			rec.ID, rec.Username)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO passwords (user_id, storage) VALUES ($1, $2)`,
			rec.ID, rec.PasswordHash)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			`INSERT INTO profiles (user_id, forename, surname, suffix, affiliation, country, rank)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			rec.ID, in.Profile.Forename, in.Profile.Surname, in.Profile.Suffix,
			in.Profile.Affiliation, in.Profile.Country, in.Profile.Rank)
		if err != nil {
			return err
		}

		for _, e := range in.Endorsements {
			var endorser any
			if e.EndorserID != "" {
				endorser = e.EndorserID
			}
			issued := e.IssuedAt
			if issued.IsZero() {
				issued = rec.JoinedAt
			}
			_, err = tx.ExecContext(ctx,
				`INSERT INTO endorsements (endorsee_id, endorser_id, archive, subject_class,
					points, type, valid, issued_at)
				 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
				rec.ID, endorser, e.Category.Archive, e.Category.SubjectClass,
				e.Points, string(e.Type), e.Valid, issued)
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %v", ErrDuplicate, err)
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return rec, nil
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on error or panic.
func (p *Postgres) withTx(ctx context.Context, fn func(tx querier) error) (err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			_ = tx.Rollback()
			panic(r)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(tx)
	return err
}

// isUniqueViolation matches PostgreSQL error 23505 without depending on
// driver error types.
func isUniqueViolation(err error) bool {
	type coder interface{ SQLState() string }
	var c coder
	if errors.As(err, &c) {
		return c.SQLState() == "23505"
	}
	return false
}
