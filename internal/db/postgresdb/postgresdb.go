// Package postgresdb provides a PostgreSQL-based implementation of the storage
// for users and their job applications.
// It supports transactional operations and row locking for read-modify-write sequences.
package postgresdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/patric-chuzhbe/jobtracker/internal/apperror"
	"github.com/patric-chuzhbe/jobtracker/internal/jobapplication"
	"github.com/patric-chuzhbe/jobtracker/internal/user"
)

const uniqueViolationCode = "23505"

const selectApplications = `
	SELECT
		job_applications.id,
		job_applications.user_id,
		users.auth_subject,
		job_applications.job_title,
		job_applications.company_name,
		job_applications.location,
		job_applications.status,
		job_applications.job_post_url,
		job_applications.resume_key,
		job_applications.cover_letter_key,
		job_applications.application_date,
		job_applications.created_at,
		job_applications.updated_at
	FROM job_applications
		JOIN users ON users.id = job_applications.user_id
`

// PostgresDB is a PostgreSQL-backed implementation of the job tracker storage.
// It handles all persistence operations via a PostgreSQL database connection.
type PostgresDB struct {
	database          *sql.DB
	connectionTimeout time.Duration
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type scanner interface {
	Scan(dest ...any) error
}

type initOptions struct {
	DBPreReset bool
}

// InitOption defines a functional option for configuring database initialization.
type InitOption func(*initOptions)

// WithDBPreReset enables or disables resetting the database schema before migration.
// It can be used for test setups or development purposes.
func WithDBPreReset(value bool) InitOption {
	return func(options *initOptions) {
		options.DBPreReset = value
	}
}

// New establishes a connection to the PostgreSQL database,
// runs schema migrations, and returns a configured PostgresDB instance.
// Optionally accepts initialization options, such as WithDBPreReset.
func New(
	ctx context.Context,
	databaseDSN string,
	connectionTimeout time.Duration,
	migrationsDir string,
	optionsProto ...InitOption,
) (*PostgresDB, error) {
	options := &initOptions{
		DBPreReset: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	database, err := sql.Open("pgx", databaseDSN)
	if err != nil {
		return nil, err
	}

	result := newWithDB(database, connectionTimeout)

	if options.DBPreReset {
		if err := result.resetDB(ctx); err != nil {
			return nil,
				fmt.Errorf(
					"in internal/db/postgresdb/postgresdb.go/New(): error while `result.resetDB()` calling: %w",
					err,
				)
		}
	}

	if err := goose.SetDialect("postgres"); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.SetDialect()` calling: %w",
				err,
			)
	}

	if err := goose.UpContext(ctx, result.database, migrationsDir); err != nil {
		return nil,
			fmt.Errorf(
				"in internal/db/postgresdb/postgresdb.go/New(): error while `goose.UpContext()` calling: %w",
				err,
			)
	}

	return result, nil
}

func newWithDB(database *sql.DB, connectionTimeout time.Duration) *PostgresDB {
	return &PostgresDB{
		database:          database,
		connectionTimeout: connectionTimeout,
	}
}

func (db *PostgresDB) queryerFor(transaction *sql.Tx) queryer {
	if transaction == nil {
		return db.database
	}

	return transaction
}

func (db *PostgresDB) executorFor(transaction *sql.Tx) executor {
	if transaction == nil {
		return db.database
	}

	return transaction
}

// CreateUser inserts a new user record into the database.
// Returns the created user ID, or apperror.ErrUserAlreadyExists when the
// subject or the email is already taken.
func (db *PostgresDB) CreateUser(ctx context.Context, usr *user.User, transaction *sql.Tx) (string, error) {
	row := db.queryerFor(transaction).QueryRowContext(
		ctx,
		`
			INSERT INTO users (auth_subject, email, name, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING id
		`,
		usr.Subject,
		usr.Email,
		usr.Name,
		usr.CreatedAt,
		usr.UpdatedAt,
	)
	var userIDFromDB string
	err := row.Scan(&userIDFromDB)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return "", apperror.ErrUserAlreadyExists
		}
		return "", err
	}

	return userIDFromDB, nil
}

// GetUserBySubject fetches the user bound to the given identity subject.
// The boolean result is false when there is no such user.
func (db *PostgresDB) GetUserBySubject(
	ctx context.Context,
	subject string,
	transaction *sql.Tx,
) (*user.User, bool, error) {
	row := db.queryerFor(transaction).QueryRowContext(
		ctx,
		`SELECT id, auth_subject, email, name, created_at, updated_at FROM users WHERE auth_subject = $1`,
		subject,
	)

	var usr user.User
	err := row.Scan(&usr.ID, &usr.Subject, &usr.Email, &usr.Name, &usr.CreatedAt, &usr.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return &usr, true, nil
}

// GetUserApplications returns every application owned by userID, oldest first.
func (db *PostgresDB) GetUserApplications(
	ctx context.Context,
	userID string,
	transaction *sql.Tx,
) ([]*jobapplication.JobApplication, error) {
	rows, err := db.queryerFor(transaction).QueryContext(
		ctx,
		selectApplications+`
			WHERE job_applications.user_id = $1
			ORDER BY job_applications.created_at, job_applications.id
		`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	result := []*jobapplication.JobApplication{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, app)
	}

	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return result, nil
}

// GetApplicationByID loads a single application. A malformed identifier is
// reported the same way as a missing one.
func (db *PostgresDB) GetApplicationByID(
	ctx context.Context,
	applicationID string,
	transaction *sql.Tx,
) (*jobapplication.JobApplication, bool, error) {
	return db.getApplication(ctx, applicationID, transaction, "")
}

// GetApplicationByIDForUpdate is GetApplicationByID that also locks the row
// until the transaction ends.
func (db *PostgresDB) GetApplicationByIDForUpdate(
	ctx context.Context,
	applicationID string,
	transaction *sql.Tx,
) (*jobapplication.JobApplication, bool, error) {
	return db.getApplication(ctx, applicationID, transaction, " FOR UPDATE OF job_applications")
}

func (db *PostgresDB) getApplication(
	ctx context.Context,
	applicationID string,
	transaction *sql.Tx,
	lockClause string,
) (*jobapplication.JobApplication, bool, error) {
	if _, err := uuid.Parse(applicationID); err != nil {
		return nil, false, nil
	}

	row := db.queryerFor(transaction).QueryRowContext(
		ctx,
		selectApplications+` WHERE job_applications.id = $1`+lockClause,
		applicationID,
	)

	app, err := scanApplication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, err
	}

	return app, true, nil
}

// InsertApplication stores a new application and returns its identifier.
func (db *PostgresDB) InsertApplication(
	ctx context.Context,
	app *jobapplication.JobApplication,
	transaction *sql.Tx,
) (string, error) {
	row := db.queryerFor(transaction).QueryRowContext(
		ctx,
		`
			INSERT INTO job_applications (
				user_id,
				job_title,
				company_name,
				location,
				status,
				job_post_url,
				resume_key,
				cover_letter_key,
				application_date,
				created_at,
				updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			RETURNING id
		`,
		app.UserID,
		app.JobTitle,
		app.CompanyName,
		nullString(app.Location),
		string(app.Status),
		app.JobPostURL,
		nullString(app.ResumeKey),
		nullString(app.CoverLetterKey),
		nullTime(app.ApplicationDate),
		app.CreatedAt,
		app.UpdatedAt,
	)

	var applicationID string
	if err := row.Scan(&applicationID); err != nil {
		return "", err
	}

	return applicationID, nil
}

// UpdateApplication overwrites the mutable columns of an application.
// The owner and the creation timestamp are never written.
func (db *PostgresDB) UpdateApplication(
	ctx context.Context,
	app *jobapplication.JobApplication,
	transaction *sql.Tx,
) error {
	result, err := db.executorFor(transaction).ExecContext(
		ctx,
		`
			UPDATE job_applications
				SET
					job_title = $2,
					company_name = $3,
					location = $4,
					status = $5,
					job_post_url = $6,
					resume_key = $7,
					cover_letter_key = $8,
					application_date = $9,
					updated_at = $10
				WHERE id = $1
		`,
		app.ID,
		app.JobTitle,
		app.CompanyName,
		nullString(app.Location),
		string(app.Status),
		app.JobPostURL,
		nullString(app.ResumeKey),
		nullString(app.CoverLetterKey),
		nullTime(app.ApplicationDate),
		app.UpdatedAt,
	)
	if err != nil {
		return err
	}

	return requireAffected(result)
}

// DeleteApplication removes an application permanently.
func (db *PostgresDB) DeleteApplication(ctx context.Context, applicationID string, transaction *sql.Tx) error {
	result, err := db.executorFor(transaction).ExecContext(
		ctx,
		`DELETE FROM job_applications WHERE id = $1`,
		applicationID,
	)
	if err != nil {
		return err
	}

	return requireAffected(result)
}

// GetNumberOfUsers returns how many users are registered.
func (db *PostgresDB) GetNumberOfUsers(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM users`)
}

// GetNumberOfApplications returns how many applications are stored.
func (db *PostgresDB) GetNumberOfApplications(ctx context.Context) (int64, error) {
	return db.count(ctx, `SELECT COUNT(*) FROM job_applications`)
}

func (db *PostgresDB) count(ctx context.Context, query string) (int64, error) {
	var result int64
	if err := db.database.QueryRowContext(ctx, query).Scan(&result); err != nil {
		return 0, err
	}

	return result, nil
}

// CommitTransaction commits the given SQL transaction.
// Returns an error if the commit operation fails.
func (db *PostgresDB) CommitTransaction(transaction *sql.Tx) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic occurred while committing transaction: %v", r)
		}
	}()

	return transaction.Commit()
}

// RollbackTransaction rolls back the given SQL transaction.
// Rolling back an already finished transaction is not an error.
func (db *PostgresDB) RollbackTransaction(transaction *sql.Tx) error {
	err := transaction.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}

	return err
}

// BeginTransaction starts a new SQL transaction and returns it.
// The caller is responsible for committing or rolling it back.
func (db *PostgresDB) BeginTransaction() (*sql.Tx, error) {
	return db.database.Begin()
}

// Ping verifies connectivity with the PostgreSQL database within the configured timeout.
func (db *PostgresDB) Ping(ctx context.Context) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, db.connectionTimeout)
	defer cancel()

	return db.database.PingContext(ctxWithTimeout)
}

// Close closes the database connection and releases any associated resources.
func (db *PostgresDB) Close() error {
	return db.database.Close()
}

func (db *PostgresDB) resetDB(ctx context.Context) error {
	_, err := db.database.ExecContext(
		ctx,
		`
			DO $$
			DECLARE
				r RECORD;
			BEGIN
				FOR r IN (SELECT tablename FROM pg_tables WHERE schemaname = 'public') LOOP
					EXECUTE 'DROP TABLE IF EXISTS ' || quote_ident(r.tablename) || ' CASCADE';
				END LOOP;
			END $$;
		`,
	)
	if err != nil {
		return fmt.Errorf(
			"in internal/db/postgresdb/postgresdb.go/resetDB(): error while `db.database.ExecContext()` calling: %w",
			err,
		)
	}
	return nil
}

func scanApplication(row scanner) (*jobapplication.JobApplication, error) {
	var (
		app             jobapplication.JobApplication
		status          string
		location        sql.NullString
		resumeKey       sql.NullString
		coverLetterKey  sql.NullString
		applicationDate sql.NullTime
	)

	err := row.Scan(
		&app.ID,
		&app.UserID,
		&app.OwnerSubject,
		&app.JobTitle,
		&app.CompanyName,
		&location,
		&status,
		&app.JobPostURL,
		&resumeKey,
		&coverLetterKey,
		&applicationDate,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	app.Status = jobapplication.Status(status)
	app.Location = location.String
	app.ResumeKey = resumeKey.String
	app.CoverLetterKey = coverLetterKey.String
	if applicationDate.Valid {
		appliedAt := applicationDate.Time
		app.ApplicationDate = &appliedAt
	}

	return &app, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return apperror.ErrApplicationNotFound
	}

	return nil
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}

func nullTime(value *time.Time) sql.NullTime {
	if value == nil {
		return sql.NullTime{}
	}

	return sql.NullTime{Time: *value, Valid: true}
}
