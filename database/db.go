package database

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/mefai-dev/mefai-dev/shared"
	rqlitehttp "github.com/rqlite/rqlite-go-http"
	"github.com/rs/zerolog"
)

const (
	// SQL statements.
	createCredentialsTableSQL = "CREATE TABLE IF NOT EXISTS credentials (user TEXT PRIMARY KEY, apikey TEXT, apisecret TEXT, updatedon INTEGER)"
	upsertCredentialsSQL      = "INSERT INTO credentials(user, apikey, apisecret, updatedon) VALUES(?,?,?,?) ON CONFLICT(user) DO UPDATE SET apikey = excluded.apikey, apisecret = excluded.apisecret, updatedon = excluded.updatedon"
	findCredentialsSQL        = "SELECT apikey, apisecret FROM credentials WHERE user = ?"
)

// CredentialStore defines the requirements for storing and fetching exchange
// credentials.
type CredentialStore interface {
	// FetchCredentials fetches the stored exchange credentials for the
	// provided user. Absent credentials are not an error.
	FetchCredentials(ctx context.Context, user string) (shared.Credentials, bool, error)
	// UpsertCredentials stores the provided exchange credentials for a user,
	// replacing any previous ones.
	UpsertCredentials(ctx context.Context, user string, creds shared.Credentials) error
}

// DatabaseConfig is the configuration for the database.
type DatabaseConfig struct {
	// Endpoint represents the database connection endpoint.
	Endpoint string
	// User is the database user.
	User string
	// Pass is the database user pass.
	Pass string
	// Logger is the database logger.
	Logger *zerolog.Logger
}

// Database represents the database connection.
type Database struct {
	cfg    *DatabaseConfig
	client *rqlitehttp.Client
}

// Ensure the database implements the CredentialStore interface.
var _ CredentialStore = (*Database)(nil)

// NewDatabase initializes a new database connection.
func NewDatabase(ctx context.Context, cfg *DatabaseConfig) (*Database, error) {
	httpc := &http.Client{Timeout: time.Second * 5}
	client, err := rqlitehttp.NewClient(cfg.Endpoint, httpc)
	if err != nil {
		return nil, fmt.Errorf("creating database client: %w", err)
	}

	client.SetBasicAuth(cfg.User, cfg.Pass)

	db := &Database{
		cfg:    cfg,
		client: client,
	}

	err = db.bootstrap(ctx)
	if err != nil {
		return nil, fmt.Errorf("bootstrapping database: %w", err)
	}

	return db, nil
}

// bootstrap initializes the database.
func (db *Database) bootstrap(ctx context.Context) error {
	_, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{SQL: createCredentialsTableSQL},
	}, &rqlitehttp.ExecuteOptions{
		Transaction: true,
		Timings:     true,
	})
	if err != nil {
		return err
	}

	return nil
}

// UpsertCredentials stores the provided exchange credentials for a user,
// replacing any previous ones.
func (db *Database) UpsertCredentials(ctx context.Context, user string, creds shared.Credentials) error {
	resp, err := db.client.Execute(ctx, rqlitehttp.SQLStatements{
		{
			SQL:              upsertCredentialsSQL,
			PositionalParams: []any{user, creds.APIKey, creds.APISecret, time.Now().Unix()},
		},
	}, &rqlitehttp.ExecuteOptions{Transaction: true, Timings: true})
	if err != nil {
		return err
	}

	has, idx, errStr := resp.HasError()
	if has {
		return fmt.Errorf("upserting credentials for %s: %d -> %s", user, idx, errStr)
	}

	return nil
}

// FetchCredentials fetches the stored exchange credentials for the provided
// user. Absent credentials are not an error.
func (db *Database) FetchCredentials(ctx context.Context, user string) (shared.Credentials, bool, error) {
	resp, err := db.client.QuerySingle(ctx, findCredentialsSQL, user)
	if err != nil {
		return shared.Credentials{}, false, err
	}

	results := resp.GetQueryResultsAssoc()
	if len(results) == 0 || len(results[0].Rows) == 0 {
		return shared.Credentials{}, false, nil
	}

	row := results[0].Rows[0]
	key, keyOk := row["apikey"].(string)
	secret, secretOk := row["apisecret"].(string)
	if !keyOk || !secretOk {
		db.cfg.Logger.Error().Msgf("unexpected credentials row shape for %s: %s", user, spew.Sdump(row))
		return shared.Credentials{}, false, fmt.Errorf("unexpected credentials row shape for %s", user)
	}

	return shared.Credentials{APIKey: key, APISecret: secret}, true, nil
}
