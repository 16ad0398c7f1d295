package load

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/marcboeker/go-duckdb"
	"github.com/rasnes/healthcare-etl/config"
	"github.com/rasnes/healthcare-etl/template"
)

const (
	DailyCasesTable  = "daily_cases"
	VaccinationTable = "vaccination_data"
)

// ErrConnection means the store could not be reached at startup.
var ErrConnection = errors.New("store connection failed")

// Store is the explicit handle every component receives; there is no
// package-level connection.
type Store struct {
	Logger    *slog.Logger
	DB        *sql.DB
	Connector driver.Connector
	Driver    string
	DBType    string
}

// NewStore opens and pings the configured store.
func NewStore(ctx context.Context, config *config.Config, logger *slog.Logger) (*Store, error) {
	var (
		store *Store
		err   error
	)
	switch strings.ToLower(config.Store.Driver) {
	case "", "duckdb":
		store, err = newDuckDB(config, logger)
	case "mysql":
		store, err = newMySQL(config, logger)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", config.Store.Driver)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}

	if err := store.DB.PingContext(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", ErrConnection, store.DBType, err)
	}

	return store, nil
}

func newDuckDB(config *config.Config, logger *slog.Logger) (*Store, error) {
	var path string
	var dbType string
	if strings.HasPrefix(config.Store.Path, "md:") {
		motherduckToken := os.Getenv("MOTHERDUCK_TOKEN")
		if motherduckToken == "" {
			return nil, fmt.Errorf("MOTHERDUCK_TOKEN env variable is not set")
		}
		path = fmt.Sprintf("%s?motherduck_token=%s", config.Store.Path, motherduckToken)
		dbType = ":md:"
	} else if config.Store.Path == "" || config.Store.Path == ":memory:" {
		path = ""
		dbType = ":memory:"
	} else {
		path = config.Store.Path
		dbType = path
	}

	var connInitFn func(driver.ExecerContext) error
	if len(config.Store.ConnInitFnQueries) > 0 {
		connInitFn = func(exec driver.ExecerContext) error {
			for _, path := range config.Store.ConnInitFnQueries {
				query, err := readQuery(path)
				if err != nil {
					return err
				}

				_, err = exec.ExecContext(context.Background(), string(query), nil)
				if err != nil {
					return fmt.Errorf("failed to execute query from file %s: %w", path, err)
				}
			}
			return nil
		}
		logger.Debug(fmt.Sprintf("Connection initialization queries: %v", config.Store.ConnInitFnQueries))
	}

	connector, err := duckdb.NewConnector(path, connInitFn)
	if err != nil {
		return nil, err
	}

	db := sql.OpenDB(connector)

	switch dbType {
	case ":memory:":
		logger.Info("Connected to DuckDB in-memory database")
	case ":md:":
		logger.Info("Connected to MotherDuck database")
	default:
		logger.Info(fmt.Sprintf("Connected to local DuckDB database at %s", dbType))
	}

	return &Store{
		Logger:    logger,
		DB:        db,
		Connector: connector,
		Driver:    "duckdb",
		DBType:    dbType,
	}, nil
}

func newMySQL(config *config.Config, logger *slog.Logger) (*Store, error) {
	password := os.Getenv("MYSQL_PASSWORD")
	if password == "" {
		password = config.Store.Password
	}

	port := config.Store.Port
	if port == 0 {
		port = 3306
	}

	cfg := mysql.NewConfig()
	cfg.User = config.Store.User
	cfg.Passwd = password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(config.Store.Host, strconv.Itoa(port))
	cfg.DBName = config.Store.Database
	cfg.ParseTime = true

	if len(config.Store.ConnInitFnQueries) > 0 {
		logger.Warn("conn_init_fn_queries is only supported for duckdb; ignoring")
	}

	connector, err := mysql.NewConnector(cfg)
	if err != nil {
		return nil, err
	}

	logger.Info(fmt.Sprintf("Connecting to MySQL database %s at %s", cfg.DBName, cfg.Addr))

	return &Store{
		Logger:    logger,
		DB:        sql.OpenDB(connector),
		Connector: connector,
		Driver:    "mysql",
		DBType:    "mysql://" + cfg.Addr + "/" + cfg.DBName,
	}, nil
}

func readQuery(path string) ([]byte, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}

	query, err := io.ReadAll(file)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file %s: %w", path, err)
	}
	return query, nil
}

func (s *Store) Close() {
	s.DB.Close()
	if closer, ok := s.Connector.(io.Closer); ok {
		closer.Close()
	}
}

// CreateTables renders the schema template with the table names and runs
// each statement. The DDL is expected to be idempotent.
func (s *Store) CreateTables(ctx context.Context, schemaPath string) error {
	script, err := template.ExecuteSqlTemplate(schemaPath, map[string]any{
		"DailyCasesTable":  DailyCasesTable,
		"VaccinationTable": VaccinationTable,
	})
	if err != nil {
		return fmt.Errorf("failed to render schema %s: %w", schemaPath, err)
	}

	for _, statement := range splitStatements(script) {
		if _, err := s.DB.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	s.Logger.Debug("Tables ensured", "schema", schemaPath)
	return nil
}

// splitStatements splits a script on ';'. Drivers such as MySQL reject
// multi-statement strings by default.
func splitStatements(script string) []string {
	var statements []string
	for _, part := range strings.Split(script, ";") {
		if statement := strings.TrimSpace(part); statement != "" {
			statements = append(statements, statement)
		}
	}
	return statements
}

func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, "SHOW TABLES")
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var tables []string
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}
		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		tables = append(tables, asString(values[0]))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	return tables, nil
}

// DropTables drops both tables in one transaction and returns the names it
// dropped.
func (s *Store) DropTables(ctx context.Context) ([]string, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}

	tables := []string{DailyCasesTable, VaccinationTable}
	for _, table := range tables {
		if _, err := tx.ExecContext(ctx, "DROP TABLE IF EXISTS "+table); err != nil {
			s.Logger.Error("Error while dropping tables", "table", table, "error", err)
			_ = tx.Rollback()
			return nil, fmt.Errorf("failed to drop table %s: %w", table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit drop: %w", err)
	}
	return tables, nil
}

func (s *Store) RunQuery(query string) error {
	_, err := s.DB.ExecContext(context.Background(), query)
	if err != nil {
		return fmt.Errorf("failed to execute query: %w", err)
	}
	return nil
}

// GetQueryResults executes a query and returns the results as a map of column names to slices of values
func (s *Store) GetQueryResults(query string, args ...any) (map[string][]string, error) {
	rows, err := s.DB.QueryContext(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	results := make(map[string][]string)
	for _, col := range columns {
		results[col] = []string{}
	}

	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		for i, col := range columns {
			results[col] = append(results[col], asString(values[i]))
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}

	return results, nil
}

func asString(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return fmt.Sprintf("%v", v)
}
