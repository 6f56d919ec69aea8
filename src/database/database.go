package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/hdbfolio/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	logger.L.Info("Checking database schema", "databasePath", databasePath)

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS resale_prices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		month TEXT NOT NULL,
		town TEXT NOT NULL,
		flat_type TEXT NOT NULL,
		block TEXT,
		street_name TEXT,
		storey_range TEXT,
		floor_area_sqm REAL NOT NULL,
		flat_model TEXT,
		lease_commence_date INTEGER,
		resale_price REAL NOT NULL,
		remaining_lease_years REAL
	);
	CREATE INDEX IF NOT EXISTS idx_resale_prices_month ON resale_prices(month);
	CREATE INDEX IF NOT EXISTS idx_resale_prices_town ON resale_prices(town);
	CREATE INDEX IF NOT EXISTS idx_resale_prices_flat_type ON resale_prices(flat_type);

	CREATE TABLE IF NOT EXISTS completion_status (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		financial_year INTEGER NOT NULL,
		town_or_estate TEXT NOT NULL,
		status TEXT NOT NULL,
		no_of_units INTEGER
	);
	CREATE INDEX IF NOT EXISTS idx_completion_status_year ON completion_status(financial_year);
	CREATE INDEX IF NOT EXISTS idx_completion_status_town ON completion_status(town_or_estate);
	`

	if _, err = DB.Exec(createTableStatement); err != nil {
		logger.L.Error("failed to create tables", "error", err)
		stdlog.Fatalf("failed to create tables: %v", err)
	}

	migrateResalePrices()

	logger.L.Info("Database tables ensured/created.")
}

// migrateResalePrices adds columns introduced after the first schema version
// to databases created before them.
func migrateResalePrices() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='resale_prices'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			logger.L.Info("'resale_prices' table does not exist, no migration needed as table will be created.")
			return
		}
		logger.L.Error("Error checking for 'resale_prices' table", "error", err)
		return
	}

	rows, err := DB.Query("PRAGMA table_info(resale_prices)")
	if err != nil {
		logger.L.Error("Error querying table schema for 'resale_prices'", "error", err)
		return
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			logger.L.Error("Error scanning column info for 'resale_prices'", "error", err)
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		logger.L.Error("Error iterating over column info for 'resale_prices'", "error", err)
		return
	}

	if _, ok := columnExists["remaining_lease_years"]; !ok {
		_, err := DB.Exec("ALTER TABLE resale_prices ADD COLUMN remaining_lease_years REAL")
		if err != nil {
			logger.L.Error("Error adding 'remaining_lease_years' column to 'resale_prices' table", "error", err)
		} else {
			logger.L.Info("Added 'remaining_lease_years' column to 'resale_prices' table")
		}
	}
}
