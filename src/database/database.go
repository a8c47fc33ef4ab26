package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/cachin/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateEmailMessages() // Migration for columns added after the initial schema

	createTableStatement := `
	CREATE TABLE IF NOT EXISTS sources (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		UNIQUE(user_id, name)
	);

	CREATE TABLE IF NOT EXISTS email_messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		message_id TEXT NOT NULL,
		subject TEXT NOT NULL DEFAULT '',
		from_address TEXT NOT NULL DEFAULT '',
		to_addresses TEXT NOT NULL DEFAULT '',
		date TIMESTAMP,
		raw_eml BLOB,
		downloaded_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		processed_at TIMESTAMP,
		processing_error TEXT NOT NULL DEFAULT '',
		confirmation_link TEXT NOT NULL DEFAULT '',
		confirmation_fetched_at TIMESTAMP,
		UNIQUE(user_id, message_id)
	);

	CREATE TABLE IF NOT EXISTS transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		date TIMESTAMP NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		source_id INTEGER,
		comments TEXT NOT NULL DEFAULT '',
		external_id TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'confirmed',
		FOREIGN KEY(source_id) REFERENCES sources(id)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_transactions_owner_external
		ON transactions(user_id, external_id) WHERE external_id != '';

	CREATE TABLE IF NOT EXISTS stocks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		date TIMESTAMP NOT NULL,
		symbol TEXT NOT NULL,
		bought BOOLEAN NOT NULL,
		quantity TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		external_id TEXT NOT NULL DEFAULT '',
		transaction_id INTEGER,
		FOREIGN KEY(transaction_id) REFERENCES transactions(id)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_stocks_owner_external
		ON stocks(user_id, external_id) WHERE external_id != '';

	CREATE TABLE IF NOT EXISTS pending_transactions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		external_id TEXT NOT NULL DEFAULT '',
		payload TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT 'duplicate',
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err = DB.Exec(createTableStatement)
	if err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// migrateEmailMessages adds the forwarding-confirmation columns to databases
// created before they existed.
func migrateEmailMessages() {
	var tableName string
	err := DB.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='email_messages'").Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			if logger.L != nil {
				logger.L.Info("'email_messages' table does not exist, no migration needed as table will be created.")
			} else {
				stdlog.Println("'email_messages' table does not exist, no migration needed as table will be created.")
			}
			return
		}
		if logger.L != nil {
			logger.L.Error("Error checking for 'email_messages' table", "error", err)
		} else {
			stdlog.Printf("Error checking for 'email_messages' table: %v", err)
		}
		return
	}

	rows, err := DB.Query("PRAGMA table_info(email_messages)")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema for 'email_messages'", "error", err)
		} else {
			stdlog.Printf("Error querying table schema for 'email_messages': %v", err)
		}
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
			if logger.L != nil {
				logger.L.Error("Error scanning column info for 'email_messages'", "error", err)
			} else {
				stdlog.Printf("Error scanning column info for 'email_messages': %v", err)
			}
			return
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info for 'email_messages'", "error", err)
		} else {
			stdlog.Printf("Error iterating over column info for 'email_messages': %v", err)
		}
		return
	}

	if _, ok := columnExists["confirmation_link"]; !ok {
		_, err := DB.Exec("ALTER TABLE email_messages ADD COLUMN confirmation_link TEXT NOT NULL DEFAULT ''")
		if err != nil {
			logger.L.Error("Error adding 'confirmation_link' column to 'email_messages' table", "error", err)
		} else {
			logger.L.Info("Added 'confirmation_link' column to 'email_messages' table")
		}
	}
	if _, ok := columnExists["confirmation_fetched_at"]; !ok {
		_, err := DB.Exec("ALTER TABLE email_messages ADD COLUMN confirmation_fetched_at TIMESTAMP")
		if err != nil {
			logger.L.Error("Error adding 'confirmation_fetched_at' column to 'email_messages' table", "error", err)
		} else {
			logger.L.Info("Added 'confirmation_fetched_at' column to 'email_messages' table")
		}
	}
}
