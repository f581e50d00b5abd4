package export

import (
	_ "github.com/mattn/go-sqlite3"
)

func init() {
	dialects["sqlite3"] = dialect{
		driver: "sqlite3",
		create: `CREATE TABLE IF NOT EXISTS peaks (
		"ID"           INTEGER NOT NULL PRIMARY KEY AUTOINCREMENT,
		"SweepID"      TEXT NOT NULL,
		"WindowIndex"  INTEGER,
		"CenterHz"     INTEGER,
		"LowerHz"      INTEGER,
		"UpperHz"      INTEGER,
		"Bin"          INTEGER,
		"FrequencyHz"  INTEGER,
		"PowerDB"      REAL,
		"ProminenceDB" REAL,
		"WidthBins"    REAL
	);`,
		insert: `INSERT INTO peaks (
		SweepID,
		WindowIndex,
		CenterHz,
		LowerHz,
		UpperHz,
		Bin,
		FrequencyHz,
		PowerDB,
		ProminenceDB,
		WidthBins
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
	}
}
