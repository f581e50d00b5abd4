package export

import (
	_ "github.com/go-sql-driver/mysql"
)

func init() {
	dialects["mysql"] = dialect{
		driver: "mysql",
		create: "CREATE TABLE IF NOT EXISTS peaks (" +
			"`ID`           BIGINT NOT NULL PRIMARY KEY AUTO_INCREMENT," +
			"`SweepID`      VARCHAR(36) NOT NULL," +
			"`WindowIndex`  INTEGER," +
			"`CenterHz`     BIGINT UNSIGNED," +
			"`LowerHz`      BIGINT UNSIGNED," +
			"`UpperHz`      BIGINT UNSIGNED," +
			"`Bin`          INTEGER," +
			"`FrequencyHz`  BIGINT UNSIGNED," +
			"`PowerDB`      DOUBLE," +
			"`ProminenceDB` DOUBLE," +
			"`WidthBins`    DOUBLE" +
			");",
		insert: "INSERT INTO peaks (" +
			"SweepID, WindowIndex, CenterHz, LowerHz, UpperHz, " +
			"Bin, FrequencyHz, PowerDB, ProminenceDB, WidthBins" +
			") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?);",
	}
}
