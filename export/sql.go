package export

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/golang/glog"

	"github.com/chzchzchz/sweeprx/sweep"
)

const sqlPeakCountInfo = 1000

type dialect struct {
	driver string
	create string
	insert string
}

// SQL stores every peak as a row in the peaks table.
type SQL struct {
	DB *sql.DB
	ID string

	dialect dialect
}

// OpenSQL opens a database with one of the registered drivers, sqlite3 or mysql.
func OpenSQL(driver, dsn, id string) (*SQL, error) {
	d, ok := dialects[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	return &SQL{DB: db, ID: id, dialect: d}, nil
}

var dialects = map[string]dialect{}

func (s *SQL) Close() error { return s.DB.Close() }

func (s *SQL) Write(ctx context.Context, results <-chan sweep.WindowResult) error {
	if _, err := s.DB.ExecContext(ctx, s.dialect.create); err != nil {
		return fmt.Errorf("unable to create table: %w", err)
	}
	counts := map[string]int{
		"error":   0,
		"success": 0,
		"total":   0,
	}
	for res := range results {
		counts["total"] += len(res.Peaks)
		if err := s.insert(ctx, res); err != nil {
			counts["error"] += len(res.Peaks)
			glog.Warningf("error storing window %d in %s: %s", res.Window.Index, s.dialect.driver, err)
			continue
		}
		counts["success"] += len(res.Peaks)
		if counts["total"]/sqlPeakCountInfo != (counts["total"]-len(res.Peaks))/sqlPeakCountInfo {
			glog.Infof("peak export counts: %+v", counts)
		}
	}
	return nil
}

// insert stores a window's peaks in one transaction.
func (s *SQL) insert(ctx context.Context, res sweep.WindowResult) error {
	if len(res.Peaks) == 0 {
		return nil
	}
	tx, err := s.DB.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	stmt, err := tx.Prepare(s.dialect.insert)
	if err != nil {
		return err
	}
	defer stmt.Close()
	w := res.Window
	for _, p := range res.Peaks {
		if _, err := stmt.Exec(s.ID, w.Index, w.Center, w.Lower, w.Upper, p.Bin, p.Frequency, p.Power, p.Prominence, p.Width); err != nil {
			return err
		}
	}
	return tx.Commit()
}
