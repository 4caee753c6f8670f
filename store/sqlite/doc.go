// Package sqlite stores docchat session histories in a SQLite file.
//
//	hs, err := sqlite.New(ctx, sqlite.Options{Path: "./history.db"})
//	if err != nil {
//		return err
//	}
//	defer hs.Close()
//	h := hs.History(sessionID)
//
// All sessions share one table; rows are ordered by their autoincrement id.
package sqlite
