package httpapi

import (
	"database/sql"
	"net/http"

	"github.com/SeitzDaniel/auckland-transport/internal/store"
)

func NewMux(db *sql.DB, repo store.Repository, broker ConnectionChecker) *http.ServeMux {
	mux := http.NewServeMux()
	registerHealthcheck(mux, db, broker)
	registerStops(mux, repo)
	return mux
}
