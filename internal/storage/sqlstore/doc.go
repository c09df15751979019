// Package sqlstore implements the relational storage backend.
//
// Every kind maps to one table (states, cities, users, places, reviews,
// amenities) and the Place/Amenity link lives in place_amenity. SQL is built
// with goqu for the sqlite3 and postgres dialects and executed through
// database/sql.
//
// New, Delete, Link and Unlink only stage work. Save applies the whole stage
// in one transaction and clears it after commit; reads see staged work
// overlaid on the committed rows. Close drops the stage and the connection
// pool; the next call reconnects.
//
// SQLite connections run in WAL mode with a single open connection, the same
// settings used elsewhere for embedded SQLite.
package sqlstore
