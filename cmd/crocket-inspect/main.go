// Command crocket-inspect decodes a .ctf track file and materializes its
// tracks and keyframes into a queryable SQLite database, for debugging a
// saved session offline without standing up a player.
package main

import (
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"

	_ "modernc.org/sqlite"

	"github.com/kajott/crocket/internal/ctf"
)

func main() {
	in := flag.String("in", "", "path to the .ctf file to inspect")
	out := flag.String("out", "inspect.sqlite", "path to the SQLite database to write")
	flag.Parse()

	if *in == "" {
		log.Fatalf("crocket-inspect: -in is required")
	}

	data, err := os.ReadFile(*in)
	if err != nil {
		log.Fatalf("read %s: %v", *in, err)
	}

	tracks := ctf.DecodeRaw(data)
	if tracks == nil {
		log.Fatalf("%s: not a recognizable CTF file (signature mismatch)", *in)
	}

	db, err := sql.Open("sqlite", *out)
	if err != nil {
		log.Fatalf("open %s: %v", *out, err)
	}
	defer db.Close()

	const schema = `
CREATE TABLE IF NOT EXISTS tracks (id INTEGER PRIMARY KEY, name TEXT NOT NULL);
CREATE TABLE IF NOT EXISTS keys (
	track_id INTEGER NOT NULL,
	row INTEGER NOT NULL,
	value REAL NOT NULL,
	interp INTEGER NOT NULL
);`
	if _, err := db.Exec(schema); err != nil {
		log.Fatalf("create schema: %v", err)
	}

	for i, t := range tracks {
		if _, err := db.Exec(`INSERT INTO tracks (id, name) VALUES (?, ?)`, i, t.Name); err != nil {
			log.Fatalf("insert track %s: %v", t.Name, err)
		}
		for _, k := range t.Keys {
			if _, err := db.Exec(
				`INSERT INTO keys (track_id, row, value, interp) VALUES (?, ?, ?, ?)`,
				i, k.Row, k.Value, int(k.Interp),
			); err != nil {
				log.Fatalf("insert key: %v", err)
			}
		}
		fmt.Printf("%-32s %d keys\n", t.Name, len(t.Keys))
	}

	fmt.Printf("wrote %s\n", *out)
}
