package database

import (
	"context"
	"fmt"

	"github.com/kroma-labs/sqlevent/instrument"
)

// Animal is a row of the animals table.
type Animal struct {
	ID      int64  `db:"id"      json:"id"`
	Name    string `db:"name"    json:"name"`
	Species string `db:"species" json:"species"`
}

var seed = []Animal{
	{Name: "Max", Species: "Lion"},
	{Name: "Simba", Species: "Lion"},
	{Name: "Nala", Species: "Tiger"},
}

// CreateTable creates the animals table if it doesn't exist.
func (db *DB) CreateTable(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS animals (
			id SERIAL PRIMARY KEY,
			name VARCHAR(100) UNIQUE,
			species VARCHAR(100)
		)
	`)
	return err
}

// Seed inserts the sample animals.
func (db *DB) Seed(ctx context.Context) error {
	for _, a := range seed {
		_, err := db.ExecInsert(ctx,
			"INSERT INTO animals (name, species) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			"Animal Create",
			instrument.Bind{Column: "name", Value: a.Name},
			instrument.Bind{Column: "species", Value: a.Species},
		)
		if err != nil {
			return fmt.Errorf("failed to insert %s: %w", a.Name, err)
		}
	}
	return nil
}

// BySpecies loads the animals of one species.
func (db *DB) BySpecies(ctx context.Context, species string) ([]Animal, error) {
	var animals []Animal
	err := db.SelectContext(ctx, &animals,
		"SELECT id, name, species FROM animals WHERE species = $1 ORDER BY id", species)
	if err != nil {
		return nil, err
	}
	return animals, nil
}

// Count returns the number of animals per species.
func (db *DB) Count(ctx context.Context) (map[string]int64, error) {
	res, err := db.ExecQuery(ctx,
		"SELECT species, count(*) AS n FROM animals GROUP BY species", "Animal Count")
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int64, res.Len())
	for _, row := range res.Rows {
		species, _ := row["species"].(string)
		n, _ := row["n"].(int64)
		counts[species] = n
	}
	return counts, nil
}

// Reclassify moves every animal of one species to another in a transaction.
func (db *DB) Reclassify(ctx context.Context, from, to string) (n int64, err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	n, err = tx.ExecUpdate(ctx, "UPDATE animals SET species = $1 WHERE species = $2", "Animal Update",
		instrument.Bind{Column: "species", Value: to},
		instrument.Bind{Column: "from_species", Value: from},
	)
	if err != nil {
		return 0, err
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return n, nil
}

// Remove deletes an animal by name.
func (db *DB) Remove(ctx context.Context, name string) (int64, error) {
	return db.ExecDelete(ctx, "DELETE FROM animals WHERE name = $1", "Animal Destroy",
		instrument.Bind{Column: "name", Value: name},
	)
}

// Run executes one round of the demo workload.
func (db *DB) Run(ctx context.Context) error {
	if err := db.Seed(ctx); err != nil {
		return err
	}

	lions, err := db.BySpecies(ctx, "Lion")
	if err != nil {
		return err
	}

	moved, err := db.Reclassify(ctx, "Tiger", "Panthera tigris")
	if err != nil {
		return err
	}

	counts, err := db.Count(ctx)
	if err != nil {
		return err
	}

	removed, err := db.Remove(ctx, "Nala")
	if err != nil {
		return err
	}

	db.logger.Info().
		Int("lions", len(lions)).
		Int64("reclassified", moved).
		Int64("removed", removed).
		Interface("counts", counts).
		Msg("demo workload completed")
	return nil
}
