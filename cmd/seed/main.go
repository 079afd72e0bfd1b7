// seed populates a development database with a demo cast: one
// customer, two workers and one admin, printing their ids so mktoken
// can mint matching credentials.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Bufv/NGULIKANG-FINAL/internal/config"
	"github.com/Bufv/NGULIKANG-FINAL/internal/models"
	"github.com/Bufv/NGULIKANG-FINAL/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	var ds store.DataStore
	var err error
	if cfg.DatabaseURL != "" {
		if err := store.RunMigrations(cfg.DatabaseURL); err != nil {
			fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
			os.Exit(1)
		}
		ds, err = store.NewPostgresStore(ctx, cfg.DatabaseURL)
	} else {
		ds, err = store.NewSQLiteStore(ctx, cfg.SQLitePath)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "store open failed: %v\n", err)
		os.Exit(1)
	}
	defer ds.Close()

	cast := []struct {
		name string
		role models.Role
	}{
		{"Budi", models.RoleCustomer},
		{"Agus", models.RoleWorker},
		{"Joko", models.RoleWorker},
		{"Admin", models.RoleAdmin},
	}

	for _, c := range cast {
		actor, err := ds.CreateActor(ctx, c.name, c.role, "")
		if err != nil {
			fmt.Fprintf(os.Stderr, "create %s failed: %v\n", c.name, err)
			os.Exit(1)
		}
		fmt.Printf("%-8s %-8s %s\n", c.name, c.role, actor.ID)
	}
}
