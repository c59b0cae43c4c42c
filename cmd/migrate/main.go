package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"detectboard/internal/config"
	"detectboard/internal/repository/sqlite"
)

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: migrate [-db path] <up|down|version|force N>\n")
	flag.PrintDefaults()
}

func main() {
	cfg := config.Load()
	dbPath := flag.String("db", cfg.DatabasePath, "Database path")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}

	// Ensure database directory exists
	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := sqlite.Open(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	migrations := sqlite.Migrations()

	switch flag.Arg(0) {
	case "up":
		if err := db.MigrateUp(migrations); err != nil {
			log.Fatalf("❌ %v", err)
		}
		fmt.Println("✅ Database is up to date")

	case "down":
		if err := db.MigrateDown(migrations); err != nil {
			log.Fatalf("❌ %v", err)
		}
		fmt.Println("✅ Rolled back one migration")

	case "version":
		version, dirty, err := db.MigrateVersion(migrations)
		if err != nil {
			log.Fatalf("❌ %v", err)
		}
		fmt.Printf("Version: %d (dirty: %t)\n", version, dirty)

	case "force":
		if flag.NArg() < 2 {
			log.Fatalf("force requires a version number")
		}
		version, err := strconv.Atoi(flag.Arg(1))
		if err != nil {
			log.Fatalf("Invalid version %q: %v", flag.Arg(1), err)
		}
		if err := db.MigrateForce(migrations, version); err != nil {
			log.Fatalf("❌ %v", err)
		}
		fmt.Printf("✅ Forced version %d\n", version)

	default:
		usage()
		os.Exit(2)
	}
}
