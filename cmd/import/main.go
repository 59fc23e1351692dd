package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	_ "time/tzdata"

	"petwatch/internal/config"
	"petwatch/internal/repository/sqlite"
)

// line is one exported upstream row. yolo_result may be an object or a
// JSON-encoded string.
type line struct {
	Device        string          `json:"device"`
	Image         string          `json:"image"`
	YoloResult    json.RawMessage `json:"yolo_result"`
	SheddingScore *float64        `json:"shedding_score"`
}

func main() {
	input := flag.String("input", "", "JSONL file of {device, image, yolo_result, shedding_score} rows (default stdin)")
	dbPath := flag.String("db", "", "Database path (default DB_PATH)")
	flag.Parse()

	cfg := config.Load()
	if *dbPath == "" {
		*dbPath = cfg.DatabasePath
	}

	src := os.Stdin
	if *input != "" {
		f, err := os.Open(*input)
		if err != nil {
			log.Fatalf("Failed to open input: %v", err)
		}
		defer f.Close()
		src = f
	}

	if err := os.MkdirAll(filepath.Dir(*dbPath), 0755); err != nil {
		log.Fatalf("Failed to create database directory: %v", err)
	}

	db, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	repo := sqlite.NewDetectionRepository(db, cfg.Location())
	ctx := context.Background()

	scanner := bufio.NewScanner(src)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	imported, skipped, n := 0, 0, 0
	for scanner.Scan() {
		n++
		raw := scanner.Bytes()
		if len(raw) == 0 {
			continue
		}

		var row line
		if err := json.Unmarshal(raw, &row); err != nil || row.Device == "" {
			log.Printf("Skipping line %d: not a detection row", n)
			skipped++
			continue
		}

		payload := []byte(row.YoloResult)
		var s string
		if json.Unmarshal(row.YoloResult, &s) == nil {
			payload = []byte(s)
		}

		if _, err := repo.InsertScored(ctx, row.Device, row.Image, payload, row.SheddingScore); err != nil {
			log.Printf("Skipping line %d: %v", n, err)
			skipped++
			continue
		}
		imported++
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("Failed to read input: %v", err)
	}

	fmt.Printf("Imported %d detection records into %s\n", imported, *dbPath)
	if skipped > 0 {
		fmt.Printf("Skipped %d lines\n", skipped)
	}
}
