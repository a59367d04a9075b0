// Command minibasectl exercises the storage core end to end: it opens a
// heap file backed by a small buffer pool, inserts a few records, scans
// them back, deletes one, and flushes everything to disk.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/xmysql-server/minibase/buffer"
	"github.com/xmysql-server/minibase/config"
	"github.com/xmysql-server/minibase/heap"
	"github.com/xmysql-server/minibase/logger"
	"github.com/xmysql-server/minibase/storage/disk"
	"github.com/xmysql-server/minibase/storage/page"
)

func main() {
	configPath := flag.String("config", "", "path to an INI config file (optional)")
	tableName := flag.String("table", "demo", "heap file name to open under data_dir")
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "minibasectl: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	if err := logger.Init(logger.Config{Level: "info"}); err != nil {
		fmt.Fprintf(os.Stderr, "minibasectl: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, *tableName); err != nil {
		logger.Errorf("minibasectl: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, tableName string) error {
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}

	dm, err := disk.Open(cfg.DataDir, "minibase.db", cfg.PageSize)
	if err != nil {
		return fmt.Errorf("open disk manager: %w", err)
	}
	defer dm.Close()

	bp := buffer.New(dm, cfg.NumFrames, cfg.PageSize)

	hf, err := heap.Open(bp, dm, tableName)
	if err != nil {
		return fmt.Errorf("open heap file %q: %w", tableName, err)
	}

	rows := []string{"alice", "bob", "carol"}
	var rids []page.RID
	for _, row := range rows {
		rid, err := hf.Insert([]byte(row))
		if err != nil {
			return fmt.Errorf("insert %q: %w", row, err)
		}
		logger.Infof("inserted %q at %+v", row, rid)
		rids = append(rids, rid)
	}

	scan, err := heap.NewScan(hf)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}
	count := 0
	for {
		rid, data, ok, err := scan.Next()
		if err != nil {
			scan.Close()
			return fmt.Errorf("scan: %w", err)
		}
		if !ok {
			break
		}
		logger.Infof("scanned %+v -> %q", rid, data)
		count++
	}
	scan.Close()

	if err := hf.Delete(rids[0]); err != nil {
		return fmt.Errorf("delete %q: %w", rows[0], err)
	}
	logger.Infof("deleted %q at %+v", rows[0], rids[0])

	n, err := hf.RecordCount()
	if err != nil {
		return fmt.Errorf("record count: %w", err)
	}
	logger.Infof("table %q holds %d records (scanned %d)", tableName, n, count)

	if err := bp.FlushAllPages(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}

	stats := bp.Stats()
	logger.Infof("buffer pool stats: hits=%d misses=%d reads=%d writes=%d",
		stats.Hits, stats.Misses, stats.Reads, stats.Writes)
	return nil
}
