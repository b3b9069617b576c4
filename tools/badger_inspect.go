package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"keychat/repositories"

	"github.com/dgraph-io/badger/v4"
	"github.com/olekukonko/tablewriter"
)

// Prints the audit trail of a stopped relay (AUDIT_BADGER_FILEPATH).
func main() {
	dbPath := flag.String("db", "", "Path to the audit badger DB")
	prefix := flag.String("prefix", "audit:", "Prefix to scan")
	kind := flag.String("kind", "", "Only show joined, rejected or disconnected records")
	flag.Parse()

	if *dbPath == "" {
		log.Fatal("-db is required")
	}

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Kind", "Timestamp", "Session", "Room", "Holder", "Reason", "From"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	err = db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefixBytes := []byte(*prefix)
		for it.Seek(prefixBytes); it.ValidForPrefix(prefixBytes); it.Next() {
			item := it.Item()
			rawKey := string(item.Key())

			err := item.Value(func(v []byte) error {
				record, err := repositories.DecodeAuditRecord(v)
				if err != nil {
					fmt.Printf("Error decoding key %s: %v\n", rawKey, err)
					return nil
				}
				if *kind != "" && string(record.Kind) != *kind {
					return nil
				}

				displayID := record.SessionID.String()[:8]
				table.Append([]string{
					rawKey,
					strings.ToUpper(string(record.Kind)),
					record.At.Format("2006-01-02 15:04:05"),
					displayID,
					record.Room.String(),
					record.Holder.String(),
					record.Reason,
					record.RemoteAddr,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})

	if err != nil {
		log.Fatal(err)
	}

	table.Render()
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)

	db, err := badger.Open(opts)
	if err != nil {
		if strings.Contains(err.Error(), "Log truncate required") {
			// A crashed relay leaves a value log to truncate, which needs a write open.
			repairOpts := badger.DefaultOptions(path).
				WithLogger(nil).WithBypassLockGuard(true)

			db, err = badger.Open(repairOpts)
			if err != nil {
				return nil, fmt.Errorf("repair failed: %w", err)
			}
			_ = db.Close()
			return badger.Open(opts)
		}
		return nil, err
	}
	return db, nil
}
