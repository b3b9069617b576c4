package main

import (
	"fmt"
	"strings"

	"keychat/repositories"

	"github.com/mama165/sdk-go/database"
)

// AuditMapper renders audit records in the Badger inspector.
func AuditMapper(key string, val []byte) database.InspectRow {
	row := database.DefaultMapper(key, val)

	record, err := repositories.DecodeAuditRecord(val)
	if err != nil {
		row.Detail = "Error: unmarshal failed"
		return row
	}

	row.Type = strings.ToUpper(string(record.Kind))
	parts := []string{fmt.Sprintf("room=%s", record.Room)}
	if record.Holder != "" {
		parts = append(parts, fmt.Sprintf("holder=%s", record.Holder))
	}
	if record.Reason != "" {
		parts = append(parts, fmt.Sprintf("reason=%s", record.Reason))
	}
	parts = append(parts, fmt.Sprintf("from=%s", record.RemoteAddr))
	row.Detail = strings.Join(parts, " ")
	return row
}
