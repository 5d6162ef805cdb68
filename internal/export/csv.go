// Package export renders the registered user table as a CSV document
// suitable for sending to the admin as a file attachment.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/episthema/vpnbot/internal/storage"
)

var header = []string{"TG ID", "VPN ID", "Username", "Registered At"}

// UsersCSV encodes users into CSV with a fixed header row. Rows follow
// the input order, which storage returns sorted by registration time.
func UsersCSV(users []storage.User) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return nil, fmt.Errorf("export: write header: %w", err)
	}
	for _, u := range users {
		row := []string{
			strconv.FormatInt(u.ChatID, 10),
			u.InternalID,
			u.Username,
			u.RegisteredAt.UTC().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("export: write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("export: flush: %w", err)
	}
	return buf.Bytes(), nil
}

// Filename returns a timestamped name for the exported document.
func Filename(now time.Time) string {
	return "users_" + now.UTC().Format("20060102_150405") + ".csv"
}
