package iocache

import (
	"fmt"
	"io"
	"slices"

	"github.com/dustin/go-humanize"
	"github.com/huangsam/covdelta/schema"
)

// PrintCacheStatus prints report cache status information.
func PrintCacheStatus(w io.Writer, status schema.CacheStatus) {
	_, _ = fmt.Fprintf(w, "Cache Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Entries: %s\n", humanize.Comma(int64(status.TotalEntries)))
	if status.TotalEntries > 0 {
		_, _ = fmt.Fprintf(w, "Last Entry: %s (%s)\n", status.LastEntryTime.Format("2006-01-02 15:04:05"), humanize.Time(status.LastEntryTime))
		_, _ = fmt.Fprintf(w, "Oldest Entry: %s (%s)\n", status.OldestEntryTime.Format("2006-01-02 15:04:05"), humanize.Time(status.OldestEntryTime))
	}
	_, _ = fmt.Fprintf(w, "Table Size: %s\n", humanize.Bytes(uint64(max(status.TableSizeBytes, 0))))
}

// PrintHistoryStatus prints history store status information.
func PrintHistoryStatus(w io.Writer, status schema.HistoryStatus) {
	_, _ = fmt.Fprintf(w, "History Backend: %s\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Connected: %t\n", status.Connected)
	if !status.Connected {
		return
	}
	_, _ = fmt.Fprintf(w, "Total Builds: %s\n", humanize.Comma(int64(status.TotalBuilds)))
	if status.TotalBuilds > 0 {
		_, _ = fmt.Fprintf(w, "Total Results: %s\n", humanize.Comma(int64(status.TotalResults)))
		_, _ = fmt.Fprintf(w, "Total References: %s\n", humanize.Comma(int64(status.TotalReferences)))
		_, _ = fmt.Fprintf(w, "Last Build: %s at %s (%s)\n", status.LastBuildID,
			status.LastBuildTime.Format("2006-01-02 15:04:05"), humanize.Time(status.LastBuildTime))
		_, _ = fmt.Fprintf(w, "Oldest Build: %s (%s)\n", status.OldestBuildTime.Format("2006-01-02 15:04:05"), humanize.Time(status.OldestBuildTime))
	}
	_, _ = fmt.Fprintln(w, "Table Sizes:")
	tables := make([]string, 0, len(status.TableSizes))
	for table := range status.TableSizes {
		tables = append(tables, table)
	}
	slices.Sort(tables)
	for _, table := range tables {
		_, _ = fmt.Fprintf(w, "  %s: %s rows\n", table, humanize.Comma(status.TableSizes[table]))
	}
}
