package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"library-rentals/library"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func main() {
	if err := newImportCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newImportCmd() *cobra.Command {
	var (
		file         string
		settingsPath string
	)
	cmd := &cobra.Command{
		Use:          "import_books",
		Short:        "Add books listed in a title,author CSV file",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := library.LoadSettings(settingsPath)
			if err != nil {
				return err
			}
			logger, err := settings.NewLogger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			manager, err := library.NewLibraryManager(settings, logger)
			if err != nil {
				return fmt.Errorf("open library: %w", err)
			}
			defer manager.Close()

			fp, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open %s: %w", file, err)
			}
			defer fp.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Importing books from %s...\n", file)
			ok, failed, err := importBooks(manager, fp, out, logger)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "\nImport complete!\n")
			fmt.Fprintf(out, "Successfully imported: %d books\n", ok)
			fmt.Fprintf(out, "Errors: %d\n", failed)
			if ok > 0 {
				fmt.Fprintln(out, "\nBooks in library:")
				fmt.Fprintf(out, "%-10s %-50s %-30s\n", "ID", "Title", "Author")
				fmt.Fprintln(out, strings.Repeat("-", 90))
				for _, book := range manager.ListBooks() {
					fmt.Fprintf(out, "%-10s %-50s %-30s\n", book.ID, truncateString(book.Title, 50), truncateString(book.Author, 30))
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "books.csv", "CSV file with title,author rows")
	cmd.Flags().StringVar(&settingsPath, "settings", "settings.yaml", "path to the YAML settings file")
	return cmd
}

// importBooks adds one book per title,author row. A header row is skipped.
// Bad rows are reported and counted, they do not stop the import.
func importBooks(manager *library.LibraryManager, r io.Reader, out io.Writer, logger *zap.Logger) (ok, failed int, err error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	for line := 1; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				fmt.Fprintf(out, "Line %d: ERROR - %v\n", line, err)
				failed++
				continue
			}
			return ok, failed, err
		}
		if len(rec) != 2 {
			fmt.Fprintf(out, "Line %d: ERROR - want title,author, got %d fields\n", line, len(rec))
			failed++
			continue
		}
		title, author := strings.TrimSpace(rec[0]), strings.TrimSpace(rec[1])
		if line == 1 && strings.EqualFold(title, "title") && strings.EqualFold(author, "author") {
			continue
		}

		fmt.Fprintf(out, "Importing: %s by %s... ", title, author)
		book, err := manager.AddBook(uuid.NewString()[:8], title, author)
		if err != nil {
			fmt.Fprintf(out, "ERROR - %v\n", err)
			logger.Debug("import row rejected", zap.Int("line", line), zap.Error(err))
			failed++
			continue
		}
		fmt.Fprintf(out, "SUCCESS (ID: %s)\n", book.ID)
		ok++
	}
	return ok, failed, nil
}

// truncateString shortens s to maxLen runes, marking the cut with "...".
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
