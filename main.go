package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"library-rentals/library"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const defaultSettingsFile = "settings.yaml"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var settingsPath string

	root := &cobra.Command{
		Use:          "library-rentals",
		Short:        "Book rental library with undo and redo",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, logger, err := openManager(settingsPath)
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer mgr.Close()

			interactive := term.IsTerminal(int(os.Stdin.Fd()))
			newREPL(mgr, cmd.InOrStdin(), cmd.OutOrStdout(), interactive).run()
			return nil
		},
	}
	root.PersistentFlags().StringVar(&settingsPath, "settings", defaultSettingsFile, "path to the YAML settings file")

	root.AddCommand(newListCmd(&settingsPath), newStatsCmd(&settingsPath))
	return root
}

func newListCmd(settingsPath *string) *cobra.Command {
	return &cobra.Command{
		Use:       "list books|clients|rentals",
		Short:     "Print one of the record stores",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"books", "clients", "rentals"},
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, logger, err := openManager(*settingsPath)
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer mgr.Close()

			out := cmd.OutOrStdout()
			switch args[0] {
			case "books":
				printBooks(out, mgr.ListBooks())
			case "clients":
				printClients(out, mgr.ListClients())
			case "rentals":
				printRentals(out, mgr.ListRentals())
			default:
				return fmt.Errorf("unknown store %q", args[0])
			}
			return nil
		},
	}
}

func newStatsCmd(settingsPath *string) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "stats [books|clients|authors]",
		Short: "Print rental statistics",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, logger, err := openManager(*settingsPath)
			if err != nil {
				return err
			}
			defer logger.Sync()
			defer mgr.Close()

			which := "all"
			if len(args) == 1 {
				which = args[0]
			}
			return printReport(cmd.OutOrStdout(), mgr, which, limit)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "rows per report (0 for all)")
	return cmd
}

// openManager loads settings and opens the configured stores.
func openManager(settingsPath string) (*library.LibraryManager, *zap.Logger, error) {
	settings, err := library.LoadSettings(settingsPath)
	if err != nil {
		return nil, nil, err
	}
	logger, err := settings.NewLogger()
	if err != nil {
		return nil, nil, err
	}
	mgr, err := library.NewLibraryManager(settings, logger)
	if err != nil {
		logger.Sync()
		return nil, nil, fmt.Errorf("open library: %w", err)
	}
	return mgr, logger, nil
}

// ------------------ Output ------------------

func printBooks(w io.Writer, books []library.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books in library.")
		return
	}
	fmt.Fprintf(w, "%-10s %-30s %-25s %s\n", "ID", "Title", "Author", "Available")
	fmt.Fprintln(w, strings.Repeat("-", 80))
	for _, b := range books {
		avail := "Yes"
		if !b.Available {
			avail = "No"
		}
		fmt.Fprintf(w, "%-10s %-30s %-25s %s\n",
			truncateString(b.ID, 10),
			truncateString(b.Title, 30),
			truncateString(b.Author, 25),
			avail)
	}
}

func printClients(w io.Writer, clients []library.Client) {
	if len(clients) == 0 {
		fmt.Fprintln(w, "No clients registered.")
		return
	}
	fmt.Fprintf(w, "%-10s %s\n", "ID", "Name")
	fmt.Fprintln(w, strings.Repeat("-", 45))
	for _, c := range clients {
		fmt.Fprintf(w, "%-10s %s\n", truncateString(c.ID, 10), c.Name)
	}
}

func printRentals(w io.Writer, rentals []library.Rental) {
	if len(rentals) == 0 {
		fmt.Fprintln(w, "No rentals.")
		return
	}
	fmt.Fprintf(w, "%-10s %-10s %-10s %-12s %s\n", "ID", "Book", "Client", "Rented", "Returned")
	fmt.Fprintln(w, strings.Repeat("-", 60))
	for _, r := range rentals {
		returned := r.ReturnedDate
		if r.Active() {
			returned = library.NotReturned
		}
		fmt.Fprintf(w, "%-10s %-10s %-10s %-12s %s\n",
			truncateString(r.ID, 10),
			truncateString(r.BookID, 10),
			truncateString(r.ClientID, 10),
			r.RentedDate,
			returned)
	}
}

func printStats(w io.Writer, title string, stats []library.Stat, limit int) {
	fmt.Fprintf(w, "----%s----\n", title)
	if len(stats) == 0 {
		fmt.Fprintln(w, "No data.")
		return
	}
	if limit > 0 && len(stats) > limit {
		stats = stats[:limit]
	}
	for i, s := range stats {
		fmt.Fprintf(w, "%d. %s\n", i+1, s)
	}
}

// printReport prints the statistics named by which: books, clients, authors or all.
func printReport(w io.Writer, mgr *library.LibraryManager, which string, limit int) error {
	switch which {
	case "books":
		printStats(w, "Most rented books", mgr.MostRentedBooks(), limit)
	case "clients":
		printStats(w, "Most active clients (days)", mgr.MostActiveClients(), limit)
	case "authors":
		printStats(w, "Most rented authors", mgr.MostRentedAuthors(), limit)
	case "all":
		for _, name := range []string{"books", "clients", "authors"} {
			if err := printReport(w, mgr, name, limit); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown report %q (want books, clients or authors)", which)
	}
	return nil
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
