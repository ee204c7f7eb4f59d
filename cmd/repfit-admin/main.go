// ABOUTME: Admin CLI for inspecting a repfit database.
// ABOUTME: Reads the store directly; intended for operators, not the dashboard.

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/repfit/repfit/internal/chat"
	"github.com/repfit/repfit/internal/exercise"
	"github.com/repfit/repfit/internal/kv"
	"github.com/repfit/repfit/internal/saved"
	"github.com/repfit/repfit/internal/session"
)

const banner = `
                  __ _ _                    _           _
  _ __ ___ _ __  / _(_) |_       __ _  __| |_ __ ___ (_)_ __
 | '__/ _ \ '_ \| |_| | __|____ / _' |/ _' | '_ ' _ \| | '_ \
 | | |  __/ |_) |  _| | ||_____| (_| | (_| | | | | | | | | | |
 |_|  \___| .__/|_| |_|\__|     \__,_|\__,_|_| |_| |_|_|_| |_|
          |_|
`

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	if cmd == "help" || cmd == "-h" || cmd == "--help" {
		printUsage()
		return
	}

	cfg, err := loadConfig(configPath())
	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}

	switch cmd {
	case "user":
		err = cmdUser(cfg)
	case "exercises":
		err = cmdExercises(cfg, args)
	case "chats":
		err = cmdChats(cfg, args)
	case "saved":
		err = cmdSaved(cfg)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		color.Red("Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	cyan.Print(banner)
	fmt.Println()
	fmt.Println("Usage: repfit-admin <command> [args]")
	fmt.Println()
	yellow.Println("Commands:")
	fmt.Println("  user                 Show the stored identity")
	fmt.Println("  exercises            Show per-day exercise totals")
	fmt.Println("  exercises log [n]    Show the n most recent records (default 20)")
	fmt.Println("  chats [n]            Show the n most recent chat sessions (default 10)")
	fmt.Println("  chats show <id>      Print one session's messages")
	fmt.Println("  saved                List saved exercises")
	fmt.Println()
	yellow.Println("Environment:")
	fmt.Println("  REPFIT_ADMIN_CONFIG  Config file path (default: ~/.config/repfit/admin.toml)")
}

func openStore(cfg *Config) (*kv.SQLiteStore, error) {
	if _, err := os.Stat(cfg.Storage.Path); err != nil {
		return nil, fmt.Errorf("database not found at %s", cfg.Storage.Path)
	}
	return kv.NewSQLiteStore(cfg.Storage.Path)
}

// cmdUser prints the stored identity, reading the raw key so no token
// validation (which could mutate state) runs.
func cmdUser(cfg *Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	raw, err := store.Get(ctx, kv.KeyUser)
	if errors.Is(err, kv.ErrNoValue) {
		fmt.Println("No stored identity (signed out)")
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading identity: %w", err)
	}

	var identity session.Identity
	if err := json.Unmarshal([]byte(raw), &identity); err != nil {
		return fmt.Errorf("malformed identity record: %w", err)
	}

	green := color.New(color.FgGreen)
	green.Println("Stored identity:")
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "  Email:\t%s\n", identity.Email)
	fmt.Fprintf(w, "  Name:\t%s\n", identity.Name)
	fmt.Fprintf(w, "  Joined:\t%s\n", identity.Joined.Format("2006-01-02"))
	fmt.Fprintf(w, "  Last login:\t%s\n", identity.LastLogin.Format("2006-01-02 15:04"))
	fmt.Fprintf(w, "  Has token:\t%t\n", identity.Token != "")
	return w.Flush()
}

func cmdExercises(cfg *Config, args []string) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	loc, err := cfg.location()
	if err != nil {
		return fmt.Errorf("resolving timezone: %w", err)
	}

	ctx := context.Background()
	log := exercise.NewLog(ctx, store, exercise.WithLocation(loc))

	if len(args) > 0 && args[0] == "log" {
		limit := 20
		if len(args) > 1 {
			n, err := strconv.Atoi(args[1])
			if err != nil || n < 1 {
				return fmt.Errorf("invalid count: %s", args[1])
			}
			limit = n
		}
		records := log.List(limit)
		if len(records) == 0 {
			fmt.Println("No exercise records")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tTYPE\tREPS\tID")
		for _, r := range records {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
				r.Timestamp.In(loc).Format("2006-01-02 15:04"), r.Type, r.Count, r.ID)
		}
		return w.Flush()
	}

	groups := log.Groups()
	if len(groups) == 0 {
		fmt.Println("No exercise records")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DAY\tTYPE\tSETS\tTOTAL REPS")
	for _, g := range groups {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\n",
			g.Timestamp.In(loc).Format("2006-01-02"), g.Type, g.Count, g.TotalReps)
	}
	return w.Flush()
}

func cmdChats(cfg *Config, args []string) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	history := chat.NewHistory(ctx, store)

	if len(args) > 0 && args[0] == "show" {
		if len(args) < 2 {
			return fmt.Errorf("chats show requires a session id")
		}
		sess := history.Get(args[1])
		if sess == nil {
			return fmt.Errorf("no session with id %s", args[1])
		}
		cyan := color.New(color.FgCyan)
		cyan.Printf("%s (%s)\n\n", sess.Summary.Title, sess.Timestamp.Format("2006-01-02 15:04"))
		for _, m := range sess.Messages {
			if m.Role == chat.RoleUser {
				color.Green("you> %s", m.Content)
			} else {
				fmt.Printf("bot> %s\n", m.Content)
			}
		}
		return nil
	}

	limit := 10
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 1 {
			return fmt.Errorf("invalid count: %s", args[0])
		}
		limit = n
	}

	sessions := history.List(limit)
	if len(sessions) == 0 {
		fmt.Println("No chat sessions")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tTITLE\tMSGS\tID")
	for _, s := range sessions {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n",
			s.Timestamp.Format("2006-01-02 15:04"), s.Summary.Title, s.Summary.MessageCount, s.ID)
	}
	return w.Flush()
}

func cmdSaved(cfg *Config) error {
	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := context.Background()
	savedStore := saved.New(ctx, store)

	items := savedStore.List()
	if len(items) == 0 {
		fmt.Println("No saved exercises")
		return nil
	}
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tCATEGORY\tDIFFICULTY")
	for _, e := range items {
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", e.ID, e.Title, e.Category, e.Difficulty)
	}
	return w.Flush()
}
