// Command ladderlog is the on-device workout tracker: it drives ladder
// workouts interactively, keeps history in a local sqlite store, and
// mirrors owned sessions to a remote record store when one is configured.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/meltforce/ladderlog/internal/catalog"
	"github.com/meltforce/ladderlog/internal/config"
	"github.com/meltforce/ladderlog/internal/localstore"
	"github.com/meltforce/ladderlog/internal/models"
	"github.com/meltforce/ladderlog/internal/progression"
	"github.com/meltforce/ladderlog/internal/remote"
	"github.com/meltforce/ladderlog/internal/syncer"
	"github.com/meltforce/ladderlog/internal/workout"
)

// Version is set at build time via -ldflags.
var Version = "dev"

const usageText = `Usage: ladderlog <command> [flags]

Commands:
  run       start a ladder workout
  history   show recorded sessions and personal bests
  sync      push unsynced sessions to the server; -login also pulls
  delete    delete a session (or all sessions)
  presets   list the built-in workout presets
  version   print version and exit
`

// app is the wiring every subcommand shares. The reconciler is nil when
// no server is configured; sessions then stay local and guest-owned.
type app struct {
	cfg   *config.Config
	store *localstore.DB
	rc    *syncer.Reconciler
	cli   *remote.Client
	log   *slog.Logger
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usageText)
		os.Exit(1)
	}
	cmd, args := os.Args[1], os.Args[2:]

	if cmd == "version" {
		fmt.Println("ladderlog", Version)
		return
	}

	_ = godotenv.Load()

	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	defaultConfig := ""
	if home, err := os.UserHomeDir(); err == nil {
		defaultConfig = filepath.Join(home, ".ladderlog", "config.yaml")
	}
	cfg, err := config.LoadClient(defaultConfig)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}

	store, err := localstore.Open(cfg.Client.DataDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error: opening local store:", err)
		os.Exit(1)
	}
	defer store.Close()

	a := &app{cfg: cfg, store: store, log: log}
	if cfg.Client.ServerURL != "" && cfg.Client.Token != "" {
		a.cli = remote.NewClient(cfg.Client.ServerURL, cfg.Client.Token)
		a.rc = syncer.New(store, a.cli, log)
	}

	ctx := context.Background()
	switch cmd {
	case "run":
		err = a.cmdRun(ctx, args)
	case "history":
		err = a.cmdHistory(ctx, args)
	case "sync":
		err = a.cmdSync(ctx, args)
	case "delete":
		err = a.cmdDelete(ctx, args)
	case "presets":
		err = a.cmdPresets(args)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s", cmd, usageText)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// --- run ---

func (a *app) cmdRun(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	preset := fs.String("preset", "", "preset key (see 'ladderlog presets')")
	exercises := fs.String("exercises", "", "comma-separated exercise names for a custom workout")
	mode := fs.String("mode", "ascending", "progression mode for custom workouts: ascending, descending, full")
	name := fs.String("name", "", "display name for a custom workout")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := buildConfig(*preset, *exercises, *mode, *name)
	if err != nil {
		return err
	}

	owner := a.resolveOwner(ctx)

	run := workout.NewRun(cfg, nil)
	if err := run.Start(); err != nil {
		return err
	}

	title := cfg.DisplayName
	if title == "" {
		title = cfg.ModeKey()
	}
	fmt.Printf("%s (%s, %d rounds, %d reps total)\n", title, cfg.Mode, cfg.Mode.TotalRounds(), cfg.TotalReps())
	fmt.Println("Press enter to complete each set, q to end early.")
	fmt.Println()

	scanner := bufio.NewScanner(os.Stdin)
	for run.State() == workout.StateActive {
		ex, err := run.CurrentExercise()
		if err != nil {
			return err
		}
		reps, err := run.CurrentReps()
		if err != nil {
			return err
		}
		fmt.Printf("Round %2d | %s x%d  [%d reps, %.1f%%] > ",
			run.Round(), ex.Name, reps, run.TotalReps(), run.Progress())

		if !scanner.Scan() || strings.TrimSpace(scanner.Text()) == "q" {
			if err := run.EndEarly(); err != nil {
				return err
			}
			break
		}
		if err := run.CompleteSet(); err != nil {
			return err
		}
	}

	rec, err := run.Record(owner)
	if err != nil {
		return err
	}
	if err := a.saveRecord(ctx, rec); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("=== Workout Summary ===")
	fmt.Printf("  Result:   %s\n", run.State())
	fmt.Printf("  Rounds:   %d\n", rec.CompletedRounds)
	fmt.Printf("  Reps:     %d\n", rec.TotalReps)
	fmt.Printf("  Time:     %s\n", fmtSeconds(rec.TotalSeconds))
	for name, reps := range rec.ExerciseReps {
		fmt.Printf("    %-14s %4d reps  %s\n", name, reps, fmtSeconds(rec.ExerciseSeconds[name]))
	}
	return nil
}

// saveRecord stores the emitted record. The local write is what counts:
// it gets one retry, and if that fails too the record is dumped to stderr
// so the workout is not silently lost.
func (a *app) saveRecord(ctx context.Context, rec models.SessionRecord) error {
	save := func() error {
		if a.rc != nil {
			return a.rc.SaveSession(ctx, rec, true)
		}
		return a.store.Save(ctx, rec)
	}
	err := save()
	if err != nil {
		a.log.Warn("save failed, retrying", "error", err)
		if err = save(); err == nil {
			return nil
		}
		if data, jerr := json.Marshal(rec); jerr == nil {
			fmt.Fprintf(os.Stderr, "unsaved session record: %s\n", data)
		}
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// resolveOwner asks the server who the configured token belongs to. Any
// failure degrades to a guest record; login sync attributes it later.
func (a *app) resolveOwner(ctx context.Context) models.Owner {
	if a.cli == nil {
		return models.Guest()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	userID, err := a.cli.Me(ctx)
	if err != nil {
		a.log.Warn("could not resolve identity, recording as guest", "error", err)
		return models.Guest()
	}
	return models.OwnedBy(userID)
}

func buildConfig(preset, exercises, mode, name string) (catalog.Config, error) {
	if preset != "" {
		p, err := catalog.FindPreset(preset)
		if err != nil {
			return catalog.Config{}, err
		}
		return catalog.FromPreset(p), nil
	}
	if exercises == "" {
		return catalog.Config{}, fmt.Errorf("pass -preset or -exercises")
	}
	var list []catalog.Exercise
	for _, n := range strings.Split(exercises, ",") {
		e, err := catalog.Lookup(strings.TrimSpace(n))
		if err != nil {
			return catalog.Config{}, err
		}
		list = append(list, e)
	}
	m, err := progression.ParseMode(mode)
	if err != nil {
		return catalog.Config{}, err
	}
	return catalog.Custom(list, m, name), nil
}

// --- history ---

func (a *app) cmdHistory(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("history", flag.ExitOnError)
	mode := fs.String("mode", "", "filter by workout mode key")
	completedOnly := fs.Bool("completed", false, "show only completed workouts")
	limit := fs.Int("limit", 20, "maximum sessions to show")
	bests := fs.Bool("bests", false, "show personal bests per workout mode instead")
	if err := fs.Parse(args); err != nil {
		return err
	}

	recs, err := a.store.FetchAll(ctx)
	if err != nil {
		return err
	}

	if *bests {
		printBests(models.PersonalBests(recs))
		return nil
	}

	shown := 0
	fmt.Printf("%-20s %-24s %-9s %6s %6s %9s %s\n",
		"DATE", "WORKOUT", "RESULT", "ROUNDS", "REPS", "TIME", "SYNC")
	// FetchAll returns newest first.
	for _, rec := range recs {
		if *mode != "" && rec.ModeKey != *mode {
			continue
		}
		if *completedOnly && !rec.Completed {
			continue
		}
		if shown >= *limit {
			break
		}
		shown++

		result := "ended"
		if rec.Completed {
			result = "completed"
		}
		sync := "local"
		if rec.Synced {
			sync = "synced"
		} else if !rec.Owner.IsGuest() {
			sync = "pending"
		}
		fmt.Printf("%-20s %-24s %-9s %6d %6d %9s %s\n",
			rec.CreatedAt.Local().Format("2006-01-02 15:04"),
			rec.ModeKey, result, rec.CompletedRounds, rec.TotalReps,
			fmtSeconds(rec.TotalSeconds), sync)
	}
	if shown == 0 {
		fmt.Println("no sessions recorded")
	}
	return nil
}

func printBests(bests []models.PersonalBest) {
	if len(bests) == 0 {
		fmt.Println("no sessions recorded")
		return
	}
	fmt.Printf("%-24s %9s %9s %10s %10s\n", "WORKOUT", "SESSIONS", "COMPLETED", "BEST TIME", "MOST REPS")
	for _, b := range bests {
		best := "-"
		if b.BestTimeSeconds != nil {
			best = fmtSeconds(*b.BestTimeSeconds)
		}
		fmt.Printf("%-24s %9d %9d %10s %10d\n", b.ModeKey, b.Sessions, b.Completed, best, b.MostReps)
	}
}

// --- sync ---

func (a *app) cmdSync(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	login := fs.Bool("login", false, "full login sync: claim guest sessions, upload, then download")
	status := fs.Bool("status", false, "show sync state counts without contacting the server")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *status {
		return a.printSyncStatus(ctx)
	}

	if a.rc == nil {
		return fmt.Errorf("no server configured: set client.server_url and client.token (or LADDERLOG_SERVER_URL / LADDERLOG_TOKEN)")
	}

	var stats syncer.Stats
	var err error
	if *login {
		userID, merr := a.cli.Me(ctx)
		if merr != nil {
			return fmt.Errorf("resolving identity: %w", merr)
		}
		stats, err = a.rc.SyncOnLogin(ctx, userID)
	} else {
		stats, err = a.rc.UploadUnsynced(ctx)
	}

	fmt.Println("=== Sync Summary ===")
	if *login {
		fmt.Printf("  Claimed:     %d\n", stats.Reassigned)
	}
	fmt.Printf("  Uploaded:    %d\n", stats.Uploaded)
	fmt.Printf("  Failed:      %d\n", stats.Failed)
	fmt.Printf("  Skipped:     %d\n", stats.Skipped)
	if *login {
		fmt.Printf("  Downloaded:  %d\n", stats.Downloaded)
	}
	return err
}

func (a *app) printSyncStatus(ctx context.Context) error {
	recs, err := a.store.FetchAll(ctx)
	if err != nil {
		return err
	}
	var synced, pending, guest int
	for _, rec := range recs {
		switch {
		case rec.Owner.IsGuest():
			guest++
		case rec.Synced:
			synced++
		default:
			pending++
		}
	}
	fmt.Println("=== Sync Status ===")
	fmt.Printf("  Total:       %d\n", len(recs))
	fmt.Printf("  Synced:      %d\n", synced)
	fmt.Printf("  Pending:     %d\n", pending)
	fmt.Printf("  Guest:       %d\n", guest)
	return nil
}

// --- delete ---

func (a *app) cmdDelete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	id := fs.String("id", "", "session UUID to delete")
	all := fs.Bool("all", false, "delete every local session")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *all {
		if err := a.store.DeleteAll(ctx); err != nil {
			return err
		}
		fmt.Println("local history cleared")
		return nil
	}
	if *id == "" {
		return fmt.Errorf("pass -id <uuid> or -all")
	}

	sessionID, err := uuid.Parse(*id)
	if err != nil {
		return fmt.Errorf("invalid session id: %w", err)
	}
	rec, err := a.store.FetchByID(ctx, sessionID)
	if err != nil {
		return err
	}

	if a.rc != nil {
		if err := a.rc.DeleteSession(ctx, sessionID, rec.Owner); err != nil {
			return err
		}
	} else if err := a.store.Delete(ctx, sessionID); err != nil {
		return err
	}
	fmt.Println("deleted", sessionID)
	return nil
}

// --- presets ---

func (a *app) cmdPresets(args []string) error {
	fs := flag.NewFlagSet("presets", flag.ExitOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	for _, p := range catalog.Presets {
		cfg := catalog.FromPreset(p)
		names := make([]string, len(p.Exercises))
		for i, e := range p.Exercises {
			names[i] = fmt.Sprintf("%s x%d", e.Name, e.Multiplier)
		}
		fmt.Printf("%-10s %s (%s, %d rounds, %d reps)\n    %s\n",
			p.Key, p.DisplayName, p.Mode, p.Mode.TotalRounds(), cfg.TotalReps(),
			strings.Join(names, ", "))
	}
	return nil
}

func fmtSeconds(secs int) string {
	return (time.Duration(secs) * time.Second).String()
}
