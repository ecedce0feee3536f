// drivedex scans a mounted drive into the catalog: metadata, hashes and
// thumbnails for every file, with resumable checkpointed progress.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/drivedex/drivedex/internal/catalog"
	"github.com/drivedex/drivedex/internal/clock"
	"github.com/drivedex/drivedex/internal/config"
	"github.com/drivedex/drivedex/internal/db"
	"github.com/drivedex/drivedex/internal/drive"
	"github.com/drivedex/drivedex/internal/logger"
	"github.com/drivedex/drivedex/internal/metrics"
	"github.com/drivedex/drivedex/internal/notifier"
	"github.com/drivedex/drivedex/internal/probe"
	"github.com/drivedex/drivedex/internal/scan"
	"github.com/drivedex/drivedex/internal/thumbs"
)

const (
	exitOK       = 0
	exitError    = 1
	exitDeclined = 2
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func usage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, "Usage: drivedex [options] <drive_id> <partition_number> <mount_point>\n\nOptions:\n")
	fs.PrintDefaults()
}

func run(args []string) int {
	fs := flag.NewFlagSet("drivedex", flag.ContinueOnError)
	var (
		noHash           = fs.Bool("no-hash", false, "skip content hashing")
		noIdentityUpdate = fs.Bool("no-identity-update", false, "do not write observed drive identity back to the catalog")
		noThumbs         = fs.Bool("no-thumbs", false, "skip thumbnail generation")
		externalThumbs   = fs.Bool("external-thumbs", false, "leave thumbnails to an external pipeline")
		resume           = fs.Bool("resume", false, "resume the most recent interrupted session")
		skipExisting     = fs.Bool("skip-existing", false, "skip files already present in the catalog")
		verbose          = fs.Bool("verbose", false, "per-step debug output")
		delayMicros      = fs.Int("delay", 0, "fixed delay between entries in microseconds")
		metricsAddr      = fs.String("metrics-addr", "", "listen address for the Prometheus exporter (disabled when empty)")
		backupDB         = fs.Bool("backup-db", false, "back up the catalog database before scanning")
		showVersion      = fs.Bool("version", false, "print version and exit")
	)
	fs.Usage = func() { usage(fs) }
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitError
	}

	if *showVersion {
		fmt.Printf("drivedex %s\n", config.Version)
		return exitOK
	}

	if fs.NArg() != 3 {
		usage(fs)
		return exitError
	}
	driveID, err := strconv.ParseInt(fs.Arg(0), 10, 64)
	if err != nil {
		fmt.Fprintf(os.Stderr, "drivedex: invalid drive id %q\n", fs.Arg(0))
		return exitError
	}
	partition, err := strconv.Atoi(fs.Arg(1))
	if err != nil || partition < 1 {
		fmt.Fprintf(os.Stderr, "drivedex: invalid partition number %q\n", fs.Arg(1))
		return exitError
	}
	mountPoint, err := filepath.Abs(fs.Arg(2))
	if err != nil {
		fmt.Fprintf(os.Stderr, "drivedex: invalid mount point %q\n", fs.Arg(2))
		return exitError
	}
	if info, err := os.Stat(mountPoint); err != nil || !info.IsDir() {
		fmt.Fprintf(os.Stderr, "drivedex: mount point %s is not a directory\n", mountPoint)
		return exitError
	}
	if *resume && *skipExisting {
		fmt.Fprintln(os.Stderr, "drivedex: --resume and --skip-existing are mutually exclusive")
		return exitError
	}

	cfg := config.Load()
	logger.Init(cfg.LogDir)
	if *verbose {
		logger.SetLevel("debug")
	} else {
		logger.SetLevel(cfg.LogLevel)
	}

	repo, err := db.NewRepository(cfg.DatabasePath)
	if err != nil {
		logger.Errorf("opening catalog database: %v", err)
		return exitError
	}
	defer repo.GracefulClose()

	if *backupDB {
		path, err := repo.Backup(cfg.DatabasePath)
		if err != nil {
			logger.Errorf("backing up database: %v", err)
			return exitError
		}
		logger.Infof("database backed up to %s", path)
	}

	metrics.Serve(*metricsAddr)

	store := catalog.NewStore(repo.DB)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	verifier := &drive.Verifier{
		Store:    store,
		Resolver: drive.NewSystemResolver(),
		Confirm:  confirmOnStdin,
	}
	d, device, err := verifier.Verify(ctx, driveID, mountPoint, !*noIdentityUpdate)
	if err != nil {
		if errors.Is(err, drive.ErrIdentityDeclined) {
			fmt.Fprintln(os.Stderr, "drivedex: scan aborted, drive identity not confirmed")
			return exitDeclined
		}
		logger.Errorf("drive verification: %v", err)
		return exitError
	}

	exiftool, err := probe.NewExifToolClient()
	if err != nil {
		logger.Warnf("starting exiftool: %v, raw tag snapshots disabled", err)
	}
	extractors := scan.Extractors{
		AV:         probe.NewAVProber(),
		AudioTags:  probe.NewAudioTagProber(),
		Image:      probe.NewImageProber(),
		Executable: probe.NewExecutableProber(),
		Type:       probe.NewFileTypeIdentifier(),
	}
	if exiftool != nil {
		extractors.Snapshot = exiftool
		defer exiftool.Close()
	}

	clk := clock.NewRealClock()
	engine := &scan.Engine{
		Store:      store,
		Clock:      clk,
		Extractors: extractors,
		Hasher:     scan.MD5Hasher{},
		Thumbs:     thumbs.NewGenerator(cfg.ThumbDir, cfg.ThumbMaxWidth),
		Remounter:  drive.NewSystemRemounter(clk, cfg.RemountAttempts, cfg.RemountBackoff),
		Device:     device,
		WAL:        repo,
		Opts: scan.Options{
			DriveID:        driveID,
			Partition:      partition,
			MountPoint:     mountPoint,
			NoHash:         *noHash,
			NoThumbs:       *noThumbs,
			ExternalThumbs: *externalThumbs,
			Resume:         *resume,
			SkipExisting:   *skipExisting,
			Delay:          time.Duration(*delayMicros) * time.Microsecond,
			BatchSize:      cfg.BatchSize,
			FlushInterval:  cfg.FlushInterval,
		},
	}

	notify := notifier.New(cfg.NotifyURL)
	counters, err := engine.Run(ctx)
	if err != nil {
		notify.ScanInterrupted(d.Name, counters)
		logger.Errorf("scan: %v", err)
		return exitError
	}
	notify.ScanCompleted(d.Name, counters)

	if cfg.RetentionDays > 0 {
		if pruned, err := store.PruneSessions(time.Duration(cfg.RetentionDays) * 24 * time.Hour); err != nil {
			logger.Warnf("pruning old sessions: %v", err)
		} else if pruned > 0 {
			logger.Infof("pruned %d old sessions", pruned)
		}
	}

	fmt.Printf("scan completed: scanned=%d added=%d updated=%d deleted=%d skipped=%d thumbs=%d/%d\n",
		counters.Scanned, counters.Added, counters.Updated, counters.Deleted,
		counters.Skipped, counters.ThumbsCreated, counters.ThumbsFailed)
	return exitOK
}

// confirmOnStdin asks the operator a yes/no question on the terminal.
// Only an explicit "yes" or "y" confirms.
func confirmOnStdin(prompt string) bool {
	fmt.Fprint(os.Stderr, prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "yes" || answer == "y"
}
