package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/nhle/mailnote/internal/credential"
	"github.com/nhle/mailnote/internal/export"
	"github.com/nhle/mailnote/internal/host"
	"github.com/nhle/mailnote/internal/joplin"
	"github.com/nhle/mailnote/internal/model"
	"github.com/nhle/mailnote/internal/notify"
	"github.com/nhle/mailnote/internal/store"
)

type exportFlags struct {
	configPath string
	uids       string
	recent     int
	history    int
}

func main() {
	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	if len(os.Args) > 1 && os.Args[1] == "configure" {
		if err := runConfigure(os.Args[2:]); err != nil {
			log.Error("mailnote configure failed", "error", err)
			os.Exit(1)
		}
		return
	}

	flags := parseExportFlags()
	if err := run(flags, log); err != nil {
		log.Error("mailnote export failed", "error", err)
		os.Exit(1)
	}
}

func parseExportFlags() exportFlags {
	configPath := flag.String("config", model.DefaultConfigPath(), "config file path")
	uids := flag.String("uids", "", "comma separated message UIDs to export")
	recent := flag.Int("recent", 0, "export the N newest messages instead of explicit UIDs")
	history := flag.Int("history", 0, "print the N most recent export history rows and exit")
	flag.Parse()

	return exportFlags{
		configPath: *configPath,
		uids:       *uids,
		recent:     *recent,
		history:    *history,
	}
}

func run(flags exportFlags, log *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := model.LoadConfig(flags.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if flags.history > 0 {
		return printHistory(ctx, cfg, flags.history)
	}

	if flags.recent > 0 {
		cfg.Mail.Recent = flags.recent
	}

	uids, err := parseUIDList(flags.uids)
	if err != nil {
		return err
	}

	token := cfg.Joplin.Token
	if token == "" {
		if value, err := credential.Get(credential.APITokenKey); err == nil {
			token = value
		}
	}
	if cfg.Mail.Password == "" {
		if value, err := credential.Get(credential.IMAPPasswordKey); err == nil {
			cfg.Mail.Password = value
		}
	}

	mailHost := host.NewIMAPHost(cfg.Mail, uids)
	client := joplin.NewClient(cfg.Joplin.Scheme, cfg.Joplin.Host, cfg.Joplin.Port, token)

	var history export.HistoryRecorder
	if cfg.History.Path != "" {
		s, err := store.NewSQLiteStore(cfg.History.Path)
		if err != nil {
			log.Warn("opening export history", "error", err)
		} else {
			defer s.Close()
			history = s
		}
	}

	exporter := export.New(mailHost, client, cfg.Joplin, token, log, history)
	report := exporter.ExportDisplayed(ctx)

	title := "Export succeeded"
	if !report.Success {
		title = "Export failed"
	}
	if notify.ShouldNotify(notify.Mode(cfg.Joplin.ShowNotifications), report.Success) {
		notifier := &notify.WriterNotifier{Out: os.Stdout}
		if err := notifier.Notify(title, report.Message); err != nil {
			log.Warn("showing notification", "error", err)
		}
	}

	if !report.Success {
		return errors.New("export failed")
	}
	return nil
}

// printHistory lists the newest export history rows.
func printHistory(ctx context.Context, cfg *model.Config, limit int) error {
	if cfg.History.Path == "" {
		return errors.New("export history is disabled (history.path is empty)")
	}

	s, err := store.NewSQLiteStore(cfg.History.Path)
	if err != nil {
		return fmt.Errorf("open export history: %w", err)
	}
	defer s.Close()

	records, err := s.RecentExports(ctx, limit)
	if err != nil {
		return err
	}

	for _, rec := range records {
		status := "ok"
		if rec.Error != "" {
			status = "failed: " + rec.Error
		}
		fmt.Printf("%s  mail=%s  note=%s  %q  %s\n",
			rec.ExportedAt.Local().Format("2006-01-02 15:04:05"),
			rec.MailID, rec.NoteID, rec.Subject, status)
	}
	return nil
}

func parseUIDList(input string) ([]uint32, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}

	parts := strings.Split(input, ",")
	uids := make([]uint32, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		uid, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid UID %q: %w", part, err)
		}
		uids = append(uids, uint32(uid))
	}
	return uids, nil
}
