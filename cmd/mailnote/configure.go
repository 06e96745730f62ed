package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/nhle/mailnote/internal/credential"
	"github.com/nhle/mailnote/internal/joplin"
	"github.com/nhle/mailnote/internal/model"
	"github.com/nhle/mailnote/internal/notify"
)

// runConfigure walks the user through the destination, mailbox and export
// settings, stores secrets in the system keyring and writes the config
// file.
func runConfigure(args []string) error {
	fs := flag.NewFlagSet("configure", flag.ExitOnError)
	configPath := fs.String("config", model.DefaultConfigPath(), "config file path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := model.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	joplinPort := strconv.Itoa(cfg.Joplin.Port)
	var token, password string

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Joplin API host").
				Value(&cfg.Joplin.Host),
			huh.NewInput().
				Title("Joplin API port").
				Value(&joplinPort),
			huh.NewInput().
				Title("Joplin API token (blank keeps the stored one)").
				EchoMode(huh.EchoModePassword).
				Value(&token),
			huh.NewInput().
				Title("Destination notebook id").
				Value(&cfg.Joplin.ParentFolder),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("IMAP host").
				Value(&cfg.Mail.Host),
			huh.NewInput().
				Title("IMAP port").
				Value(&cfg.Mail.Port),
			huh.NewInput().
				Title("IMAP username").
				Value(&cfg.Mail.Username),
			huh.NewInput().
				Title("IMAP password (blank keeps the stored one)").
				EchoMode(huh.EchoModePassword).
				Value(&password),
			huh.NewInput().
				Title("Mailbox").
				Value(&cfg.Mail.Mailbox),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Note title template").
				Value(&cfg.Joplin.TitleTemplate),
			huh.NewInput().
				Title("Note header template").
				Value(&cfg.Joplin.HeaderTemplate),
			huh.NewSelect[string]().
				Title("Preferred note format").
				Options(
					huh.NewOption("HTML", model.ContentTypeHTML),
					huh.NewOption("Plain text", model.ContentTypePlain),
				).
				Value(&cfg.Joplin.NoteFormat),
			huh.NewSelect[string]().
				Title("Attachments").
				Options(
					huh.NewOption("Attach to the note", model.AttachmentsAttach),
					huh.NewOption("Ignore", model.AttachmentsIgnore),
				).
				Value(&cfg.Joplin.Attachments),
			huh.NewSelect[string]().
				Title("Show notifications").
				Options(
					huh.NewOption("Always", string(notify.ModeAlways)),
					huh.NewOption("On success", string(notify.ModeOnSuccess)),
					huh.NewOption("On failure", string(notify.ModeOnFailure)),
					huh.NewOption("Never", string(notify.ModeNever)),
				).
				Value(&cfg.Joplin.ShowNotifications),
		),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("running configuration form: %w", err)
	}

	port, err := strconv.Atoi(joplinPort)
	if err != nil {
		return fmt.Errorf("invalid Joplin API port %q: %w", joplinPort, err)
	}
	cfg.Joplin.Port = port

	if token != "" {
		if err := credential.Set(credential.APITokenKey, token); err != nil {
			return err
		}
	}
	if password != "" {
		if err := credential.Set(credential.IMAPPasswordKey, password); err != nil {
			return err
		}
	}

	if err := model.SaveConfig(*configPath, cfg); err != nil {
		return err
	}
	fmt.Printf("Configuration written to %s\n", *configPath)

	checkConnectivity(cfg)
	return nil
}

// checkConnectivity pings the note service with the stored token. A
// failure here is advice, not an error: the service may simply be down.
func checkConnectivity(cfg *model.Config) {
	token := cfg.Joplin.Token
	if token == "" {
		if value, err := credential.Get(credential.APITokenKey); err == nil {
			token = value
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client := joplin.NewClient(cfg.Joplin.Scheme, cfg.Joplin.Host, cfg.Joplin.Port, token)
	if err := client.Ping(ctx); err != nil {
		fmt.Printf("Warning: could not reach the note service: %v\n", err)
		return
	}
	fmt.Println("Note service is reachable.")
}
