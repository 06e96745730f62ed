package model

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Content types carried by mail body nodes. These are the only two kinds
// the exporter selects between.
const (
	ContentTypeHTML  = "text/html"
	ContentTypePlain = "text/plain"
)

// Attachment policies.
const (
	AttachmentsAttach = "attach"
	AttachmentsIgnore = "ignore"
)

// JoplinConfig holds the destination service settings and all export
// customization options. Optional values default to the empty string or
// false; only the parent folder is required, checked per export.
type JoplinConfig struct {
	// Scheme, Host and Port locate the note service's REST API.
	Scheme string `mapstructure:"scheme" yaml:"scheme"`
	Host   string `mapstructure:"host" yaml:"host"`
	Port   int    `mapstructure:"port" yaml:"port"`

	// Token authenticates every API call. When empty, the token is read
	// from the system keyring instead.
	Token string `mapstructure:"token" yaml:"token"`

	// ParentFolder is the id of the notebook that receives exported notes.
	ParentFolder string `mapstructure:"parent_folder" yaml:"parent_folder"`

	// ShowNotifications gates the aggregate notification:
	// always, onSuccess, onFailure or never.
	ShowNotifications string `mapstructure:"show_notifications" yaml:"show_notifications"`

	// SubjectTrimRegex and AuthorTrimRegex remove the first matching
	// substring from the subject/author before template rendering.
	SubjectTrimRegex string `mapstructure:"subject_trim_regex" yaml:"subject_trim_regex"`
	AuthorTrimRegex  string `mapstructure:"author_trim_regex" yaml:"author_trim_regex"`

	// DateFormat is a Go reference layout applied to the mail date for
	// template rendering. Empty passes the date through unformatted.
	DateFormat string `mapstructure:"date_format" yaml:"date_format"`

	// TitleTemplate and HeaderTemplate are placeholder templates rendered
	// against the mail's fields ({{subject}}, {{author}}, {{date}}, ...).
	TitleTemplate  string `mapstructure:"title_template" yaml:"title_template"`
	HeaderTemplate string `mapstructure:"header_template" yaml:"header_template"`

	// NoteFormat is the preferred body content type, text/html or text/plain.
	NoteFormat string `mapstructure:"note_format" yaml:"note_format"`

	// ExportAsTodo creates the note as a todo item.
	ExportAsTodo bool `mapstructure:"export_as_todo" yaml:"export_as_todo"`

	// Tags is a comma separated list attached to every exported note.
	Tags string `mapstructure:"tags" yaml:"tags"`

	// TagsFromEmail additionally attaches the mail's own tag labels.
	TagsFromEmail bool `mapstructure:"tags_from_email" yaml:"tags_from_email"`

	// Attachments is the attachment policy, attach or ignore.
	Attachments string `mapstructure:"attachments" yaml:"attachments"`
}

// MailConfig holds the IMAP mailbox settings for the shipped host.
type MailConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`

	// Password authenticates the IMAP session. When empty, the password
	// is read from the system keyring instead.
	Password string `mapstructure:"password" yaml:"password"`

	TLS     bool   `mapstructure:"tls" yaml:"tls"`
	Mailbox string `mapstructure:"mailbox" yaml:"mailbox"`

	// Recent is how many of the newest messages count as "displayed"
	// when no explicit UIDs are given on the command line.
	Recent int `mapstructure:"recent" yaml:"recent"`

	// TagLabels maps IMAP keyword flags to human readable tag labels.
	TagLabels map[string]string `mapstructure:"tag_labels" yaml:"tag_labels"`
}

// HistoryConfig holds the local export history settings.
type HistoryConfig struct {
	// Path is the sqlite database file. Empty disables history.
	Path string `mapstructure:"path" yaml:"path"`
}

// Config is the immutable settings snapshot resolved once per invocation.
type Config struct {
	Joplin  JoplinConfig  `mapstructure:"joplin" yaml:"joplin"`
	Mail    MailConfig    `mapstructure:"mail" yaml:"mail"`
	History HistoryConfig `mapstructure:"history" yaml:"history"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/mailnote/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "mailnote", "config.yaml")
}

// defaultHistoryPath returns the default sqlite file next to the config.
func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "history.db")
	}
	return filepath.Join(home, ".config", "mailnote", "history.db")
}

// setDefaults registers defaults so missing keys resolve to usable values
// rather than errors.
func setDefaults(v *viper.Viper) {
	v.SetDefault("joplin.scheme", "http")
	v.SetDefault("joplin.host", "127.0.0.1")
	v.SetDefault("joplin.port", 41184)
	v.SetDefault("joplin.show_notifications", "always")
	v.SetDefault("joplin.title_template", "{{subject}} from {{author}}")
	v.SetDefault("joplin.note_format", ContentTypeHTML)
	v.SetDefault("joplin.tags", "email")
	v.SetDefault("joplin.attachments", AttachmentsAttach)
	v.SetDefault("mail.port", "993")
	v.SetDefault("mail.tls", true)
	v.SetDefault("mail.mailbox", "INBOX")
	v.SetDefault("mail.recent", 1)
	v.SetDefault("history.path", defaultHistoryPath())
}

// defaultConfig returns the configuration used when no file exists yet.
func defaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	cfg := &Config{}
	_ = v.Unmarshal(cfg)
	return cfg
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns the default configuration.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("joplin", cfg.Joplin)
	v.Set("mail", cfg.Mail)
	v.Set("history", cfg.History)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
