package model

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// IMAPConfig holds the mail server connection settings.
type IMAPConfig struct {
	// Host is the IMAP server hostname (e.g., imap.gmail.com).
	Host string `mapstructure:"host" yaml:"host"`

	// Port is the IMAP server port, 993 for implicit TLS.
	Port int `mapstructure:"port" yaml:"port"`

	// TLS selects implicit TLS; when false the client upgrades with STARTTLS.
	TLS bool `mapstructure:"tls" yaml:"tls"`

	// Mailbox is the folder that is searched for statements.
	Mailbox string `mapstructure:"mailbox" yaml:"mailbox"`
}

// SearchConfig lists the independent criteria that are OR-combined when
// searching the mailbox.
type SearchConfig struct {
	HDFCSenders     []string `mapstructure:"hdfc_senders" yaml:"hdfc_senders"`
	IDFCSenders     []string `mapstructure:"idfc_senders" yaml:"idfc_senders"`
	SubjectKeywords []string `mapstructure:"subject_keywords" yaml:"subject_keywords"`
	BodyPhrases     []string `mapstructure:"body_phrases" yaml:"body_phrases"`
}

// Senders returns every configured sender address.
func (s SearchConfig) Senders() []string {
	senders := make([]string, 0, len(s.HDFCSenders)+len(s.IDFCSenders))
	senders = append(senders, s.HDFCSenders...)
	senders = append(senders, s.IDFCSenders...)
	return senders
}

// FileNamingConfig controls how downloaded attachments are named.
type FileNamingConfig struct {
	IncludeBankName  bool `mapstructure:"include_bank_name" yaml:"include_bank_name"`
	IncludeTimestamp bool `mapstructure:"include_timestamp" yaml:"include_timestamp"`
}

// FilterConfig holds the acceptance bounds for statements.
type FilterConfig struct {
	MinFileSize int64   `mapstructure:"min_file_size" yaml:"min_file_size"`
	MaxFileSize int64   `mapstructure:"max_file_size" yaml:"max_file_size"`
	MinAmount   float64 `mapstructure:"min_amount" yaml:"min_amount"`
	MaxAmount   float64 `mapstructure:"max_amount" yaml:"max_amount"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level"`

	// Dir is the directory for the daily log file. Empty disables file logging.
	Dir string `mapstructure:"dir" yaml:"dir"`
}

// ArchiveConfig holds the optional object storage settings used to keep a
// copy of every downloaded statement.
type ArchiveConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	UseSSL    bool   `mapstructure:"use_ssl" yaml:"use_ssl"`
	Prefix    string `mapstructure:"prefix" yaml:"prefix"`
}

// ExportConfig holds the paths for tabular extracts written after a run.
// Empty paths disable the corresponding extract.
type ExportConfig struct {
	XLSXPath string `mapstructure:"xlsx_path" yaml:"xlsx_path"`
	CSVPath  string `mapstructure:"csv_path" yaml:"csv_path"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	IMAP           IMAPConfig       `mapstructure:"imap" yaml:"imap"`
	DownloadFolder string           `mapstructure:"download_folder" yaml:"download_folder"`
	DatabasePath   string           `mapstructure:"database_path" yaml:"database_path"`
	SearchCriteria SearchConfig     `mapstructure:"search_criteria" yaml:"search_criteria"`
	FileNaming     FileNamingConfig `mapstructure:"file_naming" yaml:"file_naming"`
	Filters        FilterConfig     `mapstructure:"filters" yaml:"filters"`
	Log            LogConfig        `mapstructure:"log" yaml:"log"`
	Archive        ArchiveConfig    `mapstructure:"archive" yaml:"archive"`
	Export         ExportConfig     `mapstructure:"export" yaml:"export"`
}

// DefaultConfigPath returns the default path for the configuration file.
func DefaultConfigPath() string {
	return filepath.Join("config", "statements.yaml")
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *AppConfig {
	return &AppConfig{
		IMAP: IMAPConfig{
			Host:    "imap.gmail.com",
			Port:    993,
			TLS:     true,
			Mailbox: "INBOX",
		},
		DownloadFolder: filepath.Join("data", "raw_emails"),
		DatabasePath:   filepath.Join("data", "statements.db"),
		SearchCriteria: SearchConfig{
			HDFCSenders: []string{
				"creditcards@hdfcbank.net",
				"creditcard@hdfcbank.net",
				"statements@hdfcbank.com",
			},
			IDFCSenders: []string{
				"statements@idfcfirstbank.com",
				"creditcard@idfcfirstbank.com",
				"noreply@idfcfirstbank.com",
			},
			SubjectKeywords: []string{
				"statement", "credit card", "bill", "HDFC", "IDFC",
				"Credit Card Statement", "Monthly Statement",
			},
			BodyPhrases: []string{"HDFC Credit Card", "IDFC FIRST Bank"},
		},
		FileNaming: FileNamingConfig{
			IncludeBankName:  true,
			IncludeTimestamp: true,
		},
		Filters: FilterConfig{
			MinFileSize: 1024,
			MaxFileSize: 10 * 1024 * 1024,
			MinAmount:   50,
			MaxAmount:   1_000_000,
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "logs",
		},
		Archive: ArchiveConfig{
			Bucket: "statements",
			UseSSL: true,
		},
	}
}

// setDefaults registers every default on v so partially written files
// resolve missing keys.
func setDefaults(v *viper.Viper, cfg *AppConfig) {
	v.SetDefault("imap.host", cfg.IMAP.Host)
	v.SetDefault("imap.port", cfg.IMAP.Port)
	v.SetDefault("imap.tls", cfg.IMAP.TLS)
	v.SetDefault("imap.mailbox", cfg.IMAP.Mailbox)
	v.SetDefault("download_folder", cfg.DownloadFolder)
	v.SetDefault("database_path", cfg.DatabasePath)
	v.SetDefault("search_criteria.hdfc_senders", cfg.SearchCriteria.HDFCSenders)
	v.SetDefault("search_criteria.idfc_senders", cfg.SearchCriteria.IDFCSenders)
	v.SetDefault("search_criteria.subject_keywords", cfg.SearchCriteria.SubjectKeywords)
	v.SetDefault("search_criteria.body_phrases", cfg.SearchCriteria.BodyPhrases)
	v.SetDefault("file_naming.include_bank_name", cfg.FileNaming.IncludeBankName)
	v.SetDefault("file_naming.include_timestamp", cfg.FileNaming.IncludeTimestamp)
	v.SetDefault("filters.min_file_size", cfg.Filters.MinFileSize)
	v.SetDefault("filters.max_file_size", cfg.Filters.MaxFileSize)
	v.SetDefault("filters.min_amount", cfg.Filters.MinAmount)
	v.SetDefault("filters.max_amount", cfg.Filters.MaxAmount)
	v.SetDefault("log.level", cfg.Log.Level)
	v.SetDefault("log.dir", cfg.Log.Dir)
	v.SetDefault("archive.enabled", cfg.Archive.Enabled)
	v.SetDefault("archive.bucket", cfg.Archive.Bucket)
	v.SetDefault("archive.use_ssl", cfg.Archive.UseSSL)
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, defaults are used. IMAP_SERVER and IMAP_PORT
// in the environment override the file.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	setDefaults(v, DefaultConfig())

	if err := v.BindEnv("imap.host", "IMAP_SERVER"); err != nil {
		return nil, fmt.Errorf("binding IMAP_SERVER: %w", err)
	}
	if err := v.BindEnv("imap.port", "IMAP_PORT"); err != nil {
		return nil, fmt.Errorf("binding IMAP_PORT: %w", err)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.Is(err, fs.ErrNotExist) && !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	}

	cfg := &AppConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("imap", cfg.IMAP)
	v.Set("download_folder", cfg.DownloadFolder)
	v.Set("database_path", cfg.DatabasePath)
	v.Set("search_criteria", cfg.SearchCriteria)
	v.Set("file_naming", cfg.FileNaming)
	v.Set("filters", cfg.Filters)
	v.Set("log", cfg.Log)
	v.Set("archive", cfg.Archive)
	v.Set("export", cfg.Export)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
