package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Google       GoogleConfig       `mapstructure:"google"`
	Mail         MailConfig         `mapstructure:"mail"`
	Storage      StorageConfig      `mapstructure:"storage"`
	Sheet        SheetConfig        `mapstructure:"sheet"`
	Extraction   ExtractionConfig   `mapstructure:"extraction"`
	Notification NotificationConfig `mapstructure:"notification"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
}

// AppConfig holds process-wide settings
type AppConfig struct {
	Name     string `mapstructure:"name"`
	LogLevel string `mapstructure:"log_level"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds the run-history database connection. An empty driver
// disables run history.
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"` // mysql, postgres, sqlite
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Path     string `mapstructure:"path"`
}

// GoogleConfig holds OAuth2 credentials shared by the Gmail, Drive and Sheets
// clients. CredentialsFile is used by the Cloud clients (GCS, Document AI).
type GoogleConfig struct {
	ClientID        string `mapstructure:"client_id"`
	ClientSecret    string `mapstructure:"client_secret"`
	RefreshToken    string `mapstructure:"refresh_token"`
	UserEmail       string `mapstructure:"user_email"`
	CredentialsFile string `mapstructure:"credentials_file"`
}

// MailConfig holds the mailbox search and archive destination
type MailConfig struct {
	Provider         string `mapstructure:"provider"` // gmail, imap
	IMAPHost         string `mapstructure:"imap_host"`
	IMAPPort         int    `mapstructure:"imap_port"`
	IMAPUser         string `mapstructure:"imap_user"`
	IMAPPassword     string `mapstructure:"imap_password"`
	IMAPMailbox      string `mapstructure:"imap_mailbox"`
	Sender           string `mapstructure:"sender"`
	SearchTerm       string `mapstructure:"search_term"`
	WorkflowName     string `mapstructure:"workflow_name"`
	RootFolderID     string `mapstructure:"root_folder_id"`
	AttachmentFilter string `mapstructure:"attachment_filter"`
	DaysBack         int    `mapstructure:"days_back"`
	MaxResults       int    `mapstructure:"max_results"`
}

// StorageConfig selects the archive backend
type StorageConfig struct {
	Provider  string `mapstructure:"provider"` // drive, gcs, local
	GCSBucket string `mapstructure:"gcs_bucket"`
	LocalPath string `mapstructure:"local_path"`
}

// SheetConfig holds the destination spreadsheet and its side tables
type SheetConfig struct {
	Provider               string        `mapstructure:"provider"` // google, excel
	ExcelPath              string        `mapstructure:"excel_path"`
	SpreadsheetID          string        `mapstructure:"spreadsheet_id"`
	SheetRange             string        `mapstructure:"sheet_range"`
	FailedExtractionsSheet string        `mapstructure:"failed_extractions_sheet"`
	WorkflowLogSheet       string        `mapstructure:"workflow_log_sheet"`
	WorkflowLogSheetID     string        `mapstructure:"workflow_log_sheet_id"`
	RemainingFilesSheet    string        `mapstructure:"remaining_files_sheet"`
	RemainingFilesSheetID  string        `mapstructure:"remaining_files_sheet_id"`
	FolderID               string        `mapstructure:"folder_id"`
	DaysBack               int           `mapstructure:"days_back"`
	MaxFiles               int           `mapstructure:"max_files"`
	WritesPerMinute        int           `mapstructure:"writes_per_minute"`
	AppendAttempts         int           `mapstructure:"append_attempts"`
	AppendBackoff          time.Duration `mapstructure:"append_backoff"`
}

// ExtractionConfig holds the extraction service and its retry policy
type ExtractionConfig struct {
	Provider           string              `mapstructure:"provider"` // llama, documentai
	LlamaAPIKey        string              `mapstructure:"llama_api_key"`
	LlamaBaseURL       string              `mapstructure:"llama_base_url"`
	Agent              string              `mapstructure:"agent"`
	PollInterval       time.Duration       `mapstructure:"poll_interval"`
	PollTimeout        time.Duration       `mapstructure:"poll_timeout"`
	DocAIProject       string              `mapstructure:"documentai_project"`
	DocAILocation      string              `mapstructure:"documentai_location"`
	DocAIProcessor     string              `mapstructure:"documentai_processor"`
	MaxAttempts        int                 `mapstructure:"max_attempts"`
	RetryDelay         time.Duration       `mapstructure:"retry_delay"`
	BreakerEnabled     bool                `mapstructure:"breaker_enabled"`
	BreakerMinRequests int                 `mapstructure:"breaker_min_requests"`
	BreakerRatio       float64             `mapstructure:"breaker_failure_ratio"`
	BreakerTimeout     time.Duration       `mapstructure:"breaker_open_timeout"`
	Aliases            map[string][]string `mapstructure:"aliases"`
	ValidatePDF        bool                `mapstructure:"validate_pdf"`
}

// NotificationConfig holds the run summary email settings
type NotificationConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Sender     string   `mapstructure:"sender"`
	Recipients []string `mapstructure:"recipients"`
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Interval      time.Duration `mapstructure:"interval"`
	RunOnStart    bool          `mapstructure:"run_on_start"`
	Once          bool          `mapstructure:"once"`
	WorkflowDelay time.Duration `mapstructure:"workflow_delay"`
}

// Load reads configuration from an optional config file, then environment
// variables. path may be empty to search ./config.yaml and ./config/config.yaml.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvVars(v)

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "GRN Sheet Sync")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("server.enabled", true)
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")

	v.SetDefault("database.driver", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.path", "grn-sheet-sync.db")

	v.SetDefault("mail.provider", "gmail")
	v.SetDefault("mail.imap_host", "imap.gmail.com")
	v.SetDefault("mail.imap_port", 993)
	v.SetDefault("mail.imap_mailbox", "INBOX")
	v.SetDefault("mail.search_term", "GRN")
	v.SetDefault("mail.workflow_name", "GRN")
	v.SetDefault("mail.attachment_filter", "GRN.pdf")
	v.SetDefault("mail.days_back", 7)
	v.SetDefault("mail.max_results", 500)

	v.SetDefault("storage.provider", "drive")

	v.SetDefault("sheet.provider", "google")
	v.SetDefault("sheet.sheet_range", "grn")
	v.SetDefault("sheet.failed_extractions_sheet", "failed_extractions")
	v.SetDefault("sheet.workflow_log_sheet", "workflow_logs")
	v.SetDefault("sheet.remaining_files_sheet", "remaining_files")
	v.SetDefault("sheet.days_back", 7)
	v.SetDefault("sheet.max_files", 1000)
	v.SetDefault("sheet.writes_per_minute", 60)
	v.SetDefault("sheet.append_attempts", 3)
	v.SetDefault("sheet.append_backoff", "2s")

	v.SetDefault("extraction.provider", "llama")
	v.SetDefault("extraction.llama_base_url", "https://api.cloud.llamaindex.ai")
	v.SetDefault("extraction.agent", "GRN Agent")
	v.SetDefault("extraction.poll_interval", "2s")
	v.SetDefault("extraction.poll_timeout", "5m")
	v.SetDefault("extraction.documentai_location", "us")
	v.SetDefault("extraction.max_attempts", 5)
	v.SetDefault("extraction.retry_delay", "2s")
	v.SetDefault("extraction.breaker_enabled", true)
	v.SetDefault("extraction.breaker_min_requests", 10)
	v.SetDefault("extraction.breaker_failure_ratio", 1.0)
	v.SetDefault("extraction.breaker_open_timeout", "5m")
	v.SetDefault("extraction.validate_pdf", true)

	v.SetDefault("notification.enabled", true)

	v.SetDefault("scheduler.interval", "3h")
	v.SetDefault("scheduler.run_on_start", true)
	v.SetDefault("scheduler.once", false)
	v.SetDefault("scheduler.workflow_delay", "5s")
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.log_level", "LOG_LEVEL")

	// Server
	v.BindEnv("server.port", "SERVER_PORT")

	// Database
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.dbname", "DB_NAME")
	v.BindEnv("database.path", "DB_PATH")

	// Google
	v.BindEnv("google.client_id", "GOOGLE_CLIENT_ID")
	v.BindEnv("google.client_secret", "GOOGLE_CLIENT_SECRET")
	v.BindEnv("google.refresh_token", "GOOGLE_REFRESH_TOKEN")
	v.BindEnv("google.user_email", "GOOGLE_USER_EMAIL")
	v.BindEnv("google.credentials_file", "GOOGLE_APPLICATION_CREDENTIALS")

	// Mail
	v.BindEnv("mail.provider", "MAIL_PROVIDER")
	v.BindEnv("mail.imap_user", "MAIL_IMAP_USER")
	v.BindEnv("mail.imap_password", "MAIL_IMAP_PASSWORD")
	v.BindEnv("mail.sender", "MAIL_SENDER")
	v.BindEnv("mail.root_folder_id", "MAIL_ROOT_FOLDER_ID")

	// Storage
	v.BindEnv("storage.provider", "STORAGE_PROVIDER")
	v.BindEnv("storage.gcs_bucket", "STORAGE_GCS_BUCKET")
	v.BindEnv("storage.local_path", "STORAGE_LOCAL_PATH")

	// Sheet
	v.BindEnv("sheet.spreadsheet_id", "SHEET_SPREADSHEET_ID")
	v.BindEnv("sheet.folder_id", "SHEET_FOLDER_ID")
	v.BindEnv("sheet.excel_path", "SHEET_EXCEL_PATH")

	// Extraction
	v.BindEnv("extraction.llama_api_key", "LLAMA_CLOUD_API_KEY")
	v.BindEnv("extraction.documentai_project", "DOCUMENTAI_PROJECT")
	v.BindEnv("extraction.documentai_processor", "DOCUMENTAI_PROCESSOR")

	// Notification
	v.BindEnv("notification.recipients", "NOTIFICATION_RECIPIENTS")
}

// GetDSN returns the database connection string for the configured driver
func (c *DatabaseConfig) GetDSN() string {
	switch c.Driver {
	case "postgres":
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
	case "sqlite":
		return c.Path
	default:
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			c.User, c.Password, c.Host, c.Port, c.DBName)
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Enabled && c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Database.Driver {
	case "":
	case "mysql", "postgres":
		if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
			return fmt.Errorf("database host, user, and dbname are required")
		}
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database path is required for sqlite")
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	needsOAuth := false
	switch c.Mail.Provider {
	case "gmail":
		needsOAuth = true
	case "imap":
		if c.Mail.IMAPUser == "" || c.Mail.IMAPPassword == "" {
			return fmt.Errorf("IMAP credentials are required when using IMAP")
		}
	default:
		return fmt.Errorf("unsupported mail provider %q", c.Mail.Provider)
	}
	if c.Mail.Sender == "" {
		return fmt.Errorf("mail sender is required")
	}
	if c.Mail.AttachmentFilter == "" {
		return fmt.Errorf("mail attachment filter is required")
	}
	if c.Mail.DaysBack <= 0 || c.Sheet.DaysBack <= 0 {
		return fmt.Errorf("days back must be greater than 0")
	}

	switch c.Storage.Provider {
	case "drive":
		needsOAuth = true
		if c.Mail.RootFolderID == "" {
			return fmt.Errorf("mail root folder id is required for drive storage")
		}
	case "gcs":
		if c.Storage.GCSBucket == "" {
			return fmt.Errorf("gcs bucket is required for gcs storage")
		}
	case "local":
		if c.Storage.LocalPath == "" {
			return fmt.Errorf("storage local path is required for local storage")
		}
	default:
		return fmt.Errorf("unsupported storage provider %q", c.Storage.Provider)
	}

	switch c.Sheet.Provider {
	case "google":
		needsOAuth = true
		if c.Sheet.SpreadsheetID == "" {
			return fmt.Errorf("sheet spreadsheet id is required")
		}
	case "excel":
		if c.Sheet.ExcelPath == "" {
			return fmt.Errorf("sheet excel path is required for excel provider")
		}
	default:
		return fmt.Errorf("unsupported sheet provider %q", c.Sheet.Provider)
	}
	if c.Sheet.SheetRange == "" {
		return fmt.Errorf("sheet range is required")
	}

	switch c.Extraction.Provider {
	case "llama":
		if c.Extraction.LlamaAPIKey == "" || c.Extraction.Agent == "" {
			return fmt.Errorf("llama api key and agent name are required")
		}
	case "documentai":
		if c.Extraction.DocAIProject == "" || c.Extraction.DocAIProcessor == "" {
			return fmt.Errorf("document ai project and processor are required")
		}
	default:
		return fmt.Errorf("unsupported extraction provider %q", c.Extraction.Provider)
	}
	if c.Extraction.MaxAttempts <= 0 {
		return fmt.Errorf("extraction max attempts must be greater than 0")
	}

	if c.Notification.Enabled && c.Mail.Provider != "gmail" {
		return fmt.Errorf("notifications require the gmail mail provider")
	}

	if needsOAuth && (c.Google.ClientID == "" || c.Google.ClientSecret == "" || c.Google.RefreshToken == "") {
		return fmt.Errorf("Google OAuth2 credentials are required")
	}

	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler interval must be greater than 0")
	}

	return nil
}
