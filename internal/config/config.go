// Package config carga la configuración inmutable del monitor desde el entorno
// (y un .env opcional) y la valida una sola vez al arrancar.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	apperrors "github.com/juancollazo-ch/holded-order-monitor/internal/errors"
)

const (
	NotifierEmail   = "email"
	NotifierWebhook = "webhook"
	NotifierBoth    = "both"
)

type Holded struct {
	APIKey         string `validate:"required"`
	BaseURL        string `validate:"required,url"`
	TimeoutSeconds int    `validate:"min=1,max=300"`
}

// Catalog: archivo local o URL remota, al menos uno de los dos.
type Catalog struct {
	FilePath string `validate:"required_without=URL"`
	URL      string `validate:"omitempty,url"`
	Token    string
}

type Email struct {
	SMTPServer    string `validate:"required"`
	SMTPPort      int    `validate:"min=1,max=65535"`
	Username      string `validate:"required"`
	Password      string `validate:"required"`
	From          string `validate:"required"`
	TargetEmail   string `validate:"required,email"`
	SubjectPrefix string
}

type Webhook struct {
	URL string `validate:"required,url"`
}

type Schedule struct {
	Hour   int `validate:"min=0,max=23"`
	Minute int `validate:"min=0,max=59"`
}

// OperationHours es la ventana [StartHour, EndHour) en la zona configurada.
type OperationHours struct {
	StartHour int `validate:"min=0,max=23"`
	EndHour   int `validate:"min=0,max=23,gtfield=StartHour"`
}

type Retry struct {
	Attempts    int `validate:"min=1,max=10"`
	BaseDelayMS int `validate:"min=1"`
}

// Config se construye una vez y se pasa por puntero a cada componente.
// Ningún componente lee el entorno por su cuenta.
type Config struct {
	Holded               Holded
	Catalog              Catalog
	Email                Email
	Webhook              Webhook
	Notifier             string `validate:"oneof=email webhook both"`
	Timezone             string `validate:"required"`
	Schedule             Schedule
	Operation            OperationHours
	CheckIntervalMinutes int    `validate:"min=0,max=1440"`
	RetentionHours       int    `validate:"min=1"`
	ProcessedOrdersFile  string `validate:"required"`
	TestMode             bool
	TestEmailOnly        bool
	LogLevel             string `validate:"oneof=debug info warn error"`
	Port                 string `validate:"required,numeric"`
	Retry                Retry

	location *time.Location
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HOLDED_BASE_URL", "https://api.holded.com/api/invoicing/v1")
	v.SetDefault("HOLDED_TIMEOUT_SECONDS", 30)
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("EMAIL_SUBJECT_PREFIX", "[Conway Alert]")
	v.SetDefault("NOTIFIER", NotifierEmail)
	v.SetDefault("TIMEZONE", "Europe/Madrid")
	v.SetDefault("SCHEDULE_HOUR", 9)
	v.SetDefault("SCHEDULE_MINUTE", 0)
	v.SetDefault("OPERATION_START_HOUR", 7)
	v.SetDefault("OPERATION_END_HOUR", 23)
	v.SetDefault("CHECK_INTERVAL_MINUTES", 0)
	v.SetDefault("DEDUP_RETENTION_HOURS", 48)
	v.SetDefault("PROCESSED_ORDERS_FILE", "logs/processed_orders.json")
	v.SetDefault("TEST_MODE", false)
	v.SetDefault("TEST_EMAIL_ONLY", false)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PORT", "8080")
	v.SetDefault("RETRY_ATTEMPTS", 3)
	v.SetDefault("RETRY_BASE_DELAY_MS", 500)
}

// Load lee los .env indicados (por defecto ".env"; las variables ya presentes en el
// entorno tienen prioridad), aplica los valores por defecto y valida.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, apperrors.ErrConfiguration("cannot read "+f, err)
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)

	username := v.GetString("EMAIL_USERNAME")
	from := v.GetString("EMAIL_FROM")
	if from == "" {
		from = username
	}

	cfg := &Config{
		Holded: Holded{
			APIKey:         v.GetString("HOLDED_API_KEY"),
			BaseURL:        strings.TrimRight(v.GetString("HOLDED_BASE_URL"), "/"),
			TimeoutSeconds: v.GetInt("HOLDED_TIMEOUT_SECONDS"),
		},
		Catalog: Catalog{
			FilePath: v.GetString("CATALOG_FILE_PATH"),
			URL:      v.GetString("CATALOG_URL"),
			Token:    v.GetString("CATALOG_TOKEN"),
		},
		Email: Email{
			SMTPServer:    v.GetString("SMTP_SERVER"),
			SMTPPort:      v.GetInt("SMTP_PORT"),
			Username:      username,
			Password:      v.GetString("EMAIL_PASSWORD"),
			From:          from,
			TargetEmail:   v.GetString("TARGET_EMAIL"),
			SubjectPrefix: v.GetString("EMAIL_SUBJECT_PREFIX"),
		},
		Webhook:              Webhook{URL: v.GetString("WEBHOOK_URL")},
		Notifier:             strings.ToLower(v.GetString("NOTIFIER")),
		Timezone:             v.GetString("TIMEZONE"),
		Schedule:             Schedule{Hour: v.GetInt("SCHEDULE_HOUR"), Minute: v.GetInt("SCHEDULE_MINUTE")},
		Operation:            OperationHours{StartHour: v.GetInt("OPERATION_START_HOUR"), EndHour: v.GetInt("OPERATION_END_HOUR")},
		CheckIntervalMinutes: v.GetInt("CHECK_INTERVAL_MINUTES"),
		RetentionHours:       v.GetInt("DEDUP_RETENTION_HOURS"),
		ProcessedOrdersFile:  v.GetString("PROCESSED_ORDERS_FILE"),
		TestMode:             v.GetBool("TEST_MODE"),
		TestEmailOnly:        v.GetBool("TEST_EMAIL_ONLY"),
		LogLevel:             strings.ToLower(v.GetString("LOG_LEVEL")),
		Port:                 v.GetString("PORT"),
		Retry:                Retry{Attempts: v.GetInt("RETRY_ATTEMPTS"), BaseDelayMS: v.GetInt("RETRY_BASE_DELAY_MS")},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate comprueba la estructura completa. Las secciones de e-mail y webhook sólo
// se exigen si el notificador seleccionado las usa.
func (c *Config) Validate() error {
	validate := validator.New()

	if err := validate.StructExcept(c, "Email", "Webhook"); err != nil {
		return apperrors.ErrConfiguration(describe(err), err)
	}
	if c.Notifier == NotifierEmail || c.Notifier == NotifierBoth {
		if err := validate.Struct(c.Email); err != nil {
			return apperrors.ErrConfiguration(describe(err), err)
		}
	}
	if c.Notifier == NotifierWebhook || c.Notifier == NotifierBoth {
		if err := validate.Struct(c.Webhook); err != nil {
			return apperrors.ErrConfiguration(describe(err), err)
		}
	}

	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return apperrors.ErrConfiguration("unknown TIMEZONE "+c.Timezone, err)
	}
	c.location = loc
	return nil
}

// Location devuelve la zona horaria cargada (UTC si la config no pasó por Validate).
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

func (c *Config) RetryBaseDelay() time.Duration {
	return time.Duration(c.Retry.BaseDelayMS) * time.Millisecond
}

func (c *Config) HoldedTimeout() time.Duration {
	return time.Duration(c.Holded.TimeoutSeconds) * time.Second
}

// Summary es una vista sin secretos para el comando status.
func (c *Config) Summary() map[string]interface{} {
	catalog := c.Catalog.FilePath
	if catalog == "" {
		catalog = c.Catalog.URL
	}
	return map[string]interface{}{
		"catalog_source":  catalog,
		"api_base_url":    c.Holded.BaseURL,
		"notifier":        c.Notifier,
		"target_email":    "[REDACTED]",
		"test_mode":       c.TestMode,
		"test_email_only": c.TestEmailOnly,
		"retention_hours": c.RetentionHours,
		"ledger_file":     c.ProcessedOrdersFile,
	}
}

// describe convierte los errores del validador en un mensaje con el nombre de cada campo.
func describe(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		if fe.Param() != "" {
			parts = append(parts, fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param()))
		} else {
			parts = append(parts, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
		}
	}
	return strings.Join(parts, "; ")
}
