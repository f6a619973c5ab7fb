package config

type AppConfig struct {
	APIPort     string `env:"PORT" envDefault:"8080"`
	RabbitMQURL string `env:"RABBITMQ_URL"`
	// MimeHostname is used in synthesized Message-ID headers.
	MimeHostname string `env:"MIME_HOSTNAME" envDefault:"syncgate.local"`
}

type DatabaseConfig struct {
	Host            string `env:"SYNCGATE_POSTGRES_HOST,required"`
	Port            string `env:"SYNCGATE_POSTGRES_PORT,required"`
	User            string `env:"SYNCGATE_POSTGRES_USER,required"`
	DBName          string `env:"SYNCGATE_POSTGRES_DB_NAME,required"`
	Password        string `env:"SYNCGATE_POSTGRES_PASSWORD,required"`
	MaxConn         int    `env:"SYNCGATE_POSTGRES_DB_MAX_CONN"`
	MaxIdleConn     int    `env:"SYNCGATE_POSTGRES_DB_MAX_IDLE_CONN"`
	ConnMaxLifetime int    `env:"SYNCGATE_POSTGRES_DB_CONN_MAX_LIFETIME"`
	LogLevel        string `env:"SYNCGATE_POSTGRES_LOG_LEVEL" envDefault:"WARN"`
	SSLMode         string `env:"SYNCGATE_POSTGRES_SSL_MODE" envDefault:"disable"`
}

type CronConfig struct {
	// Schedule for the maintenance sweep, cron syntax.
	MaintenanceSchedule string `env:"CRON_MAINTENANCE_SCHEDULE" envDefault:"0 * * * *"`
	StalePendingHours   int    `env:"CRON_STALE_PENDING_HOURS" envDefault:"24"`
	IdleDeviceDays      int    `env:"CRON_IDLE_DEVICE_DAYS" envDefault:"30"`
}
