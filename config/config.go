package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del backtester.
type Config struct {
	Engine   EngineConfig   `yaml:"engine"`
	Broker   BrokerConfig   `yaml:"broker"`
	Data     DataConfig     `yaml:"data"`
	Calendar CalendarConfig `yaml:"calendar"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// EngineConfig controla la simulación.
type EngineConfig struct {
	StartingCash float64 `yaml:"starting_cash"`
	HistoryLen   int     `yaml:"history_len"` // barras visibles hacia atrás por activo
	DeferFills   bool    `yaml:"defer_fills"` // true retrasa las órdenes nuevas un paso
}

// BrokerConfig selecciona los modelos de ejecución.
type BrokerConfig struct {
	Slippage   SlippageConfig   `yaml:"slippage"`
	Commission CommissionConfig `yaml:"commission"`
}

// SlippageConfig parametriza el modelo de slippage.
type SlippageConfig struct {
	Model       string  `yaml:"model"`        // none | fixed | volume_share
	Offset      float64 `yaml:"offset"`       // fixed: desplazamiento absoluto
	PriceImpact float64 `yaml:"price_impact"` // volume_share
	VolumeLimit float64 `yaml:"volume_limit"` // volume_share: cap de participación
}

// CommissionConfig parametriza el modelo de comisiones.
type CommissionConfig struct {
	Model    string  `yaml:"model"`     // none | per_share | per_trade
	PerShare float64 `yaml:"per_share"` // per_share: coste por acción
	Minimum  float64 `yaml:"minimum"`   // per_share: mínimo por operación
	PerTrade float64 `yaml:"per_trade"` // per_trade: tarifa plana
}

// DataConfig selecciona la fuente de barras y el universo.
type DataConfig struct {
	Source    string   `yaml:"source"`  // csv | stooq
	CSVDir    string   `yaml:"csv_dir"` // csv: directorio con SYMBOL.csv
	Symbols   []string `yaml:"symbols"` // stooq: universo a descargar
	StooqBase string   `yaml:"stooq_base"`
	Start     string   `yaml:"start"` // YYYY-MM-DD
	End       string   `yaml:"end"`
}

// CalendarConfig selecciona el calendario de sesiones.
type CalendarConfig struct {
	Name string `yaml:"name"` // weekday | nyse
}

// StorageConfig controla dónde se archivan los resultados.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	return &cfg, nil
}

// SameBarFills devuelve la política de resolución: true (por defecto)
// permite ejecutar una orden en la misma barra en la que se envió.
func (c *Config) SameBarFills() bool {
	return !c.Engine.DeferFills
}

// StartDate devuelve el inicio del periodo simulado en UTC.
func (c *Config) StartDate() (time.Time, error) {
	return parseDate(c.Data.Start, "data.start")
}

// EndDate devuelve el final del periodo simulado en UTC.
func (c *Config) EndDate() (time.Time, error) {
	return parseDate(c.Data.End, "data.end")
}

func parseDate(s, field string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("config: %s is required (YYYY-MM-DD)", field)
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("config: parse %s %q: %w", field, s, err)
	}
	return t, nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("BACKSIM_DB"); v != "" {
		cfg.Storage.DSN = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Engine.StartingCash <= 0 {
		cfg.Engine.StartingCash = 100_000
	}
	if cfg.Engine.HistoryLen <= 0 {
		cfg.Engine.HistoryLen = 30
	}
	if cfg.Broker.Slippage.Model == "" {
		cfg.Broker.Slippage.Model = "none"
	}
	if cfg.Broker.Commission.Model == "" {
		cfg.Broker.Commission.Model = "none"
	}
	if cfg.Data.Source == "" {
		cfg.Data.Source = "csv"
	}
	if cfg.Data.CSVDir == "" {
		cfg.Data.CSVDir = "data"
	}
	if cfg.Calendar.Name == "" {
		cfg.Calendar.Name = "nyse"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "backsim.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
