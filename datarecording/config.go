package datarecording

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	log "github.com/sirupsen/logrus"
)

// Backend types accepted by RecorderConfig.
const (
	BackendSQLite     = "sqlite"
	BackendClickHouse = "clickhouse"
)

// RecorderConfig selects and configures a recording backend.
type RecorderConfig struct {
	// Type is BackendSQLite or BackendClickHouse. Empty means SQLite.
	Type string

	// Path is the SQLite file. Empty picks a unique name.
	Path string

	// ConnStr is a ClickHouse DSN, such as
	// "clickhouse://localhost:9000/desim?username=default". When set, the
	// individual connection fields are ignored.
	ConnStr string

	Host     string
	Port     int
	Database string
	Username string
	Password string

	// BatchSize is the number of buffered entries that triggers a flush.
	// Zero means the default.
	BatchSize int
}

// NewDataRecorderWithConfig creates a DataRecorder for the configured backend.
func NewDataRecorderWithConfig(c RecorderConfig) (DataRecorder, error) {
	if c.BatchSize < 0 {
		return nil, fmt.Errorf("datarecording: negative batch size %d",
			c.BatchSize)
	}

	switch c.Type {
	case "", BackendSQLite:
		r, err := New(c.Path)
		if err != nil {
			return nil, err
		}

		if c.BatchSize > 0 {
			r.(*sqlWriter).batchSize = c.BatchSize
		}

		return r, nil
	case BackendClickHouse:
		return newClickHouseRecorder(c)
	default:
		return nil, fmt.Errorf("datarecording: unknown backend %q", c.Type)
	}
}

// clickHouseOptions turns the config into driver options.
func clickHouseOptions(c RecorderConfig) (*clickhouse.Options, error) {
	if c.ConnStr != "" {
		opts, err := clickhouse.ParseDSN(c.ConnStr)
		if err != nil {
			return nil, fmt.Errorf("datarecording: parse DSN: %w", err)
		}

		return opts, nil
	}

	if c.Host == "" || c.Port <= 0 {
		return nil, fmt.Errorf(
			"datarecording: ClickHouse needs a DSN or a host and port")
	}

	opts := &clickhouse.Options{
		Addr: []string{net.JoinHostPort(c.Host, strconv.Itoa(c.Port))},
		Auth: clickhouse.Auth{
			Database: c.Database,
			Username: c.Username,
			Password: c.Password,
		},
		Settings: clickhouse.Settings{
			"max_execution_time": 60,
		},
		DialTimeout:      30 * time.Second,
		MaxOpenConns:     5,
		MaxIdleConns:     5,
		ConnMaxLifetime:  time.Hour,
		ConnOpenStrategy: clickhouse.ConnOpenInOrder,
	}

	return opts, nil
}

func newClickHouseRecorder(c RecorderConfig) (DataRecorder, error) {
	opts, err := clickHouseOptions(c)
	if err != nil {
		return nil, err
	}

	db := clickhouse.OpenDB(opts)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("datarecording: ping ClickHouse at %v: %w",
			opts.Addr, err)
	}

	log.WithField("addr", opts.Addr).Info("ClickHouse connected for recording")

	return newSQLWriter(db, clickHouseDialect{}, c.BatchSize), nil
}
