// Package cmd holds what every command of the version store shares: flags,
// configuration loading and the opened store.
package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/merelin/diffa-sub000/config"
	"github.com/merelin/diffa-sub000/hash"
	"github.com/merelin/diffa-sub000/log"
	"github.com/merelin/diffa-sub000/metrics"
	"github.com/merelin/diffa-sub000/sql"
	"github.com/merelin/diffa-sub000/vstore"
)

var (
	// Version is the app's semantic version. Designed to be overwritten by make.
	Version string

	// Branch is the git branch used to build the App. Designed to be overwritten by make.
	Branch string

	// Commit is the git commit used to build the app. Designed to be overwritten by make.
	Commit string
)

// Logger names.
const (
	AppLogger         = "app"
	StoreLogger       = "store"
	InterviewLogger   = "interview"
	ParticipantLogger = "participant"
	DatabaseLogger    = "db"
)

// flag name to config key.
var flagKeys = map[string]string{
	"config":       "main.config",
	"db":           "main.db",
	"hash":         "main.hash",
	"log-encoder":  "main.log-encoder",
	"metrics-port": "metrics.port",
}

// AddCommands adds the persistent flags shared by every command.
func AddCommands(cmd *cobra.Command) {
	defaults := config.DefaultConfig()
	flags := cmd.PersistentFlags()
	flags.StringP("config", "c", "", "load configuration from file")
	flags.String("db", defaults.DB, "location of the sqlite database")
	flags.String("hash", defaults.Hash, fmt.Sprintf("hash function of digests, one of %v", hash.Names()))
	flags.String("log-encoder", defaults.LogEncoder, "log as json or console text")
	flags.Int("metrics-port", defaults.Metrics.Port, "serve prometheus metrics on this port, 0 disables")
	bindFlags(flags)
}

func bindFlags(flags *pflag.FlagSet) {
	for name, key := range flagKeys {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("BUG: bind flag %s: %v", name, err))
		}
	}
}

// LoadConfig reads the config file named by the flags and applies flags on top of it.
func LoadConfig() (*config.Config, error) {
	if err := config.LoadConfig(viper.GetString("main.config"), viper.GetViper()); err != nil {
		return nil, err
	}
	return config.Unmarshal(viper.GetViper())
}

// App is the opened version store together with its logging and metrics.
type App struct {
	Config *config.Config
	Store  *vstore.Store

	logger *zap.Logger
	root   *zap.Logger
	levels log.Levels
	db     *sql.Database

	cancel context.CancelFunc
	pushed <-chan struct{}
}

// NewApp opens the database and the store described by conf. Endpoints of the
// configuration are registered and their max slice sizes applied.
func NewApp(ctx context.Context, conf *config.Config) (*App, error) {
	encoder, err := log.Encoder(conf.LogEncoder)
	if err != nil {
		return nil, err
	}
	levels, err := log.DecodeLevels(conf.Logging)
	if err != nil {
		return nil, err
	}
	fn, err := hash.ByName(conf.Hash)
	if err != nil {
		return nil, err
	}
	// child loggers lower the level per module
	root := log.NewWithLevel("", zap.NewAtomicLevelAt(zapcore.DebugLevel), encoder)
	app := &App{
		Config: conf,
		root:   root,
		levels: levels,
	}
	app.logger = app.Named(AppLogger)

	ctx, app.cancel = context.WithCancel(ctx)
	if conf.Metrics.Port > 0 {
		metrics.StartCollecting(ctx, app.logger, conf.Metrics.Port)
	}
	if conf.Metrics.URL != "" {
		app.pushed = metrics.StartPushing(ctx, app.logger, conf.Metrics.PushConfig, conf.DB)
	}

	app.db, err = sql.Open("file:"+conf.DB,
		sql.WithLogger(app.Named(DatabaseLogger)),
		sql.WithConnections(conf.DBConnections),
		sql.WithLatencyMetering(conf.DBLatencyMetering),
	)
	if err != nil {
		app.cancel()
		return nil, fmt.Errorf("open database: %w", err)
	}
	opts := []vstore.Opt{
		vstore.WithLogger(app.Named(StoreLogger)),
		vstore.WithHash(fn),
		vstore.WithConfig(conf.Store),
	}
	for i := range conf.Endpoints {
		e := &conf.Endpoints[i]
		layout, err := e.Layout()
		if err != nil {
			return nil, errors.Join(err, app.Close())
		}
		opts = append(opts, vstore.WithEndpoint(e.ID, layout))
	}
	app.Store = vstore.New(app.db, opts...)
	for _, e := range conf.Endpoints {
		if e.MaxSliceSize == 0 {
			continue
		}
		if err := app.Store.SetMaxSliceSize(ctx, e.ID, e.MaxSliceSize); err != nil {
			return nil, errors.Join(err, app.Close())
		}
	}
	app.logger.Debug("store opened",
		zap.String("db", conf.DB),
		zap.String("hash", conf.Hash),
		zap.Int("endpoints", len(conf.Endpoints)),
	)
	return app, nil
}

// Named returns the logger of the module with its configured level.
func (app *App) Named(name string) *zap.Logger {
	return app.levels.Named(app.root, name)
}

// Logger of the application.
func (app *App) Logger() *zap.Logger {
	return app.logger
}

// Close stops metrics, waiting for the last push, and closes the database.
func (app *App) Close() error {
	app.cancel()
	if app.pushed != nil {
		<-app.pushed
	}
	if app.db == nil {
		_ = app.root.Sync()
		return nil
	}
	app.logger.Debug("closing database", zap.Int("queries", app.db.QueryCount()))
	_ = app.root.Sync()
	return app.db.Close()
}

// Run loads the configuration, opens the app and passes it to exec. The app
// is closed once exec returns.
func Run(cmd *cobra.Command, exec func(ctx context.Context, app *App) error) error {
	conf, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	app, err := NewApp(cmd.Context(), conf)
	if err != nil {
		return err
	}
	err = exec(cmd.Context(), app)
	return errors.Join(err, app.Close())
}
