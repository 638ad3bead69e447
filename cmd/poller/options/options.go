package options

import (
	"context"
	"os"
	"time"

	"github.com/spf13/pflag"

	"swrgateway/cmd/poller/config"
	"swrgateway/pkg/gateway"
	baseoptions "swrgateway/pkg/generic/options"
	"swrgateway/pkg/poller"
	"swrgateway/pkg/storage"
)

type Options struct {
	// Endpoint is either host:port of a serial-to-ethernet bridge or the
	// path of a local serial device. Usually given as the positional
	// argument; the config file may provide it instead.
	Endpoint           string        `json:"device"`
	Interval           uint          `json:"interval"`
	CloseBetweenCycles bool          `json:"closeBetweenCycles"`
	DumpDir            string        `json:"dumpDir"`
	PidFile            string        `json:"pidFile"`
	DatabaseDSN        string        `json:"databaseDsn"`
	MQTTBroker         string        `json:"mqttBroker"`
	DataDir            string        `json:"dataDir"`
	Port               string        `json:"port"`
	Wait               time.Duration `json:"graceful-timeout"`
	baseoptions.BaseOptions
}

const (
	_defaultInterval = 60
	_defaultPort     = "32210"
	_defaultDataDir  = "data"
	_defaultWait     = 15 * time.Second

	storeConnectTimeout = 10 * time.Second
)

func NewDefaultOptions() *Options {
	return &Options{
		Interval:    _defaultInterval,
		Port:        _defaultPort,
		DataDir:     _defaultDataDir,
		Wait:        _defaultWait,
		BaseOptions: baseoptions.NewDefaultBaseOptions(),
	}
}

func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.UintVarP(&o.Interval, "interval", "i", o.Interval, "Poll interval in seconds. Polls stay phase-locked to multiples of it")
	fs.BoolVarP(&o.CloseBetweenCycles, "close-between-cycles", "c", o.CloseBetweenCycles, "Close and re-open the transport between poll cycles")
	fs.StringVarP(&o.DumpDir, "dump-dir", "l", o.DumpDir, "Capture raw bus traffic as <dir>/<unix_ts>.from and <dir>/<unix_ts>.to")
	fs.StringVarP(&o.PidFile, "pid-file", "p", o.PidFile, "Write the process id to this file")
	fs.StringVar(&o.DatabaseDSN, "db-dsn", o.DatabaseDSN, "Postgres connection string for the stats and comments streams. Empty keeps the streams in memory")
	fs.StringVar(&o.MQTTBroker, "mqtt-broker", o.MQTTBroker, "Publish committed cycles to this MQTT broker - e.g. tcp://localhost:1883. Empty disables publishing")
	fs.StringVar(&o.DataDir, "data-dir", o.DataDir, "Directory holding the gateway identity")
	fs.StringVarP(&o.Port, "port", "P", o.Port, "Port exposed for the read surface")
	fs.DurationVar(&o.Wait, "graceful-timeout", o.Wait, "The duration for which the server gracefully wait for existing connections to finish - e.g. 15s or 1m")
}

func (o *Options) Config(stopCh <-chan struct{}) (*config.Config, error) {
	c := &config.Config{}

	ctx, cancel := context.WithTimeout(context.Background(), storeConnectTimeout)
	defer cancel()
	var store storage.Storage
	if len(o.DatabaseDSN) > 0 {
		pg, err := storage.NewPostgresStore(ctx, o.DatabaseDSN)
		if err != nil {
			return nil, err
		}
		store = pg
	} else {
		store = storage.NewMemoryStore()
	}
	c.Store = store

	gatewayMgr := gateway.NewGatewayManager(o.DataDir)
	if err := gatewayMgr.Init(); err != nil {
		store.Close()
		return nil, err
	}
	c.GatewayMeta = gatewayMgr.GetGatewayMeta()

	opts := []poller.Option{
		poller.WithCloseBetweenCycles(o.CloseBetweenCycles),
	}
	if len(o.DumpDir) > 0 {
		if err := os.MkdirAll(o.DumpDir, 0711); err != nil {
			store.Close()
			return nil, err
		}
		opts = append(opts, poller.WithDumpDir(o.DumpDir))
	}
	if len(o.MQTTBroker) > 0 {
		publisher, err := poller.NewPublisher(o.MQTTBroker, c.GatewayMeta.ID)
		if err != nil {
			store.Close()
			return nil, err
		}
		c.Publisher = publisher
		opts = append(opts, poller.WithPublisher(publisher))
	}

	c.PollerMgr = poller.NewManager(o.Endpoint, time.Duration(o.Interval)*time.Second, store, stopCh, opts...)

	return c, nil
}
