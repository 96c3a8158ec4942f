package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/cloudflare/tableflip"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/omalloc/relay/cache"
	"github.com/omalloc/relay/conf"
	"github.com/omalloc/relay/contrib/app"
	"github.com/omalloc/relay/contrib/config"
	"github.com/omalloc/relay/contrib/config/provider/file"
	"github.com/omalloc/relay/contrib/log"
	"github.com/omalloc/relay/contrib/transport"
	"github.com/omalloc/relay/internal/constants"
	"github.com/omalloc/relay/proxy"
	"github.com/omalloc/relay/server"
)

var (
	id, _ = os.Hostname()

	// flagConf is the config flag.
	flagConf string
	// flagVerbose is the verbose flag.
	flagVerbose bool

	// Version is the version of the app.
	Version string = "no-set"
	GitHash string = "no-set"
)

func init() {
	// init flag
	flag.StringVar(&flagConf, "c", "", "config file path")
	flag.BoolVar(&flagVerbose, "v", false, "enable verbose log")

	// init prometheus
	prometheus.Unregister(collectors.NewGoCollector())
	registerer := prometheus.WrapRegistererWithPrefix("om_relay_", prometheus.DefaultRegisterer)
	registerer.MustRegister(collectors.NewGoCollector(collectors.WithGoCollectorMemStatsMetricsDisabled()))
}

func usage() {
	fmt.Fprintf(os.Stderr, "usage: %s [-c config.yaml] [-v] <port>\n", os.Args[0])
	os.Exit(1)
}

func main() {
	flag.Parse()

	if flag.NArg() != 1 {
		usage()
	}
	port := flag.Arg(0)
	if _, err := strconv.ParseUint(port, 10, 16); err != nil {
		usage()
	}

	bc := conf.Default()
	if flagConf != "" {
		c := config.New[conf.Bootstrap](config.WithSource(file.NewSource(flagConf)))
		defer c.Close()

		if err := c.Scan(bc); err != nil {
			log.Fatal(err)
		}
	}

	// the positional port always wins over server.addr
	bc.Server.Addr = overridePort(bc.Server.Addr, port)
	if flagVerbose {
		bc.Logger.Level = "debug"
	}

	log.SetLogger(log.Configure(log.Config{
		Level:      bc.Logger.Level,
		Path:       bc.Logger.Path,
		Caller:     bc.Logger.Caller,
		MaxSize:    bc.Logger.MaxSize,
		MaxAge:     bc.Logger.MaxAge,
		MaxBackups: bc.Logger.MaxBackups,
		Compress:   bc.Logger.Compress,
	}))

	a, cleanup, err := newApp(bc)
	if err != nil {
		log.Fatal(err)
	}
	defer cleanup()

	if err := a.Run(); err != nil {
		log.Fatal(err)
	}
}

func newApp(bc *conf.Bootstrap) (*app.App, func(), error) {
	// graceful upgrade, only when a pid file is configured
	var flip *tableflip.Upgrader
	if bc.PidFile != "" {
		var err error
		flip, err = tableflip.New(tableflip.Options{
			PIDFile:        bc.PidFile,
			UpgradeTimeout: 120 * time.Second,
		})
		if err != nil {
			return nil, nil, err
		}
	}

	// init the shared content cache
	store := cache.New(
		cache.WithMaxObjectSize(bc.Cache.MaxObjectSize),
		cache.WithMaxCacheSize(bc.Cache.MaxCacheSize),
		cache.WithRefreshOnDuplicate(bc.Cache.RefreshOnDuplicate),
	)

	px := proxy.New(
		proxy.WithCache(store),
		proxy.WithDialTimeout(bc.Origin.DialTimeout),
		proxy.WithIdleTimeout(bc.Server.IdleTimeout),
		proxy.WithAccessLog(server.NewAccessLog(bc.Server.AccessLog)),
	)

	servers := []transport.Server{
		server.NewServer(flip, bc.Server, px),
	}
	if bc.Admin != nil && bc.Admin.Addr != "" {
		servers = append(servers, server.NewAdminServer(bc.Admin, store))
	}

	cleanup := func() {
		store.Shutdown()
		if flip != nil {
			flip.Stop()
		}
	}

	return app.New(
		app.ID(id),
		app.Name(constants.AppName),
		app.Version(Version),
		app.StopTimeout(30*time.Second),
		app.Server(servers...),
	), cleanup, nil
}

func overridePort(addr, port string) string {
	host := ""
	if h, _, err := net.SplitHostPort(addr); err == nil {
		host = h
	}
	return net.JoinHostPort(host, port)
}
