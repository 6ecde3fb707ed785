package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/txlogd/txlog/admin"
	"github.com/txlogd/txlog/api"
	"github.com/txlogd/txlog/archive"
	"github.com/txlogd/txlog/certify"
	"github.com/txlogd/txlog/config"
	"github.com/txlogd/txlog/dedup"
	"github.com/txlogd/txlog/ledger"
	"github.com/txlogd/txlog/metrics"
	"github.com/txlogd/txlog/offload"
	"github.com/txlogd/txlog/prepared"
	"github.com/txlogd/txlog/query"
	"github.com/txlogd/txlog/storage"
	"github.com/txlogd/txlog/utils"
	"github.com/txlogd/txlog/utils/log"
)

const name = `txlogd`
const desc = `txlogd is a certified, append-only transaction log for a replicated canister.`

var (
	version = "unknown"
)

var (
	configFile string
	logLevel   string

	cpuProfile string
	memProfile string

	noLogo      bool
	showVersion bool
)

const logo = `
 _____        __                __
|_   _|  __  | |__    __ _  __ _\ \
  | |   \ \/ /| '_ \ / _  |/ _  | |
  | |    >  < | | | | (_| | (_| | |
  |_|   /_/\_\|_| |_|\__, |\__, |/
                      __/ | __/ |
                     |___/ |___/
`

func init() {
	flag.BoolVar(&noLogo, "nologo", false, "Do not print logo")
	flag.BoolVar(&showVersion, "version", false, "Show version information and exit")
	flag.StringVar(&configFile, "config", "~/.txlogd/config.yaml", "Config file path")
	flag.StringVar(&logLevel, "log-level", "", "Service log level")
	flag.StringVar(&cpuProfile, "cpu-profile", "", "Path to file for CPU profiling information")
	flag.StringVar(&memProfile, "mem-profile", "", "Path to file for memory profiling information")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "\n%s\n\n", desc)
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [arguments]\n", name)
		flag.PrintDefaults()
	}
}

func initLogs() {
	log.Infof("%#v starting, version %#v", name, version)
	log.Infof("%#v, target architecture is %#v, operating system target is %#v", runtime.Version(), runtime.GOARCH, runtime.GOOS)
}

func main() {
	flag.Parse()
	rand.Seed(time.Now().UnixNano())
	log.SetStringLevel(logLevel, log.InfoLevel)

	if showVersion {
		fmt.Printf("%v %v %v %v %v\n", name, version, runtime.GOOS, runtime.GOARCH, runtime.Version())
		os.Exit(0)
	}

	configFile = utils.HomeDirExpand(configFile)

	flag.Visit(func(f *flag.Flag) {
		log.Infof("args %#v : %s", f.Name, f.Value)
	})

	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		log.WithField("config", configFile).WithError(err).Fatal("load config failed")
	}
	config.GConf = cfg

	initLogs()
	if !noLogo {
		fmt.Print(logo)
	}

	if err := utils.StartProfile(cpuProfile, memProfile); err != nil {
		log.WithError(err).Fatal("start profile failed")
	}
	defer utils.StopProfile()

	eng, err := bootstrap(*cfg)
	if err != nil {
		log.WithError(err).Fatal("bootstrap failed")
	}
	defer eng.Close()

	eng.Start()
	defer eng.Stop()

	<-utils.WaitForExit()
	log.Info("txlogd stopped")
}

// engine is the fully wired set of daemon components a running process
// owns. It exists to give main a single Start/Stop/Close to call instead
// of six independent lifecycles.
type engine struct {
	snapshotStore *storage.Store
	components    storage.Components

	offloadJob  *offload.Job
	apiServer   *api.Server
	adminServer *admin.Server
}

func bootstrap(cfg config.Config) (*engine, error) {
	window, err := dedup.New(cfg.TxWindow, cfg.MaxTransactionsInWindow)
	if err != nil {
		return nil, fmt.Errorf("constructing window index: %w", err)
	}
	prep := prepared.New()

	l := ledger.InitLog(ledger.LogConfig{
		SupportedBlockTypes:     cfg.SupportedBlockTypes(),
		TxWindow:                cfg.TxWindow,
		MaxTransactionsInWindow: cfg.MaxTransactionsInWindow,
	}, window, prep)

	factory := &archive.LevelDBFactory{BaseDir: cfg.ArchiveDir}
	archiveMgr := archive.NewManager(archive.Config{
		MaxMemorySizeBytes: cfg.MaxMemorySizeBytes,
		InitialCycles:      cfg.InitialCycles,
		ReservedCycles:     cfg.ReservedCycles,
		MaxRetries:         cfg.MaxRetries,
	}, factory, cfg.InitialCycles)

	cert := certify.NewCertifier(certify.NewInMemoryPlatform())
	l.SetCertifier(cert)

	snapStore, err := storage.Open(cfg.SnapshotPath)
	if err != nil {
		return nil, fmt.Errorf("opening snapshot store: %w", err)
	}

	components := storage.Components{
		Log:     l,
		Window:  window,
		Pending: prep,
		Archive: archiveMgr,
		Config:  cfg,
	}

	if snap, ok, err := snapStore.Load(); err != nil {
		snapStore.Close()
		return nil, fmt.Errorf("loading snapshot: %w", err)
	} else if ok {
		if err := storage.Restore(components, snap); err != nil {
			snapStore.Close()
			return nil, fmt.Errorf("restoring snapshot: %w", err)
		}
		for _, sh := range archiveMgr.Shards() {
			shard, err := factory.ReopenShard(sh.Address, cfg.MaxMemorySizeBytes)
			if err != nil {
				snapStore.Close()
				return nil, fmt.Errorf("reopening shard %s: %w", sh.Address, err)
			}
			if err := archiveMgr.Reopen(sh.Address, shard); err != nil {
				snapStore.Close()
				return nil, fmt.Errorf("registering reopened shard %s: %w", sh.Address, err)
			}
		}
		log.WithField("log_length", l.LogLength()).Info("restored snapshot")
	}

	federator, err := query.NewFederator(l, archiveMgr, cfg.MaxBlocksPerResponse)
	if err != nil {
		snapStore.Close()
		return nil, fmt.Errorf("constructing query federator: %w", err)
	}

	job := offload.NewJob(context.Background(), offload.Config{
		TickInterval:        cfg.OffloadTickInterval,
		ArchiveThreshold:    cfg.MaxUnarchivedTransactions,
		MaxSegmentSizeBytes: int(cfg.MaxSegmentSizeBytes),
		RetryBackoff:        cfg.OffloadRetryBackoff,
	}, l, archiveMgr)

	apiServer := api.NewServer(l, federator, archiveMgr, cert, cfg)
	apiServer.ListenAddr = cfg.ListenAddr

	var adminServer *admin.Server
	if cfg.AdminListenAddr != "" {
		dashboard := admin.NewDashboard(l, archiveMgr, job)
		adminServer = admin.NewServer(cfg.AdminListenAddr, dashboard)
	}

	metrics.Register(metrics.NewCollector(l, archiveMgr))
	if cfg.MetricsListenAddr != "" {
		metrics.Serve(cfg.MetricsListenAddr)
	}

	return &engine{
		snapshotStore: snapStore,
		components:    components,
		offloadJob:    job,
		apiServer:     apiServer,
		adminServer:   adminServer,
	}, nil
}

func (e *engine) Start() {
	e.offloadJob.Start()
	e.apiServer.StartServers()
	if e.adminServer != nil {
		e.adminServer.Start()
	}
}

func (e *engine) Stop() {
	e.apiServer.StopServers()
	if e.adminServer != nil {
		e.adminServer.Stop()
	}
	e.offloadJob.Stop()

	snap := storage.Take(e.components)
	if err := e.snapshotStore.Save(snap); err != nil {
		log.WithError(err).Error("saving final snapshot failed")
	}
}

func (e *engine) Close() {
	if err := e.snapshotStore.Close(); err != nil {
		log.WithError(err).Error("closing snapshot store failed")
	}
}
