// Command crocket-demo is a minimal host harness for the crocket sync
// tracker: it declares a small variable registry, runs a frame loop
// calling Update, prints the bound values, and optionally serves
// Prometheus metrics for the session.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kajott/crocket"
	"github.com/kajott/crocket/internal/config"
	"github.com/kajott/crocket/internal/metrics"
)

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		log.Printf("loading .env: %v", err)
	}
	cfg := config.Load()

	saveFile := flag.String("save", cfg.SaveFile, "track file to load in player mode / save to on SAVE_TRACKS")
	rpm := flag.Float64("rpm", cfg.RPM, "rows per minute (60 = 1 row per second)")
	metricsAddr := flag.String("metrics-addr", cfg.MetricsAddr, "if set, serve Prometheus metrics on this address")
	journalPath := flag.String("journal", cfg.JournalPath, "if set, record session events to this SQLite journal")
	flag.Parse()

	var rotation, scale float32

	var coll *metrics.Collector
	if *metricsAddr != "" {
		coll = metrics.New()
		reg := prometheus.NewRegistry()
		reg.MustRegister(coll)
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		go func() {
			log.Printf("metrics listening on %s", *metricsAddr)
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Printf("metrics server: %v", err)
			}
		}()
	}

	c := crocket.Init(crocket.Options{
		Vars: []crocket.Var{
			{Name: "cube.rotation", Value: &rotation},
			{Name: "cube.scale", Value: &scale},
		},
		SaveFile:    *saveFile,
		RPM:         *rpm,
		Metrics:     coll,
		JournalPath: *journalPath,
	})
	defer c.Shutdown()

	log.Printf("mode = %v", c.Mode())

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	start := time.Now()
	ticker := time.NewTicker(cfg.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-sig:
			fmt.Println("shutting down")
			return
		case now := <-ticker.C:
			t := now.Sub(start).Seconds()
			mask := c.Update(&t)
			fmt.Printf("t=%.3f rotation=%.3f scale=%.3f mask=%09b\n", t, rotation, scale, mask)
			if mask&crocket.Disconnect != 0 {
				log.Printf("lost connection to editor")
			}
			if mask&crocket.ConnectEvt != 0 {
				log.Printf("connected to editor")
			}
		}
	}
}
