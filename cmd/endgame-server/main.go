package main

import (
	"flag"
	"log"
	"net/http"
	"os"
	"runtime/pprof"
	"time"

	"github.com/hailam/endgame/internal/server"
	"github.com/hailam/endgame/internal/syzygy"
	"github.com/hailam/endgame/internal/tablebase"
)

var (
	addr       = flag.String("addr", ":9000", "listen address")
	tablePath  = flag.String("path", "", "tablebase directory (default: cache dir)")
	maxOpen    = flag.Int("max-open", 0, "max table files kept mapped (0 = default)")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
	}

	dir := *tablePath
	if dir == "" {
		dir = tablebase.DefaultCacheDir()
	}

	tables := syzygy.NewTablebase(*maxOpen)
	defer tables.Close()

	if _, err := os.Stat(dir); err == nil {
		n, err := tables.AddDirectory(dir)
		if err != nil {
			log.Fatal("could not scan tablebase directory: ", err)
		}
		log.Printf("[Syzygy] Serving %d tables from %s (max %d pieces)", n, dir, tables.LargestWdl())
	} else {
		log.Printf("[Syzygy] No tables at %s yet, use the download endpoint", dir)
	}

	srv := server.New(tables, tablebase.NewSyzygyDownloader(dir))

	// No write timeout: the download endpoint streams for minutes.
	httpServer := &http.Server{
		Addr:              *addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("Listening on %s", *addr)
	log.Fatal(httpServer.ListenAndServe())
}
