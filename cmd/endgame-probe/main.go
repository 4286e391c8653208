package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"runtime/pprof"

	"github.com/hailam/endgame/internal/board"
	"github.com/hailam/endgame/internal/storage"
	"github.com/hailam/endgame/internal/syzygy"
	"github.com/hailam/endgame/internal/tablebase"
)

var (
	tablePath  = flag.String("path", "", "tablebase directory (default: cache dir)")
	useCache   = flag.Bool("cache", false, "persist probe results on disk")
	showRoot   = flag.Bool("root", false, "rank all root moves")
	cpuprofile = flag.String("cpuprofile", "", "write cpu profile to file")
)

func main() {
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] FEN...\n", os.Args[0])
		flag.PrintDefaults()
		os.Exit(2)
	}

	// Start CPU profiling if requested (via flag or environment variable)
	profilePath := *cpuprofile
	if profilePath == "" {
		profilePath = os.Getenv("CPUPROFILE")
	}
	if profilePath != "" {
		f, err := os.Create(profilePath)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		defer pprof.StopCPUProfile()
		log.Printf("CPU profiling enabled, writing to %s", profilePath)
	}

	sp := tablebase.NewSyzygyProber(*tablePath)
	defer sp.Close()

	var prober tablebase.Prober = sp
	if *useCache {
		store, err := storage.NewStorage()
		if err != nil {
			log.Fatal("could not open probe cache: ", err)
		}
		defer store.Close()
		prober = tablebase.NewPersistentProber(sp, store)
	}

	exitCode := 0
	for _, fen := range flag.Args() {
		if err := probeOne(prober, fen); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", fen, err)
			exitCode = 1
		}
	}
	os.Exit(exitCode)
}

func probeOne(prober tablebase.Prober, fen string) error {
	pos, err := board.ParseFEN(fen)
	if err != nil {
		return err
	}

	result := prober.Probe(pos)
	if !result.Found {
		return fmt.Errorf("position not found in any tablebase")
	}

	material := syzygy.CalcKey(pos, false)
	fmt.Printf("%s: %s (dtz %d)\n", material, wdlName(result.WDL), result.DTZ)

	if *showRoot {
		root := prober.ProbeRoot(pos)
		if root.Found {
			fmt.Printf("  best move: %s (dtz %d)\n", root.Move.ToSAN(pos), root.DTZ)
		}
	}
	return nil
}

func wdlName(wdl tablebase.WDL) string {
	switch wdl {
	case tablebase.WDLWin:
		return "win"
	case tablebase.WDLCursedWin:
		return "cursed win"
	case tablebase.WDLDraw:
		return "draw"
	case tablebase.WDLBlessedLoss:
		return "blessed loss"
	case tablebase.WDLLoss:
		return "loss"
	}
	return "unknown"
}
