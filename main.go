package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/aunum/log"
	"github.com/samuelfneumann/hra/agent/hra"
	"github.com/samuelfneumann/hra/examples"
	"github.com/samuelfneumann/hra/experiment"
	"github.com/samuelfneumann/hra/experiment/checkpointer"
	"github.com/samuelfneumann/hra/experiment/tracker"
)

var runners = map[string]func(examples.Options) (examples.Summary, error){
	"cartpole":    examples.CartpoleHRA,
	"mountaincar": examples.MountainCarHRA,
	"tictactoe":   examples.TicTacToeHRA,
}

func main() {
	example := flag.String("example", "cartpole",
		"example to run: cartpole, mountaincar, or tictactoe")
	configFile := flag.String("config", "", "JSON agent configuration")
	train := flag.Int("episodes", 0, "training episodes (0 for default)")
	test := flag.Int("test", 0, "testing episodes (0 for default)")
	seed := flag.Uint64("seed", 192382, "random seed")
	checkpoints := flag.String("checkpoints", "",
		"checkpoint directory, or SQLite database if ending in .db")
	metrics := flag.String("metrics", "", "SQLite database of metrics")
	data := flag.String("data", "", "file to save metrics to with gob")
	plot := flag.String("plot", "", "HTML file to plot returns to")
	window := flag.Int("window", 20, "rolling mean window")
	flag.Parse()

	run, ok := runners[*example]
	if !ok {
		log.Fatalf("unknown example %q", *example)
	}
	o := examples.Options{
		TrainEpisodes: *train,
		TestEpisodes:  *test,
		Seed:          *seed,
		Out:           os.Stdout,
	}

	if *configFile != "" {
		f, err := os.Open(*configFile)
		if err != nil {
			log.Fatal(err)
		}
		c, err := hra.ReadConfig(f)
		f.Close()
		if err != nil {
			log.Fatal(err)
		}
		o.Config = &c
	}

	if *checkpoints != "" {
		store, err := newStore(*checkpoints)
		if err != nil {
			log.Fatal(err)
		}
		if c, ok := store.(*checkpointer.SQLiteStore); ok {
			defer c.Close()
		}
		o.Store = store
	}

	mem := tracker.NewMemory(*data)
	sinks := []tracker.Tracker{mem}
	if *metrics != "" {
		db, err := tracker.NewSQLite(*metrics)
		if err != nil {
			log.Fatal(err)
		}
		log.Infof("recording metrics as run %v", db.RunID())
		sinks = append(sinks, db)
	}
	t, err := tracker.NewRolling(tracker.NewMulti(sinks...), *window,
		experiment.ReturnMetric, hra.EpisodeRewardMetric)
	if err != nil {
		log.Fatal(err)
	}
	o.Tracker = t

	summary, err := run(o)
	if err != nil {
		t.Close()
		log.Fatal(err)
	}
	fmt.Println(summary)

	if *plot != "" {
		if err := plotReturns(*plot, *example, mem); err != nil {
			t.Close()
			log.Fatal(err)
		}
	}
	if err := t.Close(); err != nil {
		log.Fatal(err)
	}
}

func newStore(path string) (checkpointer.Store, error) {
	if strings.HasSuffix(path, ".db") {
		s, err := checkpointer.NewSQLiteStore(path)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
	f, err := checkpointer.NewFileStore(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

// plotReturns plots the rolling mean returns and episode rewards in r
// to an HTML file
func plotReturns(filename, title string, r tracker.Reader) error {
	keys, err := r.Keys()
	if err != nil {
		return err
	}
	plotted := make([]tracker.Key, 0, len(keys))
	for _, k := range keys {
		if strings.HasSuffix(k.Metric, tracker.RollingSuffix) {
			plotted = append(plotted, k)
		}
	}

	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := tracker.Plot(f, title, r, plotted...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
