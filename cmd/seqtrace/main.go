package main

import (
	"flag"
	"log"
	"os"

	"github.com/robotalks/lockstep/pkg/diag"
	"github.com/robotalks/lockstep/pkg/routine"
	"github.com/robotalks/lockstep/pkg/sequencer"
)

var (
	steps     = diag.DefaultSteps
	orderFile string
	verbose   bool
)

func init() {
	flag.IntVar(&steps, "n", steps, "Number of advances to print.")
	flag.StringVar(&orderFile, "order-file", orderFile, "YAML file with the order table, default order if empty.")
	flag.BoolVar(&verbose, "verbose", verbose, "Print cursor and traveling down tag too.")
}

func main() {
	flag.Parse()

	conf := routine.NewConfig()
	if orderFile != "" {
		if err := conf.LoadFile(orderFile); err != nil {
			log.Fatalln(err)
		}
	}
	table, err := conf.Table()
	if err != nil {
		log.Fatalln(err)
	}
	trace := diag.Trace
	if verbose {
		trace = diag.TraceVerbose
	}
	if err := trace(sequencer.New(table), steps, os.Stdout); err != nil {
		log.Fatalln(err)
	}
}
