package main

//go-build: CGO_ENABLED=0

import (
	"flag"
	"log"
	"time"

	fx "github.com/robotalks/lockstep/pkg/framework"
	"github.com/robotalks/lockstep/pkg/l0/link"
	"github.com/robotalks/lockstep/pkg/l1"
	env "github.com/robotalks/lockstep/pkg/l1/env/controller"
	"github.com/robotalks/lockstep/pkg/routine"
)

func init() {
	env.SetControllerType("lockstep", l1.ControllerMeta{Description: "Lockstep routine sequencer"})
	env.SetupFlags()
	routine.SetupFlags()
}

func main() {
	flag.Parse()

	conf := routine.NewConfig()
	if err := conf.Resolve(time.Now()); err != nil {
		log.Fatalln(err)
	}
	envConf := env.NewConfig()
	step, err := conf.StepMeta()
	if err != nil {
		log.Fatalln(err)
	}
	envConf.Info.Meta.Step = step
	e := envConf.MustNewEnv()
	routines := routine.Chain{routine.LogRoutine{}}
	loop := fx.NewLoop()
	if conf.Firmware != "" {
		fw, err := link.Open(conf.Firmware)
		if err != nil {
			log.Fatalln(err)
		}
		routines = append(routines, fw)
		loop.Add(fw)
	}
	d, err := conf.NewDispatcher(e.Registrar, routines)
	if err != nil {
		log.Fatalln(err)
	}
	loop.WithClock(conf.Interval, conf.Epoch).Add(e, d)

	if err := fx.NewRunner().HandleSignals().Run(loop); err != nil {
		log.Fatalln(err)
	}
}
