package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	fx "github.com/robotalks/lockstep/pkg/framework"
	"github.com/robotalks/lockstep/pkg/l1/comm/mqtt"
	"github.com/robotalks/lockstep/pkg/lockstep"
)

var (
	mqttURL = "mqtt://localhost:1883/lockstep/"
	summary = 10 * time.Second
)

func init() {
	if val := os.Getenv("LOCKSTEP_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
	flag.DurationVar(&summary, "summary", summary, "Print observed controllers periodically, 0 to disable.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	defer q.Close()

	mon := lockstep.NewMonitor()
	mon.Subscribe(q, func(d lockstep.Divergence) {
		log.Println(d)
	})

	err = fx.NewRunner().HandleSignals().Run(fx.RunFunc(func(ctx context.Context) error {
		return mon.Report(ctx, summary, os.Stdout)
	}))
	if err != nil {
		log.Fatalln(err)
	}
}
