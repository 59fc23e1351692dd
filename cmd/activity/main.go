package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"
	_ "time/tzdata"

	"petwatch/internal/app"
	"petwatch/internal/model"
)

func main() {
	all := flag.Bool("all", false, "Recompute the whole history")
	start := flag.String("start", "", "Window start, YYYYMMDD_HHMMSS")
	end := flag.String("end", "", "Window end, YYYYMMDD_HHMMSS")
	minutes := flag.Int("minutes", 0, "Recompute the last N minutes")
	device := flag.String("device", "", "Device serial (default every configured device)")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	application, err := app.NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer application.Close()

	svc := application.Manager().GetActivityService()
	loc := application.Config().Location()

	devices := application.Manager().Devices()
	if *device != "" {
		devices = []string{*device}
	}

	var from, to time.Time
	switch {
	case *all:
	case *start != "" || *end != "":
		from = model.ParseTimestamp(*start, loc)
		to = model.ParseTimestamp(*end, loc)
		if from.IsZero() || to.IsZero() {
			log.Fatalf("--start and --end must both be YYYYMMDD_HHMMSS")
		}
	case *minutes > 0:
		to = application.Manager().Clock().Now()
		from = to.Add(-time.Duration(*minutes) * time.Minute)
	default:
		flag.Usage()
		os.Exit(2)
	}

	failed := false
	for _, dev := range devices {
		var buckets []model.ActivityBucket
		if *all {
			buckets, err = svc.ProcessAll(ctx, dev)
		} else {
			buckets, err = svc.ProcessInterval(ctx, dev, from, to)
		}
		if err != nil {
			log.Printf("%s: %v", dev, err)
			failed = true
			continue
		}

		fmt.Printf("%s: %d bucket(s)\n", dev, len(buckets))
		for _, b := range buckets {
			fmt.Printf("  %s %s %8.2f\n", b.Date, b.Time, b.Active)
		}
	}

	if failed {
		os.Exit(1)
	}
}
