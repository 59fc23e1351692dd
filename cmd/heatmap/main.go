package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	_ "time/tzdata"

	"petwatch/internal/app"
	"petwatch/internal/model"
	"petwatch/internal/service/heatmap"
)

func main() {
	date := flag.String("date", "", "Day to render, YYYYMMDD (default yesterday)")
	mode := flag.String("mode", string(heatmap.ModeCron), "Storage mode: cron or test")
	device := flag.String("device", "", "Device serial (default every configured device)")
	flag.Parse()

	if m := heatmap.Mode(*mode); m != heatmap.ModeCron && m != heatmap.ModeTest {
		log.Fatalf("--mode must be cron or test, got %q", *mode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	application, err := app.NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer application.Close()

	if *date == "" {
		*date = application.Manager().Clock().Now().In(application.Config().Location()).AddDate(0, 0, -1).Format(model.DateLayout)
	}

	devices := application.Manager().Devices()
	if *device != "" {
		devices = []string{*device}
	}

	svc := application.Manager().GetHeatmapService()
	failed := false
	for _, dev := range devices {
		result, err := svc.GenerateAndUpload(ctx, dev, *date, heatmap.Mode(*mode))
		if err != nil {
			log.Printf("%s: %v", dev, err)
			failed = true
			continue
		}
		if !result.Success {
			failed = true
		}
		fmt.Printf("%s %s success=%t %s %s\n", dev, result.Date, result.Success, result.Message, result.URL)
	}

	if failed {
		os.Exit(1)
	}
}
