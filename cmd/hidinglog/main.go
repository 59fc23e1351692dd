package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	_ "time/tzdata"

	"petwatch/internal/app"
)

func main() {
	device := flag.String("device", "", "Device serial (default every configured device)")
	date := flag.String("date", "", "Only this day, YYYYMMDD (default full history)")
	flag.Parse()

	application, err := app.NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}
	defer application.Close()

	devices := application.Manager().Devices()
	if *device != "" {
		devices = []string{*device}
	}

	svc := application.Manager().GetOcclusionService()
	for _, dev := range devices {
		events, err := svc.Log(context.Background(), dev, *date)
		if err != nil {
			log.Fatalf("%s: %v", dev, err)
		}

		fmt.Printf("%s: %d hiding event(s)\n", dev, len(events))
		for _, e := range events {
			fmt.Printf("  %s  %s", e.Timestamp, e.Reason)
			for _, kp := range e.LowConfidence {
				fmt.Printf("  %s=%.2f", kp.Name, kp.Confidence)
			}
			fmt.Println()
		}
	}
}
