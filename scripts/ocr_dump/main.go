package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"typingscore/pkg/backend"
	"typingscore/pkg/config"
	"typingscore/pkg/ocr"
)

// Prints every recognized line with its center and the template region it
// falls in, for checking template coordinates against a real screenshot.
func main() {
	path := flag.String("path", "", "image path or http(s) URL")
	flag.Parse()
	if *path == "" {
		log.Fatal("--path is required")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Backend == config.BackendGemini {
		log.Fatal("ocr_dump needs a line provider; set OCR_BACKEND=readapi or tesseract")
	}
	tmpl, err := ocr.LoadTemplate(cfg.TemplatePath)
	if err != nil {
		log.Fatalf("template: %v", err)
	}
	provider, err := backend.NewProvider(cfg, tmpl)
	if err != nil {
		log.Fatalf("provider: %v", err)
	}
	poller := ocr.NewPoller(provider)
	poller.Interval = cfg.PollInterval
	lines, err := poller.Run(context.Background(), *path)
	if err != nil {
		log.Fatalf("recognize: %v", err)
	}
	fmt.Printf("template=%s lines=%d\n", tmpl.Name, len(lines))
	for i, l := range lines {
		center, ok := l.Center()
		region := "-"
		for _, r := range tmpl.Regions {
			if ok && r.Polygon.Contains(center) {
				region = string(r.Field)
				break
			}
		}
		fmt.Printf("%3d center=(%.0f,%.0f) region=%-22s text=%q\n", i, center.X, center.Y, region, l.Text)
	}
}
