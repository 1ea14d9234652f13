// Command cmd_debug_preproc writes the image the tesseract backend actually
// recognizes, for tuning the preprocessing and the template.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"typingscore/pkg/ocr"
	"typingscore/pkg/ocr/tesseract"
)

func main() {
	in := flag.String("in", "", "screenshot to preprocess")
	out := flag.String("out", "/tmp/preprocessed.png", "where to write the result")
	templatePath := flag.String("template", "", "region template (default embedded)")
	flag.Parse()
	if *in == "" {
		log.Fatalf("-in required")
	}
	tmpl, err := ocr.LoadTemplate(*templatePath)
	if err != nil {
		log.Fatalf("template: %v", err)
	}
	data, err := os.ReadFile(*in)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	img, scale, err := tesseract.Preprocess(data, tmpl.Width)
	if err != nil {
		log.Fatalf("preprocess: %v", err)
	}
	if err := os.WriteFile(*out, img, 0o644); err != nil {
		log.Fatalf("save: %v", err)
	}
	fmt.Printf("wrote %s (%d bytes, template=%s width=%d scale=%.3f)\n", *out, len(img), tmpl.Name, tmpl.Width, scale)
}
