package main

import (
	"flag"
	"log"

	"github.com/danmuck/plotctl/internal/config"
)

func main() {
	output := flag.String("output", "cmd/plotctl/config.toml", "output path for config template")
	transport := flag.String("transport", "", "transport to prefill (serial device, tcp://host:port, or -)")
	validate := flag.Bool("validate", false, "validate an existing config file")
	input := flag.String("input", "cmd/plotctl/config.toml", "config path for validation")
	force := flag.Bool("force", false, "overwrite existing config file")
	flag.Parse()

	if *validate {
		if _, err := config.LoadPlotterConfig(*input); err != nil {
			log.Fatal(err)
		}
		log.Printf("Validated plotctl config at %s", *input)
		return
	}

	cfg := config.Default()
	cfg.Transport = *transport
	if err := config.WriteTemplate(*output, cfg, *force); err != nil {
		log.Fatal(err)
	}
	log.Printf("Wrote plotctl config template to %s", *output)
}
