package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/epcc-data/ascent.report/internal/version"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to load .env file: %v", err)
	}

	flag.Usage = printUsage
	flag.Parse()

	if flag.NArg() < 1 {
		printUsage()
		os.Exit(1)
	}

	command := flag.Arg(0)
	args := flag.Args()[1:]

	switch command {
	case "ingest":
		handleIngest(args)
	case "detect":
		handleDetect(args)
	case "plot":
		handlePlot(args)
	case "indices":
		handleIndices(args)
	case "charge":
		handleCharge(args)
	case "list":
		handleList(args)
	case "serve":
		handleServe(args)
	case "migrate":
		handleMigrate(args)
	case "version":
		fmt.Printf("ascent-report %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`ascent-report - radiosonde ascent analysis and cloud layer reporting

Usage: ascent-report <command> [options]

Commands:
  ingest     Read a raw flight log (and GPS track) and store the ascent
  detect     Run cloud layer detection over stored ascents
  plot       Render an RH(ice) profile with detected layers to PNG
  indices    Print stability indices and parcel parameters for an ascent
  charge     Calibrate the charge sensors and model the ground field
  list       List stored ascents
  serve      Run the HTTP API with the background detection worker
  migrate    Manage database schema migrations (up/down/status/force)
  version    Show build version
  help       Show this help message

Common Flags:
  --db <file>        SQLite database path (default: ascent_data.db)
  --config <file>    Tuning config JSON (detector thresholds and params)

Examples:
  # Store flight 5 from the raw data directory
  ascent-report ingest --data /data/flights --flight 5

  # Detect layers for everything pending
  ascent-report detect

  # Plot one ascent
  ascent-report plot --ascent flight-05 --out flight5.png

  # Serve the API on port 8080 with heights in feet
  ascent-report serve --listen :8080 --units ft`)
}
