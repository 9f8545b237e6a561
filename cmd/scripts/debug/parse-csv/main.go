package main

import (
	"fmt"
	"os"

	"github.com/jessevdk/go-flags"
	"github.com/robinjoseph08/golib/logger"
	"github.com/shishobooks/circulation/pkg/csvio"
)

func main() {
	log := logger.New()

	var opts struct {
		Kind    string `short:"k" long:"kind" default:"books" choice:"books" choice:"members" description:"What the file holds"`
		Verbose bool   `short:"v" long:"verbose" description:"Print every parsed row, not just failures"`
	}

	args, err := flags.Parse(&opts)
	if err != nil {
		log.Err(err).Fatal("flags parse error")
	}

	if len(args) != 1 {
		fmt.Println("go run ./cmd/scripts/debug/parse-csv [--kind books|members] <path/to/file.csv>")
		os.Exit(1)
	}

	f, err := os.Open(args[0])
	if err != nil {
		log.Err(err).Fatal("open file error")
	}
	defer f.Close()

	var ok, failed int
	report := func(line int, value interface{}, rowErr error) {
		if rowErr != nil {
			failed++
			fmt.Printf("line %d: %v\n", line, rowErr)
			return
		}
		ok++
		if opts.Verbose {
			fmt.Printf("line %d: %+v\n", line, value)
		}
	}

	switch opts.Kind {
	case "members":
		rows, err := csvio.ReadMembers(f)
		if err != nil {
			log.Err(err).Fatal("csv parse error")
		}
		for _, r := range rows {
			report(r.Line, r.Value, r.Err)
		}
	default:
		rows, err := csvio.ReadBooks(f)
		if err != nil {
			log.Err(err).Fatal("csv parse error")
		}
		for _, r := range rows {
			report(r.Line, r.Value, r.Err)
		}
	}

	fmt.Printf("Parsed %d rows, %d failed\n", ok, failed)
}
