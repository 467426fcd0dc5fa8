package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/kabhi-dev/apimon/internal/probe"
	"github.com/kabhi-dev/apimon/internal/scheduler"
)

// executeCheck probes each URL concurrently and prints the phase
// breakdown as a table. It returns an error when any URL is not up, so
// the exit code is usable in scripts.
func executeCheck(out io.Writer, prober scheduler.Prober, urls []string) error {
	type row struct {
		url    string
		result *probe.Result
		err    error
	}

	rows := make([]row, len(urls))
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			res, err := prober.Measure(context.Background(), u, nil)
			rows[i] = row{url: u, result: res, err: err}
		}(i, u)
	}
	wg.Wait()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "URL\tCODE\tUP\tTOTAL\tDNS\tTCP\tTLS\tSERVER\tDOWNLOAD\tTYPE\tERROR")
	allUp := true
	for _, r := range rows {
		if r.err != nil {
			fmt.Fprintf(w, "%s\t-\tno\t-\t-\t-\t-\t-\t-\t-\t%v\n", r.url, r.err)
			allUp = false
			continue
		}
		up := "yes"
		if !r.result.Up {
			up = "no"
			allUp = false
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%.2fms\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t\n",
			r.url,
			r.result.StatusCode,
			up,
			r.result.TotalMS,
			r.result.DNSMs,
			r.result.TCPMs,
			r.result.TLSMs,
			r.result.ServerMS,
			r.result.DownloadMS,
			r.result.ContentClass,
		)
	}
	w.Flush()

	if !allUp {
		return fmt.Errorf("one or more URLs are down")
	}
	return nil
}
