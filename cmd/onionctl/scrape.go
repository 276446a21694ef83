package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/HannahMarsh/simple-onion-routing/pkg/utils"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type scrapeTarget struct {
	job string
	url string
}

type scrapeResult struct {
	target  scrapeTarget
	samples int
	err     error
}

func (o *options) scrapeTargets() []scrapeTarget {
	var targets []scrapeTarget
	for _, sc := range o.cfg.PrometheusConfig().ScrapeConfigs {
		for _, st := range sc.StaticConfigs {
			targets = append(targets, utils.Map(st.Targets, func(addr string) scrapeTarget {
				return scrapeTarget{job: sc.JobName, url: fmt.Sprintf("http://%s/metrics", addr)}
			})...)
		}
	}
	return targets
}

// scrapeOnce fetches every target concurrently and returns results in target order.
func scrapeOnce(ctx context.Context, client *http.Client, targets []scrapeTarget) []scrapeResult {
	results := make([]scrapeResult, len(targets))
	var wg sync.WaitGroup
	wg.Add(len(targets))
	for i, target := range targets {
		go func(i int, target scrapeTarget) {
			defer wg.Done()
			n, err := scrapeMetrics(ctx, client, target.url)
			results[i] = scrapeResult{target: target, samples: n, err: err}
		}(i, target)
	}
	wg.Wait()
	return results
}

// scrapeMetrics returns the number of sample lines exposed at url.
func scrapeMetrics(ctx context.Context, client *http.Client, url string) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to scrape %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, errors.Errorf("%s: unexpected status code %d", url, resp.StatusCode)
	}

	samples := 0
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" && !strings.HasPrefix(line, "#") {
			samples++
		}
	}
	if err = scanner.Err(); err != nil {
		return samples, errors.Wrapf(err, "failed to read %s", url)
	}
	slog.Debug("scraped metrics", "url", url, "samples", samples)
	return samples, nil
}

func newScrapeCmd(opts *options) *cobra.Command {
	var interval time.Duration
	var rounds int
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Fetch the metrics endpoint of every node that exposes one",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := opts.scrapeTargets()
			if len(targets) == 0 {
				return errors.New("no node in the config exposes a prometheus port")
			}
			ctx := opts.context(cmd)
			failed := 0
			for round := 0; rounds <= 0 || round < rounds; round++ {
				if round > 0 {
					select {
					case <-ctx.Done():
						return ctx.Err()
					case <-time.After(interval):
					}
				}
				failed = 0
				for _, res := range scrapeOnce(ctx, opts.client, targets) {
					if res.err != nil {
						failed++
						fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\terror: %v\n", res.target.job, res.target.url, res.err)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d samples\n", res.target.job, res.target.url, res.samples)
				}
			}
			if failed > 0 {
				return errors.Errorf("%d of %d targets failed", failed, len(targets))
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "time between scrape rounds")
	cmd.Flags().IntVar(&rounds, "rounds", 1, "number of scrape rounds, 0 scrapes until interrupted")
	return cmd
}
