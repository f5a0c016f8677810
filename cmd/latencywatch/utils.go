package main

import (
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"latencywatch/internal/models"
)

const (
	AppName    = "latencywatch"
	AppVersion = "0.3.0"
	AppDesc    = "TCP connect latency monitor for exchange endpoints"
)

// printSamples writes one row per sample in roster order.
func printSamples(w io.Writer, endpoints []models.Endpoint, samples []models.Sample) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tEXCHANGE\tADDRESS\tSTATUS\tRTT")
	for i, s := range samples {
		exchange := ""
		if i < len(endpoints) {
			exchange = endpoints[i].Exchange
		}
		fmt.Fprintf(tw, "%s\t%s\t%s:%d\t%s\t%s\n", s.EndpointID, exchange, s.Host, s.Port, s.Status, formatRTT(s))
	}
	return tw.Flush()
}

func formatRTT(s models.Sample) string {
	if s.RTTMs == nil {
		return "-"
	}
	return strconv.FormatInt(*s.RTTMs, 10) + "ms"
}
