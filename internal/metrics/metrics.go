package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rkgold_scans_total",
		Help: "Tag payloads accepted into the session.",
	})

	ParseFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rkgold_scan_parse_failures_total",
		Help: "Tag payloads rejected by the parser.",
	})

	InvoicesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rkgold_invoices_total",
		Help: "Invoice documents generated, by format.",
	}, []string{"format"})
)
