package main

import (
	"github.com/spf13/cobra"

	"scholar/internal/domain/research"
)

type requestFlags struct {
	topic       string
	background  string
	depth       string
	maxPapers   int
	timePeriod  string
	domains     []string
	criteria    string
	maxSearches int
	model       string
}

func (f *requestFlags) bind(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.topic, "topic", "", "Research topic (required)")
	flags.StringVar(&f.background, "background", "", "Background context for the brief")
	flags.StringVar(&f.depth, "depth", string(research.DepthStandard), "quick, standard or deep")
	flags.IntVar(&f.maxPapers, "max-papers", research.DefaultMaxPapers, "Maximum papers to analyze")
	flags.StringVar(&f.timePeriod, "time-period", "", "Restrict to a time period, e.g. 2020-2024")
	flags.StringSliceVar(&f.domains, "domain", nil, "Focus domain (repeatable)")
	flags.StringVar(&f.criteria, "criteria", "", "Completion criteria")
	flags.IntVar(&f.maxSearches, "max-searches", research.DefaultMaxSearches, "Web search budget")
	flags.StringVar(&f.model, "model", "", "Model recorded in session metadata")
	_ = cmd.MarkFlagRequired("topic")
}

func (f *requestFlags) request() research.Request {
	return research.Request{
		Topic:              f.topic,
		Background:         f.background,
		Depth:              research.Depth(f.depth),
		MaxPapers:          f.maxPapers,
		TimePeriod:         f.timePeriod,
		Domains:            f.domains,
		CompletionCriteria: f.criteria,
		MaxSearches:        f.maxSearches,
		Model:              f.model,
	}
}
