package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/kamilpajak/heartrisk/pkg/assessment"
	"github.com/kamilpajak/heartrisk/pkg/prediction"
)

func printVerdict(stderr, stdout io.Writer, v prediction.Verdict) {
	bold := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)

	fmt.Fprintln(stderr)

	if v.Kind == prediction.KindError {
		red := color.New(color.FgRed, color.Bold)
		_, _ = red.Fprintln(stdout, strings.ToUpper(v.Title()))
		fmt.Fprintln(stdout, v.Message)
		for _, d := range v.Details {
			_, _ = dim.Fprint(stdout, "  - ")
			fmt.Fprintln(stdout, d)
		}
		return
	}

	headline := color.New(color.FgGreen, color.Bold)
	if v.HighRisk() {
		headline = color.New(color.FgRed, color.Bold)
	}
	_, _ = headline.Fprintln(stdout, strings.ToUpper(v.Title()))

	_, _ = dim.Fprintln(stderr, "  "+strings.Repeat("━", 50))
	printRiskBar(stderr, v)
	fmt.Fprintln(stderr)

	_, _ = bold.Fprintln(stdout, "ADVICE")
	fmt.Fprintln(stdout, v.Advice())
}

func printRiskBar(w io.Writer, v prediction.Verdict) {
	const barWidth = 24
	filled := int(v.Percent) * barWidth / 100
	filled = max(0, min(filled, barWidth))

	barColor := color.New(color.FgGreen)
	if v.HighRisk() {
		barColor = color.New(color.FgRed)
	}

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	fmt.Fprintf(w, "  Probability: %s ", v.Display())
	_, _ = barColor.Fprint(w, bar)
	dim := color.New(color.FgHiBlack)
	_, _ = dim.Fprintf(w, " (threshold %.0f%%)\n", prediction.Threshold*100)
}

func printFormErrors(w io.Writer, errs assessment.ValidationErrors) {
	red := color.New(color.FgRed)
	_, _ = red.Fprintln(w, "The assessment cannot be submitted:")
	for _, e := range errs {
		fmt.Fprintf(w, "  - %s: %s\n", e.Key, e.Message)
	}
}

func printFields(w io.Writer) {
	bold := color.New(color.Bold)
	dim := color.New(color.FgHiBlack)

	for _, f := range assessment.Fields() {
		_, _ = bold.Fprintf(w, "%-9s", f.String())
		fmt.Fprint(w, f.Label())
		if rng, ok := f.Range(); ok {
			fmt.Fprintf(w, "  [%g, %g]", rng.Min, rng.Max)
			if f.Unit() != "" {
				fmt.Fprintf(w, " %s", f.Unit())
			}
		}
		fmt.Fprintln(w)
		for _, o := range f.Options() {
			fmt.Fprintf(w, "           %d = %s\n", o.Code, o.Label)
		}
		if f.Note() != "" {
			_, _ = dim.Fprintf(w, "           note: %s\n", f.Note())
		}
	}
}
